package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/diario/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Get or set configuration values",
	Long: `Get or set values in .diario/config.yml.

Keys:
  ` + strings.Join(config.Keys, "\n  "),
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show one or all configuration values",
	Long: `Show configuration values. Without a key, all keys are shown.

Values reflect .diario/config.yml only; OLLAMA_HOST and the global config
are applied at run time.

Examples:
  diario config get
  diario config get topics.min_topic_size`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in .diario/config.yml.

Examples:
  diario config set max_distance 5
  diario config set embedding.model nomic-embed-text
  diario config set log.file ~/.local/state/diario.log`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	keys := config.Keys
	if len(args) == 1 {
		keys = []string{normalizeKey(args[0])}
	}

	values := make(map[string]string, len(keys))
	for _, key := range keys {
		v, err := cfg.Get(key)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		values[key] = v
	}

	if humanOutput {
		if len(keys) == 1 {
			fmt.Println(values[keys[0]])
			return nil
		}
		for _, key := range keys {
			fmt.Printf("%-31s %s\n", key+":", values[key])
		}
		return nil
	}

	outputJSON(values)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	key := normalizeKey(args[0])
	value := args[1]
	if key == "log.file" {
		value = config.ExpandPath(value)
	}

	if err := cfg.Set(key, value); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Updated %s to %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{
			Status: "updated",
			Key:    key,
			Value:  value,
		})
	}

	return nil
}

// normalizeKey converts key formats (Topics.Min-Topic-Size, topics.min_topic_size) to consistent format
func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, "-", "_")
	return key
}
