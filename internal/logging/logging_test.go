package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected log.Level
	}{
		{"trace", "trace", log.TraceLevel},
		{"debug lowercase", "debug", log.DebugLevel},
		{"debug uppercase", "DEBUG", log.DebugLevel},
		{"verbose", "verbose", log.DebugLevel},
		{"info", "info", log.InfoLevel},
		{"info padded", "  info ", log.InfoLevel},
		{"warn", "warn", log.WarnLevel},
		{"warning", "Warning", log.WarnLevel},
		{"error", "ERROR", log.ErrorLevel},
		{"quiet", "quiet", log.FatalLevel},
		{"silent", "silent", log.FatalLevel},
		{"unknown string", "unknown", log.InfoLevel},
		{"empty string", "", log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log.SetLevel(log.PanicLevel)

			SetLogLevel(tt.input)

			if got := log.GetLevel(); got != tt.expected {
				t.Errorf("SetLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSetup_Stderr(t *testing.T) {
	var buf bytes.Buffer
	closer := Setup(Options{Level: "debug", Stderr: &buf})
	defer closer.Close()
	defer log.SetOutput(os.Stderr)

	log.WithField("records", 3).Debug("collapsed")

	out := buf.String()
	if !strings.Contains(out, "collapsed") || !strings.Contains(out, "records=3") {
		t.Errorf("unexpected log output: %q", out)
	}
}

func TestSetup_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	closer := Setup(Options{Level: "warn", Stderr: &buf})
	defer closer.Close()
	defer log.SetOutput(os.Stderr)

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestSetup_File(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "diario.log")

	closer := Setup(Options{Level: "info", File: path, Stderr: &buf})
	log.Info("written to both")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	log.SetOutput(os.Stderr)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written to both") {
		t.Errorf("log file missing message: %q", data)
	}
	if !strings.Contains(buf.String(), "written to both") {
		t.Errorf("stderr missing message: %q", buf.String())
	}
}
