// Package logging configures the process-wide logrus logger.
// Diagnostics go to stderr so that stdout stays clean for JSON output;
// an optional log file is rotated by lumberjack.
package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the optional log file.
const (
	maxLogSizeMB  = 10
	maxLogBackups = 3
	maxLogAgeDays = 28
)

// Options selects the level and destinations of diagnostic logging.
type Options struct {
	Level string
	File  string
	// Stderr receives console output; nil means os.Stderr.
	Stderr io.Writer
}

// Setup configures the standard logrus logger and returns a closer for the
// log file, if any. Closing is a no-op when no file is configured.
func Setup(opts Options) io.Closer {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	log.SetFormatter(&log.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
	})
	SetLogLevel(opts.Level)

	if opts.File == "" {
		log.SetOutput(stderr)
		return nopCloser{}
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
	}
	log.SetOutput(io.MultiWriter(stderr, rotator))
	return rotator
}

// SetLogLevel maps a user-facing level name to a logrus level.
// Unknown names fall back to info.
func SetLogLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug", "verbose":
		log.SetLevel(log.DebugLevel)
	case "warn", "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	case "quiet", "silent":
		log.SetLevel(log.FatalLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
