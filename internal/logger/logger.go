package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

type Config struct {
	Level  string
	Format string
	File   string
}

// PrepareLogger configures the standard logrus logger.
func PrepareLogger(config Config) error {
	level, err := log.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return fmt.Errorf("incorrect log level %q: %w", config.Level, err)
	}

	var formatter log.Formatter
	switch strings.ToLower(config.Format) {
	case "", "text":
		formatter = &log.TextFormatter{FullTimestamp: true}
	case "json":
		formatter = &log.JSONFormatter{}
	default:
		return fmt.Errorf("unknown log format %q", config.Format)
	}

	var out io.Writer = os.Stdout
	if config.File != "" {
		f, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
	}

	log.SetLevel(level)
	log.SetFormatter(formatter)
	log.SetOutput(out)
	return nil
}
