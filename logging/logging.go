package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level      string `yaml:"Level"`
	FilePath   string `yaml:"FilePath"`
	MaxSizeMB  int    `yaml:"MaxSizeMB"`
	MaxBackups int    `yaml:"MaxBackups"`
}

// New builds the process logger: a timestamped console writer, plus a
// size-rotated file when one is configured.
func New(conf Config) zerolog.Logger {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}

	if conf.FilePath != "" {
		maxSize := conf.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   conf.FilePath,
			MaxSize:    maxSize,
			MaxBackups: conf.MaxBackups,
		})
	}

	return zerolog.New(out).
		Level(parseLevel(conf.Level)).
		With().Timestamp().Int("pid", os.Getpid()).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
