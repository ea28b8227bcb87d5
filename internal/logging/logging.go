package logging

import (
	"fmt"
	"io"
	"os"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rensmac/taskboard/internal/config"
)

// Setup configures the global zerolog logger from the logging config.
// Format "console" writes human-readable output to stderr; "json" writes
// structured JSON. When file.path is set, output additionally goes to a
// rotating log file.
func Setup(cfg config.LoggingConfig) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var writers []io.Writer
	if cfg.Format == "console" {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		writers = append(writers, os.Stderr)
	}

	if cfg.File.Path != "" {
		rotator, err := rotatelogs.New(
			cfg.File.Path+".%Y%m%d",
			rotatelogs.WithLinkName(cfg.File.Path),
			rotatelogs.WithMaxAge(cfg.File.MaxAge),
			rotatelogs.WithRotationTime(cfg.File.Rotation),
		)
		if err != nil {
			return fmt.Errorf("failed to open rotating log file: %w", err)
		}
		writers = append(writers, rotator)
	}

	if len(writers) == 1 {
		log.Logger = log.Output(writers[0])
	} else {
		log.Logger = log.Output(zerolog.MultiLevelWriter(writers...))
	}

	return nil
}
