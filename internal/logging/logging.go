package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"pdf-chatbot/internal/config"
)

// Setup configures the global zerolog logger: a console writer on stdout
// and, when cfg.File is set, a rotating JSON file.
func Setup(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = zerolog.New(writer(cfg, os.Stdout)).With().Timestamp().Caller().Logger()
}

func writer(cfg config.LogConfig, stdout io.Writer) io.Writer {
	console := zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}
	if cfg.File == "" {
		return console
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	return zerolog.MultiLevelWriter(console, rotator)
}
