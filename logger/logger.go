// Package logger builds the process logger: a console core on stderr,
// optionally teed with a size-rotated log file.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Level is one of debug, info, warn or error.
	Level string

	// Color enables colored level names on the console.
	Color bool

	// File is a log file path. Empty logs to the console only.
	File string

	// MaxSize is the file size in megabytes that triggers rotation.
	MaxSize    int
	MaxBackups int
	// MaxAge is in days.
	MaxAge int

	// Console overrides the console output, stderr by default.
	Console io.Writer
}

func newEncoder(color bool) zapcore.Encoder {
	level := zapcore.CapitalLevelEncoder
	if color {
		level = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:       "message",
		LevelKey:         "level",
		TimeKey:          "time",
		NameKey:          "logger",
		CallerKey:        "caller",
		EncodeLevel:      level,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	})
}

func newFileCore(cfg Config, level zapcore.Level) zapcore.Core {
	w := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		LocalTime:  true,
	}
	// never color a file
	return zapcore.NewCore(newEncoder(false), zapcore.AddSync(w), level)
}

// New builds a logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}

	out := cfg.Console
	if out == nil {
		out = os.Stderr
	}
	core := zapcore.NewCore(newEncoder(cfg.Color), zapcore.Lock(zapcore.AddSync(out)), level)
	if cfg.File != "" {
		core = zapcore.NewTee(core, newFileCore(cfg, level))
	}

	return zap.New(core, zap.AddCaller()), nil
}
