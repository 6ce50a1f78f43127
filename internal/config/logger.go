package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig controls the application and audit logs.
type LogConfig struct {
	Dir        string // directory holding rotated files
	Level      string // debug, info, warn or error
	MaxSizeMB  int    // size before rotation
	MaxBackups int    // rotated files kept
	MaxAgeDays int    // days a rotated file is kept
	Console    bool   // also write to stderr
}

// LoadLogConfig reads LOG_* variables.
func LoadLogConfig() LogConfig {
	return LogConfig{
		Dir:        envStr("LOG_DIR", "logs"),
		Level:      envStr("LOG_LEVEL", "info"),
		MaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 10),
		MaxBackups: envInt("LOG_MAX_BACKUPS", 7),
		MaxAgeDays: envInt("LOG_MAX_AGE_DAYS", 28),
		Console:    envBool("LOG_CONSOLE", true),
	}
}

// RotatingFile returns a lumberjack writer for name inside Dir.
func (c LogConfig) RotatingFile(name string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(c.Dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(c.Dir, name),
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
		Compress:   true,
	}, nil
}

// NewLogger builds a zap logger writing JSON to a rotated file under Dir
// and, when Console is set, human readable lines to stderr.
func NewLogger(c LogConfig, name string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.Level, err)
	}
	file, err := c.RotatingFile(name + ".log")
	if err != nil {
		return nil, err
	}

	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(file), level),
	}
	if c.Console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stderr),
			level,
		))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
