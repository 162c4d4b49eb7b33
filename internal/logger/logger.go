// Package logger builds the zap logger shared by every command.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelEnv overrides the console log level
const LevelEnv = "IMGPT_LOG_LEVEL"

// Config controls where and how much is logged
type Config struct {
	// Level is a zap level name; empty means warn
	Level   string
	Verbose bool

	// FilePath enables a rotated JSON log file when set
	FilePath   string
	MaxSize    int
	MaxBackups int
	MaxAge     int

	// Console defaults to stderr
	Console io.Writer
}

// LevelFromEnv picks the console level: --verbose wins, then IMGPT_LOG_LEVEL.
func LevelFromEnv(verbose bool, lookupEnv func(string) (string, bool)) string {
	if verbose {
		return "debug"
	}
	if lookupEnv != nil {
		if v, ok := lookupEnv(LevelEnv); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return "warn"
}

// New builds a logger with a console core and an optional rotated file core.
// Every entry carries the run_id of this invocation.
func New(cfg Config) (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "msg"
	encoderConfig.LevelKey = "level"

	level := zapcore.WarnLevel
	if cfg.Verbose {
		level = zapcore.DebugLevel
	} else if cfg.Level != "" {
		if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	}

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	consoleEncoder := encoderConfig
	consoleEncoder.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoder), zapcore.AddSync(console), level),
	}

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, err
		}

		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSize, 10), // MB
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAge, 28), // days
			Compress:   true,
		}

		// The file always records debug detail
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(rotator),
			zapcore.DebugLevel,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger.With(zap.String("run_id", uuid.NewString())), nil
}

// NewNop returns a logger that discards everything
func NewNop() *zap.Logger {
	return zap.NewNop()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
