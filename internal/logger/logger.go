package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the session logger. Production JSON encoding by default;
// ENV=development switches to console output and LOG_LEVEL=debug lowers
// the level. The logger is passed explicitly, never stored globally.
func New() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if os.Getenv("ENV") == "development" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if os.Getenv("LOG_LEVEL") == "debug" {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	// Keep stdout free for the TUI.
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
