// Package logging builds the process-wide zap logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the encoder and level.
type Config struct {
	// Env is "dev" for console output or "prod" for JSON.
	Env   string
	Level string
}

// New returns a logger for cfg. Unknown levels are an error.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	switch cfg.Env {
	case "prod":
		zc = zap.NewProductionConfig()
	case "", "dev":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown app env %q", cfg.Env)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}
