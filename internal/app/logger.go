package app

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tutorhub-backend/internal/config"
)

// NewLogger builds the process logger: human-readable in development,
// JSON elsewhere, at the configured level.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Environment == "development" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
