// Package logging builds the zap loggers used across bomgraft.
package logging

import (
	"go.uber.org/zap"

	"bomgraft/internal/config"
)

// New builds a logger from the log section of the runtime configuration.
// An unparsable level falls back to info.
func New(cfg config.Log) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	} else {
		zapConfig.Encoding = "json"
	}
	// stdout carries command output.
	zapConfig.OutputPaths = []string{"stderr"}
	if cfg.OutputPath != "" {
		zapConfig.OutputPaths = []string{cfg.OutputPath}
	}

	return zapConfig.Build(zap.Fields(zap.String("service", "bomgraft")))
}

// Must is New with the production logger as fallback.
func Must(cfg config.Log) *zap.Logger {
	logger, err := New(cfg)
	if err != nil {
		fallback, _ := zap.NewProduction()
		return fallback
	}
	return logger
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger { return zap.NewNop() }
