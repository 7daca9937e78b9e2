// Package app holds the process-wide runtime built once at start-up and handed
// to every component.
package app

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/i474232898/weather-sync/internal/config"
	"github.com/i474232898/weather-sync/internal/metrics"
)

// Runtime bundles configuration, logging and metrics. It is created once per
// process by New and passed by pointer; its fields are never reassigned.
type Runtime struct {
	Config  *config.AppConfig
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

// New builds the runtime for cfg.
func New(cfg *config.AppConfig, name string) (*Runtime, error) {
	log, err := NewLogger(cfg.General)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Config:  cfg,
		Log:     log.Named(name),
		Metrics: metrics.New(),
	}, nil
}

// NewLogger builds a production zap logger honoring the configured level and file.
func NewLogger(gc config.GeneralConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(gc.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if gc.LogFile != "" {
		zc.OutputPaths = []string{gc.LogFile}
		zc.ErrorOutputPaths = []string{gc.LogFile}
	}

	return zc.Build()
}

// Nop returns a runtime that discards logs. Intended for tests.
func Nop(cfg *config.AppConfig) *Runtime {
	if cfg == nil {
		cfg = &config.AppConfig{}
	}
	return &Runtime{
		Config:  cfg,
		Log:     zap.NewNop(),
		Metrics: metrics.New(),
	}
}
