// Package logging builds the process logger.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	// Release selects the JSON production encoder.
	Release bool
	// Debug enables debug level in development mode.
	Debug  bool
	Silent bool
}

func New(opts Options) (*zap.Logger, error) {
	if opts.Silent {
		return zap.NewNop(), nil
	}
	if opts.Release {
		return zap.NewProduction()
	}
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !opts.Debug {
		config.Level.SetLevel(zap.InfoLevel)
	}
	return config.Build()
}
