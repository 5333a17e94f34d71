package utils

import (
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a zap logger. When debug is true, uses development config
// (human-readable, debug level); otherwise uses production config (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// StdLogger adapts logger for libraries that expect a *log.Logger, such as gorm.
// Lines are written at warn level so query noise stays out of info output.
func StdLogger(logger *zap.Logger, name string) *log.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	std, err := zap.NewStdLogAt(logger.Named(name), zapcore.WarnLevel)
	if err != nil {
		return zap.NewStdLog(logger.Named(name))
	}
	return std
}
