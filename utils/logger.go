package utils

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger *zap.Logger

// InitLogger sets up the global zap logger. Production JSON encoding by
// default, human-readable console encoding when APP_ENV=development.
func InitLogger() error {
	var cfg zap.Config
	if os.Getenv("APP_ENV") == "development" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	Logger = logger
	return nil
}

// SyncLogger flushes buffered log entries; call on shutdown
func SyncLogger() {
	if Logger != nil {
		Logger.Sync()
	}
}
