package imagehandler

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds the process logger. JSON output uses the production
// config, console output the development one.
func NewLogger(cfg LoggingConfig) (*zap.SugaredLogger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}

	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
		zc.Level = level
	}

	plainLogger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return plainLogger.Sugar(), nil
}
