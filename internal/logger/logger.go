// Package logger builds the service-wide zap logger.
package logger

import (
	"go.uber.org/zap"
)

// New returns a zap logger for the given environment: JSON production
// config for "production", human-readable development config otherwise.
func New(env string) *zap.Logger {
	var z *zap.Logger
	if env == "production" {
		z, _ = zap.NewProduction()
	} else {
		z, _ = zap.NewDevelopment()
	}
	return z
}
