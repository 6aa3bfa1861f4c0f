// Package logger constructs the shared hclog logger used across the service.
package logger

import (
	"github.com/hashicorp/go-hclog"
)

// New creates the root logger. Component loggers should be derived from it
// with Named so log lines carry their origin.
func New(level string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "muza-uploader",
		Level: hclog.LevelFromString(level),
	})
}
