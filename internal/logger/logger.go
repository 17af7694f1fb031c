// Package logger initializes the process-wide zap logger. Handlers mostly
// rely on sentinel-error-to-status mapping and do not log; the logger is
// used by the storage layer, the event publisher/consumer and startup code.
package logger

import (
	"go.uber.org/zap"
)

// L is the shared logger instance. It defaults to a no-op logger so tests
// can use packages that log without calling Init.
var L *zap.Logger = zap.NewNop()

// Init replaces L with a real logger. In "dev" a human-readable console
// logger is used; anything else gets the JSON production config.
func Init(env string) error {
	var (
		l   *zap.Logger
		err error
	)
	if env == "dev" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	L = l
	return nil
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	_ = L.Sync()
}
