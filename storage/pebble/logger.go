package pebble

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/casparschwa/beaconrunner/logging"
)

// pebbleLogger is a wrapper for pebble.Logger
type pebbleLogger struct {
	logger *zap.Logger
}

// newLogger creates a new instance of logger
func newLogger(l *zap.Logger) pebble.Logger {
	return &pebbleLogger{l.Named(logging.NamePebbleDBLog)}
}

// Infof implements pebble.Logger
func (pl *pebbleLogger) Infof(s string, i ...interface{}) {
	pl.logger.Info(fmt.Sprintf(s, i...))
}

// Errorf implements pebble.Logger
func (pl *pebbleLogger) Errorf(s string, i ...interface{}) {
	pl.logger.Error(fmt.Sprintf(s, i...))
}

// Fatalf implements pebble.Logger
func (pl *pebbleLogger) Fatalf(s string, i ...interface{}) {
	pl.logger.Fatal(fmt.Sprintf(s, i...))
}
