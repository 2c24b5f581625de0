// Package flightlog provides the engine's ambient logging helpers: a
// Debugf that stays quiet during normal runs and an Infof for
// always-on summary lines.
package flightlog

import "log"

// Debugf logs through logger only when debug is true. A nil logger is a
// no-op, so callers can construct an Engine without one in tests.
func Debugf(logger *log.Logger, debug bool, format string, args ...any) {
	if !debug || logger == nil {
		return
	}
	logger.Printf("debug: "+format, args...)
}

// Infof always logs through logger when it is non-nil.
func Infof(logger *log.Logger, format string, args ...any) {
	if logger == nil {
		return
	}
	logger.Printf(format, args...)
}
