// Package monitoring holds the diagnostic logger shared by the pipeline
// packages.
package monitoring

import (
	"fmt"
	"log"

	"go.uber.org/zap"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// NewZapLogger builds the zap logger used by the command line tools.
// Debug selects the human-readable development encoder.
func NewZapLogger(debug bool) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if debug {
		l, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		l, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return nil, fmt.Errorf("can't initialize zap logger: %w", err)
	}
	return l, nil
}

// ZapLogf adapts a sugared zap logger to the Logf signature.
func ZapLogf(s *zap.SugaredLogger) func(format string, v ...interface{}) {
	return func(format string, v ...interface{}) {
		s.Infof(format, v...)
	}
}
