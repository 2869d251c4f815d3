package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the logging interface used throughout the module. It is
// satisfied by *logrus.Logger and *logrus.Entry.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
}

// NewLogger returns a component-scoped logger backed by the standard
// logrus logger.
func NewLogger(component string) *logrus.Entry {
	return logrus.StandardLogger().WithField("component", component)
}

// Discard returns a logger that drops all output. Intended for tests and
// for callers that opt out of logging.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
