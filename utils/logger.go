package utils

import (
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000000",
	})
}

// SetVerbose toggles debug-level output.
func SetVerbose(verbose bool) {
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// IsVerbose reports whether debug output is enabled.
func IsVerbose() bool {
	return log.IsLevelEnabled(logrus.DebugLevel)
}

// Verbose logs a debug message.
func Verbose(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Info logs an informational message.
func Info(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

// WithFields returns an entry carrying structured fields, for worker logs
// that always attach target/command/iteration context.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return log.WithFields(logrus.Fields(fields))
}
