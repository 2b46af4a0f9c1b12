// Package log constructs loggers for phonograph components. Debug
// level is switched on with the PHONOGRAPH_DEBUG environment variable.
package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var debug bool

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv("PHONOGRAPH_DEBUG"))
	if err != nil {
		debug = false
	}
}

// GetLogger returns a new logger instance
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// ForComponent returns a logger entry scoped to a named component
// instance, e.g. an engine or a device driver identified by its UID.
func ForComponent(name, id string) logrus.FieldLogger {
	return GetLogger().WithField(name, id)
}
