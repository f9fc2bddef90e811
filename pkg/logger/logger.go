package logger

import (
	stdlog "log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// Verbosity levels passed to logr.Logger.V.
const (
	LevelInfo  = 0
	LevelDebug = 1
)

// New returns a named stderr logger.
func New(name string) logr.Logger {
	return stdr.New(stdlog.New(os.Stderr, "", stdlog.LstdFlags|stdlog.Lshortfile)).WithName(name)
}

// SetVerbosity sets the global stdr verbosity; 1 enables debug output.
func SetVerbosity(v int) {
	stdr.SetVerbosity(v)
}
