// Package logging holds the process-wide logger.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Log is the shared logger. Until Setup runs it logs warnings to stderr.
var Log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Setup sets the level and, when file is not empty, appends to that file
// instead of stderr. Closing the returned closer releases the file and
// sends output back to stderr.
func Setup(level, file string) (io.Closer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}
	Log.SetLevel(lvl)

	if file == "" {
		Log.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return nil, errors.Wrapf(err, "create log dir for %s", file)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %s", file)
	}
	Log.SetOutput(f)
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	return logFile{f}, nil
}

type logFile struct{ *os.File }

func (f logFile) Close() error {
	Log.SetOutput(os.Stderr)
	return f.File.Close()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
