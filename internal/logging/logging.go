// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// TimestampFormat renders log times as YYYY.MM.DD HH:MM:SS.
const TimestampFormat = "2006.01.02 15:04:05"

// New returns a text logger at level writing to path, or to stderr when path
// is empty. The file is opened for append and created if missing; close it
// with Close when the process exits.
func New(level, path string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var out io.Writer = os.Stderr
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: TimestampFormat,
		DisableColors:   path != "",
	})
	return log, nil
}

// Close closes the logger's output if it is a file.
func Close(log *logrus.Logger) error {
	if f, ok := log.Out.(*os.File); ok && f != os.Stderr && f != os.Stdout {
		return f.Close()
	}
	return nil
}
