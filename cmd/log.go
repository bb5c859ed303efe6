package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a logger writing to stderr at level, as text or JSON.
func NewLogger(level string, json bool) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if json {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(lvl)
	return log, nil
}

// logError logs err with the command that failed, and prints it on stderr
// when the logger is not there yet.
func logError(log logrus.FieldLogger, command, context string, err error) {
	if log == nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	log.WithFields(logrus.Fields{
		"module":  "cmd",
		"command": command,
		"context": context,
	}).Error(err.Error())
}
