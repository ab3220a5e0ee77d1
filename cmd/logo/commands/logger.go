package commands

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

// logrusLogger adapts a logrus entry to logo.Logger.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogger returns a logo.Logger writing text logs to out. Debug messages
// are only written when verbose is set.
func NewLogger(out io.Writer, verbose bool) logo.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: !verbose})
	logger.SetLevel(logrus.WarnLevel)

	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	return &logrusLogger{entry: logger.WithField("component", "logo-cli")}
}

func newLogger() logo.Logger {
	return NewLogger(os.Stderr, viper.GetBool("verbose"))
}

func (l *logrusLogger) Debug(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

func (l *logrusLogger) Info(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Info(msg)
}

func (l *logrusLogger) Warn(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Warn(msg)
}

func (l *logrusLogger) Error(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Error(msg)
}
