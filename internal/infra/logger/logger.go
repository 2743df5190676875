// internal/infra/logger/logger.go
package logger

import (
	stdlog "log"
	"os"
	"strings"

	"habit_reminder_service/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// Log is the global logger instance
var Log = logrus.New()

// Init applies the configured level and format to Log. Output of the standard library
// logger (used by telebot's poller) is routed through Log at warn level.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)
	Log.SetLevel(levelFor(cfg.LogLevel))
	Log.SetFormatter(formatterFor(cfg.Environment))

	stdlog.SetFlags(0)
	stdlog.SetOutput(Log.WriterLevel(logrus.WarnLevel))

	Log.WithFields(logrus.Fields{
		"level":       Log.GetLevel().String(),
		"environment": cfg.Environment,
	}).Debug("Logger initialized")
}

func levelFor(name string) logrus.Level {
	level, err := logrus.ParseLevel(strings.ToLower(name))
	if err != nil {
		Log.Warnf("Invalid log level '%s', defaulting to 'info'", name)
		return logrus.InfoLevel
	}
	return level
}

func formatterFor(environment string) logrus.Formatter {
	switch strings.ToLower(environment) {
	case "production", "staging":
		return &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	default:
		return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"}
	}
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
