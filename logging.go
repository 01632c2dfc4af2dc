package main

import (
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"kanban-board/config"
)

const serviceName = "kanban-board"

// serviceHook stamps every entry with the service name.
type serviceHook struct{ name string }

func (h serviceHook) Levels() []log.Level { return log.AllLevels }

func (h serviceHook) Fire(e *log.Entry) error {
	if _, ok := e.Data["service"]; !ok {
		e.Data["service"] = h.name
	}
	return nil
}

func newLogger(cfg config.Config, out io.Writer) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(out)

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger.SetLevel(level)

	switch cfg.LogFormat {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: log.FieldMap{
				log.FieldKeyTime: "ts",
				log.FieldKeyMsg:  "message",
			},
		})
	default:
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	logger.AddHook(serviceHook{name: serviceName})
	return logger, nil
}
