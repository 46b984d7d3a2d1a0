package utils

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// init configures the global logger once at import time.
func init() {
	log.SetFormatter(&log.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
	log.SetOutput(os.Stdout)

	level := log.InfoLevel
	if parsed, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && os.Getenv("LOG_LEVEL") != "" {
		level = parsed
	}
	log.SetLevel(level)
}
