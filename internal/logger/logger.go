// Package logger configures the process-wide logrus logger.
package logger

import (
	"os"

	"parcel-backend/internal/config"

	log "github.com/sirupsen/logrus"
)

// Setup applies the configured level and format. Unknown levels fall back
// to info.
func Setup(cfg *config.Config) {
	log.SetOutput(os.Stdout)

	if cfg.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Printf("[Logger] Unknown level %q, using info", cfg.Log.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
