// Package logging handles log setup including rotation and system info.
package logging

import (
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"git.uuxo.net/uuxo/mimedb/internal/config"
)

// SetupLogging configures log based on cfg.
func SetupLogging(cfg *config.Config, log *logrus.Logger) {
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.Logging.File != "" {
		maxSize := cfg.Logging.MaxSize
		if maxSize == 0 {
			maxSize = 100
		}
		maxBackups := cfg.Logging.MaxBackups
		if maxBackups == 0 {
			maxBackups = 3
		}
		maxAge := cfg.Logging.MaxAge
		if maxAge == 0 {
			maxAge = 28
		}

		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
			Compress:   cfg.Logging.Compress,
		})
	} else {
		log.SetOutput(os.Stdout)
	}

	log.Infof("Logging initialized at level: %s", level)
}

// LogSystemInfo logs system information at startup.
func LogSystemInfo(log *logrus.Logger, version string) {
	hostname, _ := os.Hostname()
	log.WithFields(logrus.Fields{
		"hostname": hostname,
		"os":       runtime.GOOS,
		"arch":     runtime.GOARCH,
		"go":       runtime.Version(),
		"cpus":     runtime.NumCPU(),
		"version":  version,
		"pid":      os.Getpid(),
	}).Info("System information")
}

// WritePIDFile writes the current process ID to pidPath.
func WritePIDFile(pidPath string, log *logrus.Logger) error {
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d", pid)), 0644); err != nil {
		log.Errorf("Failed to write PID file: %v", err)
		return err
	}
	log.Infof("PID %d written to %s", pid, pidPath)
	return nil
}

// RemovePIDFile removes the PID file.
func RemovePIDFile(pidPath string, log *logrus.Logger) {
	if err := os.Remove(pidPath); err != nil {
		log.Errorf("Failed to remove PID file: %v", err)
		return
	}
	log.Infof("PID file %s removed successfully", pidPath)
}
