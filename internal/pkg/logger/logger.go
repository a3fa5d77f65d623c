// Package logger configures the global logrus logger.
package logger

import (
	"io"
	"os"

	"github.com/ds124wfegd/imageslicer/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup switches logrus to JSON output at the configured level. When a log
// file is configured records go to stdout and to a rotated file.
// The returned closer flushes the rotated file and is safe to call when no
// file is configured.
func Setup(cfg config.LogConfig) (io.Closer, error) {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	logrus.SetLevel(level)

	if cfg.File == "" {
		logrus.SetOutput(os.Stdout)
		return nopCloser{}, nil
	}

	rotated := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays, // days
		Compress:   cfg.Compress,
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, rotated))
	return rotated, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
