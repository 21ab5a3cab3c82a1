package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestLogger(t *testing.T) {

	logger := NewLogger(slog.LevelDebug, nil)

	logger.Info("info test")
	logger.Warn("warn test")
	logger.Debug("debug test")
	logger.Debugf("formatted %s test", "debug")
}

func TestError(t *testing.T) {

	logger := NewLogger(slog.LevelDebug, nil)

	err := errors.New("an error occurred")

	logger.Error(err)
	logger.Errorf("formatted %s test", "error")
}

func TestLevelFilter(t *testing.T) {

	logger := NewLogger(slog.LevelInfo, nil)

	logger.Info("info test")
	// below the configured level, dropped
	logger.Debug("debug test")
}
