package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/config"
)

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "loud", Encoding: "json"}, "")
	require.Error(t, err)
}

func TestNewLoggerWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swapd.log")
	logger, err := NewLogger(config.LoggingConfig{
		Level:            "info",
		Encoding:         "json",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		File:             config.LogFileConfig{Path: path, MaxSizeMB: 1},
	}, "swapd-test")
	require.NoError(t, err)

	logger.Info("file sink check")
	logger.Debug("filtered out")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "file sink check")
	assert.Contains(t, content, `"service":"swapd-test"`)
	assert.NotContains(t, content, "filtered out")
}
