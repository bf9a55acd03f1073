package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinty-monitor/agent/internal/config"
)

func TestEmbeddedConfigParses(t *testing.T) {
	cfg, err := config.LoadLayered(config.CLIOverrides{ServerID: "a", Secret: "b"}, embeddedConfig, "")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/tmp/monitor_client.log", cfg.Logging.File)
}

func TestInitLoggerWritesJSONFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.File = filepath.Join(t.TempDir(), "agent.log")
	cfg.Logging.Level = "debug"

	logger, err := initLogger(cfg)
	require.NoError(t, err)
	logger.Debug("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(cfg.Logging.File)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, `"msg":"hello"`)
	assert.Contains(t, line, `"time":`)
}

func TestInitLoggerFailsOnUnopenableFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.File = filepath.Join(t.TempDir(), "missing", "agent.log")

	_, err := initLogger(cfg)
	assert.Error(t, err)
}
