package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"imgaudit/pkg/config"
)

func TestExampleConfigIsValid(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, yaml.Unmarshal([]byte(exampleConfig), cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, config.DefaultConfig().Scan, cfg.Scan)
	assert.Equal(t, config.DefaultConfig().Verify, cfg.Verify)
	assert.Equal(t, "process.txt", cfg.Checkpoint.File)
}

func TestScanFlags(t *testing.T) {
	scanRequestsPerMinute = -1
	flags := scanFlags()
	_, ok := flags["requests-per-minute"]
	assert.False(t, ok, "unset limit keeps the configured value")

	scanRequestsPerMinute = 0
	defer func() { scanRequestsPerMinute = -1 }()
	assert.Equal(t, 0, scanFlags()["requests-per-minute"])
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "***", maskSecret("hunter2"))
}

func TestDescribeCheckpoint(t *testing.T) {
	assert.Equal(t, "process.txt", describeCheckpoint(config.CheckpointConfig{Backend: "file", File: "process.txt"}))
	assert.Equal(t, "redis cache:6379 key k", describeCheckpoint(config.CheckpointConfig{Backend: "redis", RedisAddr: "cache:6379", RedisKey: "k"}))
}
