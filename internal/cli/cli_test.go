package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCLI(t *testing.T) {
	cmd := BuildCLI()

	assert.NotNil(t, cmd)
	assert.Equal(t, "protot", cmd.Use)

	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Use] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["init"])
	assert.True(t, names["status"])

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "configs/default.yaml", configFlag.DefValue)

	debugFlag := cmd.PersistentFlags().Lookup("debug")
	require.NotNil(t, debugFlag)
}

func TestBuildRunCommand(t *testing.T) {
	cmd := buildRunCommand()
	assert.Equal(t, "run", cmd.Use)
	assert.NotNil(t, cmd.RunE)
}

func TestBuildInitCommand(t *testing.T) {
	cmd := buildInitCommand()
	assert.Equal(t, "init", cmd.Use)

	outFlag := cmd.Flags().Lookup("out")
	require.NotNil(t, outFlag)
	assert.Equal(t, "o", outFlag.Shorthand)
}

func TestBuildStatusCommand(t *testing.T) {
	cmd := buildStatusCommand()
	assert.Equal(t, "status", cmd.Use)
	assert.NotNil(t, cmd.RunE)
}

func TestLoadConfigValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	content := `
node_type: Scheduler
num_workers: 8
grpc_port: 6000
load_balancer: RoundRobin
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Scheduler", string(cfg.NodeType))
	assert.Equal(t, 8, cfg.NumWorkers)
	assert.Equal(t, 6000, cfg.GRPCPort)
}

func TestLoadConfigFileNotFound(t *testing.T) {
	cfg, err := loadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfigInvalidNodeType(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("node_type: Bogus\n"), 0644))

	cfg, err := loadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestWriteDefaultConfigWritesSchedulerMode(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "default.yaml")

	require.NoError(t, writeDefaultConfig(path, "", 0, 0))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Scheduler", string(cfg.NodeType))
}

func TestWriteDefaultConfigAppliesOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "default.yaml")

	require.NoError(t, writeDefaultConfig(path, "redis:6379", 8, 7000))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.DataStore.Type)
	assert.Equal(t, "redis:6379", cfg.DataStore.Host)
	assert.Equal(t, 8, cfg.NumWorkers)
	assert.Equal(t, 7000, cfg.GRPCPort)
}

func TestShowStatusRunsWithoutError(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "default.yaml")
	require.NoError(t, writeDefaultConfig(path, "", 0, 0))

	configFile = path
	assert.NoError(t, showStatus())
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, "trace", verbosityToLevel(2, "info"))
	assert.Equal(t, "debug", verbosityToLevel(1, "info"))
	assert.Equal(t, "warn", verbosityToLevel(0, "warn"))
	assert.Equal(t, "info", verbosityToLevel(0, ""))
}
