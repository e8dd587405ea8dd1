package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kataras/figma-structured-mcp/internal/config"
	"github.com/kataras/figma-structured-mcp/pkg/imager"
)

// isolateEnv keeps config files of the machine out of the test.
func isolateEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(config.EnvPrefix+"_CONFIG_DIR", dir)
	t.Chdir(dir)
}

func TestLoadConfigNormalizesModeFlag(t *testing.T) {
	isolateEnv(t)
	t.Setenv("FIGMA_ACCESS_TOKEN", "figd_token")
	t.Setenv("STORAGE_PROVIDER", "local")
	t.Setenv("LOCAL_PUBLIC_BASE_URL", "https://img.example.com")

	cmd := &cobra.Command{Use: "serve"}
	addServeFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--mode", "HTTP", "--port", "9300"}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.ModeHTTP, cfg.Server.Mode)
	assert.Equal(t, 9300, cfg.Server.ListenPort())
}

func TestExportValidatesArgumentsBeforeConfig(t *testing.T) {
	isolateEnv(t)
	t.Setenv("FIGMA_ACCESS_TOKEN", "")

	cmd := newExportCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--file-key", "FILE", "--format", "gif"}))

	err := runExport(cmd, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, imager.ErrInvalidRequest)
}
