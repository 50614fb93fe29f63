// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talosproj/talos/internal/config"
)

// execute runs the CLI tree with args and captures combined output. The
// command tree is a package singleton, so each call passes every flag it
// depends on explicitly.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestVersionOutput(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "talos ")
	assert.Contains(t, out, "commit:")
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "frobnicate")
	require.Error(t, err)
}

func TestStageConfigGlobalFallback(t *testing.T) {
	cfg = config.New()
	cfg.LogLevel = "debug"

	got, err := stageConfig("")
	require.NoError(t, err)
	assert.Equal(t, "debug", got.LogLevel)
}

func TestStageConfigOverride(t *testing.T) {
	cfg = config.New()
	path := filepath.Join(t.TempDir(), "stage.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log_level": "warn"}`), 0o600))

	got, err := stageConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", got.LogLevel)
}

func TestStageConfigRejectsBadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stage.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"no_such_section": {}}`), 0o600))

	_, err := stageConfig(path)
	require.Error(t, err)
}

func TestLabelRequiresFlags(t *testing.T) {
	_, err := execute(t, "label")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
