package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadToolConfigDefaults(t *testing.T) {
	cfg, err := LoadToolConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ".ctx/backups", cfg.Backup.Dir)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "json", cfg.Report.Format)
	assert.Equal(t, 2000, cfg.Budget.TokenThreshold)
}

func TestLoadToolConfigFromFile(t *testing.T) {
	root := t.TempDir()
	yaml := "backup:\n  dir: snapshots\nreport:\n  format: yaml\nbudget:\n  token_threshold: 500\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".ctxtidy.yaml"), []byte(yaml), 0o644))

	cfg, err := LoadToolConfig(root)
	require.NoError(t, err)

	assert.Equal(t, "snapshots", cfg.Backup.Dir)
	assert.Equal(t, "yaml", cfg.Report.Format)
	assert.Equal(t, 500, cfg.Budget.TokenThreshold)
	// Untouched sections keep defaults.
	assert.Equal(t, 5, cfg.Audit.MaxSizeMB)
}

func TestAuthorizeRespectsDryRun(t *testing.T) {
	dry := RunConfig{DryRun: true}
	if _, ok := dry.Authorize(); ok {
		t.Fatal("dry-run config must not mint a write authorization")
	}

	live := RunConfig{}
	auth, ok := live.Authorize()
	require.True(t, ok)
	assert.True(t, auth.Granted())
}

func TestZeroAuthorizationIsNotGranted(t *testing.T) {
	var auth WriteAuthorization
	assert.False(t, auth.Granted())
}
