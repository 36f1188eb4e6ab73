package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "cookies.json", cfg.Credential.File)
	assert.Equal(t, 3, cfg.Upload.Limit)
	assert.Equal(t, 3*time.Second, cfg.Upload.ProbeTimeout)
	assert.Equal(t, 60*time.Second, cfg.Download.ReadTimeout)
	assert.EqualValues(t, 524288000, cfg.Download.MinFreeSpace)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.History.Enabled)
}

func TestLoadYAMLFile(t *testing.T) {
	// envconfig applies the default tags after YAML, so only fields without
	// a default keep their YAML value when the env var is unset. Fields
	// with defaults need the env var to override.
	t.Setenv("BILI_UPLOAD_LIMIT", "8")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
credential:
  passphrase: file-secret
upload:
  line: qn
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-secret", cfg.Credential.Passphrase)
	assert.Equal(t, "qn", cfg.Upload.Line)
	assert.Equal(t, 8, cfg.Upload.Limit)
	// Untouched fields keep their defaults.
	assert.Equal(t, 60*time.Second, cfg.Download.ReadTimeout)
	assert.Equal(t, "cookies.json", cfg.Credential.File)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("upload:\n  line: qn\n"), 0o644))

	t.Setenv("BILI_UPLOAD_LIMIT", "5")
	t.Setenv("BILI_UPLOAD_LINE", "tx")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Upload.Limit)
	assert.Equal(t, "tx", cfg.Upload.Line)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestValidateRejectsBadLimit(t *testing.T) {
	t.Setenv("BILI_UPLOAD_LIMIT", "0")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload limit")
}

func TestLoadCorruptYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("upload: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}
