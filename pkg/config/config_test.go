package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsUsable(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 4, cfg.Runtime.Tracks)
	assert.False(t, cfg.TLS.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.Address)
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mona.yaml")
	contents := `
runtime:
  tracks: 8
tls:
  enabled: true
  hosts: ["example.com"]
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Runtime.Tracks)
	assert.True(t, cfg.TLS.Enabled)
	assert.Equal(t, []string{"example.com"}, cfg.TLS.Hosts)
	// Fields the file never mentions keep their Default value.
	assert.Equal(t, 64*1024, cfg.Runtime.SocketBuffer)
	assert.Equal(t, "capture", cfg.Capture.Bucket)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
