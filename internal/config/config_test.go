package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
tile_url: https://tiles.example.com/{z}/{x}/{y}.png
zoom: 5
max_upload_mb: 4
preview:
  width: 640
`))
	require.NoError(t, err)

	assert.Equal(t, "https://tiles.example.com/{z}/{x}/{y}.png", cfg.TileURL)
	assert.Equal(t, 5, cfg.Zoom)
	assert.Equal(t, int64(4<<20), cfg.MaxUploadBytes())
	assert.Equal(t, 640, cfg.Preview.Width)
	assert.Equal(t, 768, cfg.Preview.Height)
	assert.Equal(t, [2]float64{20, 0}, cfg.Center)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"zoom out of range": "zoom: 40\n",
		"tile url":          "tile_url: ftp://example.com/tiles\n",
		"background":        "preview:\n  background: white\n",
		"upload limit":      "max_upload_mb: 0\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(writeConfig(t, "zoom: [1"))
	assert.Error(t, err)
}
