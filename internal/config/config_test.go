// Public domain.

package config_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/psrtime/internal/config"
)

func write(t *testing.T, text string) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "psrtime.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(text), 0o644))
	return fn
}

func TestLoad(t *testing.T) {
	t.Setenv("PSRTIME_TEST_DIR", "/data/psr")
	fn := write(t, `
log:
  level: debug
  format: json
obscodes:
  file: ${PSRTIME_TEST_DIR}/obscode.dat
floors:
  default: 0.5
  sites:
    gbt: 1.5
fit:
  max_iter: 4
archive:
  path: runs.db
`)
	c := config.NewDefault()
	require.NoError(t, config.Load(fn, c))
	assert.Equal(t, slog.LevelDebug, c.Log.Level)
	assert.Equal(t, config.FormatJSON, c.Log.Format)
	assert.Equal(t, "/data/psr/obscode.dat", c.Obscodes.File)
	assert.True(t, c.Obscodes.Fetch)
	assert.Equal(t, 4, c.Fit.MaxIter)
	assert.Equal(t, 1e-3, c.Fit.Threshold)
	assert.True(t, c.Archive.Enabled())

	f := c.Floors.Floors()
	assert.Equal(t, 1.5, f.Clip(1, "gbt"))
	assert.Equal(t, 2., f.Clip(2, "gbt"))
	assert.Equal(t, .5, f.Clip(.1, "ao"))
}

func TestLoadInvalid(t *testing.T) {
	for _, text := range []string{
		"log:\n  format: xml\n",
		"fit:\n  max_iter: -1\n",
		"floors:\n  sites:\n    ao: -2\n",
		"simulate:\n  site: \"\"\n",
		"log: [\n",
	} {
		assert.Error(t, config.Load(write(t, text), config.NewDefault()), text)
	}
}

func TestLoadOptional(t *testing.T) {
	c := config.NewDefault()
	require.NoError(t, config.LoadOptional(filepath.Join(t.TempDir(), "none.yaml"), c))
	assert.Equal(t, config.NewDefault(), c)
	assert.False(t, c.Archive.Enabled())

	assert.Error(t, config.Load(filepath.Join(t.TempDir(), "none.yaml"), c))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	c := config.LogConfig{Level: slog.LevelWarn, Format: config.FormatJSON}
	l := c.Logger(&buf)
	l.Info("hidden")
	l.Warn("shown", slog.Int("n", 3))
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, 3., rec["n"])
}
