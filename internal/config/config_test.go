package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 108, cfg.NasBench.Epochs)
	assert.Equal(t, 0, cfg.Benchmark.Workers)
	assert.Empty(t, cfg.NasBench.DB)
}

func TestLoadFromEnvironment(t *testing.T) {
	db := filepath.Join(t.TempDir(), "data", "nasbench.db")
	t.Setenv("ENV", "production")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("EVAL_WORKERS", "4")
	t.Setenv("NASBENCH_DB", db)
	t.Setenv("NASBENCH_EPOCHS", "36")
	t.Setenv("BBDOB_PRESETS_FILE", "presets.yaml")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.Benchmark.Workers)
	assert.Equal(t, db, cfg.NasBench.DB)
	assert.DirExists(t, filepath.Dir(db))
	assert.Equal(t, 36, cfg.NasBench.Epochs)
	assert.Equal(t, "presets.yaml", cfg.Benchmark.PresetsFile)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("HTTP_PORT", "eighty")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("EVAL_WORKERS", "-1")
	_, err = Load()
	assert.Error(t, err)
}
