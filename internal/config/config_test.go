package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qacompare/domain/qa"
	"qacompare/internal"
	"qacompare/internal/errors"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "DATABASE_DRIVER", "PORT", "LOG_LEVEL", "QA_SUMMARY_FILE",
		"FIT_WORKERS", "FIT_MIN_WEIGHT", "FIT_CONVERGENCE", "RATIO_FILL_ZERO",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 1, cfg.Fit.Workers)
	assert.Equal(t, qa.MinSliceWeight, cfg.Fit.MinWeight)
	assert.Equal(t, qa.WarnUnconverged, cfg.Fit.Convergence)
	assert.Equal(t, qa.NaiveDivide, cfg.Ratio.ZeroBins)
	assert.Equal(t, internal.LogLevelInfo, cfg.LogLevel)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "file:qa.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("FIT_WORKERS", "4")
	t.Setenv("FIT_CONVERGENCE", "skip")
	t.Setenv("RATIO_FILL_ZERO", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("QA_SUMMARY_FILE", "QA-tracking.txt")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 4, cfg.Fit.Workers)
	assert.Equal(t, qa.SkipUnconverged, cfg.Fit.Convergence)
	assert.Equal(t, qa.FillDefault, cfg.Ratio.ZeroBins)
	assert.Equal(t, internal.LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, "QA-tracking.txt", cfg.Output.SummaryFile)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"driver":      {"DATABASE_DRIVER", "mysql"},
		"workers":     {"FIT_WORKERS", "0"},
		"convergence": {"FIT_CONVERGENCE", "sometimes"},
		"log level":   {"LOG_LEVEL", "chatty"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])

			_, err := FromEnv()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("FIT_WORKERS")
	defer os.Unsetenv("FIT_WORKERS")

	path := filepath.Join(t.TempDir(), "qa.env")
	require.NoError(t, os.WriteFile(path, []byte("FIT_WORKERS=3\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Fit.Workers)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
