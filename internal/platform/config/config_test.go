package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/domain"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := LoadWith("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.RetryPolicy().Validate())
	assert.Equal(t, int64(12<<20), cfg.MaxBytes())
}

func TestEnvOverrides(t *testing.T) {
	cfg, err := LoadWith("", env(map[string]string{
		"OCR_ENGINE":                      "tesseract",
		"OCR_LANGS":                       "eng, ENG ,ara",
		"LOW_CONF_THRESHOLD":              "0.6",
		"RETRY_LOW_CONF_ON_ORIGINAL":      "false",
		"TRY_ROTATIONS_ON_MISSING_FIELDS": "0",
		"ROTATION_ANGLES":                 "180, 90",
		"MAX_ATTEMPTS":                    "3",
		"MIN_AGE":                         "18",
		"MAX_FILE_SIZE_MB":                "5",
		"OCR_ATTEMPT_TIMEOUT":             "5s",
		"LOG_LEVEL":                       "  ",
	}))
	require.NoError(t, err)

	assert.Equal(t, "tesseract", cfg.OCR.Engine)
	assert.Equal(t, []string{"eng", "ara"}, cfg.OCR.Languages)
	assert.Equal(t, 5*time.Second, cfg.OCR.AttemptTimeout)
	assert.Equal(t, "info", cfg.Log.Level, "blank values keep the default")

	p := cfg.RetryPolicy()
	assert.InDelta(t, 0.6, p.LowConfidenceThreshold, 1e-9)
	assert.False(t, p.RetryLowConfidenceOnOriginal)
	assert.True(t, p.RetryMissingFields)
	assert.False(t, p.TryRotations)
	assert.Equal(t, []float64{180, 90}, p.RotationAngles)
	assert.Equal(t, 3, p.MaxAttempts)

	assert.Equal(t, 18, cfg.ValidationConfig().MinAge)
	assert.Equal(t, int64(5<<20), cfg.MaxBytes())
}

func TestYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docverify.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
retry:
  max_attempts: 7
validation:
  name_similarity_threshold: 0.9
labels:
  civil_id: ["personal no"]
`), 0o600))

	cfg, err := LoadWith(path, env(map[string]string{"MAX_ATTEMPTS": "2"}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2, cfg.Retry.MaxAttempts, "env wins over file")
	assert.InDelta(t, 0.9, cfg.Validation.NameSimilarityThreshold, 1e-9)
	assert.True(t, cfg.Retry.TryRotations, "unset keys keep defaults")
	assert.True(t, cfg.LabelDictionary().HasCivilID("PERSONAL NO 303091600084"))
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		vars map[string]string
	}{
		{name: "missing file", path: filepath.Join(t.TempDir(), "nope.yaml")},
		{name: "unparseable bool", vars: map[string]string{"RETRY_MISSING_KEY_FIELDS": "maybe"}},
		{name: "unparseable angle", vars: map[string]string{"ROTATION_ANGLES": "90,left"}},
		{name: "unknown engine", vars: map[string]string{"OCR_ENGINE": "paddle"}},
		{name: "threshold out of range", vars: map[string]string{"LOW_CONF_THRESHOLD": "1.5"}},
		{name: "zero attempts", vars: map[string]string{"MAX_ATTEMPTS": "0"}},
		{name: "inverted ages", vars: map[string]string{"MIN_AGE": "50", "MAX_AGE": "40"}},
		{name: "zero file size", vars: map[string]string{"MAX_FILE_SIZE_MB": "0"}},
		{name: "zero concurrency", vars: map[string]string{"BATCH_CONCURRENCY": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWith(tt.path, env(tt.vars))
			assert.Error(t, err)
		})
	}
}

func TestValidateRejectsUnknownLabelField(t *testing.T) {
	cfg := Default()
	cfg.Labels = map[string][]string{"surname": {"family"}}
	assert.ErrorContains(t, cfg.Validate(), "surname")

	cfg.Labels = map[string][]string{string(domain.FieldName): {"holder"}}
	assert.NoError(t, cfg.Validate())
}
