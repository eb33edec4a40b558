// Package config loads service settings: built-in defaults, then an optional
// YAML file, then environment overrides. The result is read once at startup
// and never mutated.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	pstrings "docverify/pkg/platform/strings"
)

// FileEnv names the variable pointing at the optional YAML file.
const FileEnv = "DOCVERIFY_CONFIG"

// Engines lists the accepted OCR engine preferences.
var Engines = []string{"auto", "tesseract"}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string `yaml:"addr"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// OCR selects the engine and how it is called.
type OCR struct {
	Engine         string        `yaml:"engine"`
	Languages      []string      `yaml:"languages"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

// Retry mirrors retry.Policy.
type Retry struct {
	LowConfidenceThreshold  float64   `yaml:"low_confidence_threshold"`
	LowConfidenceOnOriginal bool      `yaml:"low_confidence_on_original"`
	MissingKeyFields        bool      `yaml:"missing_key_fields"`
	TryRotations            bool      `yaml:"try_rotations"`
	RotationAngles          []float64 `yaml:"rotation_angles"`
	MaxDeskewAngle          float64   `yaml:"max_deskew_angle"`
	MaxAttempts             int       `yaml:"max_attempts"`
}

// Validation holds check thresholds.
type Validation struct {
	MinAge                  int     `yaml:"min_age"`
	MaxAge                  int     `yaml:"max_age"`
	NameSimilarityThreshold float64 `yaml:"name_similarity_threshold"`
}

// Input limits what is accepted for scanning.
type Input struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
	MinWidth      int `yaml:"min_width"`
}

type Batch struct {
	Concurrency int `yaml:"concurrency"`
}

// Config is the complete service configuration.
type Config struct {
	Server     Server     `yaml:"server"`
	Log        Log        `yaml:"log"`
	OCR        OCR        `yaml:"ocr"`
	Retry      Retry      `yaml:"retry"`
	Validation Validation `yaml:"validation"`
	Input      Input      `yaml:"input"`
	Batch      Batch      `yaml:"batch"`
	// Labels adds label phrases per field kind (civil_id, birth_date,
	// expiry_date, name) on top of the built-in dictionary.
	Labels map[string][]string `yaml:"labels"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080"},
		Log:    Log{Level: "info", Format: "json"},
		OCR: OCR{
			Engine:         "auto",
			Languages:      []string{"ara", "eng"},
			AttemptTimeout: 30 * time.Second,
		},
		Retry: Retry{
			LowConfidenceThreshold:  0.55,
			LowConfidenceOnOriginal: true,
			MissingKeyFields:        true,
			TryRotations:            true,
			RotationAngles:          []float64{90, 180, 270},
			MaxDeskewAngle:          12,
			MaxAttempts:             5,
		},
		Validation: Validation{MinAge: 16, MaxAge: 110, NameSimilarityThreshold: 0.84},
		Input:      Input{MaxFileSizeMB: 12, MinWidth: 1200},
		Batch:      Batch{Concurrency: 4},
	}
}

// Load builds the configuration from the process environment.
func Load() (Config, error) {
	return LoadWith(os.Getenv(FileEnv), os.LookupEnv)
}

// LoadWith reads the YAML file at path (if any) and applies overrides from
// lookup. The result is validated.
func LoadWith(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}

	e.str("DOCVERIFY_ADDR", &c.Server.Addr)
	e.str("LOG_LEVEL", &c.Log.Level)
	e.str("LOG_FORMAT", &c.Log.Format)

	e.str("OCR_ENGINE", &c.OCR.Engine)
	e.list("OCR_LANGS", &c.OCR.Languages)
	e.duration("OCR_ATTEMPT_TIMEOUT", &c.OCR.AttemptTimeout)

	e.float("LOW_CONF_THRESHOLD", &c.Retry.LowConfidenceThreshold)
	e.boolean("RETRY_LOW_CONF_ON_ORIGINAL", &c.Retry.LowConfidenceOnOriginal)
	e.boolean("RETRY_MISSING_KEY_FIELDS", &c.Retry.MissingKeyFields)
	e.boolean("TRY_ROTATIONS_ON_MISSING_FIELDS", &c.Retry.TryRotations)
	e.floats("ROTATION_ANGLES", &c.Retry.RotationAngles)
	e.float("MAX_DESKEW_ANGLE", &c.Retry.MaxDeskewAngle)
	e.integer("MAX_ATTEMPTS", &c.Retry.MaxAttempts)

	e.integer("MIN_AGE", &c.Validation.MinAge)
	e.integer("MAX_AGE", &c.Validation.MaxAge)
	e.float("NAME_SIMILARITY_THRESHOLD", &c.Validation.NameSimilarityThreshold)

	e.integer("MAX_FILE_SIZE_MB", &c.Input.MaxFileSizeMB)
	e.integer("BATCH_CONCURRENCY", &c.Batch.Concurrency)

	return errors.Join(e.errs...)
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server addr is required"))
	}
	c.OCR.Engine = strings.ToLower(strings.TrimSpace(c.OCR.Engine))
	if !slices.Contains(Engines, c.OCR.Engine) {
		errs = append(errs, fmt.Errorf("unknown OCR engine %q (want one of %s)", c.OCR.Engine, strings.Join(Engines, ", ")))
	}
	if c.OCR.AttemptTimeout < 0 {
		errs = append(errs, errors.New("OCR attempt timeout must not be negative"))
	}
	if t := c.Retry.LowConfidenceThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("low confidence threshold must be in [0,1], got %v", t))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be at least 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.MaxDeskewAngle < 0 || c.Retry.MaxDeskewAngle > 45 {
		errs = append(errs, fmt.Errorf("max deskew angle must be in [0,45], got %v", c.Retry.MaxDeskewAngle))
	}
	if c.Validation.MinAge < 0 || c.Validation.MaxAge <= c.Validation.MinAge {
		errs = append(errs, fmt.Errorf("age bounds must satisfy 0 <= min < max, got %d..%d", c.Validation.MinAge, c.Validation.MaxAge))
	}
	if t := c.Validation.NameSimilarityThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("name similarity threshold must be in [0,1], got %v", t))
	}
	if c.Input.MaxFileSizeMB < 1 {
		errs = append(errs, fmt.Errorf("max file size must be at least 1 MB, got %d", c.Input.MaxFileSizeMB))
	}
	if c.Input.MinWidth < 0 {
		errs = append(errs, fmt.Errorf("min width must not be negative, got %d", c.Input.MinWidth))
	}
	if c.Batch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("batch concurrency must be at least 1, got %d", c.Batch.Concurrency))
	}
	for kind := range c.Labels {
		if !slices.Contains(labelKinds, kind) {
			errs = append(errs, fmt.Errorf("unknown label field %q", kind))
		}
	}
	return errors.Join(errs...)
}

// MaxBytes is the upload limit in bytes.
func (c Config) MaxBytes() int64 {
	return int64(c.Input.MaxFileSizeMB) << 20
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) fail(key, v string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", key, v, err))
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	if v, ok := e.get(key); ok {
		*dst = pstrings.SplitList(v)
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) floats(key string, dst *[]float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []float64
	for _, part := range pstrings.SplitList(v) {
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		out = append(out, f)
	}
	*dst = out
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = d
	}
}
