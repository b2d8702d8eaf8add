// Package config loads run settings from an optional YAML file and the environment.
// Environment variables take precedence over file values.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/consolidate"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/scoring"
	"github.com/himanishpuri/CollabMatch/pkg/models"
)

// Default values.
const (
	DefaultDBPath    = "collabmatch.sqlite3"
	DefaultScheme    = scoring.PresetLocation
	DefaultClipsDir  = "clips"
	DefaultOutputDir = "results"
	DefaultSample    = 5
)

// Config is the resolved configuration of one run.
type Config struct {
	DBPath    string
	Scheme    string
	TopK      int
	Workers   int
	ClipsDir  string
	OutputDir string
	Sample    int
	LogLevel  string
	LogFile   string

	Metadata      scoring.Weights
	Consolidation consolidate.Weights
}

type bucketConf struct {
	MaxKm float64 `koanf:"max_km"`
	Score float64 `koanf:"score"`
}

// Load reads configFilePath (if non-empty) and applies environment overrides. The
// weight scheme starts from the named preset; keys under "weights" and
// "consolidation" override individual values.
func Load(configFilePath string) (*Config, error) {
	k := koanf.New(".")

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configFilePath, err)
		}
	}

	var errs []error
	collect := func(v int, err error) int {
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		DBPath:    getEnvOrDefault("COLLAB_DB_PATH", k.String("db_path"), DefaultDBPath),
		Scheme:    getEnvOrDefault("COLLAB_SCHEME", k.String("scheme"), DefaultScheme),
		TopK:      collect(getEnvIntOrDefault("COLLAB_TOP_K", k.Int("top_k"), models.DefaultTopK)),
		Workers:   collect(getEnvIntOrDefault("COLLAB_WORKERS", k.Int("workers"), runtime.GOMAXPROCS(0))),
		ClipsDir:  getEnvOrDefault("COLLAB_CLIPS_DIR", k.String("clips_dir"), DefaultClipsDir),
		OutputDir: getEnvOrDefault("COLLAB_OUTPUT_DIR", k.String("output_dir"), DefaultOutputDir),
		Sample:    collect(getEnvIntOrDefault("COLLAB_SAMPLE", k.Int("sample"), DefaultSample)),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", k.String("log_level"), "info"),
		LogFile:   getEnvOrDefault("LOG_FILE", k.String("log_file"), ""),
	}

	w, err := scoring.Preset(cfg.Scheme)
	if err != nil {
		return nil, err
	}
	overrideFloat(k, "weights.genre", &w.Genre)
	overrideFloat(k, "weights.role", &w.Role)
	overrideFloat(k, "weights.age", &w.Age)
	overrideFloat(k, "weights.location", &w.Location)
	overrideFloat(k, "weights.age_decay", &w.AgeDecay)
	if w.Tolerant, err = overrideBuckets(k, "weights.tolerant_buckets", w.Tolerant); err != nil {
		errs = append(errs, err)
	}
	if w.Intolerant, err = overrideBuckets(k, "weights.intolerant_buckets", w.Intolerant); err != nil {
		errs = append(errs, err)
	}
	cfg.Metadata = w

	c := consolidate.Default()
	overrideFloat(k, "consolidation.location", &c.Location)
	overrideFloat(k, "consolidation.genre", &c.Genre)
	overrideFloat(k, "consolidation.audio", &c.Audio)
	overrideFloat(k, "consolidation.role", &c.Role)
	overrideFloat(k, "consolidation.age", &c.Age)
	cfg.Consolidation = c

	errs = append(errs, cfg.Validate()...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks ranges and both weight sets.
func (c *Config) Validate() []error {
	var errs []error
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top_k must be positive, got %d", c.TopK))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Sample < 0 {
		errs = append(errs, fmt.Errorf("sample must not be negative, got %d", c.Sample))
	}
	if err := c.Metadata.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Consolidation.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// LogSummary returns the settings worth printing at start-up.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"db_path":    c.DBPath,
		"scheme":     c.Scheme,
		"top_k":      strconv.Itoa(c.TopK),
		"workers":    strconv.Itoa(c.Workers),
		"clips_dir":  c.ClipsDir,
		"output_dir": c.OutputDir,
	}
}

func overrideFloat(k *koanf.Koanf, key string, dst *float64) {
	if k.Exists(key) {
		*dst = k.Float64(key)
	}
}

// overrideBuckets replaces a bucket table. A bucket without max_km (or with a
// non-positive one) is unbounded.
func overrideBuckets(k *koanf.Koanf, key string, def []scoring.DistanceBucket) ([]scoring.DistanceBucket, error) {
	if !k.Exists(key) {
		return def, nil
	}
	var raw []bucketConf
	if err := k.Unmarshal(key, &raw); err != nil {
		return def, fmt.Errorf("parsing %s: %w", key, err)
	}
	out := make([]scoring.DistanceBucket, len(raw))
	for i, b := range raw {
		max := b.MaxKm
		if max <= 0 {
			max = math.Inf(1)
		}
		out[i] = scoring.DistanceBucket{MaxKm: max, Score: b.Score}
	}
	return out, nil
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return defaultVal, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return n, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}
