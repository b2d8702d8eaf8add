package collabmatch

import (
	"runtime"

	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/audio"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/consolidate"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/scoring"
	"github.com/himanishpuri/CollabMatch/pkg/models"
)

type Config struct {
	DBPath        string
	Weights       scoring.Weights
	Consolidation consolidate.Weights
	TopK          int
	Workers       int
	ClipsDir      string
	Clip          audio.ClipConfig
	Normalize     bool
	Logger        Logger
	Storage       Storage
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

// WithWeights sets the metadata scoring scheme.
func WithWeights(w scoring.Weights) Option {
	return func(c *Config) {
		c.Weights = w.Clone()
	}
}

func WithConsolidationWeights(w consolidate.Weights) Option {
	return func(c *Config) {
		c.Consolidation = w
	}
}

func WithTopK(k int) Option {
	return func(c *Config) {
		c.TopK = k
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithClipsDir sets where <user_id>_clip.wav files and relative audio_feature_ref
// paths are resolved.
func WithClipsDir(dir string) Option {
	return func(c *Config) {
		c.ClipsDir = dir
	}
}

func WithClipConfig(clip audio.ClipConfig) Option {
	return func(c *Config) {
		c.Clip = clip
	}
}

// WithNormalize toggles ffmpeg normalization of clips before extraction.
func WithNormalize(on bool) Option {
	return func(c *Config) {
		c.Normalize = on
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:        "collabmatch.sqlite3",
		Weights:       scoring.LocationAware(),
		Consolidation: consolidate.Default(),
		TopK:          models.DefaultTopK,
		Workers:       runtime.GOMAXPROCS(0),
		ClipsDir:      "clips",
		Clip:          audio.ClipConfig{SampleRate: audio.DefaultSampleRate},
		Normalize:     audio.FFmpegAvailable(),
		Logger:        nil,
	}
}
