package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/CollabMatch/internal/config"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/audio"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/scoring"
	"github.com/himanishpuri/CollabMatch/pkg/logger"
)

// commandContext carries flag values shared by every subcommand and the config
// resolved from them.
type commandContext struct {
	configFile string
	envFile    string
	dbPath     string
	scheme     string
	outputDir  string
	clipsDir   string
	workers    int
	verbose    bool
	quiet      bool

	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "collabmatch",
		Short:         "Rank musicians for collaboration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.ensureConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner()
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&ctx.configFile, "config", "c", os.Getenv("COLLAB_CONFIG"), "YAML configuration file (env: COLLAB_CONFIG)")
	pf.StringVar(&ctx.envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
	pf.StringVar(&ctx.dbPath, "db", "", "Path to the feature store database (env: COLLAB_DB_PATH)")
	pf.StringVar(&ctx.scheme, "scheme", "", "Metadata weight scheme: location or lite (env: COLLAB_SCHEME)")
	pf.StringVarP(&ctx.outputDir, "output", "o", "", "Directory for result tables (env: COLLAB_OUTPUT_DIR)")
	pf.StringVar(&ctx.clipsDir, "clips", "", "Directory holding <user_id>_clip.wav files (env: COLLAB_CLIPS_DIR)")
	pf.IntVar(&ctx.workers, "workers", 0, "Parallel workers (env: COLLAB_WORKERS)")
	pf.BoolVarP(&ctx.verbose, "verbose", "v", false, "Debug logging")
	pf.BoolVarP(&ctx.quiet, "quiet", "q", false, "Only log warnings and errors")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newMatchCommand(ctx))
	rootCmd.AddCommand(newAudioCommand(ctx))
	rootCmd.AddCommand(newConsolidateCommand(ctx))
	rootCmd.AddCommand(newExtractCommand(ctx))
	rootCmd.AddCommand(newFeaturesCommand(ctx))

	return rootCmd
}

// ensureConfig loads the dotenv file, then the YAML config, then applies flags.
// Flags win over the environment, which wins over the file.
func (c *commandContext) ensureConfig() error {
	if c.cfg != nil {
		return nil
	}
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", c.envFile, err)
		}
	}

	cfg, err := config.Load(c.configFile)
	if err != nil {
		return err
	}
	if c.scheme != "" && c.scheme != cfg.Scheme {
		w, err := scoring.Preset(c.scheme)
		if err != nil {
			return err
		}
		cfg.Scheme, cfg.Metadata = c.scheme, w
	}
	if c.dbPath != "" {
		cfg.DBPath = c.dbPath
	}
	if c.outputDir != "" {
		cfg.OutputDir = c.outputDir
	}
	if c.clipsDir != "" {
		cfg.ClipsDir = c.clipsDir
	}
	if c.workers > 0 {
		cfg.Workers = c.workers
	}

	if err := c.setupLogger(cfg); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func (c *commandContext) setupLogger(cfg *config.Config) error {
	log := logger.GetLogger()

	level, ok := logger.ParseLevel(cfg.LogLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	switch {
	case c.verbose:
		level = logger.DEBUG
	case c.quiet:
		level = logger.WARN
	}
	log.SetLevel(level)

	if cfg.LogFile != "" {
		if err := log.SetFile(cfg.LogFile); err != nil {
			return err
		}
	}

	summary := cfg.LogSummary()
	parts := make([]string, 0, len(summary))
	for _, key := range []string{"scheme", "top_k", "workers", "db_path", "clips_dir", "output_dir"} {
		parts = append(parts, key+"="+summary[key])
	}
	log.Debugf("Config: %s", strings.Join(parts, " "))
	return nil
}

// newService creates a service from the resolved config.
func (c *commandContext) newService(extra ...collabmatch.Option) (collabmatch.Service, error) {
	cfg := c.cfg
	opts := []collabmatch.Option{
		collabmatch.WithDBPath(cfg.DBPath),
		collabmatch.WithWeights(cfg.Metadata),
		collabmatch.WithConsolidationWeights(cfg.Consolidation),
		collabmatch.WithTopK(cfg.TopK),
		collabmatch.WithWorkers(cfg.Workers),
		collabmatch.WithClipsDir(cfg.ClipsDir),
	}
	svc, err := collabmatch.NewService(append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return svc, nil
}

// clipConfig applies the extract flags on top of the default clip settings.
func clipConfig(start, duration float64) audio.ClipConfig {
	return audio.ClipConfig{
		SampleRate:  audio.DefaultSampleRate,
		StartSec:    start,
		DurationSec: duration,
	}
}
