// Package cli implements the debsrc command-line interface.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/debsrc/internal/config"
	"github.com/matzehuels/debsrc/pkg/buildinfo"
	"github.com/matzehuels/debsrc/pkg/cache"
	"github.com/matzehuels/debsrc/pkg/errors"
	"github.com/matzehuels/debsrc/pkg/pipeline"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *config.Config

	configPath string
	out        io.Writer
}

// New creates a new CLI instance with a default logger. Command output goes
// to stdout; logs and status lines go to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
		out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "debsrc",
		Short: "debsrc turns Debian source indexes into structured records",
		Long: `debsrc reads Debian source-package control stanzas (the Sources index of an
archive, or a single .dsc) and assembles each one into a typed record with
parsed relations, checksummed file lists and VCS references.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")

	root.AddCommand(c.parseCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.packagesCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the layered configuration and registers the logging hooks.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	registerHooks(c.Logger)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	store, err := newCache(ctx, c.Config.Cache, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if ns := c.Config.Cache.Namespace; ns != "" {
		keyer = cache.NewScopedKeyer(nil, ns)
	}
	return pipeline.NewRunner(store, keyer, c.Logger), nil
}

// newCache opens the backend named by cfg. noCache forces the null cache.
func newCache(ctx context.Context, cfg config.Cache, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendFile:
		return cache.NewFileCache(cfg.Dir)
	case config.BackendMemory:
		return cache.NewMemoryCache(cfg.MemorySize)
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return nil, errors.ForField(errors.ErrCodeInvalidInput, "cache.backend", "unknown cache backend %q", cfg.Backend)
}

// =============================================================================
// Options Helpers
// =============================================================================

// runFlags are the batch flags shared by parse and graph.
type runFlags struct {
	workers     int
	passthrough bool
	failFast    bool
	noCache     bool
	refresh     bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.workers, "workers", "j", 0, "parallel workers (default from config)")
	cmd.Flags().BoolVar(&f.passthrough, "passthrough", false, "keep fields the schema does not consume")
	cmd.Flags().BoolVar(&f.failFast, "fail-fast", false, "stop at the first record that fails")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the record cache")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached records and rebuild them")
}

// pipelineOptions layers explicitly set flags over the configuration.
func (c *CLI) pipelineOptions(cmd *cobra.Command, f *runFlags) pipeline.Options {
	opts := pipeline.Options{
		Workers:     c.Config.Workers,
		Passthrough: c.Config.Passthrough,
		FailFast:    c.Config.FailFast,
		Refresh:     f.refresh,
		TTL:         c.Config.Cache.TTL.Duration,
		Logger:      c.Logger,
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers = f.workers
	}
	if cmd.Flags().Changed("passthrough") {
		opts.Passthrough = f.passthrough
	}
	if cmd.Flags().Changed("fail-fast") {
		opts.FailFast = f.failFast
	}
	return opts
}
