package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/qrscan/internal/config"
	"github.com/BrandonDHaskell/qrscan/internal/logging"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/service"
	"github.com/BrandonDHaskell/qrscan/internal/render"
)

// cli carries the persistent flags and what PersistentPreRunE builds from
// them.  One per command tree so tests can run commands side by side.
type cli struct {
	configPath string
	dbPath     string
	verbose    bool
	ephemeral  bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "qrscan",
		Short: "Scan, classify, keep and generate QR codes",
		Long: `qrscan decodes QR codes from camera frames or image files, classifies the
payload (url, email, phone, wifi, vcard, text), suggests a follow-up action
and keeps a scan history in a local SQLite database.

It can also generate QR codes and serve everything over HTTP.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "qrscan.yaml", "path to YAML config (missing file is fine)")
	pf.StringVar(&c.dbPath, "db", "", "SQLite database path (overrides config)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&c.ephemeral, "ephemeral", false, "keep history in memory only; nothing is written to disk")

	root.AddCommand(
		c.classifyCmd(),
		c.historyCmd(),
		c.generateCmd(),
		c.scanCmd(),
		c.prefsCmd(),
		c.serveCmd(),
		c.statusCmd(),
		c.configCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.dbPath != "" {
		cfg.DBPath = c.dbPath
	}
	if c.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Env: cfg.Env})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	c.cfg = cfg
	c.logger = logger
	return nil
}

// theme reads the dark-mode preference; a read failure falls back to light.
func (c *cli) theme(ctx context.Context, prefs *service.Preferences) render.Theme {
	dark, err := prefs.DarkMode(ctx)
	if err != nil {
		c.logger.Debug("dark mode unreadable; using light theme", zap.Error(err))
	}
	return render.NewTheme(dark)
}
