package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/tabinsight/internal/config"
	"github.com/KaramelBytes/tabinsight/internal/logging"
	"github.com/KaramelBytes/tabinsight/internal/profile"
	"github.com/KaramelBytes/tabinsight/internal/store"
)

var (
	cfgFile   string
	debug     bool
	logLevel  string
	logFormat string
	dbDriver  string
	dbDSN     string

	// Loaded configuration
	cfg *cfgpkg.Global

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "tabinsight",
	Short: "Profile tabular datasets for data-quality problems",
	Long: `tabinsight profiles CSV, TSV and XLSX datasets: it infers column types, counts
missing values and duplicate rows, flags numeric outliers and implausible dates,
and computes correlations. Datasets can also be stored as tables and served over HTTP.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tabinsight/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text|json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "table store driver: sqlite|mysql|postgres|sqlserver|oracle (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db-dsn", "", "table store DSN (overrides config)")
}

func loadConfig() {
	if _, err := currentConfig(); err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
	}
}

// currentConfig loads the configuration once, applies flag overrides and
// configures the logger.
func currentConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	f := rootCmd.PersistentFlags()
	if f.Changed("log-level") && logLevel != "" {
		c.LogLevel = logLevel
	}
	if f.Changed("log-format") && logFormat != "" {
		c.LogFormat = logFormat
	}
	if debug {
		c.LogLevel = "debug"
	}
	if f.Changed("db-driver") && dbDriver != "" {
		c.DBDriver = dbDriver
	}
	if f.Changed("db-dsn") && dbDSN != "" {
		c.DBDSN = dbDSN
	}

	l, err := logging.New(c.LogLevel, c.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}
	log = l
	cfg = c
	return cfg, nil
}

func profileOptions(c *cfgpkg.Global) profile.Options {
	opt := profile.DefaultOptions()
	if c == nil {
		return opt
	}
	if c.ProfileContamination > 0 {
		opt.Outliers.Contamination = c.ProfileContamination
	}
	if c.ProfileTrees > 0 {
		opt.Outliers.Trees = c.ProfileTrees
	}
	opt.Outliers.Seed = c.ProfileSeed
	if c.ProfileMinYear > 0 {
		opt.Temporal.MinYear = c.ProfileMinYear
	}
	if c.ProfileMaxYear > 0 {
		opt.Temporal.MaxYear = c.ProfileMaxYear
	}
	return opt
}

func openStore(ctx context.Context) (*store.Store, error) {
	c, err := currentConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, store.Options{
		Driver:          c.DBDriver,
		DSN:             c.DBDSN,
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(c.DBConnMaxLifetimeSec) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", c.DBDriver, err)
	}
	log.WithField("driver", st.Dialect().Name()).Debug("store opened")
	return st, nil
}
