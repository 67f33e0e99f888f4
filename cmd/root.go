package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfgpkg "github.com/KaramelBytes/chartloom-cli/internal/config"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/logging"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	_ "github.com/KaramelBytes/chartloom-cli/internal/store/filestore"
	_ "github.com/KaramelBytes/chartloom-cli/internal/store/rest"
	_ "github.com/KaramelBytes/chartloom-cli/internal/store/sqlstore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags (override config when set)
	cfgFile         string
	debug           bool
	flagStoreKind   string
	flagStoreDSN    string
	flagHTTPTimeout int
	flagLogLevel    string
	flagSampleSize  int

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "chartloom",
	Short: "ChartLoom CLI: turn spreadsheets into chart dashboards",
	Long: `ChartLoom imports CSV, TSV, XLSX or manual-entry tables, infers column types and
statistics, suggests charts, and keeps them on dashboards stored in a local
directory, a SQL database or a hosted REST backend.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.chartloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagStoreKind, "store", "", "storage backend: file|sqlite|postgres|rest (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagStoreDSN, "store-dsn", "", "directory, connection string or base URL for the backend (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeout, "http-timeout", 0, "REST backend timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagSampleSize, "sample-size", 0, "values sampled for import-time type detection (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{StoreKind: "file", HTTPTimeoutSec: 30, MaxRows: 100000}
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("store") && flagStoreKind != "" {
		if err := cfg.Set("store_kind", flagStoreKind); err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
		}
	}
	if f.Changed("store-dsn") {
		cfg.StoreDSN = flagStoreDSN
	}
	if f.Changed("http-timeout") && flagHTTPTimeout > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeout
	}
	if f.Changed("log-level") && flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if f.Changed("sample-size") && flagSampleSize > 0 {
		cfg.LoaderSampleSize = flagSampleSize
	}

	level := cfg.LogLevel
	if debug && !f.Changed("log-level") {
		level = "debug"
	}
	l, err := logging.New(level, debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v; using defaults\n", err)
		l, _ = logging.New("", debug)
	}
	if l != nil {
		logger = l
	}
}

// config returns the loaded configuration, loading it on first use.
func config() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}

// openStore opens the configured backend. Callers close it.
func openStore(ctx context.Context) (store.Store, error) {
	sc := config().StoreConfig()
	logger.Debug("opening store",
		zap.String("kind", sc.Kind),
		zap.String("dsn", logging.SanitizeConnectionString(sc.DSN)),
		zap.Duration("timeout", sc.Timeout))
	s, err := store.Open(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", sc.Kind, err)
	}
	return s, nil
}

// loaderOptions maps config onto table import options.
func loaderOptions() dataset.Options {
	opt := dataset.DefaultOptions()
	c := config()
	if c.MaxRows > 0 {
		opt.MaxRows = c.MaxRows
	}
	opt.SampleSize = c.LoaderSampleSize
	return opt
}

// withStore opens the store, runs fn and closes the store.
func withStore(ctx context.Context, fn func(store.Store) error) error {
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			logger.Warn("close store", zap.Error(cerr))
		}
	}()
	start := time.Now()
	err = fn(s)
	logger.Debug("store session done", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
	return err
}
