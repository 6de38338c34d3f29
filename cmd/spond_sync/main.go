// Package main implements the spond_sync binary, a one-shot mirror of Spond
// events into WordPress fixtures meant to be run from cron.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/epsomandewellharriers/spond_sync/internal/config"
	"github.com/epsomandewellharriers/spond_sync/internal/db"
	"github.com/epsomandewellharriers/spond_sync/internal/etcd"
	"github.com/epsomandewellharriers/spond_sync/internal/log"
	"github.com/epsomandewellharriers/spond_sync/internal/mapping"
	"github.com/epsomandewellharriers/spond_sync/internal/metrics"
	"github.com/epsomandewellharriers/spond_sync/internal/spond"
	"github.com/epsomandewellharriers/spond_sync/internal/sync"
	"github.com/epsomandewellharriers/spond_sync/internal/wordpress"
)

// Config holds the command line configuration
type Config struct {
	ConfigFile     string `short:"c" env:"SPOND_SYNC_CONFIG" long:"config" description:"Path to the YAML configuration file" default:".config.yaml"`
	LogLevel       string `short:"l" env:"SPOND_SYNC_LOG_LEVEL" long:"log-level" description:"Log level: debug|info|warn|error" default:"info"`
	LogJSON        bool   `env:"SPOND_SYNC_LOG_JSON" long:"log-json" description:"Log as JSON"`
	DryRun         bool   `short:"n" env:"SPOND_SYNC_DRY_RUN" long:"dry-run" description:"Log planned changes without applying them"`
	LockDSN        string `env:"SPOND_SYNC_LOCK_DSN" long:"lock-dsn" description:"Run lock backend: postgres:// or etcd:// connection string"`
	StateDSN       string `env:"SPOND_SYNC_STATE_DSN" long:"state-dsn" description:"PostgreSQL connection string for run state"`
	PushgatewayURL string `env:"SPOND_SYNC_PUSHGATEWAY_URL" long:"pushgateway-url" description:"Prometheus Pushgateway URL for run metrics"`
	Version        bool   `short:"v" long:"version" description:"Show version information"`
	Help           bool
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ParseCLI parses command-line arguments and returns the configuration
func ParseCLI(args []string) (cmdOpts *Config, err error) {
	cmdOpts = new(Config)
	parser := flags.NewParser(cmdOpts, flags.HelpFlag)
	nonParsedArgs, err := parser.ParseArgs(args)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			cmdOpts.Help = true
		}
		if !flags.WroteHelp(err) {
			parser.WriteHelp(os.Stdout)
		}
		return cmdOpts, err
	}
	if len(nonParsedArgs) > 0 { // we don't expect any non-parsed arguments
		return cmdOpts, fmt.Errorf("unknown argument(s): %v", nonParsedArgs)
	}
	return
}

// ShowVersion prints version information
func ShowVersion() {
	fmt.Printf("spond_sync version %s\n", version)
	if commit != "none" && commit != "" {
		fmt.Printf("commit: %s\n", commit)
	}
	if date != "unknown" && date != "" {
		fmt.Printf("built: %s\n", date)
	}
}

// SetupLogging configures the logging system with structured output
func SetupLogging(logLevel string, json bool) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(log.NewFormatter(json))
	logrus.SetReportCaller(false)

	logrus.WithFields(logrus.Fields{
		"version": version,
		"commit":  commit,
		"pid":     os.Getpid(),
	}).Debug("spond_sync logging initialized")

	return nil
}

// SetupCloseHandler cancels the context on SIGINT or SIGTERM so an
// interrupted run stops between actions.
func SetupCloseHandler(cancel context.CancelFunc) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logrus.Debug("SetupCloseHandler received an interrupt from OS. Cancelling run...")
		cancel()
	}()
}

// loadEnvFiles reads SPOND_SYNC_* settings from .env files next to the
// binary's working directory. Variables already set win.
func loadEnvFiles(files ...string) {
	for _, f := range files {
		if err := godotenv.Load(f); err == nil {
			logrus.WithField("file", f).Debug("Loaded environment file")
		}
	}
}

// lockBackend names the lock implementation a DSN selects
func lockBackend(dsn string) (string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", nil
	case strings.HasPrefix(dsn, "etcd://"):
		return "etcd", nil
	}
	return "", fmt.Errorf("unsupported lock DSN %q: expected postgres:// or etcd://", dsn)
}

// app owns the connections opened for one invocation
type app struct {
	pools   map[string]db.PgxPoolIface
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) pool(ctx context.Context, dsn, job string) (db.PgxPoolIface, error) {
	if p, ok := a.pools[dsn]; ok {
		return p, nil
	}
	p, err := db.NewWithRetry(ctx, dsn, job)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	a.pools[dsn] = p
	a.closers = append(a.closers, p.Close)
	return p, nil
}

func (a *app) locker(ctx context.Context, dsn, job string) (sync.Locker, error) {
	backend, err := lockBackend(dsn)
	if err != nil {
		return nil, err
	}
	if backend == "etcd" {
		client, err := etcd.NewEtcdClientWithRetry(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to etcd: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return client, nil
	}
	p, err := a.pool(ctx, dsn, job)
	if err != nil {
		return nil, err
	}
	return db.NewAdvisoryLock(p, job), nil
}

func (a *app) stateStore(ctx context.Context, dsn, job string) (*db.StateStore, error) {
	p, err := a.pool(ctx, dsn, job)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, p); err != nil {
		return nil, err
	}
	store := db.NewStateStore(p, job)
	last, err := store.LastRun(ctx)
	if err != nil {
		return nil, err
	}
	if last != nil {
		entry := logrus.WithFields(logrus.Fields{
			"run_id":   last.RunID,
			"finished": last.FinishedAt,
		})
		if last.Error != nil {
			entry.WithField("error", *last.Error).Warn("Previous run failed")
		} else {
			entry.Debug("Previous run succeeded")
		}
	}
	return store, nil
}

func run(ctx context.Context, opts *Config) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	destOptions, err := cfg.DestinationOptions()
	if err != nil {
		return err
	}
	logrus.WithFields(vocabularyFields(cfg.Audiences)).WithField("config", opts.ConfigFile).Debug("Configuration loaded")

	destination := wordpress.NewClient(wordpress.Options{
		Host:       cfg.WordPress.Host,
		BaseURL:    cfg.WordPress.BaseURL,
		PostType:   cfg.WordPress.PostType,
		Username:   cfg.WordPress.Username,
		Password:   cfg.WordPress.Password,
		MaxPages:   cfg.WordPress.MaxPages,
		PerPage:    cfg.WordPress.PerPage,
		HTTPClient: &http.Client{Timeout: cfg.WordPress.Timeout},
	})
	source := spond.NewClient(spond.Options{
		BaseURL:    cfg.Spond.BaseURL,
		Username:   cfg.Spond.Username,
		Password:   cfg.Spond.Password,
		HTTPClient: &http.Client{Timeout: cfg.Spond.Timeout},
	})

	serviceOpts := []sync.Option{
		sync.WithVocabulary(cfg.Audiences),
		sync.WithNotices(cfg.Notices),
		sync.WithDestinationOptions(destOptions),
		sync.WithSourceGroup(cfg.Spond.GroupID),
		sync.WithMaxEvents(cfg.Spond.MaxEvents),
		sync.WithDryRun(opts.DryRun),
	}

	a := &app{pools: make(map[string]db.PgxPoolIface)}
	defer a.close()

	if opts.LockDSN != "" {
		locker, err := a.locker(ctx, opts.LockDSN, cfg.Job)
		if err != nil {
			return err
		}
		serviceOpts = append(serviceOpts, sync.WithLocker(locker))
	}
	if opts.StateDSN != "" {
		store, err := a.stateStore(ctx, opts.StateDSN, cfg.Job)
		if err != nil {
			return err
		}
		serviceOpts = append(serviceOpts, sync.WithObserver(store))
	}
	if opts.PushgatewayURL != "" {
		serviceOpts = append(serviceOpts, sync.WithObserver(metrics.NewReporter(opts.PushgatewayURL, cfg.Job, nil)))
	}

	service, err := sync.NewService(destination, source, serviceOpts...)
	if err != nil {
		return err
	}
	_, err = service.Run(ctx)
	if errors.Is(err, sync.ErrLockHeld) {
		logrus.WithField("job", cfg.Job).Info("Another run holds the lock, nothing to do")
		return nil
	}
	return err
}

// vocabularyFields is logged once so operators can see which audiences are owned
func vocabularyFields(v mapping.Vocabulary) logrus.Fields {
	return logrus.Fields{
		"restricted_group": v.Restricted.GroupID,
		"restricted_tag":   v.Restricted.Tag,
		"full_group":       v.Full.GroupID,
		"full_tag":         v.Full.Tag,
	}
}

func main() {
	// Quick check for version flags before full parsing
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-v" {
			ShowVersion()
			os.Exit(0)
		}
	}

	loadEnvFiles(".env", ".env.local")

	opts, err := ParseCLI(os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}

	if err := SetupLogging(opts.LogLevel, opts.LogJSON); err != nil {
		logrus.WithError(err).Fatal("Failed to setup logging")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	SetupCloseHandler(cancel)

	if err := run(ctx, opts); err != nil {
		logrus.WithError(err).Fatal("Synchronization failed")
	}
}
