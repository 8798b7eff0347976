package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"zonetrends/internal/auth"
	"zonetrends/internal/config"
	"zonetrends/internal/logging"
	"zonetrends/internal/metrics"
	"zonetrends/internal/service"
	"zonetrends/internal/store"
	"zonetrends/internal/strava"
	"zonetrends/internal/zonecache"
)

// errConfigCreated stops a command after an example config was written
var errConfigCreated = errors.New("example config created")

// globalFlags are shared by every command
type globalFlags struct {
	configPath string
	dbPath     string
	logLevel   string
}

// app holds the wired dependencies for one command run
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
	db       *store.DB
	metrics  *metrics.Collector
	clients  *service.Clients
	cache    *zonecache.Cache
	zones    *service.ZoneService
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads .env and the config file. A missing config file is
// replaced by an example and errConfigCreated is returned.
func loadConfig(flags *globalFlags, out io.Writer) (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}

	path := flags.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return nil, err
		}
	}

	cfg, err := config.LoadFrom(path)
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Fprintln(out, "No config file found. Creating example config...")
		if err := config.CreateExampleAt(path); err != nil {
			return nil, fmt.Errorf("creating example config: %w", err)
		}
		fmt.Fprintf(out, "\nPlease edit the config file at:\n  %s\n\n", path)
		fmt.Fprintln(out, "You need to add your Strava API credentials.")
		fmt.Fprintln(out, "Get them from: https://www.strava.com/settings/api")
		return nil, errConfigCreated
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setup wires config, logging, storage, the Strava clients and the zone
// service. Log records go to the configured file, then to logFile, then to
// console.
func setup(flags *globalFlags, out, console io.Writer, logFile string) (*app, error) {
	cfg, err := loadConfig(flags, out)
	if err != nil {
		return nil, err
	}
	if cfg.Log.File == "" {
		cfg.Log.File = logFile
	}

	logger, closeLog, err := logging.New(cfg.Log, console)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	dbPath := flags.dbPath
	if dbPath == "" {
		if dbPath, err = store.DefaultPath(); err != nil {
			closeLog()
			return nil, err
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	collector := metrics.New()

	policy, err := zonecache.NewPolicy(cfg.Cache.MaxEntries)
	if err != nil {
		db.Close()
		closeLog()
		return nil, fmt.Errorf("creating zone cache: %w", err)
	}
	cache := zonecache.New(policy, collector)

	clients := service.NewClients(db, auth.NewOAuthConfig(cfg.Strava, auth.RedirectURL), strava.WithObserver(collector))
	zones := service.NewZoneService(clients, cache,
		service.WithActivityType(cfg.Window.ActivityType),
		service.WithLogger(logger),
		service.WithSummaryObserver(collector),
	)

	if !strava.KnownActivityType(cfg.Window.ActivityType) {
		logger.Warn("activity_type_literal",
			"activity_type", cfg.Window.ActivityType,
			"known", strava.ActivityFamilies(),
		)
	}
	logger.Debug("app_ready", "db", dbPath, "cache_max_entries", cfg.Cache.MaxEntries)

	return &app{
		cfg:      cfg,
		logger:   logger,
		closeLog: closeLog,
		db:       db,
		metrics:  collector,
		clients:  clients,
		cache:    cache,
		zones:    zones,
	}, nil
}

// Close releases the database and log file
func (a *app) Close() {
	a.db.Close()
	a.closeLog()
}

// tuiLogFile is where the dashboard logs when the config names no file,
// since the terminal belongs to the UI.
func tuiLogFile() string {
	dir, err := config.GetConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "zonetrends.log")
}
