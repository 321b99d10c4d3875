package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/nafeeshossain/allergen-detector/pkg/api"
	"github.com/nafeeshossain/allergen-detector/pkg/catalog"
	"github.com/nafeeshossain/allergen-detector/pkg/chassis"
	"github.com/nafeeshossain/allergen-detector/pkg/history"
	"github.com/nafeeshossain/allergen-detector/pkg/importer"
)

const version = "1.0.0"

type config struct {
	Addr        string `yaml:"addr"`
	CatalogsDir string `yaml:"catalogs_dir"`
	HistoryDB   string `yaml:"history_db"`
	CertFile    string `yaml:"cert_file"`
	KeyFile     string `yaml:"key_file"`
	LogLevel    string `yaml:"log_level"`

	// Interval between availability checks of remote import sources,
	// as a duration string ("1h"). Empty disables the checker.
	CheckInterval string `yaml:"check_interval"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "import":
		cmdImport(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: allergen-detector <command>

Commands:
  serve    Start the scanner server (HTTPS + HTTP/3 + MCP over QUIC)
  import   Download and build catalogs from data sources
`)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := loadConfig(*cfgPath, bootLogger)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	// Load catalogs. At least one allergen catalog is required.
	reg := catalog.NewRegistry(cfg.CatalogsDir)
	if err := reg.Load(); err != nil {
		logger.Error("failed to load catalogs", "error", err)
		if cfg.CatalogsDir != "" {
			logger.Info("hint: run 'allergen-detector import --source builtin-defaults --output-dir " + cfg.CatalogsDir + "'")
		}
		os.Exit(1)
	}
	logger.Info("catalogs loaded",
		"catalogs", len(reg.ListCatalogs()),
		"allergens", reg.AllergenCount(),
		"synonyms", reg.SynonymCount(),
	)

	var hist *history.Store
	if cfg.HistoryDB != "" {
		var err error
		hist, err = history.Open(cfg.HistoryDB)
		if err != nil {
			logger.Error("failed to open history db", "path", cfg.HistoryDB, "error", err)
			os.Exit(1)
		}
		defer hist.Close()
		logger.Info("scan history enabled", "path", cfg.HistoryDB)
	}

	svc := &api.Service{Registry: reg, History: hist}

	mcpSrv := server.NewMCPServer("allergen-detector", version,
		server.WithToolCapabilities(false),
	)
	api.RegisterMCPTools(mcpSrv, svc)

	srv, err := chassis.New(chassis.Config{
		Addr:      cfg.Addr,
		CertFile:  cfg.CertFile,
		KeyFile:   cfg.KeyFile,
		Handler:   api.NewRouter(svc),
		MCPServer: mcpSrv,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("server init failed", "error", err)
		os.Exit(1)
	}

	// SIGHUP: hot reload catalogs.
	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading catalogs")
			if err := reg.Reload(); err != nil {
				logger.Error("reload failed", "error", err)
			} else {
				logger.Info("catalogs reloaded",
					"catalogs", len(reg.ListCatalogs()),
					"allergens", reg.AllergenCount(),
				)
			}
		}
	}()

	// Periodic availability checks of remote import sources, against the
	// sources.db next to the catalogs.
	if cfg.CheckInterval != "" {
		interval, err := time.ParseDuration(cfg.CheckInterval)
		if err != nil || interval <= 0 {
			logger.Error("invalid check_interval", "value", cfg.CheckInterval, "error", err)
			os.Exit(1)
		}
		sdb, err := importer.OpenSourceDB(sourcesDBPath(cfg.CatalogsDir))
		if err != nil {
			logger.Warn("source checker disabled", "error", err)
		} else {
			defer sdb.Close()
			go importer.NewChecker(sdb, logger, interval).Start(ctx)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func loadConfig(path string, logger *slog.Logger) config {
	cfg := config{
		Addr:        ":8420",
		CatalogsDir: "catalogs",
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no config file, using defaults", "path", path)
			return cfg
		}
		logger.Error("read config", "error", err)
		os.Exit(1)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Error("parse config", "error", err)
		os.Exit(1)
	}
	return cfg
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
