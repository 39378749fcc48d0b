// Endfield farming planner server (MCP over stdio or HTTP)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rsned/endfield-planner-server/internal/planner/api"
	"github.com/rsned/endfield-planner-server/internal/planner/catalog"
	"github.com/rsned/endfield-planner-server/internal/planner/config"
	"github.com/rsned/endfield-planner-server/internal/planner/db"
	"github.com/rsned/endfield-planner-server/internal/planner/engine"
	"github.com/rsned/endfield-planner-server/internal/planner/mcp"
	"github.com/rsned/endfield-planner-server/internal/planner/metrics"
	"github.com/rsned/endfield-planner-server/internal/planner/state"
	"github.com/rsned/endfield-planner-server/internal/planner/sync"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file (default: planner.yaml in . or ./configs)")
	dbPath := flag.String("db", "", "Path to SQLite database (overrides config)")
	mode := flag.String("mode", "", "Server mode: mcp or http (overrides config)")
	importItems := flag.String("import-items", "", "Import items from JSON or YAML file")
	importLocations := flag.String("import-locations", "", "Import locations from JSON or YAML file")
	importTasks := flag.String("import-tasks", "", "Import tasks from JSON or YAML file")
	importTaskDefaults := flag.String("import-task-defaults", "", "Import task defaults from JSON or YAML file")
	clearCatalog := flag.Bool("clear", false, "Remove all imported catalog data")
	showStatus := flag.Bool("status", false, "Print catalog status and exit")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *mode != "" {
		cfg.Server.Mode = *mode
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	logLevel := cfg.Logging.SlogLevel()
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, cliOptions{
		importItems:        *importItems,
		importLocations:    *importLocations,
		importTasks:        *importTasks,
		importTaskDefaults: *importTaskDefaults,
		clear:              *clearCatalog,
		status:             *showStatus,
	}); err != nil {
		logger.Error("planner server failed", "error", err)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stderr, "server stopped")
}

type cliOptions struct {
	importItems        string
	importLocations    string
	importTasks        string
	importTaskDefaults string
	clear              bool
	status             bool
}

func (o cliOptions) maintenanceOnly() bool {
	return o.importItems != "" || o.importLocations != "" || o.importTasks != "" ||
		o.importTaskDefaults != "" || o.clear || o.status
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts cliOptions) error {
	database, err := db.OpenAndInit(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = database.Close() }()

	syncer := sync.NewSyncer(database)

	if opts.maintenanceOnly() {
		return runMaintenance(ctx, syncer, logger, opts)
	}

	// Catalog
	var src catalog.Source = catalog.NewStoreSource(database)
	if cfg.Catalog.Source == config.SourceFiles {
		src = catalog.FileSource{
			ItemsPath:        cfg.Catalog.ItemsFile,
			LocationsPath:    cfg.Catalog.LocationsFile,
			TasksPath:        cfg.Catalog.TasksFile,
			TaskDefaultsPath: cfg.Catalog.TaskDefaultsFile,
		}
	}
	cat, err := catalog.Load(ctx, src, logger)
	if err != nil {
		return err
	}

	// Session state
	var backend state.Backend = db.NewKVStore(database)
	if cfg.State.Backend == config.BackendRedis {
		rb, err := state.NewRedisBackend(ctx, cfg.State.RedisURL, cfg.State.KeyPrefix, logger)
		if err != nil {
			return err
		}
		defer func() { _ = rb.Close() }()
		backend = rb
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	eng, err := engine.New(ctx, cat, state.NewStore(backend, logger), engine.Options{
		Weights: engine.Weights{
			Target:           cfg.Planner.TargetWeight,
			Normal:           cfg.Planner.NormalWeight,
			IncidentalRarity: cfg.Planner.IncidentalRarity,
		},
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	var status mcp.StatusSource
	if cfg.Catalog.Source == config.SourceDB {
		status = syncer
	}

	switch cfg.Server.Mode {
	case config.ModeHTTP:
		return serveHTTP(ctx, cfg.Server, api.NewServer(eng, api.Options{
			Status:      status,
			Metrics:     m,
			Gatherer:    reg,
			Logger:      logger,
			CORSOrigins: cfg.Server.CORSOrigins,
		}), logger)
	default:
		server := mcp.NewServer(eng, status, m, logger)
		logger.Info("starting MCP server", "db", cfg.Database.Path)
		if err := server.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	}
}

func runMaintenance(ctx context.Context, syncer *sync.Syncer, logger *slog.Logger, opts cliOptions) error {
	if opts.clear {
		logger.Info("clearing catalog")
		if err := syncer.ClearAll(ctx); err != nil {
			return fmt.Errorf("clearing catalog: %w", err)
		}
	}

	imports := []struct {
		kind string
		path string
		fn   func(context.Context, string) (int, error)
	}{
		{"items", opts.importItems, syncer.ImportItemsFromFile},
		{"locations", opts.importLocations, syncer.ImportLocationsFromFile},
		{"tasks", opts.importTasks, syncer.ImportTasksFromFile},
	}
	for _, imp := range imports {
		if imp.path == "" {
			continue
		}
		logger.Info("importing "+imp.kind, "file", imp.path)
		n, err := imp.fn(ctx, imp.path)
		if err != nil {
			return fmt.Errorf("importing %s: %w", imp.kind, err)
		}
		logger.Info(imp.kind+" imported successfully", "count", n)
	}

	if opts.importTaskDefaults != "" {
		logger.Info("importing task defaults", "file", opts.importTaskDefaults)
		if err := syncer.ImportTaskDefaultsFromFile(ctx, opts.importTaskDefaults); err != nil {
			return fmt.Errorf("importing task defaults: %w", err)
		}
	}

	if opts.status {
		status, err := syncer.Status(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	return nil
}

func serveHTTP(ctx context.Context, cfg config.ServerConfig, srv *api.Server, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
