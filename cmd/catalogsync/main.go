// Command catalogsync crawls the Hot Wheels wiki and merges the casting
// records it finds into the catalog store. It resumes from the progress file
// unless started clean, and prints the run report as JSON on stdout.
//
// Flags:
//
//	--config       path to YAML config file (default: CONFIG_PATH or ./config.yaml)
//	--titles       file of page titles, one per line or a JSON array
//	--category     wiki category to expand into titles (repeatable, comma-separated)
//	--store        catalog store: postgres, mongo or memory
//	--clean-start  ignore the persisted progress file
//	--dry-run      parse and validate without writing the catalog or progress
//	--migrate      apply database migrations before syncing (postgres only)
//
// The first SIGINT/SIGTERM stops after the in-flight batch; a second one
// aborts it.
//
// Exit codes: 0 = every pending title processed, 1 = failed or stopped early.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/adapter/memory/catalog"
	mongocatalog "github.com/g33ktony/hot-wheels-manager-sub006/internal/adapter/mongo/catalog"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/adapter/postgres"
	pgcatalog "github.com/g33ktony/hot-wheels-manager-sub006/internal/adapter/postgres/catalog"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/adapter/provider/mediawiki"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/app"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/app/catalogsync"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/app/catalogsync/progress"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/config"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/metrics"
)

// Compile-time interface assertions.
var (
	_ catalogsync.CatalogStore   = (*pgcatalog.Repo)(nil)
	_ catalogsync.CatalogStore   = (*mongocatalog.Store)(nil)
	_ catalogsync.CatalogStore   = (*catalog.Store)(nil)
	_ catalogsync.PageSource     = (*mediawiki.Client)(nil)
	_ catalogsync.CategoryLister = (*mediawiki.Client)(nil)
	_ catalogsync.ProgressStore  = (*progress.FileStore)(nil)
	_ catalogsync.Recorder       = (*metrics.Sync)(nil)
)

func main() {
	os.Exit(run())
}

func run() int {
	configFlag := flag.String("config", "", "path to YAML config file")
	titlesFlag := flag.String("titles", "", "file of page titles, one per line or a JSON array")
	storeFlag := flag.String("store", "", "catalog store: postgres, mongo or memory")
	cleanFlag := flag.Bool("clean-start", false, "ignore the persisted progress file")
	dryRunFlag := flag.Bool("dry-run", false, "parse and validate without writing the catalog or progress")
	migrateFlag := flag.Bool("migrate", false, "apply database migrations before syncing")
	var categories []string
	flag.Func("category", "wiki category to expand into titles (repeatable, comma-separated)", func(v string) error {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				categories = append(categories, c)
			}
		}
		return nil
	})
	flag.Parse()

	// CLI flags override config.
	cfg, err := config.Load(*configFlag, func(c *config.Config) {
		if *storeFlag != "" {
			c.Sync.Store = *storeFlag
		}
		if *titlesFlag != "" {
			c.Sync.TitlesPath = *titlesFlag
		}
		if len(categories) > 0 {
			c.Sync.Categories = categories
		}
		// A dry run never writes the catalog.
		if *dryRunFlag {
			c.Sync.Store = string(domain.StoreMemory)
		}
	})
	if err != nil {
		log.Printf("load config: %v", err)
		return 1
	}

	logger := app.NewLogger(cfg.Log)
	logger.Info("catalogsync starting",
		slog.String("version", app.BuildVersion()),
		slog.String("store", cfg.Sync.Store),
		slog.Bool("dry_run", *dryRunFlag),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wikiCfg := cfg.Wiki
	wikiCfg.UserAgent = app.UserAgent(wikiCfg.UserAgent)
	client := mediawiki.NewClient(wikiCfg, logger)

	var explicit []domain.PageTitle
	if cfg.Sync.TitlesPath != "" {
		explicit, err = catalogsync.ReadTitles(cfg.Sync.TitlesPath)
		if err != nil {
			logger.Error("read titles", slog.String("error", err.Error()))
			return 1
		}
	}
	universe, err := catalogsync.BuildUniverse(ctx, logger, client, explicit, cfg.Sync.Categories)
	if err != nil {
		logger.Error("build title universe", slog.String("error", err.Error()))
		return 1
	}

	progressStore := progress.NewFileStore(cfg.Sync.ProgressPath, logger)
	state, err := progressStore.Load(*cleanFlag, universe)
	if err != nil {
		if errors.Is(err, domain.ErrStateCorrupt) {
			logger.Error("progress file unreadable, rerun with --clean-start",
				slog.String("path", progressStore.Path()),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Error("load progress", slog.String("error", err.Error()))
		}
		return 1
	}

	store, closeStore, err := openStore(ctx, cfg, logger, *migrateFlag)
	if err != nil {
		logger.Error("open catalog store", slog.String("store", cfg.Sync.Store), slog.String("error", err.Error()))
		return 1
	}
	defer closeStore()

	recorder := metrics.NewSync()
	pipeline := catalogsync.NewPipeline(logger, client, store, progressStore, universe,
		catalogsync.ConfigFrom(cfg, *dryRunFlag),
		catalogsync.WithRecorder(recorder),
	)

	stopOnSignal(logger, pipeline, cancel)

	result, _, runErr := pipeline.Run(ctx, state)

	if cfg.Metrics.PushgatewayURL != "" {
		if err := recorder.Push(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			logger.Warn("push metrics", slog.String("error", err.Error()))
		}
	}

	report := result.Report
	var failed *catalogsync.FailedError
	if errors.As(runErr, &failed) {
		report = failed.Report
	}
	if err := writeReport(report); err != nil {
		logger.Error("write report", slog.String("error", err.Error()))
		return 1
	}

	if runErr != nil {
		logger.Error("sync failed", slog.String("error", runErr.Error()))
		return 1
	}
	if report.Stopped {
		logger.Warn("sync stopped before all titles were processed")
		return 1
	}
	if report.HasFailures() {
		logger.Warn("sync completed with failures", slog.Int("failures", len(report.Failures)))
	}
	return 0
}

// openStore connects the configured catalog backend. The returned func
// releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (catalogsync.CatalogStore, func(), error) {
	switch cfg.Sync.StoreDriver() {
	case domain.StorePostgres:
		if migrate {
			if err := postgres.Migrate(ctx, cfg.Database.DSN, logger); err != nil {
				return nil, nil, err
			}
		}
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return pgcatalog.New(pool, logger), pool.Close, nil

	case domain.StoreMongo:
		client, err := mongocatalog.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn("disconnect mongo", slog.String("error", err.Error()))
			}
		}
		store := mongocatalog.New(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection), logger)
		if err := store.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return store, closeFn, nil

	default:
		return catalog.New(), func() {}, nil
	}
}

// stopOnSignal asks the pipeline to stop on the first signal and cancels
// the run on the second.
func stopOnSignal(logger *slog.Logger, p *catalogsync.Pipeline, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.Warn("stopping after the current batch", slog.String("signal", sig.String()))
		p.Stop()
		sig = <-sigs
		logger.Warn("aborting", slog.String("signal", sig.String()))
		cancel()
	}()
}

func writeReport(report domain.SyncReport) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
