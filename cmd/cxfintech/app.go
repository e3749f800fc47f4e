package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/MekdelawitGebre/customer-experience-fintech/application/service"
	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/cache"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/persistence"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/provider"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/scraper"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/config"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/database"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/log"
)

const schemaTimeout = 10 * time.Second

// app holds the configuration and logger shared by every command, and
// builds services on demand so a command only opens what it uses.
type app struct {
	cfg    config.AppConfig
	logger *slog.Logger
	db     *database.Database
}

func newApp(envFile string, opts ...config.AppConfigOption) (*app, error) {
	return newAppLogging(envFile, os.Stdout, opts...)
}

// newAppLogging is newApp with logs written to w.
func newAppLogging(envFile string, w io.Writer, opts ...config.AppConfigOption) (*app, error) {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return nil, err
	}
	cfg = cfg.Apply(opts...)

	if err := cfg.EnsureDataDirs(); err != nil {
		return nil, err
	}

	logger := log.ConfigureWriter(cfg, w).Slog()
	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	logger.LogAttrs(context.Background(), slog.LevelDebug, "configuration loaded", attrs...)

	return &app{cfg: cfg, logger: logger}, nil
}

// Close releases the database and the inference session.
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database", slog.Any("error", err))
		}
	}
	if err := provider.Shutdown(); err != nil {
		a.logger.Error("failed to shut down inference session", slog.Any("error", err))
	}
}

func (a *app) database(ctx context.Context) (database.Database, error) {
	if a.db != nil {
		return *a.db, nil
	}
	db, err := database.NewDatabase(ctx, a.cfg.DBURL())
	if err != nil {
		return database.Database{}, fmt.Errorf("open database %s: %w", config.MaskURL(a.cfg.DBURL()), err)
	}
	a.db = &db
	return db, nil
}

func (a *app) reviewStore(ctx context.Context) (persistence.ReviewStore, error) {
	db, err := a.database(ctx)
	if err != nil {
		return persistence.ReviewStore{}, err
	}
	if err := persistence.AutoMigrate(db); err != nil {
		return persistence.ReviewStore{}, err
	}
	return persistence.NewReviewStore(db, a.cfg.FallbackCSV(), a.logger), nil
}

// readStore opens DB_URL lazily for the long-running readers. When the
// schema cannot be applied the database is left in place so reads fall back
// to the snapshot and recover once it comes up.
func (a *app) readStore(ctx context.Context) (persistence.ReviewStore, database.Database, error) {
	if a.db == nil {
		db, err := database.OpenLazy(a.cfg.DBURL())
		if err != nil {
			return persistence.ReviewStore{}, database.Database{}, fmt.Errorf("open database %s: %w", config.MaskURL(a.cfg.DBURL()), err)
		}
		a.db = &db
	}
	db := *a.db

	migrateCtx, cancel := context.WithTimeout(ctx, schemaTimeout)
	defer cancel()
	if err := persistence.CreateSchema(migrateCtx, db); err != nil {
		a.logger.Warn("database unavailable, reads use the fallback snapshot",
			slog.String("db_url", config.MaskURL(a.cfg.DBURL())),
			slog.String("fallback_csv", a.cfg.FallbackCSV()),
			slog.String("error", err.Error()),
		)
	}
	return persistence.NewReviewStore(db, a.cfg.FallbackCSV(), a.logger), db, nil
}

// readers builds the dashboard and review listing over store.
func (a *app) readers(store persistence.ReviewStore, datasetCache service.DatasetCache) (*service.Dashboard, *service.Reviews) {
	dashboard := service.NewDashboard(store, datasetCache, a.cfg.Dashboard().CacheTTL(), a.logger)
	return dashboard, service.NewReviews(store, dashboard, a.logger)
}

func (a *app) scrapeService() (*service.Scrape, error) {
	sc := a.cfg.Scrape()
	apps, err := scraper.LoadAppIDs(sc.AppsFile())
	if err != nil {
		return nil, err
	}
	opts := []scraper.Option{
		scraper.WithLocale(sc.Lang(), sc.Country()),
		scraper.WithDelay(sc.Sleep()),
	}
	if dir := sc.HTTPCacheDir(); dir != "" {
		opts = append(opts, scraper.WithCacheDir(dir))
	}
	return service.NewScrape(scraper.New(opts...), apps, a.cfg.RawDir(), sc.MaxPerBank(), a.logger), nil
}

func (a *app) cleanService() *service.Clean {
	return service.NewClean(a.cfg.RawDir(), a.cfg.CleanDir(), a.logger)
}

// classifier picks the sentiment backend: a configured chat endpoint, then
// the local model, then none (emoji rules and neutral fallback only).
func (a *app) classifier() review.Classifier {
	if a.cfg.DisableClassifier() {
		a.logger.Info("sentiment classifier disabled")
		return nil
	}
	if e := a.cfg.SentimentEndpoint(); e != nil && e.IsConfigured() {
		return provider.NewOpenAISentiment(provider.OpenAIConfig{
			APIKey:  e.APIKey(),
			BaseURL: e.BaseURL(),
			Model:   e.Model(),
			Timeout: e.Timeout(),
		})
	}
	local := provider.NewHugotSentiment(provider.NewModels(a.cfg.ModelsDir()), a.cfg.SentimentModel())
	if local.Available() {
		return local
	}
	a.logger.Warn("sentiment model not found, reviews will be labelled neutral",
		slog.String("model", a.cfg.SentimentModel()),
		slog.String("models_dir", a.cfg.ModelsDir()),
	)
	return nil
}

func (a *app) analyzeService() (*service.Analyze, error) {
	tagger := provider.NewHugotTagger(provider.NewModels(a.cfg.ModelsDir()), a.cfg.ThemeModel())
	if !tagger.Available() {
		return nil, fmt.Errorf("%w: run tools/download-model for %s", provider.ErrModelUnavailable, a.cfg.ThemeModel())
	}
	return service.NewAnalyze(
		service.NewSentiment(a.classifier(), a.logger),
		service.NewThemes(tagger),
		a.cfg.ThemesTopN(),
		a.cfg.CleanDir(),
		a.cfg.OutputDir(),
		a.logger,
	), nil
}

// datasetCache returns Redis when REDIS_URL is set, otherwise an in-process
// cache. The returned closer is never nil.
func (a *app) datasetCache(ctx context.Context) (service.DatasetCache, func() error, error) {
	url := a.cfg.Dashboard().RedisURL()
	if url == "" {
		return cache.NewMemory(time.Minute), func() error { return nil }, nil
	}
	r, err := cache.NewRedis(url)
	if err != nil {
		return nil, nil, err
	}
	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, nil, errors.Join(fmt.Errorf("redis %s unreachable", config.MaskURL(url)), err)
	}
	return r, r.Close, nil
}
