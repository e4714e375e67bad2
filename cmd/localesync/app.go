package main

import (
	"fmt"
	"io"

	"localesync/internal/cache"
	"localesync/internal/change"
	"localesync/internal/config"
	"localesync/internal/content"
	"localesync/internal/coverage"
	"localesync/internal/diff"
	"localesync/internal/locale"
	"localesync/internal/lock"
	"localesync/internal/logging"
	"localesync/internal/status"
	"localesync/internal/storage"
	"localesync/internal/syncer"
	"localesync/internal/translate"
	"localesync/internal/watch"
	"localesync/internal/workspace"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Key prefixes of the durable caches
const (
	prefixStrings   = "tr"
	prefixLanguages = "lang"
)

// localeCategory is the category whose files run the sync chain
const localeCategory = "locale"

// app owns every long-lived component. Nothing reaches them except
// through it.
type app struct {
	cfg    *config.Config
	logger *logging.Logger

	db        *badger.DB
	stringsKV *storage.BadgerStore
	langsKV   *storage.BadgerStore

	fs         workspace.FileSystem
	classifier *workspace.Classifier
	board      *status.Board
	layout     locale.Layout
	content    *content.Store
	index      *locale.Index
	locks      *lock.Store
	provider   translate.Provider
	coverage   *coverage.Tracker
	chains     *change.Registry
	orch       *watch.Orchestrator
}

func openCache(cfg *config.Config) (*badger.DB, *storage.BadgerStore, *storage.BadgerStore, error) {
	db, err := storage.Open(cfg.Cache.Path)
	if err != nil {
		return nil, nil, nil, err
	}

	stringsKV, err := storage.NewBadgerStore(db, storage.Options{Prefix: prefixStrings, Compression: cfg.Cache.Compression})
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	langsKV, err := storage.NewBadgerStore(db, storage.Options{Prefix: prefixLanguages, Compression: cfg.Cache.Compression})
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return db, stringsKV, langsKV, nil
}

func newProvider(cfg *config.Config) (translate.Provider, error) {
	switch cfg.Provider.Name {
	case "libre":
		return translate.NewLibre(cfg.Provider.Libre), nil
	case "claude":
		return translate.NewClaude(cfg.Provider.Claude), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}

// newApp wires the pipeline. fs is where locale files are read and
// written; out receives status transitions and may be nil.
func newApp(cfg *config.Config, logger *logging.Logger, fs workspace.FileSystem, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, logger: logger, fs: fs}

	db, stringsKV, langsKV, err := openCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	a.db, a.stringsKV, a.langsKV = db, stringsKV, langsKV

	strs, err := cache.New[string](cache.Options{
		Size:       cfg.Cache.Size,
		DefaultTTL: cfg.Cache.StringTTL,
		Durable:    stringsKV,
		Logger:     logger.Named("cache"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	langs, err := cache.New[[]string](cache.Options{
		Size:       64,
		DefaultTTL: cfg.Cache.LanguagesTTL,
		Durable:    langsKV,
		Logger:     logger.Named("cache"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	inner, err := newProvider(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.provider = translate.NewCached(inner, strs, langs, translate.CachedOptions{
		StringTTL:    cfg.Cache.StringTTL,
		LanguagesTTL: cfg.Cache.LanguagesTTL,
		Logger:       logger.Named("translate"),
	})

	a.classifier, err = cfg.Classifier()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.layout = cfg.Layout()
	a.content = content.NewStore(diff.NewEngine(), watch.NewResolver(a.classifier, a.layout), logger.Named("content"))
	a.index = locale.NewIndex()
	a.locks = lock.NewStore(
		lock.WithGraceDelay(cfg.Lock.GraceDelay),
		lock.WithLogger(logger.Named("lock")),
	)
	a.board = status.NewBoard(out)

	mod, err := syncer.New(syncer.Options{
		FS:            fs,
		Content:       a.content,
		Locks:         a.locks,
		Index:         a.index,
		Layout:        a.layout,
		Provider:      a.provider,
		Status:        a.board,
		Format:        cfg.Locales.Format,
		SourceLocales: cfg.Locales.SourceLocales,
		Logger:        logger.Named("sync"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.coverage = coverage.NewTracker(a.content, localeCategory, logger.Named("coverage"))

	a.chains = change.NewRegistry()
	a.chains.Register(localeCategory, change.NewChain(logger.Named("chain"), mod, a.coverage))

	a.orch, err = watch.New(watch.Options{
		Classifier:         a.classifier,
		FS:                 fs,
		Content:            a.content,
		Locks:              a.locks,
		Index:              a.index,
		Layout:             a.layout,
		Chains:             a.chains,
		Disabled:           cfg.Disabled,
		DisabledCategories: cfg.DisabledCategories,
		AfterScan:          a.coverage.Refresh,
		OnTrackChange:      a.coverage.Refresh,
		Logger:             logger.Named("watch"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Debug("pipeline ready",
		zap.String("root", cfg.Root),
		zap.String("locales", a.layout.Root),
		zap.String("provider", a.provider.Name()))
	return a, nil
}

func (a *app) Close() error {
	if a.orch != nil {
		a.orch.Close()
	}
	if a.locks != nil {
		a.locks.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return fmt.Errorf("closing cache: %w", err)
		}
	}
	return nil
}
