// Package syncer propagates new strings from one locale file into the
// matching files of every other locale.
package syncer

import (
	"context"
	"fmt"
	"path/filepath"

	"localesync/internal/change"
	"localesync/internal/content"
	"localesync/internal/diff"
	"localesync/internal/errors"
	"localesync/internal/locale"
	"localesync/internal/lock"
	"localesync/internal/status"
	"localesync/internal/translate"
	"localesync/internal/workspace"

	"go.uber.org/zap"
)

// ResultKey is where Process leaves its *Result on the change context
const ResultKey = "sync.result"

type Options struct {
	FS       workspace.FileSystem
	Content  *content.Store
	Locks    *lock.Store
	Index    *locale.Index
	Layout   locale.Layout
	Provider translate.Provider
	Status   status.Indicator
	// Format is used for files whose own format cannot be detected
	Format locale.Format
	// SourceLocales limits which locales trigger translation. Empty means
	// every locale does.
	SourceLocales []string
	Logger        *zap.Logger
}

// Module is the change handler that runs the translation sync
type Module struct {
	fs       workspace.FileSystem
	content  *content.Store
	locks    *lock.Store
	index    *locale.Index
	layout   locale.Layout
	provider translate.Provider
	status   status.Indicator
	format   locale.Format
	sources  map[string]bool
	logger   *zap.Logger
}

func New(opts Options) (*Module, error) {
	if opts.FS == nil || opts.Content == nil || opts.Locks == nil || opts.Index == nil || opts.Provider == nil {
		return nil, fmt.Errorf("syncer: file system, content store, lock store, index and provider are required")
	}
	if opts.Status == nil {
		opts.Status = status.Nop{}
	}
	if opts.Format.Indent == "" {
		opts.Format = locale.DefaultFormat()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	sources := make(map[string]bool, len(opts.SourceLocales))
	for _, l := range opts.SourceLocales {
		sources[l] = true
	}

	return &Module{
		fs:       opts.FS,
		content:  opts.Content,
		locks:    opts.Locks,
		index:    opts.Index,
		layout:   opts.Layout,
		provider: opts.Provider,
		status:   opts.Status,
		format:   opts.Format,
		sources:  sources,
		logger:   opts.Logger,
	}, nil
}

func (m *Module) Name() string { return "translation-sync" }

// Result describes what one Process call did
type Result struct {
	Path       string            `json:"path"`
	Locale     string            `json:"locale"`
	Diffs      int               `json:"diffs"`
	Relevant   int               `json:"relevant"`
	Translated int               `json:"translated"`
	Written    []string          `json:"written,omitempty"`
	Skipped    map[string]string `json:"skipped,omitempty"`
}

func (r *Result) skip(path, reason string) {
	if r.Skipped == nil {
		r.Skipped = make(map[string]string)
	}
	r.Skipped[path] = reason
}

// plan is the translated work for one sibling
type plan struct {
	target  locale.Location
	entries []diff.Entry
}

// Process runs the sync for one changed locale file. It stops the chain
// when the file did not change and fails when translation or a write
// fails; other per-sibling problems are logged and skipped.
func (m *Module) Process(ctx context.Context, cc *change.Context) (bool, error) {
	logger := m.logger.With(zap.String("path", cc.Path), zap.String("event_id", cc.EventID))
	result := &Result{Path: cc.Path}
	cc.Set(ResultKey, result)

	raw := cc.Raw
	if raw == nil {
		var err error
		if raw, err = m.fs.ReadFile(cc.Path); err != nil {
			return false, errors.IOFailure("read", cc.Path, err)
		}
	}

	// 1. diff against the baseline
	diffs, err := m.content.GetDiffs(cc.Path, raw)
	if err != nil {
		return false, err
	}
	result.Diffs = len(diffs)
	if len(diffs) == 0 {
		logger.Debug("no changes")
		m.commit(logger, cc.Path, raw)
		return false, nil
	}

	// 2. refresh the location index
	loc, err := m.layout.Parse(cc.Path)
	if err != nil {
		logger.Debug("not a locale file", zap.Error(err))
		m.commit(logger, cc.Path, raw)
		return true, nil
	}
	m.index.Register(loc)
	result.Locale = loc.Locale

	// 3. keep what needs translating
	candidates := Relevant(diffs)
	result.Relevant = len(candidates)
	if len(candidates) == 0 {
		logger.Debug("no translatable changes", zap.Int("diffs", len(diffs)))
		m.commit(logger, cc.Path, raw)
		return true, nil
	}
	if len(m.sources) > 0 && !m.sources[loc.Locale] {
		logger.Debug("locale is not a translation source", zap.String("locale", loc.Locale))
		m.commit(logger, cc.Path, raw)
		return true, nil
	}

	// 4. tell the user
	m.status.SetState(status.Running, "translating "+m.rel(cc.Path))
	defer m.status.SetIdle()

	// 5-6. translate what each sibling is missing
	plans, err := m.translate(ctx, logger, loc, candidates, result)
	if err != nil {
		m.status.SetState(status.Error, err.Error())
		return false, err
	}

	// 7. write siblings one at a time
	for _, p := range plans {
		if err := m.write(logger, p, result); err != nil {
			m.status.SetState(status.Error, err.Error())
			return false, err
		}
	}

	// 8. the change is handled
	m.commit(logger, cc.Path, raw)

	logger.Info("sync finished",
		zap.String("locale", loc.Locale),
		zap.Int("diffs", result.Diffs),
		zap.Int("translated", result.Translated),
		zap.Strings("written", result.Written))
	return true, nil
}

func (m *Module) translate(ctx context.Context, logger *zap.Logger, source locale.Location, candidates []Candidate, result *Result) ([]plan, error) {
	var plans []plan
	for _, sib := range m.index.Siblings(source.Path) {
		sibLogger := logger.With(zap.String("sibling", sib.Path))

		ok, err := translate.Supports(ctx, m.provider, sib.Locale)
		if err != nil {
			sibLogger.Warn("checking provider languages", zap.Error(err))
		} else if !ok {
			sibLogger.Info("target locale not supported by provider", zap.String("locale", sib.Locale))
			result.skip(sib.Path, "unsupported locale")
			continue
		}

		raw, err := m.fs.ReadFile(sib.Path)
		if err != nil {
			sibLogger.Warn("reading sibling", zap.Error(err))
			result.skip(sib.Path, "read failed")
			continue
		}
		doc, err := locale.ParseDocument(sib.Path, raw, m.format)
		if err != nil {
			sibLogger.Warn("skipping malformed sibling", zap.Error(err))
			result.skip(sib.Path, "malformed")
			continue
		}
		tree, err := doc.Tree()
		if err != nil {
			sibLogger.Warn("skipping malformed sibling", zap.Error(err))
			result.skip(sib.Path, "malformed")
			continue
		}

		var pending []Candidate
		var values []string
		for _, c := range candidates {
			if !isBlank(tree, c.Path) || !parentWritable(tree, c.Path) {
				continue
			}
			pending = append(pending, c)
			values = append(values, c.Value)
		}
		if len(pending) == 0 {
			continue
		}

		translated, err := m.provider.TranslateBatch(ctx, values, source.Locale, sib.Locale)
		if err != nil {
			return nil, err
		}
		if len(translated) != len(values) {
			return nil, errors.ProviderFailure(m.provider.Name(),
				fmt.Errorf("got %d translations for %d strings", len(translated), len(values)))
		}

		entries := make([]diff.Entry, len(pending))
		for i, c := range pending {
			entries[i] = diff.Entry{Kind: c.Kind, Path: c.Path, New: translated[i]}
		}
		result.Translated += len(entries)
		plans = append(plans, plan{target: sib, entries: entries})
	}
	return plans, nil
}

func (m *Module) write(logger *zap.Logger, p plan, result *Result) error {
	path := p.target.Path
	logger = logger.With(zap.String("sibling", path))

	if m.locks.Has(path) {
		logger.Info("sibling has a write in flight, skipping")
		result.skip(path, "locked")
		return nil
	}

	// Re-read so edits made while translating are kept
	raw, err := m.fs.ReadFile(path)
	if err != nil {
		logger.Warn("re-reading sibling", zap.Error(err))
		result.skip(path, "read failed")
		return nil
	}
	doc, err := locale.ParseDocument(path, raw, m.format)
	if err != nil {
		logger.Warn("skipping malformed sibling", zap.Error(err))
		result.skip(path, "malformed")
		return nil
	}

	applied, err := apply(doc, p.entries)
	if err != nil {
		return fmt.Errorf("applying translations to %s: %w", path, err)
	}
	if applied == 0 {
		result.skip(path, "nothing to apply")
		return nil
	}

	out := doc.Bytes()
	m.locks.Acquire(path)
	defer m.locks.Release(path)

	if err := m.fs.WriteFile(path, out); err != nil {
		return errors.IOFailure("write", path, err)
	}
	if err := m.content.Update(path, out); err != nil {
		logger.Warn("updating content store", zap.Error(err))
	}

	result.Written = append(result.Written, path)
	logger.Debug("sibling written", zap.Int("entries", applied))
	return nil
}

// apply writes entries into doc. Added and Edited values only land where
// the target is still blank and its parents are objects or absent.
func apply(doc *locale.Document, entries []diff.Entry) (int, error) {
	tree, err := doc.Tree()
	if err != nil {
		return 0, err
	}

	n := 0
	for _, e := range entries {
		switch e.Kind {
		case diff.Deleted:
			if _, ok := diff.Get(tree, e.Path); !ok {
				continue
			}
			if err := doc.Delete(e.Path); err != nil {
				return n, err
			}
		case diff.Added, diff.Edited:
			if !isBlank(tree, e.Path) || !parentWritable(tree, e.Path) {
				continue
			}
			if err := doc.Set(e.Path, e.New); err != nil {
				return n, err
			}
		default:
			continue
		}
		n++
	}
	return n, nil
}

func (m *Module) commit(logger *zap.Logger, path string, raw []byte) {
	if err := m.content.Update(path, raw); err != nil {
		logger.Warn("committing baseline", zap.Error(err))
	}
}

func (m *Module) rel(path string) string {
	if rel, err := filepath.Rel(m.layout.Root, path); err == nil {
		return rel
	}
	return path
}
