// Package watch turns file system events under the workspace root into
// handler chain runs.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"localesync/internal/change"
	"localesync/internal/content"
	"localesync/internal/errors"
	"localesync/internal/locale"
	"localesync/internal/lock"
	"localesync/internal/workspace"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Op is the kind of file system change
type Op int

const (
	Created Op = iota
	Changed
	Deleted
)

func (op Op) String() string {
	switch op {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event is one change to a file under the root
type Event struct {
	Op   Op
	Path string
}

// Outcome says what Dispatch did with an event
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDisabled  Outcome = "disabled"
	OutcomeLocked    Outcome = "locked"
	OutcomeAdded     Outcome = "added"
	OutcomeRemoved   Outcome = "removed"
	OutcomeProcessed Outcome = "processed"
	OutcomeHalted    Outcome = "halted"
	OutcomeFailed    Outcome = "failed"
)

type Options struct {
	Classifier *workspace.Classifier
	FS         workspace.FileSystem
	Content    *content.Store
	Locks      *lock.Store
	Index      *locale.Index
	Layout     locale.Layout
	Chains     *change.Registry

	Disabled           bool
	DisabledCategories []string

	// AfterScan runs once the initial scan is done and the watcher is set up
	AfterScan     func()
	// OnTrackChange runs after a file starts or stops being tracked outside
	// a chain run
	OnTrackChange func()
	Logger        *zap.Logger
}

// Orchestrator owns the fsnotify watcher and dispatches its events
type Orchestrator struct {
	classifier *workspace.Classifier
	fs         workspace.FileSystem
	content    *content.Store
	locks      *lock.Store
	index      *locale.Index
	layout     locale.Layout
	chains     *change.Registry
	afterScan  func()
	onTrack    func()
	logger     *zap.Logger

	mu         sync.RWMutex
	disabled   bool
	categories map[string]bool
	watcher    *fsnotify.Watcher
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Classifier == nil || opts.Content == nil || opts.Locks == nil || opts.Chains == nil {
		return nil, fmt.Errorf("watch: classifier, content store, lock store and chains are required")
	}
	if opts.FS == nil {
		opts.FS = workspace.Local{}
	}
	if opts.Index == nil {
		opts.Index = locale.NewIndex()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	o := &Orchestrator{
		classifier: opts.Classifier,
		fs:         opts.FS,
		content:    opts.Content,
		locks:      opts.Locks,
		index:      opts.Index,
		layout:     opts.Layout,
		chains:     opts.Chains,
		afterScan:  opts.AfterScan,
		onTrack:    opts.OnTrackChange,
		logger:     opts.Logger,
		disabled:   opts.Disabled,
		categories: make(map[string]bool),
	}
	for _, c := range opts.DisabledCategories {
		o.categories[c] = true
	}
	return o, nil
}

// SetDisabled turns event handling off or on for every category
func (o *Orchestrator) SetDisabled(disabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.disabled = disabled
}

// SetCategoryDisabled turns event handling off or on for one category
func (o *Orchestrator) SetCategoryDisabled(category string, disabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if disabled {
		o.categories[category] = true
	} else {
		delete(o.categories, category)
	}
}

func (o *Orchestrator) isDisabled(category string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.disabled || o.categories[category]
}

// Scan loads every classified file under the root into the content store
// and the location index. Unreadable or malformed files are logged and
// left out.
func (o *Orchestrator) Scan() error {
	n := 0
	err := o.classifier.Scan(func(path, category string) error {
		if err := o.Track(path); err != nil {
			o.logger.Warn("skipping file during scan", zap.String("path", path), zap.Error(err))
			return nil
		}
		n++
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning %s: %w", o.classifier.Root(), err)
	}
	o.logger.Info("initial scan finished", zap.Int("files", n), zap.Strings("groups", o.index.Groups()))
	return nil
}

// Track reads path into the content store and the location index
func (o *Orchestrator) Track(path string) error {
	raw, err := o.fs.ReadFile(path)
	if err != nil {
		return errors.IOFailure("read", path, err)
	}
	if err := o.content.Add(path, raw); err != nil {
		return err
	}
	if loc, err := o.layout.Parse(path); err == nil {
		o.index.Register(loc)
	}
	return nil
}

// Dispatch handles one event. Events for unclassified or ignored paths,
// for disabled categories and for locked paths are dropped. Failures are
// logged and reported through the outcome only.
func (o *Orchestrator) Dispatch(ctx context.Context, ev Event) Outcome {
	category, ok := o.classifier.Classify(ev.Path)
	if !ok {
		return OutcomeIgnored
	}
	logger := o.logger.With(zap.String("path", ev.Path), zap.Stringer("op", ev.Op))

	if o.isDisabled(category) {
		logger.Debug("handling disabled", zap.String("category", category))
		return OutcomeDisabled
	}
	// Our own write, or one racing it
	if o.locks.Has(ev.Path) {
		logger.Debug("path is locked, dropping event")
		return OutcomeLocked
	}

	switch ev.Op {
	case Created:
		// Editors that save by rename report a create for a tracked file
		if o.content.Has(ev.Path) {
			return o.run(ctx, logger, ev.Path, category)
		}
		if err := o.Track(ev.Path); err != nil {
			logger.Warn("tracking new file", zap.Error(err))
			return OutcomeFailed
		}
		logger.Debug("file added", zap.String("category", category))
		o.trackChanged()
		return OutcomeAdded

	case Changed:
		return o.run(ctx, logger, ev.Path, category)

	case Deleted:
		o.content.Delete(ev.Path)
		o.index.Remove(ev.Path)
		logger.Debug("file removed")
		o.trackChanged()
		return OutcomeRemoved
	}
	return OutcomeIgnored
}

func (o *Orchestrator) trackChanged() {
	if o.onTrack != nil {
		o.onTrack()
	}
}

func (o *Orchestrator) run(ctx context.Context, logger *zap.Logger, path, category string) Outcome {
	raw, err := o.fs.ReadFile(path)
	if err != nil {
		logger.Warn("reading changed file", zap.Error(errors.IOFailure("read", path, err)))
		return OutcomeFailed
	}

	chain := o.chains.Get(category)
	if chain == nil {
		// Nothing consumes this category, keep the baseline current
		if err := o.content.Update(path, raw); err != nil {
			logger.Warn("updating content store", zap.Error(err))
			return OutcomeFailed
		}
		return OutcomeProcessed
	}

	cc := &change.Context{
		Path:     path,
		Category: category,
		Raw:      raw,
		EventID:  uuid.NewString(),
	}
	if !chain.Run(ctx, cc) {
		return OutcomeHalted
	}
	return OutcomeProcessed
}

// Start scans the root, watches every directory that is not ignored and
// dispatches events until ctx is done. Events are handled one at a time.
func (o *Orchestrator) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	o.mu.Lock()
	o.watcher = watcher
	o.mu.Unlock()
	defer o.Close()

	dirs, err := o.classifier.Dirs()
	if err != nil {
		return fmt.Errorf("listing directories: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("adding directory to watcher: %w", err)
		}
	}

	if err := o.Scan(); err != nil {
		return err
	}
	if o.afterScan != nil {
		o.afterScan()
	}
	o.logger.Info("watching", zap.String("root", o.classifier.Root()), zap.Int("dirs", len(dirs)))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			o.handleFSEvent(ctx, watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (o *Orchestrator) handleFSEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	var op Op
	switch {
	case event.Has(fsnotify.Create):
		// Handle directory creation
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			o.addDir(watcher, event.Name)
			return
		}
		op = Created
	case event.Has(fsnotify.Write):
		op = Changed
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// The new name of a rename arrives as a create
		op = Deleted
	default:
		return
	}

	outcome := o.Dispatch(ctx, Event{Op: op, Path: event.Name})
	o.logger.Debug("event dispatched",
		zap.String("path", event.Name),
		zap.Stringer("op", op),
		zap.String("outcome", string(outcome)))
}

// addDir watches a directory created after startup and picks up the files
// already in it
func (o *Orchestrator) addDir(watcher *fsnotify.Watcher, dir string) {
	if o.classifier.Ignored(dir) {
		return
	}
	if err := watcher.Add(dir); err != nil {
		o.logger.Error("adding new directory to watcher", zap.String("dir", dir), zap.Error(err))
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		o.logger.Warn("reading new directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	tracked := 0
	defer func() {
		if tracked > 0 {
			o.trackChanged()
		}
	}()
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			o.addDir(watcher, path)
			continue
		}
		if _, ok := o.classifier.Classify(path); ok && !o.content.Has(path) {
			if err := o.Track(path); err != nil {
				o.logger.Warn("tracking file in new directory", zap.String("path", path), zap.Error(err))
				continue
			}
			tracked++
		}
	}
}

// Close stops the watcher. Start returns once its loop notices.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.watcher == nil {
		return nil
	}
	err := o.watcher.Close()
	o.watcher = nil
	return err
}
