// Package datastore holds the session-scoped dataset cache: load results
// memoized by source reference, the measurement-site registry, and uploaded
// datasets. Entries are immutable once built; invalidation happens when the
// underlying file changes (fsnotify) or on explicit request.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/helioview/helioview/pkg/dataset"
)

// maxPreloadConcurrency bounds how many site files are parsed at once during
// warmup.
const maxPreloadConcurrency = 2

// Site is one known measurement station with a CSV file under the data root.
type Site struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	File    string `json:"file"`
}

// DefaultSites lists the three West African measurement stations the
// dashboard ships with.
var DefaultSites = []Site{
	{Name: "benin-malanville", Country: "Benin", File: "benin-malanville.csv"},
	{Name: "sierraleone-bumbuna", Country: "Sierra Leone", File: "sierraleone-bumbuna.csv"},
	{Name: "togo-dapaong", Country: "Togo", File: "togo-dapaong_qc.csv"},
}

// SiteStatus is a Site plus its load state, as reported to the UI.
type SiteStatus struct {
	Site
	Available bool   `json:"available"`
	Loaded    bool   `json:"loaded"`
	Ref       string `json:"ref,omitempty"`
}

// Entry is one cached load result. The Dataset and all Entry fields are
// immutable after construction; invalidation replaces the entry, never
// mutates it.
type Entry struct {
	Ref      string
	Source   string
	Name     string
	Dataset  *dataset.Dataset
	LoadedAt time.Time
}

type Config struct {
	Logger   *slog.Logger
	DataRoot string
	Sites    []Site
	Clock    clockwork.Clock
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.DataRoot == "" {
		return errors.New("data root is required")
	}
	if c.Sites == nil {
		c.Sites = DefaultSites
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Store memoizes dataset loads keyed by source reference. Path sources are
// deduplicated; uploads never are. All fields of a cached entry are
// read-only, so readers only need the map lock.
type Store struct {
	log *slog.Logger
	cfg Config

	mu       sync.RWMutex
	bySource map[string]*Entry
	byRef    map[string]*Entry

	watcher *fsnotify.Watcher
	ready   atomic.Bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		log:      cfg.Logger,
		cfg:      cfg,
		bySource: make(map[string]*Entry),
		byRef:    make(map[string]*Entry),
	}, nil
}

// Start warms the cache with the site datasets and begins watching the data
// root for changes. It returns once the preload finished; the watcher runs
// until Close.
func (s *Store) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.cfg.DataRoot); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch data root %q: %w", s.cfg.DataRoot, err)
	}
	s.watcher = watcher

	watchCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.watchLoop(watchCtx)

	s.preload(ctx)
	s.ready.Store(true)
	return nil
}

// Close stops the watcher and waits for it to exit.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	var err error
	if s.watcher != nil {
		err = s.watcher.Close()
	}
	s.wg.Wait()
	return err
}

// Ready reports whether the initial site preload has completed.
func (s *Store) Ready() bool { return s.ready.Load() }

// preload loads every available site file with bounded concurrency. A site
// whose file is missing or unparseable is logged and skipped; it can still
// be loaded later once the file appears.
func (s *Store) preload(ctx context.Context) {
	start := s.cfg.Clock.Now()
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxPreloadConcurrency)
	for _, site := range s.cfg.Sites {
		site := site
		g.Go(func() error {
			if ok, reason := dataset.ValidateSource(s.cfg.DataRoot, site.File); !ok {
				s.log.Info("store: skipping site during preload", "site", site.Name, "reason", reason)
				return nil
			}
			if _, err := s.LoadPath(site.File); err != nil {
				s.log.Warn("store: failed to preload site", "site", site.Name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	s.log.Info("store: preload complete", "sites", len(s.cfg.Sites), "duration", s.cfg.Clock.Since(start))
}

// Validate checks a path source against the data root without loading it.
// Failures come back as data, not errors.
func (s *Store) Validate(path string) (bool, string) {
	return dataset.ValidateSource(s.cfg.DataRoot, path)
}

// LoadPath loads a CSV under the data root, memoized by its cleaned relative
// path. Re-requesting a cached source returns the existing entry without
// re-reading the file.
func (s *Store) LoadPath(path string) (*Entry, error) {
	source := filepath.ToSlash(filepath.Clean(path))

	s.mu.RLock()
	entry, ok := s.bySource[source]
	s.mu.RUnlock()
	if ok {
		return entry, nil
	}

	ds, err := dataset.LoadFile(s.cfg.DataRoot, path, dataset.DefaultLoadOptions())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another request may have loaded the same source while we parsed it.
	if entry, ok := s.bySource[source]; ok {
		return entry, nil
	}
	entry = &Entry{
		Ref:      uuid.NewString(),
		Source:   source,
		Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Dataset:  ds,
		LoadedAt: s.cfg.Clock.Now(),
	}
	s.bySource[source] = entry
	s.byRef[entry.Ref] = entry
	s.log.Info("store: dataset loaded", "source", source, "rows", ds.NumRows())
	return entry, nil
}

// AddUpload loads an uploaded CSV body. Uploads are keyed by a fresh UUID
// and never deduplicated; two identical uploads are two sessions' datasets.
func (s *Store) AddUpload(name string, r io.Reader) (*Entry, error) {
	ds, err := dataset.Load(r, dataset.DefaultLoadOptions())
	if err != nil {
		var le *dataset.LoadError
		if errors.As(err, &le) {
			le.Source = name
		}
		return nil, err
	}

	ref := uuid.NewString()
	entry := &Entry{
		Ref:      ref,
		Source:   "upload:" + ref,
		Name:     strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)),
		Dataset:  ds,
		LoadedAt: s.cfg.Clock.Now(),
	}

	s.mu.Lock()
	s.bySource[entry.Source] = entry
	s.byRef[ref] = entry
	s.mu.Unlock()

	s.log.Info("store: upload loaded", "name", name, "rows", ds.NumRows())
	return entry, nil
}

// Get returns the entry for a dataset reference.
func (s *Store) Get(ref string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.byRef[ref]
	return entry, ok
}

// Invalidate drops the cache entry for a path source. The next LoadPath for
// that source re-reads the file under a new reference.
func (s *Store) Invalidate(path string) {
	source := filepath.ToSlash(filepath.Clean(path))
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.bySource[source]
	if !ok {
		return
	}
	delete(s.bySource, source)
	delete(s.byRef, entry.Ref)
	s.log.Info("store: dataset invalidated", "source", source)
}

// Sites reports the registry with current availability and load state.
func (s *Store) Sites() []SiteStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]SiteStatus, 0, len(s.cfg.Sites))
	for _, site := range s.cfg.Sites {
		status := SiteStatus{Site: site}
		if ok, _ := dataset.ValidateSource(s.cfg.DataRoot, site.File); ok {
			status.Available = true
		}
		if entry, ok := s.bySource[filepath.ToSlash(filepath.Clean(site.File))]; ok {
			status.Loaded = true
			status.Ref = entry.Ref
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// watchLoop invalidates cache entries when their backing CSV is written,
// removed or renamed.
func (s *Store) watchLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
				continue
			}
			rel, err := filepath.Rel(s.cfg.DataRoot, event.Name)
			if err != nil {
				continue
			}
			s.Invalidate(rel)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("store: watcher error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}
