package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultWatchInterval is the polling interval used when none is given.
const DefaultWatchInterval = 5 * time.Second

// fileState identifies one version of the config file on disk.
type fileState struct {
	modTime time.Time
	size    int64
	sum     [sha256.Size]byte
}

// sameStat reports whether info matches the stat half of s. A match means
// the file is very likely unchanged and need not be re-read.
func (s fileState) sameStat(info os.FileInfo) bool {
	return info.ModTime().Equal(s.modTime) && info.Size() == s.size
}

// Watcher polls a config file and hands every new valid version to a
// callback. Files that fail to parse or validate are logged and skipped; the
// last good config stays current.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	mu    sync.Mutex
	cfg   *Config
	state fileState

	stop     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. Non-positive values are ignored.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads path and starts polling it. onChange may be nil. An error
// is returned only when the initial load fails.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: DefaultWatchInterval,
		onChange: onChange,
		stop:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}

	cfg, st, err := readState(path)
	if err != nil {
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}
	w.cfg, w.state = cfg, st

	go w.loop()
	return w, nil
}

// Current returns the last valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// Reload checks the file now instead of waiting for the next tick, for
// example on SIGHUP. It reports whether a new config was applied.
func (w *Watcher) Reload() bool {
	return w.check(true)
}

// Stop ends polling and waits for an in-flight callback to return. It is
// safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.exited
}

func (w *Watcher) loop() {
	defer close(w.exited)

	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-t.C:
			w.check(false)
		}
	}
}

// check re-reads the file when its stat changed, or always when force is
// set. Content is compared by hash so a bare touch is not a change.
func (w *Watcher) check(force bool) bool {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: stat failed", "path", w.path, "err", err)
		return false
	}

	w.mu.Lock()
	prev := w.state
	w.mu.Unlock()
	if !force && prev.sameStat(info) {
		return false
	}

	cfg, st, err := readState(w.path)
	if err != nil {
		slog.Warn("config watcher: keeping previous config", "path", w.path, "err", err)
		return false
	}

	w.mu.Lock()
	if st.sum == w.state.sum {
		w.state = st
		w.mu.Unlock()
		return false
	}
	old := w.cfg
	w.cfg, w.state = cfg, st
	w.mu.Unlock()

	slog.Info("config watcher: configuration reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
	return true
}

// readState loads and validates the file at path and fingerprints it.
func readState(path string) (*Config, fileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fileState{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fileState{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fileState{}, err
	}
	return cfg, fileState{modTime: info.ModTime(), size: info.Size(), sum: sha256.Sum256(data)}, nil
}
