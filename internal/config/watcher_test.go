package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/digitspan/internal/config"
)

const (
	baseYAML = `
server:
  log_level: info
normalizer:
  default_language: en
`
	reloadedYAML = `
server:
  log_level: debug
normalizer:
  default_language: hi
  phonetic_recovery: true
`
	brokenYAML = `
server:
  log_level: bananas
`
)

// writeConfig writes body to a fresh config.yaml and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	rewrite(t, path, body)
	return path
}

func rewrite(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}

// changes collects onChange calls.
type changes struct {
	mu    sync.Mutex
	pairs [][2]*config.Config
	fired chan struct{}
}

func newChanges() *changes { return &changes{fired: make(chan struct{}, 8)} }

func (c *changes) record(old, new *config.Config) {
	c.mu.Lock()
	c.pairs = append(c.pairs, [2]*config.Config{old, new})
	c.mu.Unlock()
	c.fired <- struct{}{}
}

func (c *changes) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pairs)
}

// idle returns a watcher whose ticker never fires during a test.
func idle(t *testing.T, path string, onChange func(old, new *config.Config)) *config.Watcher {
	t.Helper()
	w, err := config.NewWatcher(path, onChange, config.WithInterval(time.Hour))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	w := idle(t, writeConfig(t, baseYAML), nil)

	cfg := w.Current()
	if cfg == nil {
		t.Fatal("Current() = nil after initial load")
	}
	if cfg.Server.LogLevel != config.LogInfo || cfg.Normalizer.DefaultLanguage != "en" {
		t.Errorf("initial config = %+v", cfg)
	}
}

func TestWatcher_InitialLoadFails(t *testing.T) {
	t.Parallel()
	if _, err := config.NewWatcher("/nonexistent/path.yaml", nil); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := config.NewWatcher(writeConfig(t, brokenYAML), nil); err == nil {
		t.Error("invalid file accepted")
	}
}

func TestWatcher_Reload(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, baseYAML)
	ch := newChanges()
	w := idle(t, path, ch.record)

	if w.Reload() {
		t.Error("Reload() of an unchanged file reported a change")
	}

	rewrite(t, path, reloadedYAML)
	if !w.Reload() {
		t.Fatal("Reload() missed a content change")
	}
	if ch.count() != 1 {
		t.Fatalf("onChange calls = %d, want 1", ch.count())
	}

	old, cur := ch.pairs[0][0], ch.pairs[0][1]
	if old.Server.LogLevel != config.LogInfo || cur.Server.LogLevel != config.LogDebug {
		t.Errorf("log levels = %q -> %q, want info -> debug", old.Server.LogLevel, cur.Server.LogLevel)
	}
	if w.Current() != cur {
		t.Error("Current() is not the config passed to onChange")
	}

	d := config.Diff(old, cur)
	if !d.LogLevelChanged || !d.NormalizerChanged || len(d.RestartRequired) != 0 {
		t.Errorf("Diff = %+v, want hot-reloadable changes only", d)
	}
}

func TestWatcher_InvalidFileKeepsPrevious(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, baseYAML)
	ch := newChanges()
	w := idle(t, path, ch.record)

	rewrite(t, path, brokenYAML)
	if w.Reload() {
		t.Error("Reload() applied an invalid file")
	}
	if ch.count() != 0 {
		t.Errorf("onChange calls = %d, want 0", ch.count())
	}
	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("Current() log level = %q, want previous info", got)
	}

	rewrite(t, path, reloadedYAML)
	if !w.Reload() {
		t.Error("Reload() did not recover after the file was fixed")
	}
}

func TestWatcher_TouchIsNotAChange(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, baseYAML)
	ch := newChanges()
	w := idle(t, path, ch.record)

	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if w.Reload() {
		t.Error("Reload() treated a touch as a change")
	}
	if ch.count() != 0 {
		t.Errorf("onChange calls = %d, want 0", ch.count())
	}
}

func TestWatcher_Polls(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, baseYAML)
	ch := newChanges()

	w, err := config.NewWatcher(path, ch.record, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	// Shift mtime so the stat check fires even on coarse-grained filesystems.
	rewrite(t, path, reloadedYAML)
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("touch: %v", err)
	}

	select {
	case <-ch.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not pick up the change within 2s")
	}
	if got := w.Current().Normalizer.DefaultLanguage; got != "hi" {
		t.Errorf("default language = %q, want hi", got)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()
	w, err := config.NewWatcher(writeConfig(t, baseYAML), nil, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	done := make(chan struct{})
	go func() {
		w.Stop()
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}
}
