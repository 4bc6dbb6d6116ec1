package presets

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/smoothscroll-go/internal/easing"
)

// debounceDelay coalesces bursts of file events into one reload.
const debounceDelay = 100 * time.Millisecond

// ReloadStats contains statistics about preset reloads.
type ReloadStats struct {
	LastReloadTime time.Time `json:"lastReloadTime,omitempty"`
	ReloadCount    int64     `json:"reloadCount"`
	LastError      error     `json:"-"`
	LastErrorStr   string    `json:"lastError,omitempty"`
}

// Manager serves presets with optional hot reload of an external file.
// Reads are lock-free.
type Manager struct {
	embedded     *Set
	current      atomic.Pointer[Set]
	externalPath string
	watcher      *fsnotify.Watcher
	stopCh       chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex // guards reloads, stats, onReload and closed
	stats        ReloadStats
	onReload     func(error)
	closed       bool
}

// NewManager creates a Manager.
// If externalPath is empty, only embedded presets are served. If hotReload is
// set, changes to the external file are picked up automatically.
// A broken external file is logged and the embedded presets stay in use.
func NewManager(externalPath string, hotReload bool) (*Manager, error) {
	m := &Manager{
		embedded:     Embedded(),
		externalPath: externalPath,
		stopCh:       make(chan struct{}),
	}
	m.current.Store(m.embedded)

	if externalPath == "" {
		return m, nil
	}

	if err := m.Reload(); err != nil {
		log.Warn().
			Err(err).
			Str("path", externalPath).
			Msg("Failed to load external presets, using embedded defaults")
	} else {
		log.Info().Str("path", externalPath).Msg("Loaded external presets file")
	}

	if hotReload {
		if err := m.startWatcher(); err != nil {
			log.Warn().
				Err(err).
				Str("path", externalPath).
				Msg("Failed to start presets watcher, hot-reload disabled")
		} else {
			log.Info().Str("path", externalPath).Msg("Hot-reload enabled for presets file")
		}
	}

	return m, nil
}

// Get returns the current preset set.
func (m *Manager) Get() *Set {
	return m.current.Load()
}

// Resolve looks up a curve in the current set.
// Its signature matches scroll.Resolver.
func (m *Manager) Resolve(name string) (easing.ControlPoints, error) {
	return m.Get().Resolve(name)
}

// Reload re-reads the external file.
// On failure the previous presets remain in use.
func (m *Manager) Reload() (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.externalPath == "" {
		return fmt.Errorf("no external presets path configured")
	}
	defer func() {
		if m.onReload != nil {
			m.onReload(err)
		}
	}()

	data, err := os.ReadFile(m.externalPath)
	if err != nil {
		m.stats.LastError = err
		return fmt.Errorf("failed to read presets file: %w", err)
	}
	external, err := parse(data)
	if err != nil {
		m.stats.LastError = err
		return fmt.Errorf("failed to parse presets file: %w", err)
	}

	m.current.Store(merge(m.embedded, external))
	m.stats.LastReloadTime = time.Now()
	m.stats.ReloadCount++
	m.stats.LastError = nil

	log.Info().
		Int64("reload_count", m.stats.ReloadCount).
		Int("presets", m.Get().Len()).
		Msg("Presets reloaded")
	return nil
}

// OnReload registers fn to receive the result of every later reload of the
// external file. fn runs with the manager locked and must not call back into it.
func (m *Manager) OnReload(fn func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReload = fn
}

// Stats returns the current reload statistics.
func (m *Manager) Stats() ReloadStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.stats
	if stats.LastError != nil {
		stats.LastErrorStr = stats.LastError.Error()
	}
	return stats
}

// Close stops the watcher. Safe to call multiple times.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()

	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

func (m *Manager) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(m.externalPath); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch file: %w", err)
	}

	m.watcher = watcher
	m.wg.Add(1)
	go m.watchFile()
	return nil
}

func (m *Manager) watchFile() {
	defer m.wg.Done()

	reload := time.NewTimer(debounceDelay)
	reload.Stop()
	defer reload.Stop()

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("Presets file changed")
			reload.Reset(debounceDelay)

		case <-reload.C:
			if err := m.Reload(); err != nil {
				log.Warn().
					Err(err).
					Str("path", m.externalPath).
					Msg("Hot-reload failed, keeping previous presets")
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Presets watcher error")

		case <-m.stopCh:
			return
		}
	}
}
