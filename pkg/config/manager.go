package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Manager holds the live configuration snapshot and reloads it when the
// backing file changes. Components read through Current() each time instead
// of caching thresholds piecemeal.
type Manager struct {
	path    string
	current atomic.Value // *Config

	mu        sync.Mutex
	modTime   time.Time
	listeners []func(*Config)
}

// NewManager wraps an already-loaded config for hot reload from path.
func NewManager(path string, initial *Config) *Manager {
	m := &Manager{path: path}
	m.current.Store(initial)
	if fi, err := os.Stat(path); err == nil {
		m.modTime = fi.ModTime()
	}
	return m
}

// Static wraps a fixed config with no backing file. Used by tests.
func Static(c *Config) *Manager {
	m := &Manager{}
	m.current.Store(c)
	return m
}

// Current returns the live snapshot. Never nil.
func (m *Manager) Current() *Config {
	return m.current.Load().(*Config)
}

// OnReload registers a callback invoked with each accepted new snapshot.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Apply swaps in a new snapshot and notifies listeners. Exposed for the
// operator API and for threshold auto-tune proposals.
func (m *Manager) Apply(c *Config) {
	m.current.Store(c)
	m.mu.Lock()
	ls := make([]func(*Config), len(m.listeners))
	copy(ls, m.listeners)
	m.mu.Unlock()
	for _, fn := range ls {
		fn(c)
	}
}

// Reload forces a synchronous reload from the backing file.
func (m *Manager) Reload() error {
	if m.path == "" {
		return fmt.Errorf("config manager has no backing file")
	}
	next, err := Load(m.path)
	if err != nil {
		return err
	}
	if fi, err := os.Stat(m.path); err == nil {
		m.mu.Lock()
		m.modTime = fi.ModTime()
		m.mu.Unlock()
	}
	m.Apply(next)
	return nil
}

// Watch polls the config file's mtime and reloads on change. A file that
// fails to parse or validate is ignored; the previous snapshot stays live.
func (m *Manager) Watch(ctx context.Context, interval time.Duration, onErr func(error)) {
	if m.path == "" {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fi, err := os.Stat(m.path)
				if err != nil {
					continue
				}
				m.mu.Lock()
				changed := fi.ModTime().After(m.modTime)
				if changed {
					m.modTime = fi.ModTime()
				}
				m.mu.Unlock()
				if !changed {
					continue
				}
				next, err := Load(m.path)
				if err != nil {
					if onErr != nil {
						onErr(err)
					}
					continue
				}
				m.Apply(next)
			}
		}
	}()
}
