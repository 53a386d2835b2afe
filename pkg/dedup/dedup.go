// Package dedup suppresses identical log entries repeated inside a time
// window.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/logentry"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultWindow          = 5 * time.Second
	DefaultCleanupInterval = time.Minute
	DefaultMaxEntries      = 10000
)

// Config controls deduplication.
type Config struct {
	Enabled bool
	// Window is how long an accepted fingerprint suppresses its repeats.
	Window time.Duration
	// CleanupInterval is the janitor period. Zero disables the janitor.
	CleanupInterval time.Duration
	// MaxEntries bounds the number of tracked fingerprints.
	MaxEntries int
	// Keys lists extra_data keys that take part in the fingerprint.
	Keys []string
}

// DefaultConfig returns an enabled configuration with a 5s window.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Window:          DefaultWindow,
		CleanupInterval: DefaultCleanupInterval,
		MaxEntries:      DefaultMaxEntries,
	}
}

type tracked struct {
	key string
	seq uint64
}

// Stats reports deduplication activity.
type Stats struct {
	Seen       uint64
	Suppressed uint64
	Tracked    int
}

// Deduplicator decides whether an entry is novel. It is safe for concurrent
// use.
type Deduplicator struct {
	cfg   Config
	mu    sync.Mutex
	cache *cache.Cache
	// order lists fingerprints by insertion. Every fingerprint lives for the
	// same Window, so the front is always the next one to expire.
	order []tracked
	seq   uint64

	seen       atomic.Uint64
	suppressed atomic.Uint64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a deduplicator and starts its janitor when enabled.
func New(cfg Config) *Deduplicator {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	cfg.Keys = slices.Clone(cfg.Keys)
	slices.Sort(cfg.Keys)

	d := &Deduplicator{
		cfg: cfg,
		// go-cache's own janitor cannot be stopped; sweeps run in janitor()
		cache: cache.New(cfg.Window, 0),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	if cfg.Enabled && cfg.CleanupInterval > 0 {
		go d.janitor()
	} else {
		close(d.done)
	}
	return d
}

// ShouldLog reports whether entry is accepted. An accepted fingerprint
// suppresses identical entries until Window elapses.
func (d *Deduplicator) ShouldLog(entry logentry.Entry) bool {
	if d == nil || !d.cfg.Enabled {
		return true
	}
	d.seen.Add(1)

	key := d.Fingerprint(entry)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, found := d.cache.Get(key); found {
		d.suppressed.Add(1)
		return false
	}

	for d.cache.ItemCount() >= d.cfg.MaxEntries && len(d.order) > 0 {
		d.evictOldest()
	}

	d.seq++
	if err := d.cache.Add(key, d.seq, d.cfg.Window); err != nil {
		d.suppressed.Add(1)
		return false
	}
	d.order = append(d.order, tracked{key: key, seq: d.seq})
	d.trimOrder()
	return true
}

// Fingerprint hashes level, layer, message and the configured extra keys.
func (d *Deduplicator) Fingerprint(entry logentry.Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s", entry.Level, entry.Layer, entry.Message)
	for _, k := range d.cfg.Keys {
		if v, ok := entry.ExtraData[k]; ok {
			fmt.Fprintf(h, "|%s=%v", k, v)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Stats returns a snapshot of the counters.
func (d *Deduplicator) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Seen:       d.seen.Load(),
		Suppressed: d.suppressed.Load(),
		Tracked:    d.cache.ItemCount(),
	}
}

// Reset forgets every tracked fingerprint.
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache.Flush()
	d.order = nil
}

// Close stops the janitor. It is safe to call more than once.
func (d *Deduplicator) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		close(d.stop)
	})
	<-d.done
}

func (d *Deduplicator) janitor() {
	ticker := time.NewTicker(d.cfg.CleanupInterval)
	defer ticker.Stop()
	defer close(d.done)

	for {
		select {
		case <-ticker.C:
			d.cache.DeleteExpired()
		case <-d.stop:
			return
		}
	}
}

// evictOldest removes the front of order from the cache, whether it is the
// oldest live fingerprint or an expired one not swept yet. Callers hold d.mu.
func (d *Deduplicator) evictOldest() {
	oldest := d.order[0]
	d.order = d.order[1:]
	if d.current(oldest) {
		d.cache.Delete(oldest.key)
		return
	}
	if _, found := d.cache.Get(oldest.key); !found {
		d.cache.Delete(oldest.key)
	}
}

// trimOrder drops leading entries that no longer match a live fingerprint, so
// order stays proportional to what the cache tracks. Callers hold d.mu.
func (d *Deduplicator) trimOrder() {
	for len(d.order) > 0 && !d.current(d.order[0]) {
		d.order = d.order[1:]
	}
}

// current reports whether t is the live cache item for its fingerprint.
func (d *Deduplicator) current(t tracked) bool {
	v, found := d.cache.Get(t.key)
	if !found {
		return false
	}
	seq, _ := v.(uint64)
	return seq == t.seq
}
