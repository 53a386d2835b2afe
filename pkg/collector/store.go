package collector

import (
	"sync"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/logentry"
)

// Record is an accepted wire record with its arrival time.
type Record struct {
	ReceivedAt time.Time      `json:"received_at"`
	RequestID  string         `json:"collector_request_id,omitempty"`
	Entry      map[string]any `json:"entry"`
}

// Store keeps the most recent records in arrival order.
type Store struct {
	mu      sync.RWMutex
	records []Record
	max     int
	evicted uint64
}

// NewStore creates a store holding at most limit records.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 1
	}
	return &Store{max: limit, records: make([]Record, 0, min(limit, 256))}
}

// Add appends records, evicting the oldest ones beyond the bound.
func (s *Store) Add(records ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, records...)
	if over := len(s.records) - s.max; over > 0 {
		s.evicted += uint64(over)
		s.records = append(s.records[:0:0], s.records[over:]...)
	}
}

// List returns stored records, oldest first. A zero minLevel returns every
// record; otherwise only records at or above minLevel. limit <= 0 means all;
// otherwise the newest limit records are returned.
func (s *Store) List(minLevel logentry.Level, limit int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if minLevel != 0 {
			lvl, ok := recordLevel(r.Entry["level"])
			if !ok || !lvl.Enabled(minLevel) {
				continue
			}
		}
		out = append(out, r)
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Evicted returns how many records were pushed out of the window.
func (s *Store) Evicted() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evicted
}

// Reset drops every stored record.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = s.records[:0]
}

func recordLevel(raw any) (logentry.Level, bool) {
	switch v := raw.(type) {
	case string:
		lvl, err := logentry.ParseLevel(v)
		return lvl, err == nil
	case float64:
		lvl := logentry.Level(int(v))
		return lvl, lvl.IsValid()
	}
	return 0, false
}
