package store

import (
	"sync"
	"time"

	"github.com/SCRAME314/elehant-water-new/internal/elehant"
)

// Reading is a stored meter reading: the decoded payload plus observation
// metadata and the configured display name.
type Reading struct {
	elehant.Reading
	FamilyName string    `json:"family"`
	Name       string    `json:"name"`
	RSSI       int16     `json:"rssi"`
	ObservedAt time.Time `json:"observed_at"`
}

// Store maps meter serials to their latest reading, last-write-wins. Entries
// are created on first successful decode and live for the scan session; there
// is no history and no eviction. Safe for concurrent writers and readers.
type Store struct {
	mu       sync.RWMutex
	readings map[string]Reading
	subs     map[int]chan Reading
	nextSub  int
}

func New() *Store {
	return &Store{
		readings: make(map[string]Reading),
		subs:     make(map[int]chan Reading),
	}
}

// Update overwrites the entry for the reading's serial and fans the reading
// out to subscribers. Slow subscribers miss intermediate updates rather than
// blocking the scan pipeline; the store itself always holds the latest value.
func (s *Store) Update(r Reading) {
	s.mu.Lock()
	s.readings[r.Serial] = r
	for _, ch := range s.subs {
		select {
		case ch <- r:
		default:
		}
	}
	s.mu.Unlock()
}

// Get returns the latest reading for a serial.
func (s *Store) Get(serial string) (Reading, bool) {
	s.mu.RLock()
	r, ok := s.readings[serial]
	s.mu.RUnlock()
	return r, ok
}

// All returns a copy of every stored reading keyed by serial.
func (s *Store) All() map[string]Reading {
	s.mu.RLock()
	out := make(map[string]Reading, len(s.readings))
	for serial, r := range s.readings {
		out[serial] = r
	}
	s.mu.RUnlock()
	return out
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	n := len(s.readings)
	s.mu.RUnlock()
	return n
}

// Subscribe registers for update notifications. The returned cancel func must
// be called to release the subscription; the channel is closed by it.
func (s *Store) Subscribe(buffer int) (<-chan Reading, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Reading, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}
