// Package dedup suppresses repeat alerts for the same symbol/zone pair
// within a cooldown window. State survives restarts via a JSON document so
// a relaunched scanner never replays an alert it already sent.
package dedup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options tune the store.
type Options struct {
	// Window is the minimum duration between two alerts for one
	// (symbol, zone) pair.
	Window time.Duration
	// StateFile is the JSON document backing the store.
	StateFile string
}

// Store tracks the last alert time per (symbol, zone) pair.
//
// One mutex guards the in-memory map and the persist of the backing
// document; every public operation is a short critical section.
type Store struct {
	mu      sync.Mutex
	window  time.Duration
	path    string
	logger  zerolog.Logger
	history map[string]map[string]time.Time

	now func() time.Time
}

// Stats summarises the store contents.
type Stats struct {
	Symbols         int
	Zones           int
	ActiveCooldowns int
	Window          time.Duration
}

// NewStore loads any persisted state and prunes expired entries. A missing
// or corrupt state file yields an empty store; load problems are logged,
// never fatal.
func NewStore(opts Options, logger zerolog.Logger) (*Store, error) {
	if opts.Window <= 0 {
		opts.Window = 60 * time.Minute
	}
	if opts.StateFile == "" {
		return nil, fmt.Errorf("dedup: state file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.StateFile), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	s := &Store{
		window:  opts.Window,
		path:    opts.StateFile,
		logger:  logger.With().Str("component", "dedup").Logger(),
		history: make(map[string]map[string]time.Time),
		now:     time.Now,
	}
	s.load()

	if removed, err := s.CleanupExpired(); err != nil {
		s.logger.Warn().Err(err).Msg("persist after startup cleanup failed")
	} else if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("pruned expired cooldowns on load")
	}

	return s, nil
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("cannot read cooldown state; starting empty")
		}
		return
	}

	var history map[string]map[string]time.Time
	if err := json.Unmarshal(data, &history); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("corrupt cooldown state; starting empty")
		return
	}

	s.history = history
	total := 0
	for _, zones := range history {
		total += len(zones)
	}
	s.logger.Info().Int("entries", total).Str("path", s.path).Msg("loaded cooldown state")
}

// CanAlert reports whether an alert for the pair may fire now. True when the
// pair was never alerted or its cooldown has elapsed. Pure read.
func (s *Store) CanAlert(symbol, zoneID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	zones, ok := s.history[symbol]
	if !ok {
		return true
	}
	last, ok := zones[zoneID]
	if !ok {
		return true
	}
	return !s.now().Before(last.Add(s.window))
}

// RecordAlert marks the pair as alerted now and rewrites the backing
// document. The in-memory state is updated even when the write fails; the
// returned error is advisory and the caller is expected to log and move on.
func (s *Store) RecordAlert(symbol, zoneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	zones, ok := s.history[symbol]
	if !ok {
		zones = make(map[string]time.Time)
		s.history[symbol] = zones
	}
	zones[zoneID] = s.now()

	return s.persistLocked()
}

// CleanupExpired drops every entry whose cooldown has fully elapsed and
// removes symbols left with no zones. The document is rewritten only when
// something was removed. Returns the number of entries removed.
func (s *Store) CleanupExpired() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.window)
	removed := 0

	for symbol, zones := range s.history {
		for zoneID, last := range zones {
			if last.Before(cutoff) {
				delete(zones, zoneID)
				removed++
			}
		}
		if len(zones) == 0 {
			delete(s.history, symbol)
		}
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, s.persistLocked()
}

// CooldownStatus returns, per zone of a symbol, the remaining cooldown as
// "12.3 min" or "ready". Diagnostic read, no mutation.
func (s *Store) CooldownStatus(symbol string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	zones, ok := s.history[symbol]
	if !ok {
		return map[string]string{}
	}

	now := s.now()
	status := make(map[string]string, len(zones))
	for zoneID, last := range zones {
		end := last.Add(s.window)
		if now.Before(end) {
			status[zoneID] = fmt.Sprintf("%.1f min", end.Sub(now).Minutes())
		} else {
			status[zoneID] = "ready"
		}
	}
	return status
}

// Stats counts tracked symbols, zones, and cooldowns still active.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{Symbols: len(s.history), Window: s.window}
	now := s.now()
	for _, zones := range s.history {
		stats.Zones += len(zones)
		for _, last := range zones {
			if last.Add(s.window).After(now) {
				stats.ActiveCooldowns++
			}
		}
	}
	return stats
}

// ResetSymbol clears all history for a symbol, persisting immediately.
// Reports whether the symbol was tracked.
func (s *Store) ResetSymbol(symbol string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.history[symbol]; !ok {
		return false, nil
	}
	delete(s.history, symbol)
	return true, s.persistLocked()
}

// ClearAll wipes the entire history, persisting immediately.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = make(map[string]map[string]time.Time)
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cooldown state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write cooldown state: %w", err)
	}
	return nil
}
