package dedup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T, window time.Duration) *Store {
	t.Helper()
	store, err := NewStore(Options{
		Window:    window,
		StateFile: filepath.Join(t.TempDir(), "alert_state.json"),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestCooldownMonotonicity(t *testing.T) {
	store := newTestStore(t, 60*time.Minute)

	base := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	if !store.CanAlert("TSLA", "zone_ema20_264.16") {
		t.Fatal("first alert must be allowed")
	}
	if err := store.RecordAlert("TSLA", "zone_ema20_264.16"); err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}

	store.now = func() time.Time { return base.Add(30 * time.Minute) }
	if store.CanAlert("TSLA", "zone_ema20_264.16") {
		t.Fatal("alert inside the window must be suppressed")
	}

	store.now = func() time.Time { return base.Add(60*time.Minute - time.Second) }
	if store.CanAlert("TSLA", "zone_ema20_264.16") {
		t.Fatal("alert strictly before window end must be suppressed")
	}

	store.now = func() time.Time { return base.Add(61 * time.Minute) }
	if !store.CanAlert("TSLA", "zone_ema20_264.16") {
		t.Fatal("alert after the window must be allowed")
	}
}

func TestKeyIndependence(t *testing.T) {
	store := newTestStore(t, 60*time.Minute)

	if err := store.RecordAlert("AAPL", "zoneA"); err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}

	if store.CanAlert("AAPL", "zoneA") {
		t.Fatal("recorded pair must be suppressed")
	}
	if !store.CanAlert("AAPL", "zoneB") {
		t.Fatal("different zone must not be affected")
	}
	if !store.CanAlert("MSFT", "zoneA") {
		t.Fatal("different symbol must not be affected")
	}
}

func TestCleanupExpired(t *testing.T) {
	store := newTestStore(t, 60*time.Minute)

	base := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return base.Add(-2 * time.Hour) }
	for _, pair := range [][2]string{{"AAPL", "zone_1"}, {"AAPL", "zone_2"}, {"NVDA", "zone_3"}} {
		if err := store.RecordAlert(pair[0], pair[1]); err != nil {
			t.Fatalf("RecordAlert: %v", err)
		}
	}

	store.now = func() time.Time { return base.Add(-10 * time.Minute) }
	if err := store.RecordAlert("TSLA", "zone_4"); err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}

	store.now = func() time.Time { return base }
	removed, err := store.CleanupExpired()
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}

	stats := store.Stats()
	if stats.Symbols != 1 || stats.Zones != 1 {
		t.Fatalf("expected only TSLA/zone_4 to survive, got %+v", stats)
	}
	if !store.CanAlert("AAPL", "zone_1") {
		t.Fatal("cleaned entry must be ready again")
	}
	if store.CanAlert("TSLA", "zone_4") {
		t.Fatal("entry inside the window must survive cleanup")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alert_state.json")

	first, err := NewStore(Options{Window: 60 * time.Minute, StateFile: path}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := first.RecordAlert("AAPL", "zone_1"); err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}
	if err := first.RecordAlert("TSLA", "zone_2"); err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}

	second, err := NewStore(Options{Window: 60 * time.Minute, StateFile: path}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore reload: %v", err)
	}
	if second.CanAlert("AAPL", "zone_1") || second.CanAlert("TSLA", "zone_2") {
		t.Fatal("reloaded store must honour persisted cooldowns")
	}
	if !second.CanAlert("AAPL", "zone_9") {
		t.Fatal("unrecorded pair must stay ready after reload")
	}
}

func TestCorruptStateStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alert_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	store, err := NewStore(Options{Window: 60 * time.Minute, StateFile: path}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore must not fail on corrupt state: %v", err)
	}
	if !store.CanAlert("AAPL", "zone_1") {
		t.Fatal("corrupt state must degrade to an empty store")
	}
}

func TestRecordAlertSurvivesPersistFailure(t *testing.T) {
	store := newTestStore(t, 60*time.Minute)

	// Point the backing document at a path that cannot be created.
	store.path = filepath.Join(t.TempDir(), "missing", "deep", "state.json")

	if err := store.RecordAlert("AAPL", "zone_1"); err == nil {
		t.Fatal("expected an advisory persist error")
	}
	if store.CanAlert("AAPL", "zone_1") {
		t.Fatal("in-memory state must be updated despite the failed write")
	}
}

func TestCooldownStatus(t *testing.T) {
	store := newTestStore(t, 60*time.Minute)

	base := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	if err := store.RecordAlert("AAPL", "zone_1"); err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}
	store.now = func() time.Time { return base.Add(-2 * time.Hour) }
	if err := store.RecordAlert("AAPL", "zone_old"); err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}

	store.now = func() time.Time { return base.Add(30 * time.Minute) }
	status := store.CooldownStatus("AAPL")
	if status["zone_1"] != "30.0 min" {
		t.Fatalf("expected 30.0 min remaining, got %q", status["zone_1"])
	}
	if status["zone_old"] != "ready" {
		t.Fatalf("expected ready, got %q", status["zone_old"])
	}
	if len(store.CooldownStatus("MSFT")) != 0 {
		t.Fatal("unknown symbol must yield an empty status map")
	}
}

func TestResetAndClear(t *testing.T) {
	store := newTestStore(t, 60*time.Minute)

	if err := store.RecordAlert("AAPL", "zone_1"); err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}
	if err := store.RecordAlert("TSLA", "zone_2"); err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}

	reset, err := store.ResetSymbol("AAPL")
	if err != nil || !reset {
		t.Fatalf("ResetSymbol: reset=%v err=%v", reset, err)
	}
	if !store.CanAlert("AAPL", "zone_1") {
		t.Fatal("reset symbol must be ready again")
	}
	if reset, _ := store.ResetSymbol("UNKNOWN"); reset {
		t.Fatal("resetting an untracked symbol must report false")
	}

	if err := store.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if stats := store.Stats(); stats.Symbols != 0 || stats.Zones != 0 {
		t.Fatalf("expected empty store, got %+v", stats)
	}
}
