package earnings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type stubCalendar struct {
	date  time.Time
	found bool
	err   error
	calls int
}

func (s *stubCalendar) NextEarnings(ctx context.Context, symbol string) (time.Time, bool, error) {
	s.calls++
	return s.date, s.found, s.err
}

func newTestFilter(t *testing.T, cal *stubCalendar) *Filter {
	t.Helper()
	f, err := New(Options{CacheFile: filepath.Join(t.TempDir(), "earnings_cache.json")}, cal, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestBlackoutWindow(t *testing.T) {
	report := time.Date(2026, 10, 29, 0, 0, 0, 0, time.UTC)
	cal := &stubCalendar{date: report, found: true}
	f := newTestFilter(t, cal)

	cases := []struct {
		day   time.Time
		block bool
	}{
		{report.AddDate(0, 0, -4), false},
		{report.AddDate(0, 0, -3), true},
		{report, true},
		{report.AddDate(0, 0, 2), true},
		{report.AddDate(0, 0, 3), false},
	}
	for _, tc := range cases {
		f.now = func() time.Time { return tc.day }
		if got := f.ShouldBlock(context.Background(), "AAPL"); got != tc.block {
			t.Fatalf("day %s: expected block=%v, got %v", tc.day.Format("2006-01-02"), tc.block, got)
		}
	}
}

func TestCalendarCachedAcrossCalls(t *testing.T) {
	cal := &stubCalendar{date: time.Date(2026, 10, 29, 0, 0, 0, 0, time.UTC), found: true}
	f := newTestFilter(t, cal)

	ctx := context.Background()
	f.ShouldBlock(ctx, "AAPL")
	f.ShouldBlock(ctx, "AAPL")
	if cal.calls != 1 {
		t.Fatalf("calendar must be hit once while the cache is fresh, got %d", cal.calls)
	}
}

func TestLookupFailureDoesNotBlock(t *testing.T) {
	cal := &stubCalendar{err: errors.New("calendar down")}
	f := newTestFilter(t, cal)

	if f.ShouldBlock(context.Background(), "AAPL") {
		t.Fatal("a failed lookup must not block the symbol")
	}
}

func TestNoUpcomingReportCachedAsNegative(t *testing.T) {
	cal := &stubCalendar{found: false}
	f := newTestFilter(t, cal)

	ctx := context.Background()
	if f.ShouldBlock(ctx, "AAPL") {
		t.Fatal("no upcoming report must not block")
	}
	f.ShouldBlock(ctx, "AAPL")
	if cal.calls != 1 {
		t.Fatalf("negative result must be cached too, got %d calls", cal.calls)
	}
}
