package cursor

import (
	"context"
	"errors"
	"testing"

	"github.com/liamashdown/whalewatch/internal/trade"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func batch(ids ...string) []trade.Trade {
	out := make([]trade.Trade, 0, len(ids))
	for _, id := range ids {
		out = append(out, trade.Trade{ID: id})
	}
	return out
}

func ids(trades []trade.Trade) []string {
	out := make([]string, 0, len(trades))
	for _, t := range trades {
		out = append(out, t.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func strPtr(s string) *string { return &s }

func TestFilterUnseen(t *testing.T) {
	tests := []struct {
		name       string
		cursor     *string
		batch      []trade.Trade
		wantUnseen []string
		wantCursor string
	}{
		{
			name:       "cold start records newest and alerts nothing",
			cursor:     nil,
			batch:      batch("T5", "T4", "T3"),
			wantUnseen: []string{},
			wantCursor: "T5",
		},
		{
			name:       "new trades returned oldest first",
			cursor:     strPtr("T5"),
			batch:      batch("T8", "T7", "T6", "T5", "T4"),
			wantUnseen: []string{"T6", "T7", "T8"},
			wantCursor: "T8",
		},
		{
			name:       "nothing new",
			cursor:     strPtr("T5"),
			batch:      batch("T5", "T4"),
			wantUnseen: []string{},
			wantCursor: "T5",
		},
		{
			name:       "cursor scrolled out of batch",
			cursor:     strPtr("T1"),
			batch:      batch("T9", "T8", "T7"),
			wantUnseen: []string{"T7", "T8", "T9"},
			wantCursor: "T9",
		},
		{
			name:       "empty batch keeps cursor",
			cursor:     strPtr("T5"),
			batch:      nil,
			wantUnseen: []string{},
			wantCursor: "T5",
		},
		{
			name:       "empty batch on cold start",
			cursor:     nil,
			batch:      nil,
			wantUnseen: []string{},
			wantCursor: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unseen, cur := FilterUnseen(tt.cursor, tt.batch)
			if got := ids(unseen); !equal(got, tt.wantUnseen) {
				t.Errorf("unseen = %v, want %v", got, tt.wantUnseen)
			}
			if cur != tt.wantCursor {
				t.Errorf("cursor = %q, want %q", cur, tt.wantCursor)
			}
		})
	}
}

func TestFilterUnseenNeverRepeats(t *testing.T) {
	// Simulate consecutive polls over an overlapping recent-trades window
	polls := [][]trade.Trade{
		batch("T3", "T2", "T1"),
		batch("T5", "T4", "T3", "T2"),
		batch("T6", "T5", "T4", "T3"),
		batch("T6", "T5", "T4"),
		batch("T9", "T8", "T7", "T6"),
	}

	seen := make(map[string]int)
	var cur *string
	for _, p := range polls {
		unseen, next := FilterUnseen(cur, p)
		for _, tr := range unseen {
			seen[tr.ID]++
		}
		cur = strPtr(next)
	}

	for id, n := range seen {
		if n > 1 {
			t.Errorf("trade %s returned %d times", id, n)
		}
	}
	for _, id := range []string{"T1", "T2", "T3"} {
		if seen[id] != 0 {
			t.Errorf("cold-start trade %s should not be returned", id)
		}
	}
	if len(seen) != 6 {
		t.Errorf("expected 6 distinct new trades, got %d", len(seen))
	}
}

func TestTrackerCommitAndReload(t *testing.T) {
	ctx := context.Background()
	log, _ := test.NewNullLogger()
	store := NewMemoryStore()

	tr := NewTracker(store, log)
	unseen, cur := tr.Unseen(ctx, trade.SourceKalshi, batch("K2", "K1"))
	if len(unseen) != 0 || cur != "K2" {
		t.Fatalf("cold start: unseen=%v cursor=%q", ids(unseen), cur)
	}
	tr.Commit(ctx, trade.SourceKalshi, cur)

	// A new tracker over the same store resumes from the saved cursor
	tr2 := NewTracker(store, log)
	unseen, cur = tr2.Unseen(ctx, trade.SourceKalshi, batch("K4", "K3", "K2"))
	if got := ids(unseen); !equal(got, []string{"K3", "K4"}) {
		t.Errorf("resumed unseen = %v", got)
	}
	if cur != "K4" {
		t.Errorf("resumed cursor = %q", cur)
	}

	if snap := tr.Snapshot(); snap[trade.SourceKalshi] != "K2" {
		t.Errorf("snapshot = %v", snap)
	}
}

type failingStore struct{}

func (failingStore) Load(context.Context, trade.Source) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

func (failingStore) Save(context.Context, trade.Source, string) error {
	return errors.New("connection refused")
}

func TestTrackerStoreFailureFallsBackToMemory(t *testing.T) {
	ctx := context.Background()
	log, hook := test.NewNullLogger()

	tr := NewTracker(failingStore{}, log)
	unseen, cur := tr.Unseen(ctx, trade.SourcePolymarket, batch("P2", "P1"))
	if len(unseen) != 0 {
		t.Fatalf("expected cold start, got %v", ids(unseen))
	}
	tr.Commit(ctx, trade.SourcePolymarket, cur)

	unseen, _ = tr.Unseen(ctx, trade.SourcePolymarket, batch("P3", "P2"))
	if got := ids(unseen); !equal(got, []string{"P3"}) {
		t.Errorf("unseen after store failure = %v", got)
	}

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	if warnings != 2 {
		t.Errorf("expected 2 warnings (load + save), got %d", warnings)
	}
}
