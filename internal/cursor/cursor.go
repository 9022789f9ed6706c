package cursor

import (
	"context"
	"sync"

	"github.com/liamashdown/whalewatch/internal/trade"
	"github.com/sirupsen/logrus"
)

// FilterUnseen returns the trades in batch newer than cursor, oldest first,
// and the cursor to store once they have been processed.
//
// batch must be ordered newest first. A nil cursor means the source has never
// been polled: everything is treated as already seen so startup does not
// replay history. If the cursor id is no longer in the batch, every trade is
// returned and anything older than the batch is lost.
func FilterUnseen(cursor *string, batch []trade.Trade) ([]trade.Trade, string) {
	if len(batch) == 0 {
		if cursor == nil {
			return nil, ""
		}
		return nil, *cursor
	}

	newCursor := batch[0].ID
	if cursor == nil {
		return nil, newCursor
	}

	var unseen []trade.Trade
	for _, t := range batch {
		if t.ID == *cursor {
			break
		}
		unseen = append(unseen, t)
	}

	// Reverse into processing order so actor history stays monotonic
	for i, j := 0, len(unseen)-1; i < j; i, j = i+1, j-1 {
		unseen[i], unseen[j] = unseen[j], unseen[i]
	}

	return unseen, newCursor
}

// Store persists cursors across restarts
type Store interface {
	Load(ctx context.Context, source trade.Source) (string, bool, error)
	Save(ctx context.Context, source trade.Source, id string) error
}

// Tracker remembers the newest evaluated trade id per source
type Tracker struct {
	store Store
	log   *logrus.Logger

	mu      sync.Mutex
	cursors map[trade.Source]string
	loaded  map[trade.Source]bool
}

// NewTracker creates a tracker backed by store. A nil store keeps cursors in memory only.
func NewTracker(store Store, log *logrus.Logger) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{
		store:   store,
		log:     log,
		cursors: make(map[trade.Source]string),
		loaded:  make(map[trade.Source]bool),
	}
}

// Unseen filters batch against the current cursor for source
func (t *Tracker) Unseen(ctx context.Context, source trade.Source, batch []trade.Trade) ([]trade.Trade, string) {
	cur := t.current(ctx, source)
	return FilterUnseen(cur, batch)
}

// Commit records id as the newest evaluated trade for source
func (t *Tracker) Commit(ctx context.Context, source trade.Source, id string) {
	if id == "" {
		return
	}

	t.mu.Lock()
	prev, had := t.cursors[source]
	t.cursors[source] = id
	t.loaded[source] = true
	t.mu.Unlock()

	if had && prev == id {
		return
	}

	if err := t.store.Save(ctx, source, id); err != nil {
		t.log.WithError(err).WithField("source", source).Warn("Failed to persist cursor")
	}
}

// Snapshot returns the in-memory cursors
func (t *Tracker) Snapshot() map[trade.Source]string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[trade.Source]string, len(t.cursors))
	for k, v := range t.cursors {
		out[k] = v
	}
	return out
}

func (t *Tracker) current(ctx context.Context, source trade.Source) *string {
	t.mu.Lock()
	if t.loaded[source] {
		cur, ok := t.cursors[source]
		t.mu.Unlock()
		if !ok {
			return nil
		}
		return &cur
	}
	t.mu.Unlock()

	id, ok, err := t.store.Load(ctx, source)
	if err != nil {
		// Treat as cold start; retried on the next tick
		t.log.WithError(err).WithField("source", source).Warn("Failed to load cursor")
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.loaded[source] = true
	if !ok {
		return nil
	}
	t.cursors[source] = id
	return &id
}
