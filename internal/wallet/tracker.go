package wallet

import (
	"sort"
	"sync"
	"time"

	"github.com/liamashdown/whalewatch/internal/trade"
)

const (
	HourWindow = time.Hour
	DayWindow  = 24 * time.Hour

	// RepeatMinTrades in the last hour marks a repeat actor
	RepeatMinTrades = 2
	// HeavyMinTrades in the last day marks a heavy actor
	HeavyMinTrades = 5
)

// Snapshot is a point-in-time copy of an actor's recent activity
type Snapshot struct {
	ActorID         string
	TxCountLastHour int
	TxCountLastDay  int
	VolumeLastHour  float64
	VolumeLastDay   float64
	IsRepeatActor   bool
	IsHeavyActor    bool
	LastSeen        time.Time
}

// Status is the short label used in notifications
func (s Snapshot) Status() string {
	switch {
	case s.IsHeavyActor:
		return "HEAVY ACTOR"
	case s.IsRepeatActor:
		return "REPEAT ACTOR"
	default:
		return "NEW ACTOR"
	}
}

type observation struct {
	at       time.Time
	notional float64
}

type profile struct {
	observations []observation
	lastSeen     time.Time
}

// Tracker keeps a sliding 24h window of trades per actor.
// All access goes through RecordAndClassify; the map is guarded by one mutex.
type Tracker struct {
	maxActors int

	mu     sync.Mutex
	actors map[string]*profile
}

// NewTracker creates a tracker. maxActors <= 0 means no cap.
func NewTracker(maxActors int) *Tracker {
	return &Tracker{
		maxActors: maxActors,
		actors:    make(map[string]*profile),
	}
}

// RecordAndClassify appends the trade to the actor's history and returns the
// resulting snapshot. The trade's own timestamp is used as "now" so backfills
// classify the same way live trades do.
func (t *Tracker) RecordAndClassify(actorID string, tr trade.Trade) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.actors[actorID]
	if !ok {
		t.evictForCapacity()
		p = &profile{}
		t.actors[actorID] = p
	}

	p.insert(observation{at: tr.OccurredAt, notional: tr.NotionalValue()})
	if tr.OccurredAt.After(p.lastSeen) {
		p.lastSeen = tr.OccurredAt
	}

	now := p.lastSeen
	p.evictBefore(now.Add(-DayWindow))

	return p.snapshot(actorID, now)
}

// Sweep drops actors with no trade in the 24h before now and returns how many were removed
func (t *Tracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-DayWindow)
	removed := 0
	for id, p := range t.actors {
		if !p.lastSeen.After(cutoff) {
			delete(t.actors, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked actors
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.actors)
}

// evictForCapacity removes the least recently seen actor when the cap is reached.
// Caller holds t.mu.
func (t *Tracker) evictForCapacity() {
	if t.maxActors <= 0 || len(t.actors) < t.maxActors {
		return
	}

	var oldestID string
	var oldest time.Time
	for id, p := range t.actors {
		if oldestID == "" || p.lastSeen.Before(oldest) {
			oldestID = id
			oldest = p.lastSeen
		}
	}
	delete(t.actors, oldestID)
}

// insert keeps observations sorted by time. Feeds are processed oldest first,
// so this is an append in practice.
func (p *profile) insert(o observation) {
	n := len(p.observations)
	if n == 0 || !o.at.Before(p.observations[n-1].at) {
		p.observations = append(p.observations, o)
		return
	}

	i := sort.Search(n, func(i int) bool { return p.observations[i].at.After(o.at) })
	p.observations = append(p.observations, observation{})
	copy(p.observations[i+1:], p.observations[i:])
	p.observations[i] = o
}

func (p *profile) evictBefore(cutoff time.Time) {
	i := 0
	for i < len(p.observations) && !p.observations[i].at.After(cutoff) {
		i++
	}
	if i > 0 {
		p.observations = append(p.observations[:0], p.observations[i:]...)
	}
}

func (p *profile) snapshot(actorID string, now time.Time) Snapshot {
	hourCutoff := now.Add(-HourWindow)
	dayCutoff := now.Add(-DayWindow)

	s := Snapshot{ActorID: actorID, LastSeen: p.lastSeen}
	for _, o := range p.observations {
		if o.at.After(dayCutoff) {
			s.TxCountLastDay++
			s.VolumeLastDay += o.notional
		}
		if o.at.After(hourCutoff) {
			s.TxCountLastHour++
			s.VolumeLastHour += o.notional
		}
	}

	s.IsRepeatActor = s.TxCountLastHour >= RepeatMinTrades
	s.IsHeavyActor = s.TxCountLastDay >= HeavyMinTrades
	return s
}
