// Package movement keeps the recent positions and first-seen times of
// tracked identities, bounded both per identity and in identity count.
package movement

import (
	"fmt"
	"time"

	"github.com/banshee-data/presence.report/internal/config"
	"github.com/banshee-data/presence.report/internal/detection"
	"github.com/banshee-data/presence.report/internal/monitoring"
	"github.com/banshee-data/presence.report/internal/trackstore"
)

// Config bounds the tracker's memory.
type Config struct {
	MaxHistoryLength     int // positions kept per identity
	MaxTrackedIdentities int // identities kept in each store
}

// Validate rejects bounds the stores cannot honour.
func (c Config) Validate() error {
	if c.MaxHistoryLength < config.MinHistoryLength {
		return fmt.Errorf("%w: max history length must be at least %d, got %d",
			config.ErrInvalidConfig, config.MinHistoryLength, c.MaxHistoryLength)
	}
	if c.MaxTrackedIdentities < 1 {
		return fmt.Errorf("%w: max tracked identities must be positive, got %d",
			config.ErrInvalidConfig, c.MaxTrackedIdentities)
	}
	return nil
}

// Stats is a point-in-time view of the tracker's bookkeeping.
type Stats struct {
	Tracked   int
	Evictions uint64
}

// Tracker accumulates per-identity position histories and start times.
// Only tracker-assigned (positive) identities are recorded.
//
// Tracker is not safe for concurrent use; sessions serialise access.
type Tracker struct {
	cfg       Config
	histories *trackstore.Store[detection.TrackID, []detection.BBox]
	starts    *trackstore.Store[detection.TrackID, time.Time]
	evictions uint64
}

// NewTracker builds a tracker. Invalid bounds wrap config.ErrInvalidConfig.
func NewTracker(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	histories, err := trackstore.New[detection.TrackID, []detection.BBox](cfg.MaxTrackedIdentities)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	starts, err := trackstore.New[detection.TrackID, time.Time](cfg.MaxTrackedIdentities)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	return &Tracker{cfg: cfg, histories: histories, starts: starts}, nil
}

// Ingest records one frame. The whole batch is validated before any state
// changes, so a malformed batch leaves the tracker untouched. The batch is
// returned unchanged.
func (t *Tracker) Ingest(batch detection.Batch, now time.Time) (detection.Batch, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	for _, d := range batch {
		if !d.ID.Tracked() {
			continue
		}
		t.appendPosition(d.ID, d.Box)
		if !t.starts.Contains(d.ID) {
			if evicted, ok := t.starts.Put(d.ID, now); ok {
				monitoring.Tracef("start time of identity %d evicted", evicted)
			}
		}
	}
	return batch, nil
}

func (t *Tracker) appendPosition(id detection.TrackID, box detection.BBox) {
	history, ok := t.histories.Get(id)
	if !ok {
		// Duplicated so the first crossing and distance tests have a pair.
		history = []detection.BBox{box, box}
	} else {
		history = append(history, box)
	}
	if over := len(history) - t.cfg.MaxHistoryLength; over > 0 {
		history = append(history[:0:0], history[over:]...)
	}
	if evicted, ok := t.histories.Put(id, history); ok {
		t.evictions++
		monitoring.Diagf("identity %d evicted at capacity %d", evicted, t.cfg.MaxTrackedIdentities)
	}
}

// History returns a copy of the identity's positions, oldest first.
func (t *Tracker) History(id detection.TrackID) ([]detection.BBox, bool) {
	history, ok := t.histories.Get(id)
	if !ok {
		return nil, false
	}
	return append([]detection.BBox(nil), history...), true
}

// StartTime returns when the identity was first observed.
func (t *Tracker) StartTime(id detection.TrackID) (time.Time, bool) {
	return t.starts.Get(id)
}

// Forget drops the identity from both stores. The next sighting starts a
// fresh history and start time.
func (t *Tracker) Forget(id detection.TrackID) {
	t.histories.Remove(id)
	t.starts.Remove(id)
}

// Stats reports the number of identities with a history and the total
// evictions so far.
func (t *Tracker) Stats() Stats {
	return Stats{Tracked: t.histories.Len(), Evictions: t.evictions}
}
