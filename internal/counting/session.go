package counting

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/presence.report/internal/config"
	"github.com/banshee-data/presence.report/internal/detection"
	"github.com/banshee-data/presence.report/internal/geometry"
	"github.com/banshee-data/presence.report/internal/monitoring"
	"github.com/banshee-data/presence.report/internal/movement"
)

// Config holds configuration parameters for a counting session.
type Config struct {
	EntryLine            geometry.Segment
	ExitLine             geometry.Segment
	InsideAnchor         detection.Point
	OutsideAnchor        detection.Point
	MaxHistoryLength     int
	MaxTrackedIdentities int
}

// ConfigFromTuning maps the counting keys of a tuning config.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		EntryLine:            segment(cfg.GetEntryLine()),
		ExitLine:             segment(cfg.GetExitLine()),
		InsideAnchor:         point(cfg.GetInsideAnchor()),
		OutsideAnchor:        point(cfg.GetOutsideAnchor()),
		MaxHistoryLength:     cfg.GetCountingHistoryLength(),
		MaxTrackedIdentities: cfg.GetMaxTrackedIdentities(),
	}
}

func point(p config.Point) detection.Point {
	return detection.Point{X: p[0], Y: p[1]}
}

func segment(l config.Line) geometry.Segment {
	return geometry.Segment{A: point(l[0]), B: point(l[1])}
}

// Counts is a snapshot of the cumulative crossing totals.
type Counts struct {
	WentIn  int
	WentOut int
}

// Result is the outcome of one processed frame. GoIn and GoOut list the
// identities that crossed during this frame, in batch order.
type Result struct {
	GoIn         []detection.TrackID
	GoOut        []detection.TrackID
	WentInTotal  int
	WentOutTotal int
	Detections   detection.Batch
}

// Session owns the tracker, crossing rules and cumulative sets for one
// video stream. The cumulative sets only grow.
type Session struct {
	mu      sync.Mutex
	id      string
	tracker *movement.Tracker
	entry   CrossingRule
	exit    CrossingRule
	wentIn  map[detection.TrackID]struct{}
	wentOut map[detection.TrackID]struct{}
}

// NewSession builds a session. Degenerate lines, anchors on their line and
// invalid bounds wrap config.ErrInvalidConfig.
func NewSession(cfg Config) (*Session, error) {
	entry, err := NewCrossingRule(cfg.EntryLine, cfg.InsideAnchor)
	if err != nil {
		return nil, fmt.Errorf("entry line: %w", err)
	}
	exit, err := NewCrossingRule(cfg.ExitLine, cfg.OutsideAnchor)
	if err != nil {
		return nil, fmt.Errorf("exit line: %w", err)
	}
	tracker, err := movement.NewTracker(movement.Config{
		MaxHistoryLength:     cfg.MaxHistoryLength,
		MaxTrackedIdentities: cfg.MaxTrackedIdentities,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:      fmt.Sprintf("cnt_%s", uuid.NewString()),
		tracker: tracker,
		entry:   entry,
		exit:    exit,
		wentIn:  make(map[detection.TrackID]struct{}),
		wentOut: make(map[detection.TrackID]struct{}),
	}
	monitoring.Opsf("counting session %s started: entry=%v inside=%v exit=%v outside=%v",
		s.id, entry.Line(), entry.Anchor(), exit.Line(), exit.Anchor())
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Process ingests one frame and tests every tracked identity in it against
// both lines. A malformed batch returns an error wrapping
// detection.ErrMalformedDetection and leaves the session unchanged.
func (s *Session) Process(batch detection.Batch, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.tracker.Ingest(batch, now); err != nil {
		return Result{}, fmt.Errorf("counting session %s: %w", s.id, err)
	}

	var res Result
	for _, d := range batch {
		if !d.ID.Tracked() {
			continue
		}
		history, ok := s.tracker.History(d.ID)
		if !ok {
			continue
		}
		if s.entry.Evaluate(history) {
			s.wentIn[d.ID] = struct{}{}
			res.GoIn = append(res.GoIn, d.ID)
		}
		if s.exit.Evaluate(history) {
			s.wentOut[d.ID] = struct{}{}
			res.GoOut = append(res.GoOut, d.ID)
		}
	}
	res.WentInTotal = len(s.wentIn)
	res.WentOutTotal = len(s.wentOut)
	res.Detections = batch

	if len(res.GoIn) > 0 || len(res.GoOut) > 0 {
		monitoring.Diagf("counting session %s: in=%v out=%v totals=%d/%d",
			s.id, res.GoIn, res.GoOut, res.WentInTotal, res.WentOutTotal)
	}
	return res, nil
}

// Entered reports whether the identity has ever crossed inward.
func (s *Session) Entered(id detection.TrackID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.wentIn[id]
	return ok
}

// Exited reports whether the identity has ever crossed outward.
func (s *Session) Exited(id detection.TrackID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.wentOut[id]
	return ok
}

// Counts returns the cumulative totals.
func (s *Session) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{WentIn: len(s.wentIn), WentOut: len(s.wentOut)}
}

// Stats reports the session's tracker bookkeeping.
func (s *Session) Stats() movement.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Stats()
}
