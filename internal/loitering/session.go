package loitering

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/presence.report/internal/config"
	"github.com/banshee-data/presence.report/internal/detection"
	"github.com/banshee-data/presence.report/internal/monitoring"
	"github.com/banshee-data/presence.report/internal/movement"
)

// Config holds configuration parameters for a loitering session.
type Config struct {
	MaxTime              time.Duration
	MinMovement          float64 // pixels
	MaxHistoryLength     int
	MaxTrackedIdentities int
}

// ConfigFromTuning maps the loitering keys of a tuning config.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		MaxTime:              cfg.GetMaxTime(),
		MinMovement:          cfg.GetMinMovement(),
		MaxHistoryLength:     cfg.GetLoiteringHistoryLength(),
		MaxTrackedIdentities: cfg.GetMaxTrackedIdentities(),
	}
}

// Validate rejects non-positive thresholds.
func (c Config) Validate() error {
	if c.MaxTime <= 0 {
		return fmt.Errorf("%w: max time must be positive, got %s", config.ErrInvalidConfig, c.MaxTime)
	}
	if !(c.MinMovement > 0) {
		return fmt.Errorf("%w: min movement must be positive, got %v", config.ErrInvalidConfig, c.MinMovement)
	}
	return nil
}

// Result is the outcome of one processed frame.
type Result struct {
	Loitering  []detection.TrackID
	Detections detection.Batch
}

// Session owns the tracker and evaluator for one video stream.
type Session struct {
	mu        sync.Mutex
	id        string
	tracker   *movement.Tracker
	evaluator Evaluator
}

// NewSession builds a session. Invalid configuration wraps
// config.ErrInvalidConfig.
func NewSession(cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tracker, err := movement.NewTracker(movement.Config{
		MaxHistoryLength:     cfg.MaxHistoryLength,
		MaxTrackedIdentities: cfg.MaxTrackedIdentities,
	})
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:      fmt.Sprintf("loit_%s", uuid.NewString()),
		tracker: tracker,
		evaluator: Evaluator{
			MaxTime:     cfg.MaxTime,
			MinMovement: cfg.MinMovement,
			Source:      tracker,
		},
	}
	monitoring.Opsf("loitering session %s started: max_time=%s min_movement=%.0fpx history=%d identities=%d",
		s.id, cfg.MaxTime, cfg.MinMovement, cfg.MaxHistoryLength, cfg.MaxTrackedIdentities)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Process ingests one frame and recomputes the loitering set. A malformed
// batch returns an error wrapping detection.ErrMalformedDetection and leaves
// the session unchanged.
func (s *Session) Process(batch detection.Batch, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.tracker.Ingest(batch, now); err != nil {
		return Result{}, fmt.Errorf("loitering session %s: %w", s.id, err)
	}
	loitering := s.evaluator.Evaluate(batch, now)
	monitoring.Tracef("loitering session %s: %d detections, %d loitering", s.id, len(batch), len(loitering))
	return Result{Loitering: loitering, Detections: batch}, nil
}

// Clear forgets the given identities so their next sighting starts afresh.
func (s *Session) Clear(ids ...detection.TrackID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.tracker.Forget(id)
	}
	if len(ids) > 0 {
		monitoring.Diagf("loitering session %s: cleared %v", s.id, ids)
	}
}

// Stats reports the session's tracker bookkeeping.
func (s *Session) Stats() movement.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Stats()
}
