package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/sjson"

	"github.com/banshee-data/presence.report/internal/counting"
	"github.com/banshee-data/presence.report/internal/detection"
	"github.com/banshee-data/presence.report/internal/loitering"
	"github.com/banshee-data/presence.report/internal/monitoring"
	"github.com/banshee-data/presence.report/internal/movement"
)

// ErrUnsupportedCommand is returned when a control line targets a session
// that has no such operation.
var ErrUnsupportedCommand = errors.New("command not supported by this session")

// Evaluator adapts a behaviour session to the runner.
type Evaluator interface {
	SessionID() string
	Evaluate(batch detection.Batch, now time.Time) (Outcome, error)
	Clear(ids ...detection.TrackID) error
	Stats() movement.Stats
}

// Outcome is the result of one evaluated frame.
type Outcome interface {
	// Annotate writes the outcome's fields into a JSON line.
	Annotate(line []byte) ([]byte, error)
	// Record updates frame-level metrics.
	Record(m *monitoring.Metrics)
}

// Loitering adapts a loitering session.
func Loitering(s *loitering.Session) Evaluator { return loiteringEvaluator{s} }

// Counting adapts a counting session.
func Counting(s *counting.Session) Evaluator { return countingEvaluator{s} }

type loiteringEvaluator struct{ s *loitering.Session }

func (e loiteringEvaluator) SessionID() string     { return e.s.ID() }
func (e loiteringEvaluator) Stats() movement.Stats { return e.s.Stats() }

func (e loiteringEvaluator) Evaluate(batch detection.Batch, now time.Time) (Outcome, error) {
	res, err := e.s.Process(batch, now)
	if err != nil {
		return nil, err
	}
	return loiteringOutcome(res), nil
}

func (e loiteringEvaluator) Clear(ids ...detection.TrackID) error {
	e.s.Clear(ids...)
	return nil
}

type loiteringOutcome loitering.Result

func (o loiteringOutcome) Annotate(line []byte) ([]byte, error) {
	return sjson.SetBytes(line, "loitering", idList(o.Loitering))
}

func (o loiteringOutcome) Record(m *monitoring.Metrics) {
	m.Loitering.Store(int64(len(o.Loitering)))
}

type countingEvaluator struct{ s *counting.Session }

func (e countingEvaluator) SessionID() string     { return e.s.ID() }
func (e countingEvaluator) Stats() movement.Stats { return e.s.Stats() }

func (e countingEvaluator) Evaluate(batch detection.Batch, now time.Time) (Outcome, error) {
	res, err := e.s.Process(batch, now)
	if err != nil {
		return nil, err
	}
	return countingOutcome(res), nil
}

func (e countingEvaluator) Clear(...detection.TrackID) error {
	return fmt.Errorf("%w: counting totals cannot be cleared", ErrUnsupportedCommand)
}

type countingOutcome counting.Result

func (o countingOutcome) Annotate(line []byte) ([]byte, error) {
	fields := []struct {
		path  string
		value interface{}
	}{
		{"go_in", idList(o.GoIn)},
		{"go_out", idList(o.GoOut)},
		{"went_in_total", o.WentInTotal},
		{"went_out_total", o.WentOutTotal},
	}
	var err error
	for _, f := range fields {
		if line, err = sjson.SetBytes(line, f.path, f.value); err != nil {
			return nil, fmt.Errorf("set %s: %w", f.path, err)
		}
	}
	return line, nil
}

func (o countingOutcome) Record(m *monitoring.Metrics) {
	m.AddCrossings(monitoring.DirectionIn, len(o.GoIn))
	m.AddCrossings(monitoring.DirectionOut, len(o.GoOut))
}

// idList renders ids as a JSON array, never null.
func idList(ids []detection.TrackID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}

var (
	_ Evaluator = loiteringEvaluator{}
	_ Evaluator = countingEvaluator{}
	_ Outcome   = loiteringOutcome{}
	_ Outcome   = countingOutcome{}
)
