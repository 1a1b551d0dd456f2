package loitering

import (
	"time"

	"github.com/banshee-data/presence.report/internal/detection"
	"github.com/banshee-data/presence.report/internal/geometry"
)

// Observations is the read side of a movement tracker.
type Observations interface {
	History(id detection.TrackID) ([]detection.BBox, bool)
	StartTime(id detection.TrackID) (time.Time, bool)
}

// Evaluator applies the loitering thresholds to tracked observations.
type Evaluator struct {
	MaxTime     time.Duration
	MinMovement float64 // pixels
	Source      Observations
}

// TooLong reports whether the identity has been in view for more than
// MaxTime. Unknown identities are not.
func (e Evaluator) TooLong(id detection.TrackID, now time.Time) bool {
	start, ok := e.Source.StartTime(id)
	if !ok {
		return false
	}
	return now.Sub(start) > e.MaxTime
}

// MovedEnough reports whether the identity's top-left corner has travelled
// more than MinMovement across its retained history.
func (e Evaluator) MovedEnough(id detection.TrackID) bool {
	return e.PathLength(id) > e.MinMovement
}

// PathLength is the distance travelled by the identity's top-left corner.
// Unknown identities have travelled zero.
func (e Evaluator) PathLength(id detection.TrackID) float64 {
	history, ok := e.Source.History(id)
	if !ok {
		return 0
	}
	points := make([]detection.Point, len(history))
	for i, b := range history {
		points[i] = b.TopLeft()
	}
	return geometry.PathLength(points)
}

// IsLoitering combines TooLong and MovedEnough.
func (e Evaluator) IsLoitering(id detection.TrackID, now time.Time) bool {
	if !e.TooLong(id, now) {
		return false
	}
	return e.MovedEnough(id)
}

// Evaluate returns the loitering identities of batch, in batch order.
// Synthetic identities are never loitering.
func (e Evaluator) Evaluate(batch detection.Batch, now time.Time) []detection.TrackID {
	var out []detection.TrackID
	for _, d := range batch {
		if d.ID.Tracked() && e.IsLoitering(d.ID, now) {
			out = append(out, d.ID)
		}
	}
	return out
}
