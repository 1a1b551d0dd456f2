// Package counting counts people crossing an entry line into a zone and an
// exit line out of it.
//
// A crossing is directional. Each line carries an anchor point on the side
// the track must end up on: the inside anchor for the entry line, the
// outside anchor for the exit line. A track crosses when its last two
// bottom midpoints sit on different sides of the line and the newer one
// shares the anchor's side. A point exactly on the line is on neither side.
package counting

import (
	"fmt"

	"github.com/banshee-data/presence.report/internal/config"
	"github.com/banshee-data/presence.report/internal/detection"
	"github.com/banshee-data/presence.report/internal/geometry"
)

// CrossingRule detects crossings of one line toward its anchor.
type CrossingRule struct {
	line   geometry.Segment
	anchor detection.Point
}

// NewCrossingRule validates the line and anchor. A zero-length line or an
// anchor lying on the line wraps config.ErrInvalidConfig.
func NewCrossingRule(line geometry.Segment, anchor detection.Point) (CrossingRule, error) {
	if err := line.Validate(); err != nil {
		return CrossingRule{}, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	if line.Side(anchor) == 0 {
		return CrossingRule{}, fmt.Errorf("%w: anchor (%d,%d) lies on the line", config.ErrInvalidConfig, anchor.X, anchor.Y)
	}
	return CrossingRule{line: line, anchor: anchor}, nil
}

// Line returns the rule's line.
func (r CrossingRule) Line() geometry.Segment { return r.line }

// Anchor returns the rule's anchor point.
func (r CrossingRule) Anchor() detection.Point { return r.anchor }

// Crossed reports whether moving from prev to cur crosses the line toward
// the anchor.
func (r CrossingRule) Crossed(prev, cur detection.Point) bool {
	return !r.line.SameSide(prev, cur) && r.line.SameSide(cur, r.anchor)
}

// Evaluate applies Crossed to the bottom midpoints of the last two boxes in
// history. Shorter histories never cross.
func (r CrossingRule) Evaluate(history []detection.BBox) bool {
	n := len(history)
	if n < 2 {
		return false
	}
	return r.Crossed(history[n-2].BottomMidpoint(), history[n-1].BottomMidpoint())
}
