// Package geometry implements the planar tests used for zone crossing and
// path length: side-of-line classification and Euclidean distance.
package geometry

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/presence.report/internal/detection"
)

// ErrDegenerateSegment is returned for a segment whose endpoints coincide.
var ErrDegenerateSegment = errors.New("degenerate segment: endpoints coincide")

// Segment is a line through two pixel points.
type Segment struct {
	A, B detection.Point
}

// Validate rejects zero-length segments.
func (s Segment) Validate() error {
	if s.A == s.B {
		return fmt.Errorf("%w: (%d,%d)", ErrDegenerateSegment, s.A.X, s.A.Y)
	}
	return nil
}

// Side returns the cross product (B-A)x(P-A). Its sign tells which half-plane
// of the line P lies in; zero means P is on the line.
func (s Segment) Side(p detection.Point) float64 {
	a := vec(s.A)
	return r2.Cross(r2.Sub(vec(s.B), a), r2.Sub(vec(p), a))
}

// SameSide reports whether p and q lie strictly on the same side of the
// line. A point exactly on the line is never on the same side as anything.
func (s Segment) SameSide(p, q detection.Point) bool {
	return s.Side(p)*s.Side(q) > 0
}

// Distance is the Euclidean distance between two points.
func Distance(p, q detection.Point) float64 {
	return r2.Norm(r2.Sub(vec(q), vec(p)))
}

// PathLength sums the distances between consecutive points.
func PathLength(points []detection.Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

func vec(p detection.Point) r2.Vec {
	return r2.Vec{X: float64(p.X), Y: float64(p.Y)}
}
