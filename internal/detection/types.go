// Package detection holds the per-frame detection model shared by the
// movement tracker and the behaviour sessions.
//
// A Batch is what the external detector/tracker produced for one processed
// frame. Positive TrackIDs are stable tracker identities; negative ones are
// synthesised per batch for detections the tracker could not associate and
// are never accumulated into per-track state.
package detection

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedDetection marks a detection batch that violates the upstream
// contract. The whole batch is rejected; callers may skip it and continue.
var ErrMalformedDetection = errors.New("malformed detection")

// TrackID identifies a tracked person.
type TrackID int

// Tracked reports whether id came from the tracker (as opposed to a
// synthetic per-frame identity).
func (id TrackID) Tracked() bool { return id > 0 }

// Point is an integer pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BBox is a bounding box in centre-size form, in pixels.
type BBox struct {
	CenterX int `json:"cx"`
	CenterY int `json:"cy"`
	Width   int `json:"w"`
	Height  int `json:"h"`
}

// BottomMidpoint approximates where the person meets the ground plane.
func (b BBox) BottomMidpoint() Point {
	return Point{X: b.CenterX, Y: b.CenterY + b.Height/2}
}

// TopLeft returns the top-left corner of the box.
func (b BBox) TopLeft() Point {
	return Point{X: b.CenterX - b.Width/2, Y: b.CenterY - b.Height/2}
}

// Detection is one person observed in one frame.
type Detection struct {
	ID         TrackID `json:"id"`
	Box        BBox    `json:"bbox"`
	Confidence float64 `json:"conf"`
}

// Batch is the ordered set of detections for one frame. IDs are unique.
type Batch []Detection

// Validate checks the upstream contract for every detection in the batch.
func (b Batch) Validate() error {
	seen := make(map[TrackID]struct{}, len(b))
	for i, d := range b {
		if d.ID == 0 {
			return fmt.Errorf("%w: detection %d has zero id", ErrMalformedDetection, i)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("%w: duplicate id %d", ErrMalformedDetection, d.ID)
		}
		seen[d.ID] = struct{}{}

		if d.Box.Width < 0 || d.Box.Height < 0 {
			return fmt.Errorf("%w: id %d has negative box size %dx%d",
				ErrMalformedDetection, d.ID, d.Box.Width, d.Box.Height)
		}
		if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
			return fmt.Errorf("%w: id %d confidence %v outside [0, 1]",
				ErrMalformedDetection, d.ID, d.Confidence)
		}
	}
	return nil
}
