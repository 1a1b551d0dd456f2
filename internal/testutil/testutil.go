// Package testutil provides shared test fixtures for detection streams.
package testutil

import (
	"time"

	"github.com/banshee-data/presence.report/internal/detection"
)

// Epoch is the reference start time used by fixtures.
var Epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// At returns Epoch plus the given number of seconds.
func At(seconds float64) time.Time {
	return Epoch.Add(time.Duration(seconds * float64(time.Second)))
}

// Det builds a detection with full confidence.
func Det(id detection.TrackID, cx, cy, w, h int) detection.Detection {
	return detection.Detection{
		ID:         id,
		Box:        detection.BBox{CenterX: cx, CenterY: cy, Width: w, Height: h},
		Confidence: 1,
	}
}

// Foot builds a detection whose bottom midpoint sits at (x, y).
func Foot(id detection.TrackID, x, y int) detection.Detection {
	const w, h = 20, 40
	return Det(id, x, y-h/2, w, h)
}

// Walk returns n single-detection batches moving id by (dx, dy) per frame
// from (x, y), with a fixed box size.
func Walk(id detection.TrackID, x, y, dx, dy, n int) []detection.Batch {
	batches := make([]detection.Batch, n)
	for i := range batches {
		batches[i] = detection.Batch{Det(id, x+i*dx, y+i*dy, 40, 80)}
	}
	return batches
}
