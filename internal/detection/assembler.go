package detection

import (
	"fmt"
	"math"
)

// maxCoordinate bounds pixel values accepted from the detector.
const maxCoordinate = 1 << 30

// RawBox is a single box as emitted by the upstream detector/tracker,
// before filtering and identity assignment.
type RawBox struct {
	ID         int  // tracker identity, valid only when HasID
	HasID      bool // false when the tracker could not associate the box
	Class      int
	Confidence float64
	XYWH       [4]float64 // centre x, centre y, width, height
}

// Assembler turns raw detector output into a Batch: it keeps only the
// configured object class at or above the confidence threshold and gives
// every untracked box a unique negative identity for the frame.
type Assembler struct {
	ConfidenceThreshold float64
	ObjectClass         int
}

// Assemble builds the batch for one frame. Synthetic identities restart at
// -1 on every call.
func (a Assembler) Assemble(raw []RawBox) (Batch, error) {
	batch := make(Batch, 0, len(raw))
	next := TrackID(-1)

	for i, r := range raw {
		if r.Class != a.ObjectClass {
			continue
		}
		if r.Confidence < a.ConfidenceThreshold {
			continue
		}

		box, err := boxFromXYWH(r.XYWH)
		if err != nil {
			return nil, fmt.Errorf("box %d: %w", i, err)
		}

		var id TrackID
		if r.HasID {
			if r.ID <= 0 {
				return nil, fmt.Errorf("%w: box %d has non-positive tracker id %d", ErrMalformedDetection, i, r.ID)
			}
			id = TrackID(r.ID)
		} else {
			id = next
			next--
		}

		batch = append(batch, Detection{ID: id, Box: box, Confidence: r.Confidence})
	}

	if err := batch.Validate(); err != nil {
		return nil, err
	}
	return batch, nil
}

func boxFromXYWH(v [4]float64) (BBox, error) {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return BBox{}, fmt.Errorf("%w: non-finite coordinate %v", ErrMalformedDetection, c)
		}
		if math.Abs(c) > maxCoordinate {
			return BBox{}, fmt.Errorf("%w: coordinate %v out of range", ErrMalformedDetection, c)
		}
	}
	return BBox{
		CenterX: int(v[0]),
		CenterY: int(v[1]),
		Width:   int(v[2]),
		Height:  int(v[3]),
	}, nil
}
