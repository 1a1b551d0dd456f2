package testutil

import (
	"testing"
	"time"

	"github.com/banshee-data/presence.report/internal/detection"
)

func TestAt(t *testing.T) {
	if got := At(2.5); !got.Equal(Epoch.Add(2500 * time.Millisecond)) {
		t.Errorf("At(2.5) = %v", got)
	}
}

func TestFoot(t *testing.T) {
	d := Foot(3, 50, 120)
	if got := d.Box.BottomMidpoint(); got != (detection.Point{X: 50, Y: 120}) {
		t.Errorf("BottomMidpoint() = %v, want (50,120)", got)
	}
}

func TestWalk(t *testing.T) {
	batches := Walk(7, 100, 100, 50, 0, 3)
	if len(batches) != 3 {
		t.Fatalf("len = %d, want 3", len(batches))
	}
	for i, b := range batches {
		if len(b) != 1 || b[0].ID != 7 {
			t.Fatalf("batch %d = %v", i, b)
		}
		if b[0].Box.CenterX != 100+50*i {
			t.Errorf("batch %d centre x = %d", i, b[0].Box.CenterX)
		}
		if err := b.Validate(); err != nil {
			t.Errorf("batch %d invalid: %v", i, err)
		}
	}
}
