package pipeline

import (
	"time"

	"golang.org/x/time/rate"
)

// FrameGate decides whether a frame is evaluated or skipped.
type FrameGate interface {
	Admit(at time.Time) bool
}

// EveryNth admits the first frame and every Nth after it. N below 2 admits
// every frame.
type EveryNth struct {
	N    int
	seen int
}

// Admit implements FrameGate.
func (g *EveryNth) Admit(time.Time) bool {
	admit := g.N < 2 || g.seen%g.N == 0
	g.seen++
	return admit
}

// RateGate admits at most one frame per 1/fps of frame time. It is driven
// by the frame's own timestamp, so replays faster than real time are
// thinned the same way a live stream would be.
type RateGate struct {
	limiter *rate.Limiter
}

// NewRateGate returns a gate admitting fps frames per second.
func NewRateGate(fps float64) *RateGate {
	return &RateGate{limiter: rate.NewLimiter(rate.Limit(fps), 1)}
}

// Admit implements FrameGate.
func (g *RateGate) Admit(at time.Time) bool {
	return g.limiter.AllowN(at, 1)
}

// Chain admits a frame only if every gate admits it. Gates are consulted
// in order and later gates only see frames the earlier ones admitted.
type Chain []FrameGate

// Admit implements FrameGate.
func (c Chain) Admit(at time.Time) bool {
	for _, g := range c {
		if !g.Admit(at) {
			return false
		}
	}
	return true
}

var (
	_ FrameGate = (*EveryNth)(nil)
	_ FrameGate = (*RateGate)(nil)
	_ FrameGate = Chain(nil)
)
