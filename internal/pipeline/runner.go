package pipeline

import (
	"time"

	"github.com/banshee-data/presence.report/internal/detection"
	"github.com/banshee-data/presence.report/internal/monitoring"
)

// Runner evaluates admitted frames and hands back the previous outcome for
// skipped ones. It is not safe for concurrent use.
type Runner struct {
	Evaluator Evaluator
	Gate      FrameGate           // nil admits every frame
	Metrics   *monitoring.Metrics // nil disables metrics

	last    Outcome
	skipped int
}

// Step processes one frame. skipped is true when the gate held the frame
// back; out is then the cached outcome of the last evaluated frame, or nil
// if none has been evaluated yet. On error the cached outcome is returned
// and the session is unchanged.
func (r *Runner) Step(batch detection.Batch, now time.Time) (out Outcome, skipped bool, err error) {
	if r.Gate != nil && !r.Gate.Admit(now) {
		r.skipped++
		if r.Metrics != nil {
			r.Metrics.FramesSkipped.Add(1)
		}
		return r.last, true, nil
	}
	if r.skipped > 0 {
		tracef("gate skipped %d frames", r.skipped)
		r.skipped = 0
	}

	out, err = r.Evaluator.Evaluate(batch, now)
	if err != nil {
		r.reject()
		return r.last, false, err
	}
	r.last = out

	if r.Metrics != nil {
		r.Metrics.FramesProcessed.Add(1)
		stats := r.Evaluator.Stats()
		r.Metrics.TrackedIdentities.Store(int64(stats.Tracked))
		r.Metrics.Evictions.Store(stats.Evictions)
		out.Record(r.Metrics)
	}
	return out, false, nil
}

// Last returns the most recent evaluated outcome, or nil.
func (r *Runner) Last() Outcome { return r.last }

func (r *Runner) reject() {
	if r.Metrics != nil {
		r.Metrics.FramesRejected.Add(1)
	}
}
