package loitering

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/presence.report/internal/config"
	"github.com/banshee-data/presence.report/internal/detection"
	"github.com/banshee-data/presence.report/internal/testutil"
)

type fakeObservations struct {
	histories map[detection.TrackID][]detection.BBox
	starts    map[detection.TrackID]time.Time
}

func (f fakeObservations) History(id detection.TrackID) ([]detection.BBox, bool) {
	h, ok := f.histories[id]
	return h, ok
}

func (f fakeObservations) StartTime(id detection.TrackID) (time.Time, bool) {
	t, ok := f.starts[id]
	return t, ok
}

func box(x, y int) detection.BBox {
	return detection.BBox{CenterX: x, CenterY: y, Width: 10, Height: 10}
}

func TestEvaluator_TooLong(t *testing.T) {
	e := Evaluator{
		MaxTime: 3 * time.Second,
		Source: fakeObservations{starts: map[detection.TrackID]time.Time{
			1: testutil.At(0),
		}},
	}

	assert.False(t, e.TooLong(1, testutil.At(2)))
	assert.False(t, e.TooLong(1, testutil.At(3)), "exactly max_time is not too long")
	assert.True(t, e.TooLong(1, testutil.At(3.001)))
	assert.False(t, e.TooLong(2, testutil.At(100)), "unknown identity")
}

func TestEvaluator_MovedEnough(t *testing.T) {
	e := Evaluator{
		MinMovement: 10,
		Source: fakeObservations{histories: map[detection.TrackID][]detection.BBox{
			1: {box(0, 0), box(0, 0), box(6, 8)},  // 10: not more than 10
			2: {box(0, 0), box(6, 8), box(6, 9)},  // 11
			3: {box(0, 0), box(100, 0), box(0, 0)}, // back and forth counts
			4: {box(5, 5), box(5, 5)},             // stationary
		}},
	}

	assert.False(t, e.MovedEnough(1))
	assert.True(t, e.MovedEnough(2))
	assert.True(t, e.MovedEnough(3))
	assert.False(t, e.MovedEnough(4))
	assert.False(t, e.MovedEnough(5), "unknown identity")
	assert.InDelta(t, 200.0, e.PathLength(3), 1e-9)
}

func TestEvaluator_MovedEnoughUsesTopLeft(t *testing.T) {
	// The centre stays put while the box grows, so only the top-left moves.
	e := Evaluator{
		MinMovement: 5,
		Source: fakeObservations{histories: map[detection.TrackID][]detection.BBox{
			1: {
				{CenterX: 50, CenterY: 50, Width: 10, Height: 10},
				{CenterX: 50, CenterY: 50, Width: 30, Height: 10},
			},
		}},
	}
	assert.InDelta(t, 10.0, e.PathLength(1), 1e-9)
	assert.True(t, e.MovedEnough(1))
}

func TestEvaluator_IsLoiteringRequiresBoth(t *testing.T) {
	obs := fakeObservations{
		histories: map[detection.TrackID][]detection.BBox{
			1: {box(0, 0), box(500, 0)}, // moved, long
			2: {box(0, 0), box(500, 0)}, // moved, short
			3: {box(0, 0), box(1, 0)},   // still, long
		},
		starts: map[detection.TrackID]time.Time{
			1: testutil.At(0),
			2: testutil.At(9),
			3: testutil.At(0),
		},
	}
	e := Evaluator{MaxTime: 5 * time.Second, MinMovement: 100, Source: obs}
	now := testutil.At(10)

	assert.True(t, e.IsLoitering(1, now))
	assert.False(t, e.IsLoitering(2, now))
	assert.False(t, e.IsLoitering(3, now))

	batch := detection.Batch{
		testutil.Det(3, 0, 0, 1, 1),
		testutil.Det(1, 0, 0, 1, 1),
		testutil.Det(-1, 0, 0, 1, 1),
	}
	assert.Equal(t, []detection.TrackID{1}, e.Evaluate(batch, now))
}

func newSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	s, err := NewSession(cfg)
	require.NoError(t, err)
	return s
}

func TestNewSession_InvalidConfig(t *testing.T) {
	valid := Config{MaxTime: time.Second, MinMovement: 1, MaxHistoryLength: 5, MaxTrackedIdentities: 5}

	tests := map[string]func(c *Config){
		"zero max time":     func(c *Config) { c.MaxTime = 0 },
		"zero min movement": func(c *Config) { c.MinMovement = 0 },
		"short history":     func(c *Config) { c.MaxHistoryLength = 1 },
		"no identities":     func(c *Config) { c.MaxTrackedIdentities = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			_, err := NewSession(cfg)
			assert.True(t, errors.Is(err, config.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestSession_WalkingIdentityBecomesLoitering(t *testing.T) {
	s := newSession(t, Config{
		MaxTime:              3 * time.Second,
		MinMovement:          200,
		MaxHistoryLength:     10,
		MaxTrackedIdentities: 100,
	})

	results := map[int]Result{}
	for i, batch := range testutil.Walk(7, 100, 300, 60, 0, 5) {
		res, err := s.Process(batch, testutil.At(float64(i)))
		require.NoError(t, err)
		results[i] = res
	}

	assert.Empty(t, results[2].Loitering, "at t=2s")
	assert.Empty(t, results[3].Loitering, "at t=3s elapsed equals max_time")
	if diff := cmp.Diff([]detection.TrackID{7}, results[4].Loitering); diff != "" {
		t.Errorf("loitering at t=4s mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, results[4].Detections, 1)
}

func TestSession_StationaryIdentityIsNotLoitering(t *testing.T) {
	s := newSession(t, Config{MaxTime: time.Second, MinMovement: 50, MaxHistoryLength: 10, MaxTrackedIdentities: 10})

	var res Result
	for i := 0; i < 6; i++ {
		var err error
		res, err = s.Process(detection.Batch{testutil.Det(3, 200, 200, 40, 80)}, testutil.At(float64(i)))
		require.NoError(t, err)
	}
	assert.Empty(t, res.Loitering)
}

func TestSession_ClearResetsIdentity(t *testing.T) {
	s := newSession(t, Config{MaxTime: 2 * time.Second, MinMovement: 50, MaxHistoryLength: 10, MaxTrackedIdentities: 10})

	batches := testutil.Walk(5, 0, 0, 40, 0, 6)
	var res Result
	var err error
	for i := 0; i < 4; i++ {
		res, err = s.Process(batches[i], testutil.At(float64(i)))
		require.NoError(t, err)
	}
	require.Equal(t, []detection.TrackID{5}, res.Loitering)

	s.Clear(5, 404)

	res, err = s.Process(batches[4], testutil.At(4))
	require.NoError(t, err)
	assert.Empty(t, res.Loitering, "start time restarts after clear")

	start, ok := s.tracker.StartTime(5)
	require.True(t, ok)
	assert.True(t, start.Equal(testutil.At(4)))
	history, _ := s.tracker.History(5)
	assert.Len(t, history, 2)
}

func TestSession_MalformedBatchRejected(t *testing.T) {
	s := newSession(t, Config{MaxTime: time.Second, MinMovement: 1, MaxHistoryLength: 5, MaxTrackedIdentities: 5})

	_, err := s.Process(detection.Batch{testutil.Det(1, 0, 0, 4, 4), testutil.Det(1, 9, 9, 4, 4)}, testutil.At(0))
	assert.True(t, errors.Is(err, detection.ErrMalformedDetection))
	assert.Equal(t, 0, s.Stats().Tracked)
}

func TestSession_ID(t *testing.T) {
	a := newSession(t, Config{MaxTime: time.Second, MinMovement: 1, MaxHistoryLength: 5, MaxTrackedIdentities: 5})
	b := newSession(t, Config{MaxTime: time.Second, MinMovement: 1, MaxHistoryLength: 5, MaxTrackedIdentities: 5})

	assert.True(t, strings.HasPrefix(a.ID(), "loit_"))
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestConfigFromTuning(t *testing.T) {
	cfg := ConfigFromTuning(config.DefaultTuningConfig())
	want := Config{
		MaxTime:              time.Minute,
		MinMovement:          300,
		MaxHistoryLength:     120,
		MaxTrackedIdentities: 1000,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("ConfigFromTuning() mismatch (-want +got):\n%s", diff)
	}
}
