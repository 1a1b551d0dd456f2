package movement

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/presence.report/internal/config"
	"github.com/banshee-data/presence.report/internal/detection"
	"github.com/banshee-data/presence.report/internal/testutil"
)

func newTracker(t *testing.T, history, identities int) *Tracker {
	t.Helper()
	tr, err := NewTracker(Config{MaxHistoryLength: history, MaxTrackedIdentities: identities})
	require.NoError(t, err)
	return tr
}

func TestNewTracker_InvalidConfig(t *testing.T) {
	for _, cfg := range []Config{
		{MaxHistoryLength: 1, MaxTrackedIdentities: 10},
		{MaxHistoryLength: 5, MaxTrackedIdentities: 0},
		{MaxHistoryLength: 5, MaxTrackedIdentities: -4},
	} {
		_, err := NewTracker(cfg)
		assert.True(t, errors.Is(err, config.ErrInvalidConfig), "cfg %+v: got %v", cfg, err)
	}
}

func TestIngest_FirstSightingDuplicates(t *testing.T) {
	tr := newTracker(t, 5, 10)
	d := testutil.Det(4, 10, 20, 6, 8)

	out, err := tr.Ingest(detection.Batch{d}, testutil.At(0))
	require.NoError(t, err)
	assert.Equal(t, detection.Batch{d}, out)

	history, ok := tr.History(4)
	require.True(t, ok)
	assert.Equal(t, []detection.BBox{d.Box, d.Box}, history)

	start, ok := tr.StartTime(4)
	require.True(t, ok)
	assert.True(t, start.Equal(testutil.At(0)))
}

func TestIngest_HistoryCappedAndStartTimeKept(t *testing.T) {
	tr := newTracker(t, 4, 10)
	for i, batch := range testutil.Walk(9, 0, 0, 10, 0, 8) {
		_, err := tr.Ingest(batch, testutil.At(float64(i)))
		require.NoError(t, err)

		history, _ := tr.History(9)
		assert.LessOrEqual(t, len(history), 4)
	}

	history, _ := tr.History(9)
	var xs []int
	for _, b := range history {
		xs = append(xs, b.CenterX)
	}
	if diff := cmp.Diff([]int{40, 50, 60, 70}, xs); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	start, _ := tr.StartTime(9)
	assert.True(t, start.Equal(testutil.At(0)), "start time moved to %v", start)
}

func TestIngest_SyntheticIDsNotRecorded(t *testing.T) {
	tr := newTracker(t, 5, 10)
	batch := detection.Batch{testutil.Det(-1, 1, 1, 2, 2), testutil.Det(-2, 5, 5, 2, 2)}

	out, err := tr.Ingest(batch, testutil.At(0))
	require.NoError(t, err)
	assert.Len(t, out, 2)

	_, ok := tr.History(-1)
	assert.False(t, ok)
	_, ok = tr.StartTime(-2)
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Stats().Tracked)
}

func TestIngest_MalformedBatchLeavesStateUntouched(t *testing.T) {
	tr := newTracker(t, 5, 10)
	_, err := tr.Ingest(detection.Batch{testutil.Det(1, 0, 0, 2, 2)}, testutil.At(0))
	require.NoError(t, err)

	bad := detection.Batch{
		testutil.Det(1, 50, 50, 2, 2),
		testutil.Det(2, 1, 1, -3, 2),
	}
	out, err := tr.Ingest(bad, testutil.At(1))
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, detection.ErrMalformedDetection))

	history, _ := tr.History(1)
	assert.Len(t, history, 2)
	assert.False(t, tr.histories.Contains(2))
	assert.False(t, tr.starts.Contains(2))
}

func TestIngest_EvictsOldestIdentity(t *testing.T) {
	tr := newTracker(t, 3, 2)
	for i, id := range []detection.TrackID{1, 2, 3} {
		_, err := tr.Ingest(detection.Batch{testutil.Det(id, 0, 0, 2, 2)}, testutil.At(float64(i)))
		require.NoError(t, err)
	}

	_, ok := tr.History(1)
	assert.False(t, ok)
	_, ok = tr.StartTime(1)
	assert.False(t, ok)
	assert.Equal(t, Stats{Tracked: 2, Evictions: 1}, tr.Stats())
}

func TestForget(t *testing.T) {
	tr := newTracker(t, 5, 10)
	_, err := tr.Ingest(detection.Batch{testutil.Det(6, 0, 0, 2, 2)}, testutil.At(0))
	require.NoError(t, err)

	tr.Forget(6)
	tr.Forget(99) // absent: no-op

	_, ok := tr.History(6)
	assert.False(t, ok)

	_, err = tr.Ingest(detection.Batch{testutil.Det(6, 8, 8, 2, 2)}, testutil.At(30))
	require.NoError(t, err)
	start, _ := tr.StartTime(6)
	assert.True(t, start.Equal(testutil.At(30)))
	history, _ := tr.History(6)
	assert.Len(t, history, 2)
}

func TestHistory_ReturnsCopy(t *testing.T) {
	tr := newTracker(t, 5, 10)
	_, err := tr.Ingest(detection.Batch{testutil.Det(2, 1, 1, 2, 2)}, testutil.At(0))
	require.NoError(t, err)

	h, _ := tr.History(2)
	h[0].CenterX = 999

	again, _ := tr.History(2)
	assert.Equal(t, 1, again[0].CenterX)
}
