package db

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gazelink/gazelink/internal/edf"
)

// TestSessionsNewestFirst tests the ordering of the session listing.
func TestSessionsNewestFirst(t *testing.T) {
	t.Parallel()
	db := testDB(t)

	first, err := db.BeginSession("a.edf", "100.1.1.1:589")
	require.NoError(t, err)
	second, err := db.BeginSession("b.edf", "100.1.1.1:589")
	require.NoError(t, err)

	sessions, err := db.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second, sessions[0].ID)
	assert.Equal(t, first, sessions[1].ID)
	assert.Equal(t, "b.edf", sessions[0].EDFName)
	assert.Nil(t, sessions[0].EndedAt)
}

func TestRecentSamplesQueries(t *testing.T) {
	t.Parallel()

	newSession := func(t *testing.T, db *DB, n int) string {
		id, err := db.BeginSession("test.edf", "dummy")
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			s := edf.Sample{
				TimeMS: int64(1000 + i),
				Left:   edf.GazePoint{X: float64(i), Y: float64(i), Pupil: 900, Valid: true},
			}
			require.NoError(t, db.RecordSample(id, s))
		}
		return id
	}

	t.Run("newest first with limit", func(t *testing.T) {
		t.Parallel()
		db := testDB(t)
		id := newSession(t, db, 10)

		samples, err := db.RecentSamples(id, 3)
		require.NoError(t, err)
		require.Len(t, samples, 3)
		assert.Equal(t, int64(1009), samples[0].TimeMS)
		assert.Equal(t, int64(1007), samples[2].TimeMS)
	})

	t.Run("zero limit uses default", func(t *testing.T) {
		t.Parallel()
		db := testDB(t)
		id := newSession(t, db, 5)

		samples, err := db.RecentSamples(id, 0)
		require.NoError(t, err)
		assert.Len(t, samples, 5)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		t.Parallel()
		db := testDB(t)
		a := newSession(t, db, 4)
		b := newSession(t, db, 2)

		samples, err := db.RecentSamples(a, 0)
		require.NoError(t, err)
		assert.Len(t, samples, 4)

		samples, err = db.RecentSamples(b, 0)
		require.NoError(t, err)
		assert.Len(t, samples, 2)
	})

	t.Run("unknown session is empty", func(t *testing.T) {
		t.Parallel()
		db := testDB(t)

		samples, err := db.RecentSamples("no-such-session", 0)
		require.NoError(t, err)
		assert.Empty(t, samples)
	})
}

// TestSummaryAcrossKinds records a mixed stream and checks the per-kind
// counts stay separate.
func TestSummaryAcrossKinds(t *testing.T) {
	t.Parallel()
	db := testDB(t)

	id, err := db.BeginSession("test.edf", "dummy")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.RecordSample(id, edf.Sample{TimeMS: int64(100 + i)}))
	}
	require.NoError(t, db.RecordEvent(id, edf.Event{Type: edf.FixationEnd, StartMS: 100, EndMS: 150}))
	for i := 0; i < 2; i++ {
		require.NoError(t, db.RecordMessage(id, int64(100+i), fmt.Sprintf("TRIALID %d", i)))
	}

	sum, err := db.SessionSummary(id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.SampleCount)
	assert.Equal(t, int64(1), sum.EventCount)
	assert.Equal(t, int64(2), sum.MessageCount)
	assert.Equal(t, int64(100), sum.FirstMS)
	assert.Equal(t, int64(102), sum.LastMS)
}
