package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunStatistics(t *testing.T) {
	rs := &RunStatistics{}
	rs.Start("run")
	for i := 0; i < 7; i++ {
		rs.ReadChunk()
		rs.SubmitAttempt(1)
	}
	rs.SubmitAttempt(2)
	rs.SourceExhausted()
	for i := 1; i <= 6; i++ {
		rs.CompleteChunk(time.Duration(i)*time.Millisecond, 10, 100)
	}
	rs.SkipChunk()
	rs.Finish()

	s := rs.Summary()
	require.Equal(t, "run", s.RunID)
	require.EqualValues(t, 7, s.ChunksRead)
	require.EqualValues(t, 6, s.ChunksCompleted)
	require.EqualValues(t, 1, s.ChunksSkipped)
	require.True(t, s.SourceExhausted)
	require.EqualValues(t, 60, s.EventsProcessed)
	require.EqualValues(t, 600, s.BytesProcessed)
	require.EqualValues(t, 8, s.Attempts)
	require.EqualValues(t, 1, s.Retries)
	// the window holds the five most recent runtimes: 2..6ms
	require.Equal(t, 4*time.Millisecond, s.MeanChunkRuntime)
	require.Equal(t, s.Elapsed, rs.GetRuntime())
}
