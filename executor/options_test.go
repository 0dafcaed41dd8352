package executor

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions([]byte(`
max_in_flight: 16
retries: 2
retry_backoff: 250ms
max_retry_backoff: 5s
on_chunk_error: skip
merge_order: chunk
best_effort: true
`))
	require.Nil(t, err)
	require.Equal(t, 16, opts.MaxInFlight)
	require.Equal(t, 2, opts.Retries)
	require.Equal(t, 250*time.Millisecond, opts.RetryBackoff)
	require.Equal(t, 5*time.Second, opts.MaxRetryBackoff)
	require.Equal(t, SkipOnChunkError, opts.OnChunkError)
	require.Equal(t, MergeInChunkOrder, opts.MergeOrder)
	require.True(t, opts.BestEffort)
	// defaults are applied at run time, not at parse time
	require.Equal(t, 0, opts.PrefetchDepth)

	_, err = ParseOptions([]byte("max_in_flight: 2\nparallelism: 4\n"))
	require.NotNil(t, err)
	_, err = ParseOptions([]byte("on_chunk_error: ignore\n"))
	require.NotNil(t, err)
	_, err = ParseOptions([]byte("retry_backoff: soon\n"))
	require.NotNil(t, err)
}

func TestDefaultOptions(t *testing.T) {
	opts := CloneOptions(nil)
	require.Nil(t, ensureDefaultOptionsValues(opts))
	require.Equal(t, 4, opts.MaxInFlight)
	require.Equal(t, 4, opts.PrefetchDepth)
	require.Equal(t, 0, opts.Retries)
	require.Equal(t, 100*time.Millisecond, opts.RetryBackoff)
	require.Equal(t, 10*time.Second, opts.MaxRetryBackoff)
	require.Equal(t, FailOnChunkError, opts.OnChunkError)
	require.Equal(t, MergeInCompletionOrder, opts.MergeOrder)
	require.NotNil(t, opts.Logger)
}

func TestLoadOptions(t *testing.T) {
	dir, err := ioutil.TempDir("", "accrue-options")
	require.Nil(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "options.yaml")
	require.Nil(t, ioutil.WriteFile(path, []byte("{\"retries\": 5}"), 0644))
	opts, err := LoadOptions(path)
	require.Nil(t, err)
	require.Equal(t, 5, opts.Retries)
	_, err = LoadOptions(filepath.Join(dir, "missing.yaml"))
	require.NotNil(t, err)
}
