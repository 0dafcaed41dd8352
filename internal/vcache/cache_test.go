package vcache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/datasource/memory"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	source accrue.ChunkLoader
	loads  int32
	fail   bool
}

func (l *countingLoader) Load(ctx context.Context, c accrue.Chunk) (accrue.View, error) {
	atomic.AddInt32(&l.loads, 1)
	if l.fail {
		return nil, fmt.Errorf("unavailable")
	}
	return l.source.Load(ctx, c)
}

func chunk(start int64) accrue.Chunk {
	return accrue.Chunk{Dataset: "events", Start: start, Stop: start + 1}
}

func TestCacheEviction(t *testing.T) {
	ds, err := memory.CreateDataSource("events", map[string]interface{}{"x": make([]int, 20)}, 1)
	require.Nil(t, err)
	loader := &countingLoader{source: ds}
	cache := NewLRU(loader, 5)

	for i := int64(0); i < 10; i++ {
		_, err := cache.Load(context.Background(), chunk(i))
		require.Nil(t, err)
	}
	require.Equal(t, 5, cache.Len())
	// 5-9 are cached, 0 was evicted
	_, err = cache.Load(context.Background(), chunk(9))
	require.Nil(t, err)
	_, err = cache.Load(context.Background(), chunk(0))
	require.Nil(t, err)
	hits, misses := cache.Stats()
	require.EqualValues(t, 1, hits)
	require.EqualValues(t, 11, misses)
	require.EqualValues(t, 11, loader.loads)
	require.Equal(t, 5, cache.Len())
}

func TestCacheConcurrentLoads(t *testing.T) {
	ds, err := memory.CreateDataSource("events", map[string]interface{}{"x": make([]int, 4)}, 1)
	require.Nil(t, err)
	loader := &countingLoader{source: ds}
	cache := NewLRU(loader, 10)
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := cache.Load(context.Background(), chunk(int64(i%4)))
			require.Nil(t, err)
			require.Equal(t, 1, v.NumEvents())
		}(i)
	}
	wg.Wait()
	require.EqualValues(t, 4, loader.loads)
}

func TestCacheSkipsFailures(t *testing.T) {
	loader := &countingLoader{fail: true}
	cache := NewLRU(loader, 2)
	_, err := cache.Load(context.Background(), chunk(0))
	require.NotNil(t, err)
	_, err = cache.Load(context.Background(), chunk(0))
	require.NotNil(t, err)
	require.EqualValues(t, 2, loader.loads)
	require.Equal(t, 0, cache.Len())
}

func TestCacheSize(t *testing.T) {
	require.Panics(t, func() { NewLRU(&countingLoader{}, 0) })
}
