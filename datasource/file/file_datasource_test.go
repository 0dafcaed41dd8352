package file

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-sif/accrue"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	dir, err := ioutil.TempDir("", "accrue-file")
	require.Nil(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	for name, content := range files {
		require.Nil(t, ioutil.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestJSONLDataSource(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.jsonl": "{\"name\": \"Sean\", \"meta\": {\"index\": 1, \"score\": 0.5}}\n" +
			"{\"name\": \"Chris\", \"meta\": {\"index\": 3, \"score\": 1.5}}\n" +
			"{\"name\": \"Phil\", \"meta\": {\"index\": 2}}\n",
		"b.jsonl": "{\"name\": \"Fahd\", \"meta\": {\"index\": 4, \"score\": 2}, \"vip\": true}\n",
		"c.jsonl": "",
	})
	schema := Schema{"name": String, "meta.index": Int64, "meta.score": Float64, "vip": Bool}
	ds := CreateDataSource(filepath.Join(dir, "*.jsonl"), schema, &Conf{ChunkSize: 2})
	cm, err := ds.Analyze()
	require.Nil(t, err)

	var chunks []accrue.Chunk
	for cm.HasNext() {
		c, err := cm.Next()
		require.Nil(t, err)
		chunks = append(chunks, c)
	}
	require.Len(t, chunks, 3)
	require.Equal(t, int64(2), chunks[1].Start)
	require.Equal(t, int64(3), chunks[1].Stop)
	require.Equal(t, filepath.Join(dir, "b.jsonl"), chunks[2].Dataset)

	var indices []int64
	var score float64
	for _, c := range chunks {
		v, err := ds.Load(context.Background(), c)
		require.Nil(t, err)
		col, err := v.Column("meta.index")
		require.Nil(t, err)
		indices = append(indices, col.([]int64)...)
		col, err = v.Column("meta.score")
		require.Nil(t, err)
		for _, s := range col.([]float64) {
			score += s
		}
	}
	require.Equal(t, []int64{1, 3, 2, 4}, indices)
	require.Equal(t, 4.0, score)

	v, err := ds.Load(context.Background(), chunks[2])
	require.Nil(t, err)
	vip, err := v.Column("vip")
	require.Nil(t, err)
	require.Equal(t, []bool{true}, vip)
	_, err = v.Column("missing")
	require.NotNil(t, err)
}

func TestJSONLDataSourceErrors(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"bad.jsonl": "{\"n\": \"x\"}\nnot json\n",
	})
	ds := CreateDataSource(filepath.Join(dir, "*.jsonl"), Schema{"n": Int64}, nil)
	_, err := ds.Load(context.Background(), accrue.Chunk{Dataset: filepath.Join(dir, "bad.jsonl"), Start: 0, Stop: 1})
	require.NotNil(t, err)
	ds = CreateDataSource(filepath.Join(dir, "*.jsonl"), Schema{"n": String}, nil)
	_, err = ds.Load(context.Background(), accrue.Chunk{Dataset: filepath.Join(dir, "bad.jsonl"), Start: 1, Stop: 2})
	require.NotNil(t, err)
	_, err = ds.Load(context.Background(), accrue.Chunk{Dataset: filepath.Join(dir, "bad.jsonl"), Start: 0, Stop: 10})
	require.NotNil(t, err)

	ds = CreateDataSource(filepath.Join(dir, "*.csv"), Schema{}, nil)
	_, err = ds.Analyze()
	require.NotNil(t, err)
}
