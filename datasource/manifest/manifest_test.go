package manifest

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/datasource/memory"
	"github.com/stretchr/testify/require"
)

func TestReadManifest(t *testing.T) {
	data := `# produced by hand
{"dataset": "a", "start": 0, "stop": 10}

{"dataset": "a", "start": 10, "stop": 15, "metadata": {"era": "B", "run": 7}}
{"dataset": "b", "start": 0}
{"dataset": "b", "start": 0, "stop": 3}
`
	r := CreateReader(strings.NewReader(data), nil)
	var chunks []accrue.Chunk
	var errs []error
	for r.HasNext() {
		c, err := r.Next()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		chunks = append(chunks, c)
	}
	require.Len(t, chunks, 3)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), "line 5")
	require.Equal(t, accrue.Chunk{Dataset: "a", Start: 10, Stop: 15, Metadata: map[string]string{"era": "B", "run": "7"}}, chunks[1])
	require.Equal(t, "b", chunks[2].Dataset)
	_, err := r.Next()
	require.Equal(t, io.EOF, err)
}

func TestParseChunk(t *testing.T) {
	for _, line := range []string{
		`not json`,
		`{"start": 0, "stop": 1}`,
		`{"dataset": "a", "start": "0", "stop": 1}`,
		`{"dataset": "a", "start": 5, "stop": 1}`,
		`{"dataset": "a", "start": 0, "stop": 1, "metadata": [1]}`,
	} {
		_, err := ParseChunk(line)
		require.NotNil(t, err, line)
	}
}

func TestWriteManifest(t *testing.T) {
	ds, err := memory.CreateDataSource("events", map[string]interface{}{"x": make([]int, 25)}, 10)
	require.Nil(t, err)
	var buf bytes.Buffer
	n, err := Write(&buf, ds.Analyze())
	require.Nil(t, err)
	require.Equal(t, 3, n)

	r := CreateReader(&buf, nil)
	var stops []int64
	for r.HasNext() {
		c, err := r.Next()
		require.Nil(t, err)
		stops = append(stops, c.Stop)
	}
	require.Equal(t, []int64{10, 20, 25}, stops)
}
