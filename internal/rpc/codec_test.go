package rpc

import (
	"testing"

	"github.com/go-sif/accrue"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	req := ChunkRequest{
		Chunk:   accrue.Chunk{Index: 3, Dataset: "events", Start: 10, Stop: 20, Metadata: map[string]string{"era": "B"}},
		Attempt: 2,
	}
	for _, c := range []Compression{NoCompression, LZ4Compression, ZstdCompression} {
		payload, err := Encode(&req, c)
		require.Nil(t, err, c)
		var out ChunkRequest
		require.Nil(t, Decode(payload, &out), c)
		require.Equal(t, req, out, c)
	}
}

func TestCodecCompresses(t *testing.T) {
	res := ChunkResponse{Accumulator: make([]byte, 1<<16)}
	raw, err := Encode(&res, NoCompression)
	require.Nil(t, err)
	for _, c := range []Compression{LZ4Compression, ZstdCompression} {
		payload, err := Encode(&res, c)
		require.Nil(t, err)
		require.True(t, len(payload) < len(raw)/10, c)
	}
}

func TestCodecErrors(t *testing.T) {
	_, err := Encode(&ChunkRequest{}, "gzip")
	require.NotNil(t, err)
	require.NotNil(t, ValidCompression("gzip"))
	require.Nil(t, ValidCompression(ZstdCompression))
	var out ChunkRequest
	require.NotNil(t, Decode(nil, &out))
	require.NotNil(t, Decode([]byte{42, 1, 2}, &out))
	require.NotNil(t, Decode([]byte{tagZstd, 1, 2, 3}, &out))
}
