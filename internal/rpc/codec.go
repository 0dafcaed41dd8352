package rpc

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io/ioutil"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
)

// Compression names a payload compression algorithm
type Compression = string

const (
	// NoCompression sends gob-encoded payloads as-is
	NoCompression Compression = "none"
	// LZ4Compression favours speed, and is the default
	LZ4Compression Compression = "lz4"
	// ZstdCompression favours ratio, for large accumulators over slow links
	ZstdCompression Compression = "zstd"
)

// each payload begins with a byte identifying its compression
const (
	tagNone byte = iota
	tagLZ4
	tagZstd
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// ValidCompression returns an error iff c is not a known Compression
func ValidCompression(c Compression) error {
	switch c {
	case NoCompression, LZ4Compression, ZstdCompression:
		return nil
	default:
		return fmt.Errorf("%q is an unknown compression - must be %q, %q or %q", c, NoCompression, LZ4Compression, ZstdCompression)
	}
}

// Encode gob-encodes v and compresses the result
func Encode(v interface{}, c Compression) ([]byte, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(v); err != nil {
		return nil, err
	}
	switch c {
	case NoCompression:
		return append([]byte{tagNone}, raw.Bytes()...), nil
	case LZ4Compression:
		out := bytes.NewBuffer([]byte{tagLZ4})
		zw := lz4.NewWriter(out)
		if _, err := zw.Write(raw.Bytes()); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	case ZstdCompression:
		return zstdEncoder.EncodeAll(raw.Bytes(), []byte{tagZstd}), nil
	default:
		return nil, ValidCompression(c)
	}
}

// Decode decompresses and gob-decodes a payload produced by Encode, with
// any Compression, into v
func Decode(payload []byte, v interface{}) error {
	if len(payload) == 0 {
		return fmt.Errorf("empty payload")
	}
	var raw []byte
	var err error
	switch payload[0] {
	case tagNone:
		raw = payload[1:]
	case tagLZ4:
		raw, err = ioutil.ReadAll(lz4.NewReader(bytes.NewReader(payload[1:])))
	case tagZstd:
		raw, err = zstdDecoder.DecodeAll(payload[1:], nil)
	default:
		err = fmt.Errorf("unknown payload compression tag %d", payload[0])
	}
	if err != nil {
		return err
	}
	return gob.NewDecoder(bytes.NewReader(raw)).Decode(v)
}
