// Package manifest reads and writes JSON lines manifests of Chunk
// descriptors. A manifest decouples chunk discovery from execution: it can be
// produced once (for example by the file DataSource) and replayed by any
// executor.
//
// Each line of a manifest describes one Chunk:
//
//	{"dataset": "events/a.jsonl", "start": 0, "stop": 1024, "metadata": {"run": "7"}}
package manifest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-sif/accrue"
	"github.com/tidwall/gjson"
)

// Conf configures a manifest Reader
type Conf struct {
	Comment       rune // Lines beginning with the comment character are ignored. Defaults to '#'.
	MaxBufferSize int  // Maximum size in bytes of the buffer used to read lines
}

// Reader is a ChunkSource which parses Chunk descriptors lazily from a manifest
type Reader struct {
	scanner *bufio.Scanner
	conf    *Conf
	line    int
	next    *accrue.Chunk
	err     error
}

// CreateReader returns a new manifest Reader
func CreateReader(r io.Reader, conf *Conf) *Reader {
	if conf == nil {
		conf = &Conf{}
	}
	if conf.Comment == 0 {
		conf.Comment = '#'
	}
	if conf.MaxBufferSize == 0 {
		conf.MaxBufferSize = bufio.MaxScanTokenSize
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), conf.MaxBufferSize)
	return &Reader{scanner: scanner, conf: conf}
}

// HasNext returns true iff there is another Chunk, or an error, remaining
func (r *Reader) HasNext() bool {
	if r.next != nil || r.err != nil {
		return true
	}
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if len(text) == 0 || strings.HasPrefix(text, string(r.conf.Comment)) {
			continue
		}
		c, err := ParseChunk(text)
		if err != nil {
			r.err = fmt.Errorf("manifest line %d: %w", r.line, err)
		} else {
			r.next = &c
		}
		return true
	}
	if err := r.scanner.Err(); err != nil {
		r.err = err
		return true
	}
	return false
}

// Next returns the next Chunk. A malformed line is reported once, after
// which reading continues with the following line.
func (r *Reader) Next() (accrue.Chunk, error) {
	if !r.HasNext() {
		return accrue.Chunk{}, io.EOF
	}
	if r.err != nil {
		err := r.err
		r.err = nil
		return accrue.Chunk{}, err
	}
	c := *r.next
	r.next = nil
	return c, nil
}

// ParseChunk parses a single Chunk descriptor
func ParseChunk(line string) (accrue.Chunk, error) {
	if !gjson.Valid(line) {
		return accrue.Chunk{}, fmt.Errorf("invalid JSON")
	}
	fields := gjson.GetMany(line, "dataset", "start", "stop", "metadata")
	if fields[0].Type != gjson.String || len(fields[0].Str) == 0 {
		return accrue.Chunk{}, fmt.Errorf("chunk descriptor requires a dataset name")
	}
	if fields[1].Type != gjson.Number || fields[2].Type != gjson.Number {
		return accrue.Chunk{}, fmt.Errorf("chunk descriptor requires numeric start and stop")
	}
	c := accrue.Chunk{
		Dataset: fields[0].Str,
		Start:   fields[1].Int(),
		Stop:    fields[2].Int(),
	}
	if c.Start < 0 || c.Stop < c.Start {
		return accrue.Chunk{}, fmt.Errorf("invalid chunk bounds [%d:%d]", c.Start, c.Stop)
	}
	if fields[3].Exists() {
		if !fields[3].IsObject() {
			return accrue.Chunk{}, fmt.Errorf("chunk metadata must be an object")
		}
		c.Metadata = make(map[string]string)
		fields[3].ForEach(func(key, value gjson.Result) bool {
			c.Metadata[key.String()] = value.String()
			return true
		})
	}
	return c, nil
}

type descriptor struct {
	Dataset  string            `json:"dataset"`
	Start    int64             `json:"start"`
	Stop     int64             `json:"stop"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Write drains a ChunkSource into a manifest, returning the number of Chunks written
func Write(w io.Writer, source accrue.ChunkSource) (int, error) {
	enc := json.NewEncoder(w)
	written := 0
	for source.HasNext() {
		c, err := source.Next()
		if err != nil {
			return written, err
		}
		if err := enc.Encode(descriptor{Dataset: c.Dataset, Start: c.Start, Stop: c.Stop, Metadata: c.Metadata}); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
