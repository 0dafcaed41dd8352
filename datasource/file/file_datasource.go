package file

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-sif/accrue"
)

// DataSource is a set of JSON lines files, matched by a glob
type DataSource struct {
	glob   string
	schema Schema
	conf   *Conf
}

// Conf configures a file DataSource
type Conf struct {
	ChunkSize     int // The maximum number of lines per Chunk. Defaults to 1024.
	MaxBufferSize int // Maximum size in bytes of the buffer used to read lines from a file
}

// CreateDataSource is a factory for DataSources. Column names in the Schema are gjson paths.
func CreateDataSource(glob string, schema Schema, conf *Conf) *DataSource {
	if conf == nil {
		conf = &Conf{}
	}
	if conf.ChunkSize == 0 {
		conf.ChunkSize = 1024
	}
	if conf.MaxBufferSize == 0 {
		conf.MaxBufferSize = bufio.MaxScanTokenSize
	}
	return &DataSource{glob: glob, schema: schema, conf: conf}
}

// Analyze counts the lines in every matching file, and returns a ChunkMap
// describing how the files will be divided into Chunks
func (fs *DataSource) Analyze() (*ChunkMap, error) {
	matches, err := filepath.Glob(fs.glob)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("glob %s produced 0 files", fs.glob)
	}
	sort.Strings(matches)
	cm := &ChunkMap{chunkSize: int64(fs.conf.ChunkSize)}
	for _, path := range matches {
		lines, err := fs.countLines(path)
		if err != nil {
			return nil, err
		}
		if lines > 0 {
			cm.files = append(cm.files, fileExtent{path: path, lines: lines})
		}
	}
	return cm, nil
}

func (fs *DataSource) countLines(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), fs.conf.MaxBufferSize)
	var lines int64
	for scanner.Scan() {
		lines++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("unable to read %s: %w", path, err)
	}
	return lines, nil
}

// Load reads the lines [Start, Stop) of the file named by the Chunk's dataset,
// and parses every Schema column from them
func (fs *DataSource) Load(ctx context.Context, c accrue.Chunk) (accrue.View, error) {
	f, err := os.Open(c.Dataset)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), fs.conf.MaxBufferSize)
	view := createView(c, fs.schema)
	var line int64
	for line < c.Stop && scanner.Scan() {
		if line >= c.Start {
			if err := view.appendLine(scanner.Bytes()); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", c.Dataset, line+1, err)
			}
		}
		line++
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if line < c.Stop {
		return nil, fmt.Errorf("%s has %d lines, chunk %s expected at least %d", c.Dataset, line, c, c.Stop)
	}
	return view, nil
}
