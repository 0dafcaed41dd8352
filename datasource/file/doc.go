// Package file provides a chunked data source over a directory of JSON lines
// files on disk. Each file is divided into Chunks of a fixed number of lines,
// and columns are extracted lazily from each line using gjson paths.
package file
