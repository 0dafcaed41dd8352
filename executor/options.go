package executor

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/go-sif/accrue/logging"
	"github.com/go-sif/accrue/stats"
	"sigs.k8s.io/yaml"
)

// ChunkErrorPolicy decides what happens to a Chunk which exhausted its retries
type ChunkErrorPolicy = string

const (
	// FailOnChunkError aborts the run
	FailOnChunkError ChunkErrorPolicy = "fail"
	// SkipOnChunkError records the Chunk as skipped and excludes it from the result
	SkipOnChunkError ChunkErrorPolicy = "skip"
)

// MergeOrder decides the order in which completed results are merged
type MergeOrder = string

const (
	// MergeInCompletionOrder merges each result as soon as its Task completes
	MergeInCompletionOrder MergeOrder = "completion"
	// MergeInChunkOrder buffers completed results and merges them by Chunk
	// index, so that Column accumulators are ordered like the source
	MergeInChunkOrder MergeOrder = "chunk"
)

// Options configure a run
type Options struct {
	MaxInFlight     int                  // number of chunks read but not yet merged or skipped
	Retries         int                  // how many times a failing Chunk is resubmitted
	RetryBackoff    time.Duration        // delay before the first retry, doubled for each subsequent one
	MaxRetryBackoff time.Duration        // upper bound for retry delays
	OnChunkError    ChunkErrorPolicy     // "fail" or "skip"
	PrefetchDepth   int                  // how many chunks to read ahead of the scheduler
	BestEffort      bool                 // iff true, aborted runs return their partial result
	MergeOrder      MergeOrder           // "completion" or "chunk"
	Progress        func(stats.Progress) // optional, called from the control loop after each merge or skip
	Logger          *logging.Logger      // defaults to logging.Default()
}

// CloneOptions makes a copy of an Options
func CloneOptions(opts *Options) *Options {
	if opts == nil {
		return &Options{}
	}
	clone := *opts
	return &clone
}

func ensureDefaultOptionsValues(opts *Options) error {
	if opts.MaxInFlight < 0 || opts.Retries < 0 || opts.PrefetchDepth < 0 {
		return fmt.Errorf("Options.MaxInFlight, Options.Retries and Options.PrefetchDepth must not be negative")
	}
	if opts.MaxInFlight == 0 {
		opts.MaxInFlight = 4
	}
	if opts.PrefetchDepth == 0 {
		opts.PrefetchDepth = opts.MaxInFlight
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = 100 * time.Millisecond
	}
	if opts.MaxRetryBackoff == 0 {
		opts.MaxRetryBackoff = 10 * time.Second
	}
	switch opts.OnChunkError {
	case "":
		opts.OnChunkError = FailOnChunkError
	case FailOnChunkError, SkipOnChunkError:
	default:
		return fmt.Errorf("%q is an unknown chunk error policy - must be %q or %q", opts.OnChunkError, FailOnChunkError, SkipOnChunkError)
	}
	switch opts.MergeOrder {
	case "":
		opts.MergeOrder = MergeInCompletionOrder
	case MergeInCompletionOrder, MergeInChunkOrder:
	default:
		return fmt.Errorf("%q is an unknown merge order - must be %q or %q", opts.MergeOrder, MergeInCompletionOrder, MergeInChunkOrder)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return nil
}

// optionsFile is the serialized form of Options
type optionsFile struct {
	MaxInFlight     int    `json:"max_in_flight"`
	Retries         int    `json:"retries"`
	RetryBackoff    string `json:"retry_backoff"`
	MaxRetryBackoff string `json:"max_retry_backoff"`
	OnChunkError    string `json:"on_chunk_error"`
	PrefetchDepth   int    `json:"prefetch_depth"`
	BestEffort      bool   `json:"best_effort"`
	MergeOrder      string `json:"merge_order"`
}

// ParseOptions reads Options from YAML (or JSON). Durations use Go syntax,
// e.g. "250ms". Unknown keys are rejected.
func ParseOptions(data []byte) (*Options, error) {
	var f optionsFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("unable to parse options: %w", err)
	}
	opts := &Options{
		MaxInFlight:   f.MaxInFlight,
		Retries:       f.Retries,
		OnChunkError:  f.OnChunkError,
		PrefetchDepth: f.PrefetchDepth,
		BestEffort:    f.BestEffort,
		MergeOrder:    f.MergeOrder,
	}
	var err error
	if len(f.RetryBackoff) > 0 {
		if opts.RetryBackoff, err = time.ParseDuration(f.RetryBackoff); err != nil {
			return nil, fmt.Errorf("invalid retry_backoff: %w", err)
		}
	}
	if len(f.MaxRetryBackoff) > 0 {
		if opts.MaxRetryBackoff, err = time.ParseDuration(f.MaxRetryBackoff); err != nil {
			return nil, fmt.Errorf("invalid max_retry_backoff: %w", err)
		}
	}
	if err = ensureDefaultOptionsValues(CloneOptions(opts)); err != nil {
		return nil, err
	}
	return opts, nil
}

// LoadOptions reads Options from a YAML file
func LoadOptions(path string) (*Options, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseOptions(data)
}
