package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-sif/accrue/accumulators"
	"github.com/go-sif/accrue/executor"
	"github.com/go-sif/accrue/stats"
	"github.com/spf13/cobra"
)

type runFlags struct {
	data        dataFlags
	backend     string
	workers     int
	optionsFile string
	progress    bool
}

func (f *runFlags) options() (*executor.Options, error) {
	opts := &executor.Options{}
	if len(f.optionsFile) > 0 {
		var err error
		if opts, err = executor.LoadOptions(f.optionsFile); err != nil {
			return nil, err
		}
	}
	if f.progress {
		last := time.Now()
		opts.Progress = func(p stats.Progress) {
			if time.Since(last) < time.Second {
				return
			}
			last = time.Now()
			fmt.Printf("%d chunks merged, %d skipped, %d events in %s\n", p.ChunksCompleted, p.ChunksSkipped, p.EventsProcessed, p.Elapsed)
		}
	}
	return opts, nil
}

func newRunCommand() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the job in this process, on the iterative or pool back-end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options()
			if err != nil {
				return err
			}
			job, newSource, err := f.data.build()
			if err != nil {
				return err
			}
			source, closeSource, err := newSource()
			if err != nil {
				return err
			}
			defer closeSource()
			var res *executor.Result
			switch f.backend {
			case "iterative":
				res, err = executor.IterativeExecutor(cmd.Context(), source, job, opts)
			case "pool":
				res, err = executor.FuturesExecutor(cmd.Context(), source, job, f.workers, opts)
			default:
				return fmt.Errorf("%q is an unknown backend - must be \"iterative\" or \"pool\"", f.backend)
			}
			if res != nil {
				printResult(cmd, res)
			}
			return err
		},
	}
	f.data.register(cmd)
	cmd.Flags().StringVar(&f.backend, "backend", "pool", "back-end to run on: iterative or pool")
	cmd.Flags().IntVar(&f.workers, "workers", 4, "number of pool workers")
	cmd.Flags().StringVar(&f.optionsFile, "options", "", "YAML file of executor options")
	cmd.Flags().BoolVar(&f.progress, "progress", false, "print progress every second")
	return cmd
}

func printResult(cmd *cobra.Command, res *executor.Result) {
	printf(cmd, "Run %s %s: %d chunks merged, %d skipped, %d attempts, %d events, %d bytes in %s\n",
		res.RunID, res.State, res.Stats.ChunksCompleted, res.Stats.ChunksSkipped, res.Stats.Attempts,
		res.Stats.EventsProcessed, res.Stats.BytesProcessed, res.Stats.Elapsed)
	for _, failure := range res.Skipped {
		printf(cmd, "  skipped %s after %d attempt(s): %v\n", failure.Chunk, failure.Attempts, failure.Err)
	}
	total, ok := res.Accumulator.(*accumulators.Dict)
	if !ok {
		return
	}
	if counts, ok := total.Lookup("counts"); ok {
		means, _ := total.Lookup("mean_energy")
		keys := counts.(*accumulators.Dict).Keys()
		sort.Slice(keys, func(i, j int) bool { return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j]) })
		for _, key := range keys {
			line := fmt.Sprintf("  %-10s %10v events", key, counts.(*accumulators.Dict).Get(key).(*accumulators.Value).Get())
			if means != nil {
				if mean, ok := means.(*accumulators.Dict).Lookup(key); ok {
					line += fmt.Sprintf(", mean energy %.2f", mean.(*accumulators.Value).Get())
				}
			}
			printf(cmd, "%s\n", line)
		}
	}
	if peak, ok := total.Lookup("peak"); ok {
		printf(cmd, "  peak energy %v\n", peak.(*accumulators.Value).Get())
	}
}
