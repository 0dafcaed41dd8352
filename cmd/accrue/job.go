package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/accumulators"
	"github.com/go-sif/accrue/datasource/file"
	"github.com/go-sif/accrue/datasource/manifest"
	"github.com/go-sif/accrue/datasource/memory"
	"github.com/spf13/cobra"
)

var categories = []string{"electron", "muon", "photon", "jet", "tau"}

// dataFlags select the data a job runs over. Every node of a cluster must be
// given the same dataFlags.
type dataFlags struct {
	events    int
	chunkSize int
	seed      int64
	input     string
	manifest  string
}

func (f *dataFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.events, "events", 100000, "number of synthetic events to generate")
	cmd.Flags().IntVar(&f.chunkSize, "chunk-size", 10000, "number of events per chunk")
	cmd.Flags().Int64Var(&f.seed, "seed", 1, "random seed for synthetic events")
	cmd.Flags().StringVar(&f.input, "input", "", "glob of JSON lines files with \"category\" and \"energy\" fields, instead of synthetic events")
	cmd.Flags().StringVar(&f.manifest, "manifest", "", "JSON lines manifest of chunks to process, instead of chunking --input")
}

// build creates the Job, and a function producing its ChunkSource
func (f *dataFlags) build() (*accrue.Job, func() (accrue.ChunkSource, func(), error), error) {
	var loader accrue.ChunkLoader
	var analyze func() (accrue.ChunkSource, error)
	if len(f.input) > 0 {
		ds := file.CreateDataSource(f.input, file.Schema{"category": file.String, "energy": file.Float64}, &file.Conf{ChunkSize: f.chunkSize})
		loader = ds
		analyze = func() (accrue.ChunkSource, error) {
			cm, err := ds.Analyze()
			if err != nil {
				return nil, err
			}
			return cm, nil
		}
	} else {
		ds, err := syntheticDataSource(f.events, f.chunkSize, f.seed)
		if err != nil {
			return nil, nil, err
		}
		loader = ds
		analyze = func() (accrue.ChunkSource, error) { return ds.Analyze(), nil }
	}
	job := &accrue.Job{Loader: loader, Processor: &categoryProcessor{}}
	source := func() (accrue.ChunkSource, func(), error) {
		if len(f.manifest) == 0 {
			s, err := analyze()
			return s, func() {}, err
		}
		m, err := os.Open(f.manifest)
		if err != nil {
			return nil, nil, err
		}
		return manifest.CreateReader(m, nil), func() { m.Close() }, nil
	}
	return job, source, nil
}

func syntheticDataSource(events int, chunkSize int, seed int64) (*memory.DataSource, error) {
	rng := rand.New(rand.NewSource(seed))
	category := make([]string, events)
	energy := make([]float64, events)
	for i := 0; i < events; i++ {
		category[i] = categories[rng.Intn(len(categories))]
		energy[i] = rng.ExpFloat64() * 50
	}
	return memory.CreateDataSource("synthetic", map[string]interface{}{
		"category": category,
		"energy":   energy,
	}, chunkSize)
}

// categoryProcessor counts events and sums their energy, per category
type categoryProcessor struct{}

func (p *categoryProcessor) Process(view accrue.View) (accrue.Accumulator, error) {
	catCol, err := view.Column("category")
	if err != nil {
		return nil, err
	}
	energyCol, err := view.Column("energy")
	if err != nil {
		return nil, err
	}
	cats, energies := catCol.([]string), energyCol.([]float64)
	counts := accumulators.NewDefaultDict(func() accrue.Accumulator { return accumulators.NewValue(0) })
	energy := accumulators.NewDefaultDict(func() accrue.Accumulator { return accumulators.NewValue(0.0) })
	peak := accumulators.NewValueOp(accumulators.Max, nil)
	for i, cat := range cats {
		if err := counts.Accumulate(cat, accumulators.NewValue(1)); err != nil {
			return nil, err
		}
		if err := energy.Accumulate(cat, accumulators.NewValue(energies[i])); err != nil {
			return nil, err
		}
		if err := peak.Combine(accumulators.NewValueOp(accumulators.Max, energies[i])); err != nil {
			return nil, err
		}
	}
	out := accumulators.NewDict()
	out.Set("counts", counts)
	out.Set("energy", energy)
	out.Set("peak", peak)
	out.Set("datasets", accumulators.NewSet(view.Chunk().Dataset))
	return out, nil
}

// PostProcess replaces summed energies with mean energies
func (p *categoryProcessor) PostProcess(total accrue.Accumulator) (accrue.Accumulator, error) {
	out, ok := total.(*accumulators.Dict)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T", total)
	}
	counts, ok := out.Lookup("counts")
	if !ok {
		return out, nil
	}
	energy, _ := out.Lookup("energy")
	means := accumulators.NewDict()
	for _, key := range counts.(*accumulators.Dict).Keys() {
		n := counts.(*accumulators.Dict).Get(key).(*accumulators.Value).Get().(int)
		sum := energy.(*accumulators.Dict).Get(key).(*accumulators.Value).Get().(float64)
		means.Set(key, accumulators.NewValue(sum/float64(n)))
	}
	out.Set("mean_energy", means)
	out.Delete("energy")
	return out, nil
}
