// Package accrue contains the core components of Accrue, a framework for running
// a per-chunk analysis function over an arbitrarily large dataset and merging the
// partial results. This root package defines the types employed during regular use
// of the framework (Accumulators, Chunks, Processors) and is an overview of its key
// concepts. Accumulator implementations live in the accumulators package, and the
// execution back-ends in the executor and cluster packages.
package accrue
