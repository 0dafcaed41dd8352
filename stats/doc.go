// Package stats exposes progress and summary statistics for executor runs
package stats
