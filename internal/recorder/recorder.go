// Package recorder persists analysis runs for later inspection.
package recorder

import "time"

// SeriesSummary captures the state of one series after cleaning.
type SeriesSummary struct {
	Symbol           string
	Source           string
	Points           int
	RemovedInvalid   int
	RemovedDuplicate int
	RemovedOutlier   int
	MeanReturn       float64
	Volatility       float64
	LatestClose      float64
}

// SimulationSummary captures the headline numbers of one Monte Carlo run.
type SimulationSummary struct {
	Target       string // portfolio name or symbol
	Kind         string // "portfolio" or "single"
	Simulations  int
	Days         int
	InitialValue float64
	MeanFinal    float64
	StdFinal     float64
	P5           float64
	P50          float64
	P95          float64
}

// RunSummary holds everything recorded for one analysis run.
type RunSummary struct {
	ID          string
	StartedAt   time.Time
	Portfolio   string
	Series      []SeriesSummary
	Simulations []SimulationSummary
	Warnings    []string
}

// Recorder persists run history for analysis.
type Recorder interface {
	RecordRun(run *RunSummary) error
	Close() error
}
