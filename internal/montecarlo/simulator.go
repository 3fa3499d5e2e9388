// Package montecarlo projects future price paths from historical return
// statistics, for single assets and for correlated portfolios.
package montecarlo

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat/distuv"

	"PortfolioLab/internal/analytics"
	"PortfolioLab/internal/model"
)

var (
	// ErrInsufficientHistory means a series has fewer than two usable points.
	ErrInsufficientHistory = errors.New("montecarlo: insufficient price history")
	// ErrNoVariability means the return history carries no usable signal.
	ErrNoVariability = errors.New("montecarlo: return history has no variability")
	// ErrCovarianceFactorization means the asset covariance matrix could not
	// be decomposed even after regularization.
	ErrCovarianceFactorization = errors.New("montecarlo: covariance matrix is not positive definite")
)

// DefaultPercentileLevels are reported for every simulation unless the
// caller overrides them.
var DefaultPercentileLevels = []float64{5, 25, 50, 75, 95}

// PercentileValue is one percentile of the terminal value distribution.
type PercentileValue struct {
	Level float64
	Value float64
}

// Result holds the outcome of one simulation run.
type Result struct {
	Symbol       string
	Simulations  int
	Days         int
	InitialValue float64
	// Paths is Simulations rows of Days values each.
	Paths       [][]float64
	Terminal    []float64
	MeanFinal   float64
	StdFinal    float64
	MinFinal    float64
	MaxFinal    float64
	Percentiles []PercentileValue
	// Excluded lists portfolio holdings dropped for lack of overlapping
	// history. Empty for single-asset runs.
	Excluded []string
}

// Simulator draws geometric Brownian price paths. A Simulator is not safe
// for concurrent use.
type Simulator struct {
	levels []float64
	src    rand.Source
	log    zerolog.Logger
}

// NewSimulator builds a simulator reporting the given percentile levels.
// A zero seed draws a fresh seed from the clock.
func NewSimulator(seed int64, levels []float64, log zerolog.Logger) *Simulator {
	if len(levels) == 0 {
		levels = DefaultPercentileLevels
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		levels: append([]float64(nil), levels...),
		src:    rand.NewPCG(uint64(seed), uint64(seed)>>1|1),
		log:    log.With().Str("component", "montecarlo").Logger(),
	}
}

// Simulate projects a single asset over days trading days. When initial is
// not positive the latest close of the series is used as the starting value.
func (s *Simulator) Simulate(series *model.PriceSeries, days, sims int, initial float64) (*Result, error) {
	if series == nil || series.Len() < 2 {
		return nil, fmt.Errorf("%w: symbol %q", ErrInsufficientHistory, symbolOf(series))
	}
	if days <= 0 || sims <= 0 {
		return nil, fmt.Errorf("montecarlo: days and simulations must be positive, got %d and %d", days, sims)
	}

	stats := series.Stats()
	if stats == nil {
		return nil, fmt.Errorf("%w: symbol %q", ErrInsufficientHistory, series.Symbol)
	}
	if !finite(stats.Mean) || !finite(stats.Std) {
		return nil, fmt.Errorf("%w: symbol %q has non-finite return statistics", ErrNoVariability, series.Symbol)
	}
	if stats.Std == 0 {
		return nil, fmt.Errorf("%w: symbol %q", ErrNoVariability, series.Symbol)
	}

	if initial <= 0 {
		latest, ok := series.LatestClose()
		if !ok {
			return nil, fmt.Errorf("%w: symbol %q", ErrInsufficientHistory, series.Symbol)
		}
		initial = latest
	}

	s.log.Debug().
		Str("symbol", series.Symbol).
		Int("days", days).
		Int("simulations", sims).
		Float64("initial", initial).
		Msg("running single-asset simulation")

	normal := distuv.Normal{Mu: stats.Mean, Sigma: stats.Std, Src: s.src}

	paths := make([][]float64, sims)
	terminal := make([]float64, sims)
	for i := range paths {
		path := make([]float64, days)
		value := initial
		for d := 0; d < days; d++ {
			value *= math.Exp(normal.Rand())
			path[d] = value
		}
		paths[i] = path
		terminal[i] = value
	}

	res := s.summarize(terminal, paths, days, initial)
	res.Symbol = series.Symbol
	return res, nil
}

func (s *Simulator) summarize(terminal []float64, paths [][]float64, days int, initial float64) *Result {
	res := &Result{
		Simulations:  len(terminal),
		Days:         days,
		InitialValue: initial,
		Paths:        paths,
		Terminal:     terminal,
		MinFinal:     math.Inf(1),
		MaxFinal:     math.Inf(-1),
	}

	var sum, sumSq float64
	for _, v := range terminal {
		sum += v
		sumSq += v * v
		if v < res.MinFinal {
			res.MinFinal = v
		}
		if v > res.MaxFinal {
			res.MaxFinal = v
		}
	}
	n := float64(len(terminal))
	res.MeanFinal = sum / n
	if n > 1 {
		variance := (sumSq - sum*sum/n) / (n - 1)
		if variance > 0 {
			res.StdFinal = math.Sqrt(variance)
		}
	}

	for _, level := range s.levels {
		if p, ok := analytics.Percentile(terminal, level); ok {
			res.Percentiles = append(res.Percentiles, PercentileValue{Level: level, Value: p})
		}
	}
	return res
}

func symbolOf(s *model.PriceSeries) string {
	if s == nil {
		return ""
	}
	return s.Symbol
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
