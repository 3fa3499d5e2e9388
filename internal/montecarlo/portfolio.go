package montecarlo

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"PortfolioLab/internal/model"
)

// covarianceRidge is added to the covariance diagonal when the first
// Cholesky factorization fails. Perfectly correlated holdings produce a
// singular matrix that the ridge makes decomposable.
const covarianceRidge = 1e-10

// SimulatePortfolio projects a whole portfolio with correlated asset shocks.
// Holdings whose history would empty the common date range are excluded with
// a warning, and their weight is not redistributed.
func (s *Simulator) SimulatePortfolio(p *model.Portfolio, days, sims int, initial float64) (*Result, error) {
	if p == nil || len(p.Holdings) == 0 {
		return nil, fmt.Errorf("%w: portfolio has no holdings", ErrInsufficientHistory)
	}
	if days <= 0 || sims <= 0 {
		return nil, fmt.Errorf("montecarlo: days and simulations must be positive, got %d and %d", days, sims)
	}
	if initial <= 0 {
		return nil, fmt.Errorf("montecarlo: initial value must be positive, got %g", initial)
	}

	symbols, dates, excluded := s.overlappingHoldings(p)
	if len(symbols) == 0 || len(dates) < 2 {
		return nil, fmt.Errorf("%w: portfolio holdings share fewer than 2 dates", ErrInsufficientHistory)
	}

	// Per-asset log-returns over the shared calendar.
	nAssets := len(symbols)
	nReturns := len(dates) - 1
	returns := make([][]float64, nAssets)
	means := make([]float64, nAssets)
	for i, sym := range symbols {
		closes := p.Series[sym].ClosesByDate()
		r := make([]float64, nReturns)
		for d := 1; d < len(dates); d++ {
			prev, cur := closes[dates[d-1]], closes[dates[d]]
			v := math.Log(cur / prev)
			if !finite(v) {
				return nil, fmt.Errorf("%w: symbol %q has non-finite returns", ErrNoVariability, sym)
			}
			r[d-1] = v
		}
		if stat.StdDev(r, nil) == 0 {
			return nil, fmt.Errorf("%w: symbol %q", ErrNoVariability, sym)
		}
		returns[i] = r
		means[i] = stat.Mean(r, nil)
	}

	lower, err := s.factorCovariance(symbols, returns)
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Int("assets", nAssets).
		Int("common_dates", len(dates)).
		Int("days", days).
		Int("simulations", sims).
		Strs("excluded", excluded).
		Msg("running portfolio simulation")

	std := distuv.Normal{Mu: 0, Sigma: 1, Src: s.src}

	paths := make([][]float64, sims)
	terminal := make([]float64, sims)
	z := make([]float64, nAssets)
	shock := make([]float64, nAssets)
	cum := make([]float64, nAssets)
	for i := range paths {
		path := make([]float64, days)
		for a := range cum {
			cum[a] = 0
		}
		for d := 0; d < days; d++ {
			for a := range z {
				z[a] = std.Rand()
			}
			correlate(lower, z, shock)
			var total float64
			for a, sym := range symbols {
				cum[a] += means[a] + shock[a]
				total += p.Holdings[sym] * initial * math.Exp(cum[a])
			}
			path[d] = total
		}
		paths[i] = path
		terminal[i] = path[days-1]
	}

	res := s.summarize(terminal, paths, days, initial)
	res.Symbol = p.Name
	res.Excluded = excluded
	return res, nil
}

// overlappingHoldings walks holdings in symbol order, intersecting their
// calendar dates. A holding that would leave the intersection empty is
// skipped and reported instead of sinking the whole run.
func (s *Simulator) overlappingHoldings(p *model.Portfolio) (symbols, dates, excluded []string) {
	var common map[string]struct{}
	for _, sym := range p.Symbols() {
		series := p.Series[sym]
		if series == nil || series.Len() < 2 {
			excluded = append(excluded, sym)
			s.log.Warn().Str("symbol", sym).Msg("holding excluded: insufficient history")
			continue
		}

		keys := make(map[string]struct{}, series.Len())
		for _, pt := range series.Points {
			keys[pt.DateKey()] = struct{}{}
		}

		if common == nil {
			common = keys
			symbols = append(symbols, sym)
			continue
		}

		next := make(map[string]struct{})
		for k := range common {
			if _, ok := keys[k]; ok {
				next[k] = struct{}{}
			}
		}
		if len(next) < 2 {
			excluded = append(excluded, sym)
			s.log.Warn().Str("symbol", sym).Msg("holding excluded: no overlapping dates")
			continue
		}
		common = next
		symbols = append(symbols, sym)
	}

	dates = make([]string, 0, len(common))
	for k := range common {
		dates = append(dates, k)
	}
	sort.Strings(dates)
	return symbols, dates, excluded
}

// factorCovariance builds the sample covariance of the return columns and
// returns its lower Cholesky factor. A failed factorization is retried once
// with a small diagonal ridge.
func (s *Simulator) factorCovariance(symbols []string, returns [][]float64) (*mat.TriDense, error) {
	n := len(symbols)
	cols := mat.NewDense(len(returns[0]), n, nil)
	for a := range returns {
		cols.SetCol(a, returns[a])
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, cols, nil)

	var chol mat.Cholesky
	if chol.Factorize(cov) {
		lower := mat.NewTriDense(n, mat.Lower, nil)
		chol.LTo(lower)
		return lower, nil
	}

	s.log.Warn().Msg("covariance factorization failed, retrying with diagonal ridge")
	for a := 0; a < n; a++ {
		cov.SetSym(a, a, cov.At(a, a)+covarianceRidge)
	}
	if chol.Factorize(cov) {
		lower := mat.NewTriDense(n, mat.Lower, nil)
		chol.LTo(lower)
		return lower, nil
	}
	return nil, fmt.Errorf("%w: %d assets", ErrCovarianceFactorization, n)
}

// correlate writes L*z into dst.
func correlate(lower *mat.TriDense, z, dst []float64) {
	n := len(z)
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j <= i; j++ {
			sum += lower.At(i, j) * z[j]
		}
		dst[i] = sum
	}
}
