package model

import (
	"fmt"
	"math"
	"sort"
)

// Portfolio is a named collection of holdings: per-symbol target weights
// paired with their price series. Built incrementally; consumers (Monte
// Carlo engine, reporting) never mutate it.
type Portfolio struct {
	Name     string
	Holdings map[string]float64
	Series   map[string]*PriceSeries
}

// NewPortfolio creates an empty portfolio.
func NewPortfolio(name string) *Portfolio {
	return &Portfolio{
		Name:     name,
		Holdings: make(map[string]float64),
		Series:   make(map[string]*PriceSeries),
	}
}

// AddHolding adds a weighted holding. Weights outside [0, 1] are rejected.
// When the total weight exceeds 1 after the addition, all weights are
// renormalized to sum to 1.
func (p *Portfolio) AddHolding(symbol string, weight float64, series *PriceSeries) error {
	if weight < 0 || weight > 1 {
		return fmt.Errorf("weight for %s must be between 0 and 1, got %v", symbol, weight)
	}
	p.Holdings[symbol] = weight
	if series != nil {
		p.Series[symbol] = series
	}

	total := 0.0
	for _, w := range p.Holdings {
		total += w
	}
	if total > 1 {
		for sym := range p.Holdings {
			p.Holdings[sym] /= total
		}
	}
	return nil
}

// RemoveHolding removes a holding and its series.
func (p *Portfolio) RemoveHolding(symbol string) {
	delete(p.Holdings, symbol)
	delete(p.Series, symbol)
}

// Symbols returns the holding symbols in deterministic (sorted) order.
func (p *Portfolio) Symbols() []string {
	symbols := make([]string, 0, len(p.Holdings))
	for sym := range p.Holdings {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// TotalWeight returns the sum of all holding weights.
func (p *Portfolio) TotalWeight() float64 {
	total := 0.0
	for _, w := range p.Holdings {
		total += w
	}
	return total
}

// MissingSeries returns the weighted symbols that have no price series.
// Their absence is a warning condition for the reporting layer, not an
// error.
func (p *Portfolio) MissingSeries() []string {
	var missing []string
	for _, sym := range p.Symbols() {
		s, ok := p.Series[sym]
		if !ok || s.Len() == 0 {
			missing = append(missing, sym)
		}
	}
	return missing
}

// CommonDates returns the sorted calendar dates shared by every holding
// that has data.
func (p *Portfolio) CommonDates() []string {
	var common map[string]struct{}
	for _, sym := range p.Symbols() {
		s, ok := p.Series[sym]
		if !ok || s.Len() == 0 {
			continue
		}
		dates := make(map[string]struct{})
		for key := range s.ClosesByDate() {
			dates[key] = struct{}{}
		}
		if common == nil {
			common = dates
			continue
		}
		for key := range common {
			if _, ok := dates[key]; !ok {
				delete(common, key)
			}
		}
	}
	out := make([]string, 0, len(common))
	for key := range common {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Returns computes the portfolio's combined daily log-return series: the
// weight-sum of per-holding log-returns over the dates common to all
// holdings. Absent when there are no holdings or fewer than 2 common dates.
func (p *Portfolio) Returns() ([]float64, bool) {
	dates := p.CommonDates()
	if len(dates) < 2 {
		return nil, false
	}

	combined := make([]float64, len(dates)-1)
	for _, sym := range p.Symbols() {
		s, ok := p.Series[sym]
		if !ok || s.Len() == 0 {
			continue
		}
		weight := p.Holdings[sym]
		closes := s.ClosesByDate()
		for i := 1; i < len(dates); i++ {
			combined[i-1] += weight * math.Log(closes[dates[i]]/closes[dates[i-1]])
		}
	}
	return combined, true
}

// ValueSeries computes the historical portfolio value over the common date
// range, starting from initial. The first date carries the initial value.
func (p *Portfolio) ValueSeries(initial float64) (dates []string, values []float64, ok bool) {
	returns, ok := p.Returns()
	if !ok {
		return nil, nil, false
	}
	dates = p.CommonDates()
	values = make([]float64, len(returns)+1)
	values[0] = initial
	for i, r := range returns {
		values[i+1] = values[i] * math.Exp(r)
	}
	return dates, values, true
}
