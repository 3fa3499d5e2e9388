package fetcher

import (
	"fmt"
	"sync"
	"time"

	"PortfolioLab/internal/model"
)

// FetchAll retrieves history for every symbol using up to workers concurrent
// fetches. Failed symbols do not abort the batch; each failure becomes a
// warning and the symbol is absent from the returned map.
func FetchAll(f Fetcher, symbols []string, start, end time.Time, workers int) (map[string]*model.PriceSeries, []string) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(symbols) {
		workers = len(symbols)
	}

	type outcome struct {
		symbol string
		series *model.PriceSeries
		err    error
	}

	jobs := make(chan string, len(symbols))
	results := make(chan outcome, len(symbols))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				series, err := f.FetchHistory(symbol, start, end)
				results <- outcome{symbol: symbol, series: series, err: err}
			}
		}()
	}

	for _, symbol := range symbols {
		jobs <- symbol
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[string]*model.PriceSeries, len(symbols))
	var warnings []string
	for r := range results {
		if r.err != nil {
			warnings = append(warnings, fmt.Sprintf("fetch %s: %v", r.symbol, r.err))
			continue
		}
		if r.series == nil || r.series.Len() == 0 {
			warnings = append(warnings, fmt.Sprintf("fetch %s: no data returned", r.symbol))
			continue
		}
		out[r.symbol] = r.series
	}
	return out, warnings
}
