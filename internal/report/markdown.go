// Package report renders analysis results as a Markdown document.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"PortfolioLab/internal/analytics"
	"PortfolioLab/internal/model"
	"PortfolioLab/internal/montecarlo"
)

// Data collects everything a report can show. Nil or empty fields skip their
// section.
type Data struct {
	Portfolio    *model.Portfolio
	Summaries    map[string]analytics.Summary
	PortfolioSim *montecarlo.Result
	SeriesSims   map[string]*montecarlo.Result
	Warnings     []string
	GeneratedAt  time.Time
}

// Options controls which optional sections render.
type Options struct {
	RiskFreeRate    float64
	InitialValue    float64
	IncludeStats    bool
	IncludeWarnings bool
}

// Generate renders the full Markdown report.
func Generate(d Data, opts Options) string {
	var b strings.Builder

	when := d.GeneratedAt
	if when.IsZero() {
		when = time.Now()
	}

	title := "Portfolio Analysis"
	if d.Portfolio != nil && d.Portfolio.Name != "" {
		title = d.Portfolio.Name
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Generated: %s\n\n", when.Format("2006-01-02 15:04"))

	if d.Portfolio != nil {
		writeComposition(&b, d.Portfolio)
	}
	if opts.IncludeStats && d.Portfolio != nil {
		writePortfolioStats(&b, d.Portfolio, opts)
	}
	if opts.IncludeStats && len(d.Summaries) > 0 {
		writeHoldingStats(&b, d.Summaries)
	}
	if d.PortfolioSim != nil {
		writeSimulation(&b, "Portfolio Projection", d.PortfolioSim)
	}
	for _, symbol := range sortedSimKeys(d.SeriesSims) {
		writeSimulation(&b, fmt.Sprintf("Projection: %s", symbol), d.SeriesSims[symbol])
	}
	if opts.IncludeWarnings && len(d.Warnings) > 0 {
		writeWarnings(&b, d.Warnings)
	}

	return b.String()
}

func writeComposition(b *strings.Builder, p *model.Portfolio) {
	b.WriteString("## Composition\n\n")
	b.WriteString("| Symbol | Weight | Name |\n")
	b.WriteString("|--------|-------:|------|\n")
	for _, sym := range p.Symbols() {
		name := sym
		if s := p.Series[sym]; s != nil && s.Name != "" {
			name = s.Name
		}
		fmt.Fprintf(b, "| %s | %.2f%% | %s |\n", sym, p.Holdings[sym]*100, name)
	}
	b.WriteString("\n")

	if total := p.TotalWeight(); total < 0.999 || total > 1.001 {
		fmt.Fprintf(b, "> Weights sum to %.2f%%, not 100%%.\n\n", total*100)
	}
}

func writePortfolioStats(b *strings.Builder, p *model.Portfolio, opts Options) {
	returns, ok := p.Returns()
	if !ok || len(returns) < 1 {
		return
	}

	mean := stat.Mean(returns, nil)
	std := 0.0
	if len(returns) > 1 {
		std = stat.StdDev(returns, nil)
	}

	annRet := analytics.AnnualizedReturn(mean)
	annVol := analytics.AnnualizedVolatility(std)

	b.WriteString("## Portfolio Statistics\n\n")
	fmt.Fprintf(b, "- Mean daily return: %.4f%%\n", mean*100)
	fmt.Fprintf(b, "- Daily volatility: %.4f%%\n", std*100)
	fmt.Fprintf(b, "- Annualized return: %.2f%%\n", annRet*100)
	fmt.Fprintf(b, "- Annualized volatility: %.2f%%\n", annVol*100)
	if sharpe, ok := analytics.SharpeRatio(annRet, annVol, opts.RiskFreeRate); ok {
		fmt.Fprintf(b, "- Sharpe ratio (rf %.2f%%): %.2f\n", opts.RiskFreeRate*100, sharpe)
	}

	initial := opts.InitialValue
	if initial <= 0 {
		initial = 10000
	}
	if _, values, ok := p.ValueSeries(initial); ok && len(values) > 0 {
		final := values[len(values)-1]
		fmt.Fprintf(b, "- Initial value: %.2f\n", initial)
		fmt.Fprintf(b, "- Final value: %.2f\n", final)
		fmt.Fprintf(b, "- Total return: %.2f%%\n", (final/initial-1)*100)
		if dd, ok := analytics.MaxDrawdown(values); ok {
			fmt.Fprintf(b, "- Max drawdown: %.2f%%\n", dd*100)
		}
	}
	b.WriteString("\n")
}

func writeHoldingStats(b *strings.Builder, summaries map[string]analytics.Summary) {
	b.WriteString("## Holdings\n\n")
	b.WriteString("| Symbol | Points | Last Close | Ann. Return | Ann. Volatility | Sharpe |\n")
	b.WriteString("|--------|-------:|-----------:|------------:|----------------:|-------:|\n")

	symbols := make([]string, 0, len(summaries))
	for sym := range summaries {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		s := summaries[sym]
		sharpe := "n/a"
		if s.HasSharpe {
			sharpe = fmt.Sprintf("%.2f", s.Sharpe)
		}
		fmt.Fprintf(b, "| %s | %d | %.2f | %.2f%% | %.2f%% | %s |\n",
			sym, s.Points, s.LatestClose, s.AnnualReturn*100, s.AnnualVolatility*100, sharpe)
	}
	b.WriteString("\n")
}

func writeSimulation(b *strings.Builder, heading string, res *montecarlo.Result) {
	fmt.Fprintf(b, "## %s\n\n", heading)
	fmt.Fprintf(b, "%d simulations over %d trading days from %.2f.\n\n",
		res.Simulations, res.Days, res.InitialValue)

	fmt.Fprintf(b, "- Mean final value: %.2f\n", res.MeanFinal)
	fmt.Fprintf(b, "- Std of final value: %.2f\n", res.StdFinal)
	fmt.Fprintf(b, "- Range: %.2f to %.2f\n\n", res.MinFinal, res.MaxFinal)

	if len(res.Percentiles) > 0 {
		b.WriteString("| Percentile | Final Value | Return |\n")
		b.WriteString("|-----------:|------------:|-------:|\n")
		for _, p := range res.Percentiles {
			ret := 0.0
			if res.InitialValue > 0 {
				ret = (p.Value/res.InitialValue - 1) * 100
			}
			fmt.Fprintf(b, "| %g%% | %.2f | %+.2f%% |\n", p.Level, p.Value, ret)
		}
		b.WriteString("\n")
	}

	if len(res.Excluded) > 0 {
		fmt.Fprintf(b, "> Excluded for lack of overlapping history: %s\n\n",
			strings.Join(res.Excluded, ", "))
	}
}

func writeWarnings(b *strings.Builder, warnings []string) {
	b.WriteString("## Warnings\n\n")
	for _, w := range warnings {
		fmt.Fprintf(b, "- %s\n", w)
	}
	b.WriteString("\n")
}

func sortedSimKeys(m map[string]*montecarlo.Result) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
