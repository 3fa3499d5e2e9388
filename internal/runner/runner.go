// Package runner wires fetching, cleaning, analysis, simulation and
// reporting into one analysis run.
package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"PortfolioLab/internal/analytics"
	"PortfolioLab/internal/charts"
	"PortfolioLab/internal/cleaner"
	"PortfolioLab/internal/config"
	"PortfolioLab/internal/fetcher"
	"PortfolioLab/internal/model"
	"PortfolioLab/internal/montecarlo"
	"PortfolioLab/internal/recorder"
	"PortfolioLab/internal/report"
)

const dateLayout = "2006-01-02"

// Runner executes one full analysis pipeline per Run call.
type Runner struct {
	cfg   *config.Config
	fetch fetcher.Fetcher
	rec   recorder.Recorder
	log   zerolog.Logger
}

// New creates a runner with its collaborators injected.
func New(cfg *config.Config, fetch fetcher.Fetcher, rec recorder.Recorder, log zerolog.Logger) *Runner {
	return &Runner{
		cfg:   cfg,
		fetch: fetch,
		rec:   rec,
		log:   log.With().Str("component", "runner").Logger(),
	}
}

// Run executes the pipeline: fetch, clean, analyze, simulate, report.
// Per-symbol failures become warnings; Run fails only when nothing at all
// can be analyzed.
func (r *Runner) Run() error {
	started := time.Now()
	runID := uuid.NewString()
	r.log.Info().Str("run_id", runID).Msg("analysis run started")

	warnings := append([]string(nil), r.cfg.Warnings()...)

	start, end, err := r.period()
	if err != nil {
		return err
	}

	symbols := make([]string, 0, len(r.cfg.AllSymbols()))
	for _, s := range r.cfg.AllSymbols() {
		symbols = append(symbols, fetcher.ResolveIndex(s))
	}

	workers := 1
	if r.cfg.Extraction.Parallel {
		workers = r.cfg.Extraction.MaxWorkers
	}
	raw, fetchWarnings := fetcher.FetchAll(r.fetch, symbols, start, end, workers)
	warnings = append(warnings, fetchWarnings...)
	if len(raw) == 0 {
		return fmt.Errorf("runner: no data fetched for any symbol")
	}

	cleaned, seriesSummaries := r.cleanAll(raw, &warnings)

	portfolio := r.buildPortfolio(cleaned, &warnings)

	summaries := make(map[string]analytics.Summary, len(cleaned))
	for sym, s := range cleaned {
		if sum, ok := analytics.Summarize(s, r.cfg.Report.RiskFreeRate); ok {
			summaries[sym] = sum
		}
	}

	sim := montecarlo.NewSimulator(r.cfg.MonteCarlo.Seed, r.cfg.MonteCarlo.ConfidenceLevels, r.log)
	portfolioSim, seriesSims := r.simulate(sim, portfolio, cleaned, &warnings)

	data := report.Data{
		Portfolio:    portfolio,
		Summaries:    summaries,
		PortfolioSim: portfolioSim,
		SeriesSims:   seriesSims,
		Warnings:     warnings,
		GeneratedAt:  started,
	}
	opts := report.Options{
		RiskFreeRate:    r.cfg.Report.RiskFreeRate,
		InitialValue:    r.cfg.MonteCarlo.InitialValue,
		IncludeStats:    r.cfg.Report.IncludeStats,
		IncludeWarnings: r.cfg.Report.IncludeWarnings,
	}
	if err := r.writeReport(report.Generate(data, opts)); err != nil {
		return err
	}

	if r.cfg.Charts.Enabled {
		r.renderCharts(portfolio, portfolioSim, seriesSims, &warnings)
	}

	if err := r.record(runID, started, seriesSummaries, portfolioSim, seriesSims, warnings); err != nil {
		r.log.Error().Err(err).Msg("record run failed")
	}

	r.log.Info().
		Str("run_id", runID).
		Int("symbols", len(cleaned)).
		Int("warnings", len(warnings)).
		Dur("elapsed", time.Since(started)).
		Msg("analysis run finished")
	return nil
}

func (r *Runner) period() (time.Time, time.Time, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if r.cfg.Period.End != "" {
		parsed, err := time.Parse(dateLayout, r.cfg.Period.End)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("runner: parse period.end: %w", err)
		}
		end = parsed
	}
	start := end.AddDate(-1, 0, 0)
	if r.cfg.Period.Start != "" {
		parsed, err := time.Parse(dateLayout, r.cfg.Period.Start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("runner: parse period.start: %w", err)
		}
		start = parsed
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("runner: period start %s is not before end %s",
			start.Format(dateLayout), end.Format(dateLayout))
	}
	return start, end, nil
}

func (r *Runner) cleanAll(raw map[string]*model.PriceSeries, warnings *[]string) (map[string]*model.PriceSeries, []recorder.SeriesSummary) {
	opts := cleaner.Options{
		RemoveDuplicates: r.cfg.Cleaning.RemoveDuplicates,
		RemoveOutliers:   r.cfg.Cleaning.RemoveOutliers,
		OutlierThreshold: r.cfg.Cleaning.OutlierThreshold,
	}

	cleaned := make(map[string]*model.PriceSeries, len(raw))
	summaries := make([]recorder.SeriesSummary, 0, len(raw))
	for sym, s := range raw {
		out, res := cleaner.Clean(s, opts)
		if res.Total() > 0 {
			r.log.Debug().
				Str("symbol", sym).
				Int("invalid", res.InvalidRemoved).
				Int("duplicates", res.DuplicatesRemoved).
				Int("outliers", res.OutliersRemoved).
				Msg("series cleaned")
		}
		if out.Len() == 0 {
			*warnings = append(*warnings, fmt.Sprintf("%s: no valid points after cleaning", sym))
			continue
		}
		cleaned[sym] = out

		sum := recorder.SeriesSummary{
			Symbol:           sym,
			Source:           out.Source,
			Points:           out.Len(),
			RemovedInvalid:   res.InvalidRemoved,
			RemovedDuplicate: res.DuplicatesRemoved,
			RemovedOutlier:   res.OutliersRemoved,
		}
		if stats := out.Stats(); stats != nil {
			sum.MeanReturn = stats.Mean
			sum.Volatility = stats.Std
		}
		if latest, ok := out.LatestClose(); ok {
			sum.LatestClose = latest
		}
		summaries = append(summaries, sum)
	}
	return cleaned, summaries
}

// buildPortfolio assembles holdings from configured weights, or equal
// weights over everything fetched when no weights are configured.
func (r *Runner) buildPortfolio(cleaned map[string]*model.PriceSeries, warnings *[]string) *model.Portfolio {
	p := model.NewPortfolio(r.cfg.Portfolio.Name)

	if len(r.cfg.Portfolio.Weights) > 0 {
		for sym, w := range r.cfg.Portfolio.Weights {
			resolved := fetcher.ResolveIndex(sym)
			series, ok := cleaned[resolved]
			if !ok {
				*warnings = append(*warnings, fmt.Sprintf("portfolio: no data for weighted holding %s", sym))
				continue
			}
			if err := p.AddHolding(resolved, w, series); err != nil {
				*warnings = append(*warnings, fmt.Sprintf("portfolio: %v", err))
			}
		}
		return p
	}

	if len(cleaned) == 0 {
		return p
	}
	w := 1.0 / float64(len(cleaned))
	for sym, series := range cleaned {
		if err := p.AddHolding(sym, w, series); err != nil {
			*warnings = append(*warnings, fmt.Sprintf("portfolio: %v", err))
		}
	}
	return p
}

func (r *Runner) simulate(sim *montecarlo.Simulator, portfolio *model.Portfolio, cleaned map[string]*model.PriceSeries, warnings *[]string) (*montecarlo.Result, map[string]*montecarlo.Result) {
	mc := r.cfg.MonteCarlo

	var portfolioSim *montecarlo.Result
	seriesSims := make(map[string]*montecarlo.Result)

	single := func(sym string) {
		series, ok := cleaned[fetcher.ResolveIndex(sym)]
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("simulation: no data for %s", sym))
			return
		}
		res, err := sim.Simulate(series, mc.Days, mc.Simulations, 0)
		if err != nil {
			*warnings = append(*warnings, fmt.Sprintf("simulation %s: %v", sym, err))
			r.log.Warn().Str("symbol", sym).Err(err).Msg("single-asset simulation failed")
			return
		}
		seriesSims[series.Symbol] = res
	}

	runPortfolio := func() {
		res, err := sim.SimulatePortfolio(portfolio, mc.Days, mc.Simulations, mc.InitialValue)
		if err != nil {
			*warnings = append(*warnings, fmt.Sprintf("portfolio simulation: %v", err))
			r.log.Warn().Err(err).Msg("portfolio simulation failed")
			return
		}
		for _, sym := range res.Excluded {
			*warnings = append(*warnings, fmt.Sprintf("portfolio simulation: %s excluded for lack of overlapping history", sym))
		}
		portfolioSim = res
	}

	switch mc.Mode {
	case config.ModePortfolio:
		runPortfolio()
	case config.ModeSingle:
		single(mc.Symbol)
	case config.ModeSelection:
		for _, sym := range mc.Symbols {
			single(sym)
		}
	case config.ModeAll:
		runPortfolio()
		for sym := range cleaned {
			single(sym)
		}
	}

	return portfolioSim, seriesSims
}

func (r *Runner) writeReport(content string) error {
	path := r.cfg.Report.OutputPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("runner: create report dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("runner: write report: %w", err)
	}
	r.log.Info().Str("path", path).Msg("report written")
	return nil
}

func (r *Runner) renderCharts(portfolio *model.Portfolio, portfolioSim *montecarlo.Result, seriesSims map[string]*montecarlo.Result, warnings *[]string) {
	renderer, err := charts.NewRenderer(r.cfg.Charts.Dir, r.log)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("charts: %v", err))
		return
	}

	warn := func(err error) {
		if err != nil {
			*warnings = append(*warnings, err.Error())
			r.log.Warn().Err(err).Msg("chart rendering failed")
		}
	}

	if portfolioSim != nil {
		_, err := renderer.MonteCarloChart(portfolioSim, "portfolio_montecarlo.png")
		warn(err)
		_, err = renderer.TerminalHistogram(portfolioSim, "portfolio_distribution.png")
		warn(err)
	}
	for sym, res := range seriesSims {
		_, err := renderer.MonteCarloChart(res, fmt.Sprintf("%s_montecarlo.png", sanitizeFilename(sym)))
		warn(err)
	}
	if portfolio != nil && len(portfolio.Holdings) > 0 {
		_, err := renderer.PortfolioValueChart(portfolio, r.cfg.MonteCarlo.InitialValue, "portfolio_value.png")
		warn(err)
		_, err = renderer.HoldingsChart(portfolio, "holdings.png")
		warn(err)
	}
}

func (r *Runner) record(runID string, started time.Time, series []recorder.SeriesSummary, portfolioSim *montecarlo.Result, seriesSims map[string]*montecarlo.Result, warnings []string) error {
	run := &recorder.RunSummary{
		ID:        runID,
		StartedAt: started,
		Portfolio: r.cfg.Portfolio.Name,
		Series:    series,
		Warnings:  warnings,
	}
	if portfolioSim != nil {
		run.Simulations = append(run.Simulations, simSummary(portfolioSim, "portfolio"))
	}
	for _, res := range seriesSims {
		run.Simulations = append(run.Simulations, simSummary(res, "single"))
	}
	return r.rec.RecordRun(run)
}

func simSummary(res *montecarlo.Result, kind string) recorder.SimulationSummary {
	sum := recorder.SimulationSummary{
		Target:       res.Symbol,
		Kind:         kind,
		Simulations:  res.Simulations,
		Days:         res.Days,
		InitialValue: res.InitialValue,
		MeanFinal:    res.MeanFinal,
		StdFinal:     res.StdFinal,
	}
	// Recorded columns are fixed at 5/50/95 regardless of the configured
	// report levels.
	if v, ok := analytics.Percentile(res.Terminal, 5); ok {
		sum.P5 = v
	}
	if v, ok := analytics.Percentile(res.Terminal, 50); ok {
		sum.P50 = v
	}
	if v, ok := analytics.Percentile(res.Terminal, 95); ok {
		sum.P95 = v
	}
	return sum
}

func sanitizeFilename(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
