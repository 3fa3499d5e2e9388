// Package charts renders analysis results as PNG images.
package charts

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"PortfolioLab/internal/model"
	"PortfolioLab/internal/montecarlo"
)

// maxPlottedPaths caps how many sample paths a simulation chart draws.
const maxPlottedPaths = 100

var pathColor = color.RGBA{R: 120, G: 120, B: 200, A: 60}

// Renderer writes chart PNGs into a directory.
type Renderer struct {
	dir string
	log zerolog.Logger
}

// NewRenderer creates a renderer writing into dir, creating it if needed.
func NewRenderer(dir string, log zerolog.Logger) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("charts: create output dir: %w", err)
	}
	return &Renderer{
		dir: dir,
		log: log.With().Str("component", "charts").Logger(),
	}, nil
}

// MonteCarloChart draws a sample of simulated paths with analytic percentile
// trajectories overlaid. It returns the written file path.
func (r *Renderer) MonteCarloChart(res *montecarlo.Result, filename string) (string, error) {
	if res == nil || len(res.Paths) == 0 {
		return "", fmt.Errorf("charts: no paths to draw")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Monte Carlo: %s (%d simulations, %d days)",
		res.Symbol, res.Simulations, res.Days)
	p.X.Label.Text = "Trading day"
	p.Y.Label.Text = "Value"

	step := 1
	if len(res.Paths) > maxPlottedPaths {
		step = len(res.Paths) / maxPlottedPaths
	}
	for i := 0; i < len(res.Paths); i += step {
		line, err := plotter.NewLine(pathXYs(res.InitialValue, res.Paths[i]))
		if err != nil {
			return "", fmt.Errorf("charts: build path line: %w", err)
		}
		line.Color = pathColor
		p.Add(line)
	}

	if err := r.addPercentileTrajectories(p, res); err != nil {
		return "", err
	}

	return r.save(p, filename, 10*vg.Inch, 6*vg.Inch)
}

// addPercentileTrajectories overlays the value each reported percentile
// would follow under the fitted drift and volatility.
func (r *Renderer) addPercentileTrajectories(p *plot.Plot, res *montecarlo.Result) error {
	if len(res.Percentiles) == 0 || res.Days < 1 || res.InitialValue <= 0 {
		return nil
	}

	mu, sigma, ok := fitLogParams(res)
	if !ok {
		return nil
	}

	std := distuv.Normal{Mu: 0, Sigma: 1}
	for _, pct := range res.Percentiles {
		z := std.Quantile(pct.Level / 100)
		pts := make(plotter.XYs, res.Days+1)
		pts[0] = plotter.XY{X: 0, Y: res.InitialValue}
		for d := 1; d <= res.Days; d++ {
			t := float64(d)
			pts[d] = plotter.XY{
				X: t,
				Y: res.InitialValue * math.Exp(mu*t+sigma*math.Sqrt(t)*z),
			}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("charts: build percentile line: %w", err)
		}
		line.Width = vg.Points(2)
		line.Color = color.RGBA{R: 200, G: 60, B: 60, A: 255}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("p%g", pct.Level), line)
	}
	return nil
}

// fitLogParams recovers per-day drift and volatility of the terminal
// log-value distribution from the simulated outcomes.
func fitLogParams(res *montecarlo.Result) (mu, sigma float64, ok bool) {
	if len(res.Terminal) < 2 || res.InitialValue <= 0 {
		return 0, 0, false
	}
	logs := make([]float64, 0, len(res.Terminal))
	for _, v := range res.Terminal {
		if v <= 0 {
			return 0, 0, false
		}
		logs = append(logs, math.Log(v/res.InitialValue))
	}
	var sum float64
	for _, l := range logs {
		sum += l
	}
	mean := sum / float64(len(logs))
	var sq float64
	for _, l := range logs {
		sq += (l - mean) * (l - mean)
	}
	variance := sq / float64(len(logs)-1)
	t := float64(res.Days)
	if t <= 0 || variance < 0 {
		return 0, 0, false
	}
	return mean / t, math.Sqrt(variance / t), true
}

// TerminalHistogram draws the distribution of final values.
func (r *Renderer) TerminalHistogram(res *montecarlo.Result, filename string) (string, error) {
	if res == nil || len(res.Terminal) == 0 {
		return "", fmt.Errorf("charts: no terminal values to draw")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Final Value Distribution: %s", res.Symbol)
	p.X.Label.Text = "Final value"
	p.Y.Label.Text = "Count"

	values := make(plotter.Values, len(res.Terminal))
	copy(values, res.Terminal)

	bins := 30
	if len(values) < bins {
		bins = len(values)
	}
	hist, err := plotter.NewHist(values, bins)
	if err != nil {
		return "", fmt.Errorf("charts: build histogram: %w", err)
	}
	p.Add(hist)

	return r.save(p, filename, 8*vg.Inch, 5*vg.Inch)
}

// PortfolioValueChart draws the historical value of the portfolio from an
// initial investment.
func (r *Renderer) PortfolioValueChart(pf *model.Portfolio, initial float64, filename string) (string, error) {
	dates, values, ok := pf.ValueSeries(initial)
	if !ok || len(values) == 0 {
		return "", fmt.Errorf("charts: portfolio has no common history")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Portfolio Value: %s", pf.Name)
	p.X.Label.Text = fmt.Sprintf("Trading day (%s to %s)", dates[0], dates[len(dates)-1])
	p.Y.Label.Text = "Value"

	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return "", fmt.Errorf("charts: build value line: %w", err)
	}
	line.Width = vg.Points(1.5)
	p.Add(line)

	return r.save(p, filename, 10*vg.Inch, 5*vg.Inch)
}

// HoldingsChart draws each holding's close series rebased to 100 so
// different price levels share one axis.
func (r *Renderer) HoldingsChart(pf *model.Portfolio, filename string) (string, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Holdings (rebased to 100): %s", pf.Name)
	p.X.Label.Text = "Trading day"
	p.Y.Label.Text = "Rebased close"

	drawn := 0
	for _, sym := range pf.Symbols() {
		series := pf.Series[sym]
		if series == nil || series.Len() == 0 {
			continue
		}
		closes := series.SortedCloses()
		base := closes[0]
		if base <= 0 {
			continue
		}
		pts := make(plotter.XYs, len(closes))
		for i, c := range closes {
			pts[i] = plotter.XY{X: float64(i), Y: c / base * 100}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return "", fmt.Errorf("charts: build holding line: %w", err)
		}
		p.Add(line)
		p.Legend.Add(sym, line)
		drawn++
	}
	if drawn == 0 {
		return "", fmt.Errorf("charts: no holdings with data")
	}

	return r.save(p, filename, 10*vg.Inch, 5*vg.Inch)
}

func (r *Renderer) save(p *plot.Plot, filename string, w, h vg.Length) (string, error) {
	path := filepath.Join(r.dir, filename)
	if err := p.Save(w, h, path); err != nil {
		return "", fmt.Errorf("charts: save %s: %w", filename, err)
	}
	r.log.Debug().Str("file", path).Msg("chart written")
	return path, nil
}

func pathXYs(initial float64, path []float64) plotter.XYs {
	pts := make(plotter.XYs, len(path)+1)
	pts[0] = plotter.XY{X: 0, Y: initial}
	for i, v := range path {
		pts[i+1] = plotter.XY{X: float64(i + 1), Y: v}
	}
	return pts
}
