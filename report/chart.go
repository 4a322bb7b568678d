package report

import (
	"fmt"

	"github.com/bcdannyboy/optengine/pricing"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 5 * vg.Inch
)

// PlotPaths renders simulated price paths against time to a PNG/SVG/PDF file,
// chosen by the file extension.
func PlotPaths(paths [][]float64, grid []float64, strike float64, file string) error {
	p := plot.New()
	p.Title.Text = "Simulated price paths"
	p.X.Label.Text = "Time (years)"
	p.Y.Label.Text = "Price"

	for i, path := range paths {
		xys := make(plotter.XYs, len(path))
		for j, v := range path {
			xys[j].X = grid[j]
			xys[j].Y = v
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("path %d: %w", i, err)
		}
		line.LineStyle.Color = plotutil.Color(i)
		line.LineStyle.Width = vg.Points(0.5)
		p.Add(line)
	}

	if len(grid) > 0 {
		strikeLine, err := plotter.NewLine(plotter.XYs{{X: grid[0], Y: strike}, {X: grid[len(grid)-1], Y: strike}})
		if err != nil {
			return err
		}
		strikeLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(strikeLine)
		p.Legend.Add("strike", strikeLine)
	}

	if err := p.Save(chartWidth, chartHeight, file); err != nil {
		return fmt.Errorf("saving %s: %w", file, err)
	}
	return nil
}

// PlotCurves draws one series per named Greek against spot.
func PlotCurves(curve pricing.GreekCurve, file string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Greeks (vol %s, T %s)", Format(curve.Volatility, 3), Format(curve.Maturity, 2))
	p.X.Label.Text = "Spot"

	series := map[string]func(pricing.GreekPoint) float64{
		"delta": func(g pricing.GreekPoint) float64 { return g.Delta },
		"gamma": func(g pricing.GreekPoint) float64 { return g.Gamma },
		"theta": func(g pricing.GreekPoint) float64 { return g.Theta },
		"vega":  func(g pricing.GreekPoint) float64 { return g.Vega },
		"rho":   func(g pricing.GreekPoint) float64 { return g.Rho },
	}
	var lines []interface{}
	for _, name := range []string{"delta", "gamma", "theta", "vega", "rho"} {
		get := series[name]
		xys := make(plotter.XYs, len(curve.Points))
		for i, pt := range curve.Points {
			xys[i].X = pt.Spot
			xys[i].Y = get(pt)
		}
		lines = append(lines, name, xys)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return err
	}

	if err := p.Save(chartWidth, chartHeight, file); err != nil {
		return fmt.Errorf("saving %s: %w", file, err)
	}
	return nil
}
