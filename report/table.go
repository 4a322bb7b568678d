package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/bcdannyboy/optengine/models"
	"github.com/bcdannyboy/optengine/probability"
	"github.com/bcdannyboy/optengine/risk"
	"github.com/fatih/color"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	goodColor   = color.New(color.FgGreen).SprintFunc()
	badColor    = color.New(color.FgRed).SprintFunc()
	valueColor  = color.New(color.FgYellow).SprintFunc()
)

// PrintPricing prints price and Greeks. When mc is non-nil its standard
// error and confidence interval are appended.
func PrintPricing(w io.Writer, title string, res models.PricingResult, mc *models.MonteCarloResult) {
	fmt.Fprintln(w, headerColor(title))
	rows := []struct {
		name  string
		value float64
	}{
		{"Price", res.Price},
		{"Delta", res.Delta},
		{"Gamma", res.Gamma},
		{"Theta", res.Theta},
		{"Vega", res.Vega},
		{"Rho", res.Rho},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-10s %s\n", r.name, valueColor(Format(r.value, 6)))
	}
	if mc == nil {
		return
	}
	if mc.StdError != nil {
		fmt.Fprintf(w, "  %-10s %s\n", "StdError", valueColor(Format(*mc.StdError, 6)))
	}
	if ci := mc.ConfidenceInterval; ci != nil {
		fmt.Fprintf(w, "  %-10s [%s, %s]\n", "95% CI", Format(ci.Lower, 4), Format(ci.Upper, 4))
	}
	fmt.Fprintf(w, "  %-10s %d x %d\n", "Paths", mc.NumPaths, mc.NumSteps)
}

func PrintHigherOrder(w io.Writer, g models.HigherOrderGreeks) {
	fmt.Fprintln(w, headerColor("Higher order"))
	fmt.Fprintf(w, "  %-16s %s\n", "ShadowUpGamma", valueColor(Format(g.ShadowUpGamma, 6)))
	fmt.Fprintf(w, "  %-16s %s\n", "ShadowDownGamma", valueColor(Format(g.ShadowDownGamma, 6)))
	fmt.Fprintf(w, "  %-16s %s\n", "SkewGamma", valueColor(Format(g.SkewGamma, 6)))
}

func PrintImpliedVolatility(w io.Writer, iv models.ImpliedVolatility, ok bool) {
	if !ok {
		fmt.Fprintln(w, badColor("implied volatility did not converge"))
		return
	}
	fmt.Fprintf(w, "%s %s (%d iterations, residual %s)\n",
		headerColor("Implied volatility:"), goodColor(Format(iv.Sigma, 6)), iv.Iterations, Format(iv.Residual, 10))
}

func PrintMetrics(w io.Writer, m risk.Metrics, v risk.Validation) {
	if !v.OK {
		fmt.Fprintln(w, badColor("invalid price series: "+v.Message))
		return
	}
	fmt.Fprintln(w, headerColor("Risk metrics"))
	fmt.Fprintf(w, "  %-20s %s%%\n", "Volatility", Format(m.Volatility, 2))
	fmt.Fprintf(w, "  %-20s %s%%\n", "VaR 95", colorSigned(m.VaR95))
	fmt.Fprintf(w, "  %-20s %s%%\n", "Expected shortfall", colorSigned(m.ExpectedShortfall95))
	fmt.Fprintf(w, "  %-20s %s%%\n", "Max drawdown", badColor(Format(m.MaxDrawdown, 2)))
	fmt.Fprintf(w, "  %-20s %s\n", "Sharpe ratio", colorSigned(m.SharpeRatio))
	fmt.Fprintf(w, "  %-20s %s%%\n", "Total return", colorSigned(m.TotalReturn))
	fmt.Fprintf(w, "  %-20s %s%%\n", "Annualized return", colorSigned(m.AnnualizedReturn))
}

func PrintRangeEstimates(w io.Writer, est map[string]risk.RangeEstimates) {
	if len(est) == 0 {
		return
	}
	names := make([]string, 0, len(est))
	for name := range est {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return est[names[i]].Bars < est[names[j]].Bars })

	fmt.Fprintln(w, headerColor(fmt.Sprintf("%-6s %-10s %-12s %-15s %-10s", "Window", "Parkinson", "GarmanKlass", "RogersSatchell", "YangZhang")))
	for _, name := range names {
		e := est[name]
		fmt.Fprintf(w, "%-6s %-10s %-12s %-15s %-10s\n", name,
			Format(e.Parkinson*100, 2), Format(e.GarmanKlass*100, 2), Format(e.RogersSatchell*100, 2), Format(e.YangZhang*100, 2))
	}
}

func PrintPnLRisk(w io.Writer, r probability.PnLRisk) {
	fmt.Fprintln(w, headerColor(fmt.Sprintf("P&L at %s%% confidence", Format(r.Confidence*100, 1))))
	fmt.Fprintf(w, "  %-20s %s\n", "VaR", badColor(Format(r.VaR, 4)))
	fmt.Fprintf(w, "  %-20s %s\n", "Expected shortfall", badColor(Format(r.ExpectedShortfall, 4)))
	fmt.Fprintf(w, "  %-20s %s\n", "Mean P&L", colorSigned(r.MeanPnL))
	fmt.Fprintf(w, "  %-20s %s%%\n", "P(profit)", Format(r.ProbabilityOfProfit*100, 2))
}

// PrintSurface prints the grid with solved cells in green and filled cells in red.
func PrintSurface(w io.Writer, s models.VolatilitySurface) {
	fmt.Fprint(w, headerColor(fmt.Sprintf("%-8s", "T\\K")))
	for _, K := range s.Strikes {
		fmt.Fprint(w, headerColor(fmt.Sprintf(" %8s", Format(K, 2))))
	}
	fmt.Fprintln(w)
	for ti, T := range s.Maturities {
		fmt.Fprintf(w, "%-8s", Format(T, 4))
		for ki := range s.Strikes {
			cell := fmt.Sprintf(" %8s", Format(s.Vols[ti][ki]*100, 2))
			if s.Converged[ti][ki] {
				fmt.Fprint(w, goodColor(cell))
			} else {
				fmt.Fprint(w, badColor(cell))
			}
		}
		fmt.Fprintln(w)
	}
}

func colorSigned(x float64) string {
	s := Format(x, 2)
	if x < 0 {
		return badColor(s)
	}
	return goodColor(s)
}
