package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/bcdannyboy/optengine/config"
	"github.com/bcdannyboy/optengine/models"
	"github.com/bcdannyboy/optengine/pricing"
	"github.com/bcdannyboy/optengine/probability"
	"github.com/bcdannyboy/optengine/report"
	"github.com/bcdannyboy/optengine/risk"
	"github.com/golang/glog"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
	"golang.org/x/exp/rand"
)

func runBlackScholes(cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("bs", flag.ContinueOnError)
	cf := addContractFlags(fs, cfg, true)
	higher := fs.Bool("higher", false, "also compute shadow and skew gamma")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := cf.contract()
	if err != nil {
		return err
	}

	res, err := pricing.BlackScholesMerton(c)
	if err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	var hog *models.HigherOrderGreeks
	if *higher {
		g, err := pricing.HigherOrder(c)
		if err != nil {
			return fmt.Errorf("higher order greeks: %w", err)
		}
		hog = &g
	}

	if *asJSON {
		return writeJSON(out, struct {
			models.PricingResult
			HigherOrder *models.HigherOrderGreeks `json:"higherOrder,omitempty"`
		}{res, hog})
	}
	report.PrintPricing(out, "Black-Scholes-Merton "+c.Type.String(), res, nil)
	if hog != nil {
		report.PrintHigherOrder(out, *hog)
	}
	return nil
}

// mcView reports an undefined theta as null.
type mcView struct {
	models.MonteCarloResult
	Theta *float64              `json:"theta"`
	PnL   *probability.PnLRisk  `json:"pnlRisk,omitempty"`
	BS    *models.PricingResult `json:"blackScholes,omitempty"`
}

func runMonteCarlo(cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("mc", flag.ContinueOnError)
	cf := addContractFlags(fs, cfg, true)
	paths := fs.Int("paths", cfg.Paths, "number of simulated paths")
	steps := fs.Int("steps", cfg.Steps, "time steps (theta step and displayed paths)")
	seed := fs.Uint64("seed", cfg.Seed, "generator seed, 0 for a random seed")
	returnPaths := fs.Int("return-paths", 0, "sample paths to return (max 200)")
	png := fs.String("png", "", "write a chart of the sample paths to this file")
	confidence := fs.Float64("var", 0, "also report P&L VaR of a long position at this confidence, e.g. 0.95")
	compare := fs.Bool("compare", false, "also price with Black-Scholes-Merton")
	workers := fs.Int("workers", cfg.Workers, "payoff evaluation workers")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := cf.contract()
	if err != nil {
		return err
	}

	opts := probability.DefaultOptions()
	opts.NumPaths = *paths
	opts.NumSteps = *steps
	opts.ReturnPaths = *returnPaths
	opts.Workers = *workers
	if *png != "" && opts.ReturnPaths == 0 {
		opts.ReturnPaths = 20
	}

	src := seedSource(fs, *seed, cfg)

	glog.V(1).Infof("monte carlo: %d paths, %d steps, %d workers", opts.NumPaths, opts.NumSteps, opts.Workers)
	res, err := probability.MonteCarlo(c, opts, src)
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	view := mcView{MonteCarloResult: res}
	if !math.IsNaN(res.Theta) {
		view.Theta = &res.Theta
	}
	if *compare {
		bs, err := pricing.BlackScholesMerton(c)
		if err != nil {
			return err
		}
		view.BS = &bs
	}
	if *confidence > 0 {
		terminal, err := probability.SimulateTerminal(c, opts.NumPaths, src)
		if err != nil {
			return err
		}
		pnl, err := probability.CalculatePnLRisk(terminal, func(st float64) float64 {
			return pricing.Intrinsic(st, c.Strike, c.Type)
		}, res.Price*math.Exp(c.Rate*c.Maturity), *confidence)
		if err != nil {
			return fmt.Errorf("pnl risk: %w", err)
		}
		view.PnL = &pnl
	}

	if *png != "" {
		file, err := outputPath(cfg, *png)
		if err != nil {
			return err
		}
		if err := report.PlotPaths(res.Paths, res.TimeGrid, c.Strike, file); err != nil {
			return err
		}
		glog.Infof("wrote %d paths to %s", len(res.Paths), file)
	}

	if *asJSON {
		return writeJSON(out, view)
	}
	report.PrintPricing(out, "Monte Carlo "+c.Type.String(), res.PricingResult, &res)
	if view.BS != nil {
		report.PrintPricing(out, "Black-Scholes-Merton "+c.Type.String(), *view.BS, nil)
	}
	if view.PnL != nil {
		report.PrintPnLRisk(out, *view.PnL)
	}
	return nil
}

// seedSource returns a seeded generator, or nil for a random one. An explicit
// -seed 0 asks for a random run even when the configuration carries a seed.
func seedSource(fs *flag.FlagSet, seed uint64, cfg config.Config) probability.NormalSource {
	seeded := cfg.HasSeed
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seeded = seed != 0
		}
	})
	if !seeded {
		return nil
	}
	return probability.NewSource(seed)
}

func runImpliedVol(cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("iv", flag.ContinueOnError)
	cf := addContractFlags(fs, cfg, false)
	price := fs.Float64("price", 0, "observed option price")
	guess := fs.Float64("guess", 0, "initial volatility guess, 0 derives one from moneyness")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := cf.contract()
	if err != nil {
		return err
	}

	solver := pricing.Solver{InitialGuess: *guess}
	iv, ok := solver.Solve(c.Spot, c.Strike, c.Maturity, c.Rate, *price, c.Type, c.DividendYield)
	if !ok {
		lo, hi := pricing.ArbitrageBounds(c.Spot, c.Strike, c.Maturity, c.Rate, c.DividendYield, c.Type)
		glog.Warningf("no implied volatility for price %.4f (no-arbitrage band [%.4f, %.4f])", *price, lo, hi)
	}

	if *asJSON {
		if !ok {
			return writeJSON(out, nil)
		}
		return writeJSON(out, iv)
	}
	report.PrintImpliedVolatility(out, iv, ok)
	return nil
}

type riskOutput struct {
	Metrics    risk.Metrics                   `json:"metrics"`
	Validation risk.Validation                `json:"validation"`
	Range      map[string]risk.RangeEstimates `json:"rangeVolatility,omitempty"`
	GARCH      *garchOutput                   `json:"garch,omitempty"`
}

type garchOutput struct {
	Params   risk.GARCH11 `json:"params"`
	Current  float64      `json:"currentVolatility"`
	Forecast float64      `json:"forecast21d"`
}

func runRisk(cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("risk", flag.ContinueOnError)
	file := fs.String("file", "", "CSV with a close column (optionally date, open, high, low)")
	rf := fs.Float64("rf", 0, "annual risk-free rate for the Sharpe ratio")
	garch := fs.Bool("garch", true, "fit GARCH(1,1) to log returns")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	prices, err := report.ReadPrices(bytes.NewReader(data))
	if err != nil {
		return err
	}

	m, v := risk.Compute(prices, *rf)
	result := riskOutput{Metrics: m, Validation: v}
	if !v.OK {
		glog.Warningf("%s: %s", *file, v.Message)
	}

	if bars, err := report.ReadBars(bytes.NewReader(data)); err == nil {
		result.Range = risk.EstimateWindows(bars)
	}

	if *garch && v.OK {
		returns := risk.LogReturns(prices)
		var src rand.Source
		if cfg.HasSeed {
			src = rand.NewSource(cfg.Seed)
		}
		params, err := risk.FitGARCH11(returns, src)
		if err != nil {
			glog.Warningf("GARCH fit skipped: %v", err)
		} else {
			result.GARCH = &garchOutput{
				Params:   params,
				Current:  params.ConditionalVolatility(returns),
				Forecast: params.Forecast(returns, 21),
			}
		}
	}

	if *asJSON {
		return writeJSON(out, result)
	}
	report.PrintMetrics(out, m, v)
	report.PrintRangeEstimates(out, result.Range)
	if g := result.GARCH; g != nil {
		fmt.Fprintf(out, "GARCH(1,1) omega=%.3g alpha=%.4f beta=%.4f current=%s%% 21d=%s%%\n",
			g.Params.Omega, g.Params.Alpha, g.Params.Beta, report.Format(g.Current*100, 2), report.Format(g.Forecast*100, 2))
	}
	return nil
}

func runCurves(cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("curves", flag.ContinueOnError)
	cf := addContractFlags(fs, cfg, true)
	matrix := fs.String("matrix", "spot", "spot, vol or maturity")
	csvFile := fs.String("csv", "", "write curves to this CSV file")
	png := fs.String("png", "", "chart the base curve to this file")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := cf.contract()
	if err != nil {
		return err
	}

	var curves []pricing.GreekCurve
	switch *matrix {
	case "spot":
		curve, err := pricing.GreekCurves(c)
		if err != nil {
			return err
		}
		curves = []pricing.GreekCurve{curve}
	case "vol":
		curves, err = pricing.VolatilitySensitivity(c)
	case "maturity":
		curves, err = pricing.MaturitySensitivity(c)
	default:
		return fmt.Errorf("unknown matrix %q", *matrix)
	}
	if err != nil {
		return err
	}

	if *csvFile != "" {
		f, err := createOutput(cfg, *csvFile)
		if err != nil {
			return err
		}
		if err := report.WriteCurves(f, curves); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	if *png != "" {
		file, err := outputPath(cfg, *png)
		if err != nil {
			return err
		}
		base, err := pricing.GreekCurves(c)
		if err != nil {
			return err
		}
		if err := report.PlotCurves(base, file); err != nil {
			return err
		}
	}

	if *asJSON {
		return writeJSON(out, curves)
	}
	for _, curve := range curves {
		title := fmt.Sprintf("vol %s, T %s at spot %s", report.Format(curve.Volatility, 3), report.Format(curve.Maturity, 2), report.Format(c.Spot, 2))
		p := curve.AtSpot
		report.PrintPricing(out, title, models.PricingResult{Price: p.Price, Delta: p.Delta, Gamma: p.Gamma, Theta: p.Theta, Vega: p.Vega, Rho: p.Rho}, nil)
	}
	return nil
}

func runSurface(cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("surface", flag.ContinueOnError)
	quotesFile := fs.String("quotes", "", "CSV with strike, maturity, price and type columns")
	spot := fs.Float64("S", 100, "spot price")
	rate := fs.Float64("r", cfg.Rate, "risk-free rate")
	q := fs.Float64("q", 0, "dividend yield")
	span := fs.Float64("span", pricing.DefaultStrikeSpan, "strike band around spot as a fraction")
	defaultVol := fs.Float64("default-vol", pricing.DefaultSurfaceVol, "volatility for rows with no converged quote")
	workers := fs.Int("workers", cfg.Workers, "solver workers")
	csvFile := fs.String("csv", "", "write the surface to this CSV file")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *quotesFile == "" {
		return errors.New("-quotes is required")
	}

	f, err := os.Open(*quotesFile)
	if err != nil {
		return err
	}
	quotes, err := report.ReadQuotes(f)
	f.Close()
	if err != nil {
		return err
	}

	builder := pricing.SurfaceBuilder{
		Spot:          *spot,
		Rate:          *rate,
		DividendYield: *q,
		StrikeSpan:    *span,
		DefaultVol:    *defaultVol,
		Workers:       *workers,
	}

	progress := mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
	bar := progress.AddBar(int64(len(builder.FilterQuotes(quotes))),
		mpb.PrependDecorators(
			decor.Name("Solving quotes"),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("(%d / %d)", decor.WCSyncSpace),
		),
	)
	builder.Progress = bar.Increment

	surface, err := builder.Build(quotes)
	if err != nil {
		bar.Abort(false)
		progress.Wait()
		return err
	}
	progress.Wait()

	if *csvFile != "" {
		f, err := createOutput(cfg, *csvFile)
		if err != nil {
			return err
		}
		if err := report.WriteSurface(f, surface); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	if *asJSON {
		return writeJSON(out, surface)
	}
	report.PrintSurface(out, surface)
	return nil
}
