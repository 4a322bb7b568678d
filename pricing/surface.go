package pricing

import (
	"errors"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/bcdannyboy/optengine/models"
	"github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultStrikeSpan    = 0.5
	DefaultSurfaceVol    = 0.25
	minQuotesAfterFilter = 10
	minSurfaceMaturity   = 0.01
)

var (
	ErrNoQuotes      = errors.New("no quotes supplied")
	ErrNoConvergence = errors.New("no quote produced a converged implied volatility")
)

// SurfaceBuilder solves a set of quotes for implied volatility and arranges
// the results on a maturity by strike grid.
type SurfaceBuilder struct {
	Spot          float64
	Rate          float64
	DividendYield float64
	// StrikeSpan keeps strikes within Spot*(1±StrikeSpan).
	StrikeSpan float64
	// DefaultVol fills cells whose maturity row has no converged quote.
	DefaultVol float64
	Workers    int
	Solver     Solver
	// Progress, when set, is called once for every solved quote.
	Progress func()
}

type solveJob struct {
	index int
	quote models.Quote
}

type solveResult struct {
	sigma float64
	ok    bool
}

// FilterQuotes returns the quotes struck inside the band around spot, or all
// of them when fewer than ten survive.
func (b SurfaceBuilder) FilterQuotes(quotes []models.Quote) []models.Quote {
	filtered, _ := b.filter(quotes)
	return filtered
}

func (b SurfaceBuilder) band() (float64, float64) {
	span := b.StrikeSpan
	if span <= 0 {
		span = DefaultStrikeSpan
	}
	return b.Spot * (1 - span), b.Spot * (1 + span)
}

// filter reports whether it fell back to the full quote set.
func (b SurfaceBuilder) filter(quotes []models.Quote) ([]models.Quote, bool) {
	lo, hi := b.band()
	var filtered []models.Quote
	for _, q := range quotes {
		if q.Strike >= lo && q.Strike <= hi {
			filtered = append(filtered, q)
		}
	}
	if len(filtered) < minQuotesAfterFilter {
		return quotes, true
	}
	return filtered, false
}

// Build solves every quote and assembles the surface. Cells without a
// converged volatility take the nearest converged strike in the same maturity
// row, or DefaultVol, and are marked not converged.
func (b SurfaceBuilder) Build(quotes []models.Quote) (models.VolatilitySurface, error) {
	if len(quotes) == 0 {
		return models.VolatilitySurface{}, ErrNoQuotes
	}
	filtered, fellBack := b.filter(quotes)
	if fellBack {
		lo, hi := b.band()
		glog.Warningf("strike band [%.2f, %.2f] kept fewer than %d quotes, using all %d", lo, hi, minQuotesAfterFilter, len(quotes))
	}
	quotes = append([]models.Quote(nil), filtered...)
	for i := range quotes {
		quotes[i].Maturity = math.Max(quotes[i].Maturity, minSurfaceMaturity)
	}

	results := b.solveAll(quotes)

	strikes := uniqueSorted(quotes, func(q models.Quote) float64 { return q.Strike })
	maturities := uniqueSorted(quotes, func(q models.Quote) float64 { return q.Maturity })

	sums := make([][]float64, len(maturities))
	counts := make([][]int, len(maturities))
	quoted := make([][]bool, len(maturities))
	for i := range maturities {
		sums[i] = make([]float64, len(strikes))
		counts[i] = make([]int, len(strikes))
		quoted[i] = make([]bool, len(strikes))
	}

	converged := 0
	for i, q := range quotes {
		ti := sort.SearchFloat64s(maturities, q.Maturity)
		ki := sort.SearchFloat64s(strikes, q.Strike)
		quoted[ti][ki] = true
		if !results[i].ok {
			glog.V(1).Infof("no implied volatility for K=%.2f T=%.4f price=%.4f %s", q.Strike, q.Maturity, q.Price, q.Type)
			continue
		}
		sums[ti][ki] += results[i].sigma
		counts[ti][ki]++
		converged++
	}
	if converged == 0 {
		return models.VolatilitySurface{}, ErrNoConvergence
	}

	keepRows := make([]int, 0, len(maturities))
	for ti := range maturities {
		for ki := range strikes {
			if quoted[ti][ki] {
				keepRows = append(keepRows, ti)
				break
			}
		}
	}
	keepCols := make([]int, 0, len(strikes))
	for ki := range strikes {
		for ti := range maturities {
			if quoted[ti][ki] {
				keepCols = append(keepCols, ki)
				break
			}
		}
	}

	defaultVol := b.DefaultVol
	if defaultVol <= 0 {
		defaultVol = DefaultSurfaceVol
	}

	surface := models.VolatilitySurface{Spot: b.Spot}
	for _, ki := range keepCols {
		surface.Strikes = append(surface.Strikes, strikes[ki])
	}
	for _, ti := range keepRows {
		surface.Maturities = append(surface.Maturities, maturities[ti])

		vols := make([]float64, len(keepCols))
		ok := make([]bool, len(keepCols))
		for j, ki := range keepCols {
			if counts[ti][ki] > 0 {
				vols[j] = sums[ti][ki] / float64(counts[ti][ki])
				ok[j] = true
			}
		}
		fillRow(vols, ok, surface.Strikes, defaultVol)
		surface.Vols = append(surface.Vols, vols)
		surface.Converged = append(surface.Converged, ok)
	}

	glog.Infof("volatility surface: %d maturities x %d strikes from %d quotes (%d converged)",
		len(surface.Maturities), len(surface.Strikes), len(quotes), converged)
	return surface, nil
}

func (b SurfaceBuilder) solveAll(quotes []models.Quote) []solveResult {
	numWorkers := b.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	results := make([]solveResult, len(quotes))
	jobs := make(chan solveJob, numWorkers)
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				iv, ok := b.Solver.Solve(b.Spot, j.quote.Strike, j.quote.Maturity, b.Rate, j.quote.Price, j.quote.Type, b.DividendYield)
				results[j.index] = solveResult{sigma: iv.Sigma, ok: ok}
				if b.Progress != nil {
					b.Progress()
				}
			}
		}()
	}

	for i, q := range quotes {
		jobs <- solveJob{index: i, quote: q}
	}
	close(jobs)
	wg.Wait()

	return results
}

// fillRow replaces unconverged entries with the nearest converged strike,
// preferring the lower strike on ties.
func fillRow(vols []float64, ok []bool, strikes []float64, defaultVol float64) {
	var solved []int
	for j := range ok {
		if ok[j] {
			solved = append(solved, j)
		}
	}
	if len(solved) == 0 {
		for j := range vols {
			vols[j] = defaultVol
		}
		return
	}

	dist := make([]float64, len(solved))
	for j := range vols {
		if ok[j] {
			continue
		}
		for n, s := range solved {
			dist[n] = math.Abs(strikes[s] - strikes[j])
		}
		vols[j] = vols[solved[floats.MinIdx(dist)]]
	}
}

func uniqueSorted(quotes []models.Quote, key func(models.Quote) float64) []float64 {
	values := make([]float64, 0, len(quotes))
	for _, q := range quotes {
		values = append(values, key(q))
	}
	sort.Float64s(values)

	out := values[:0]
	for i, v := range values {
		if i == 0 || v != values[i-1] {
			out = append(out, v)
		}
	}
	return out
}
