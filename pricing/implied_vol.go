package pricing

import (
	"math"

	"github.com/bcdannyboy/optengine/models"
)

const (
	DefaultTolerance = 1e-6
	DefaultMaxIter   = 100
	MinVolatility    = 0.001
	MaxVolatility    = 5.0

	minVega         = 1e-10
	minInitialGuess = 0.1
)

// PriceVegaFunc returns the unscaled model price and vega for a contract.
type PriceVegaFunc func(c models.Contract) (price, vega float64)

// Solver inverts a pricing model for volatility by Newton-Raphson. The zero
// value is usable and falls back to the package defaults.
type Solver struct {
	// InitialGuess <= 0 starts from MoneynessGuess.
	InitialGuess float64
	Tolerance    float64
	MaxIter      int
	Lower        float64
	Upper        float64
	Model        PriceVegaFunc
}

func (s Solver) withDefaults() Solver {
	if s.Tolerance <= 0 {
		s.Tolerance = DefaultTolerance
	}
	if s.MaxIter <= 0 {
		s.MaxIter = DefaultMaxIter
	}
	if s.Lower <= 0 {
		s.Lower = MinVolatility
	}
	if s.Upper <= s.Lower {
		s.Upper = MaxVolatility
	}
	if s.Model == nil {
		s.Model = PriceVega
	}
	return s
}

// Solve returns the volatility reproducing marketPrice. The boolean is false
// when the inputs are degenerate or the iteration did not converge.
func (s Solver) Solve(S, K, T, r, marketPrice float64, optionType models.OptionType, q float64) (models.ImpliedVolatility, bool) {
	s = s.withDefaults()

	for _, v := range []float64{S, K, T, r, marketPrice, q} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.ImpliedVolatility{}, false
		}
	}
	if T <= 0 || S <= 0 || K <= 0 || marketPrice <= 0 {
		return models.ImpliedVolatility{}, false
	}
	lower, upper := ArbitrageBounds(S, K, T, r, q, optionType)
	if marketPrice < lower || marketPrice > upper {
		return models.ImpliedVolatility{}, false
	}

	c := models.Contract{
		Spot:          S,
		Strike:        K,
		Maturity:      T,
		Rate:          r,
		DividendYield: q,
		Type:          optionType,
	}
	guess := s.InitialGuess
	if guess <= 0 {
		guess = MoneynessGuess(S, K, T, r, q)
	}
	sigma := clampVol(guess, s.Lower, s.Upper)
	for i := 0; i < s.MaxIter; i++ {
		price, vega := s.Model(c.WithVolatility(sigma))
		diff := price - marketPrice
		if math.Abs(diff) < s.Tolerance {
			return models.ImpliedVolatility{
				Sigma:      sigma,
				Iterations: i,
				Residual:   diff,
				Contract:   c.WithVolatility(sigma),
			}, true
		}
		if math.Abs(vega) < minVega || math.IsNaN(vega) {
			return models.ImpliedVolatility{}, false
		}
		sigma = clampVol(sigma-diff/vega, s.Lower, s.Upper)
	}
	return models.ImpliedVolatility{}, false
}

// ImpliedVolatility solves with the default Black-Scholes-Merton solver.
func ImpliedVolatility(S, K, T, r, marketPrice float64, optionType models.OptionType, q float64) (models.ImpliedVolatility, bool) {
	return Solver{}.Solve(S, K, T, r, marketPrice, optionType, q)
}

// MoneynessGuess is the Manaster-Koehler starting point
// sqrt(2|ln(S/K)+(r-q)T|/T), floored at 0.1.
func MoneynessGuess(S, K, T, r, q float64) float64 {
	return math.Max(math.Sqrt(2*math.Abs(math.Log(S/K)+(r-q)*T)/T), minInitialGuess)
}

// ArbitrageBounds is the no-arbitrage price band of a European option.
func ArbitrageBounds(S, K, T, r, q float64, optionType models.OptionType) (float64, float64) {
	fwdS := S * math.Exp(-q*T)
	pvK := K * math.Exp(-r*T)
	if optionType.IsCall() {
		return math.Max(fwdS-pvK, 0), fwdS
	}
	return math.Max(pvK-fwdS, 0), pvK
}

func clampVol(sigma, lower, upper float64) float64 {
	if math.IsNaN(sigma) {
		return lower
	}
	return math.Max(lower, math.Min(sigma, upper))
}
