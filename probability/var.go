package probability

import (
	"math"
	"sort"

	"github.com/bcdannyboy/optengine/models"
	"gonum.org/v1/gonum/stat"
)

// PnLRisk summarises a simulated profit and loss distribution. VaR and
// ExpectedShortfall are reported as positive losses.
type PnLRisk struct {
	Confidence          float64 `json:"confidence"`
	VaR                 float64 `json:"var"`
	ExpectedShortfall   float64 `json:"expected_shortfall"`
	MeanPnL             float64 `json:"mean_pnl"`
	ProbabilityOfProfit float64 `json:"probability_of_profit"`
}

// SimulateTerminal draws n risk-neutral terminal prices of the underlying.
func SimulateTerminal(c models.Contract, n int, src NormalSource) ([]float64, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, &models.InvalidParameterError{Param: "num_paths", Value: float64(n), Reason: "must be at least 1"}
	}
	if src == nil {
		rng := rngPool.Get().(NormalSource)
		defer rngPool.Put(rng)
		src = rng
	}

	drift := (c.Rate - c.DividendYield - 0.5*c.Volatility*c.Volatility) * c.Maturity
	vol := c.Volatility * math.Sqrt(c.Maturity)
	terminal := make([]float64, n)
	for i := range terminal {
		terminal[i] = c.Spot * math.Exp(drift+vol*src.NormFloat64())
	}
	return terminal, nil
}

// CalculatePnLRisk evaluates payoff at every terminal price, subtracts the
// premium paid and returns the loss quantile at the given confidence.
// VaR is the sorted P&L at index k = int(n*(1-confidence)), the (k+1)-th
// worst outcome (the 6th worst of 100 at 95%), and ExpectedShortfall averages
// those k+1 outcomes.
func CalculatePnLRisk(terminal []float64, payoff func(float64) float64, premium, confidence float64) (PnLRisk, error) {
	if len(terminal) == 0 {
		return PnLRisk{}, &models.InvalidParameterError{Param: "terminal", Value: 0, Reason: "no simulated prices"}
	}
	if !(confidence > 0 && confidence < 1) {
		return PnLRisk{}, &models.InvalidParameterError{Param: "confidence", Value: confidence, Reason: "must lie in (0, 1)"}
	}

	pnl := make([]float64, len(terminal))
	profitable := 0
	for i, st := range terminal {
		pnl[i] = payoff(st) - premium
		if pnl[i] > 0 {
			profitable++
		}
	}
	sort.Float64s(pnl)

	index := int(float64(len(pnl)) * (1 - confidence))
	if index >= len(pnl) {
		index = len(pnl) - 1
	}

	return PnLRisk{
		Confidence:          confidence,
		VaR:                 -pnl[index],
		ExpectedShortfall:   -stat.Mean(pnl[:index+1], nil),
		MeanPnL:             stat.Mean(pnl, nil),
		ProbabilityOfProfit: float64(profitable) / float64(len(pnl)),
	}, nil
}
