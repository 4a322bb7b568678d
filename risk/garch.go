package risk

import (
	"errors"
	"math"

	"github.com/golang/glog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	minGARCHReturns = 30
	mcmcIterations  = 2000
	mcmcBurnIn      = 200
	penalty         = 1e10
)

var ErrInsufficientData = errors.New("not enough returns to fit GARCH(1,1)")

// GARCH11 holds sigma²_t = Omega + Alpha*r²_{t-1} + Beta*sigma²_{t-1}.
type GARCH11 struct {
	Omega float64 `json:"omega"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

func (g GARCH11) stationary() bool {
	return g.Omega > 0 && g.Alpha >= 0 && g.Beta >= 0 && g.Alpha+g.Beta < 1
}

// LongRunVariance is the unconditional daily variance.
func (g GARCH11) LongRunVariance() float64 {
	return g.Omega / (1 - g.Alpha - g.Beta)
}

// LogLikelihood is the Gaussian log-likelihood of returns, -Inf when the
// parameters are not stationary.
func (g GARCH11) LogLikelihood(returns []float64) float64 {
	if !g.stationary() {
		return math.Inf(-1)
	}
	logLik := 0.0
	variance := g.LongRunVariance()
	for i := 1; i < len(returns); i++ {
		variance = g.Omega + g.Alpha*returns[i-1]*returns[i-1] + g.Beta*variance
		logLik += -0.5*math.Log(2*math.Pi) - 0.5*math.Log(variance) - 0.5*returns[i]*returns[i]/variance
	}
	return logLik
}

// nextVariance filters returns and gives the one-step-ahead daily variance.
func (g GARCH11) nextVariance(returns []float64) float64 {
	variance := g.LongRunVariance()
	for _, r := range returns {
		variance = g.Omega + g.Alpha*r*r + g.Beta*variance
	}
	return variance
}

// ConditionalVolatility is the annualised one-step-ahead volatility.
func (g GARCH11) ConditionalVolatility(returns []float64) float64 {
	return math.Sqrt(g.nextVariance(returns) * TradingDays)
}

// Forecast is the annualised average volatility over the next horizon days.
func (g GARCH11) Forecast(returns []float64, horizon int) float64 {
	if horizon < 1 {
		horizon = 1
	}
	longRun := g.LongRunVariance()
	next := g.nextVariance(returns)
	persistence := g.Alpha + g.Beta

	sum := 0.0
	for h := 0; h < horizon; h++ {
		sum += longRun + math.Pow(persistence, float64(h))*(next-longRun)
	}
	return math.Sqrt(sum / float64(horizon) * TradingDays)
}

// LogReturns computes log(p_i/p_{i-1}).
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns[i-1] = math.Log(prices[i] / prices[i-1])
	}
	return returns
}

// FitGARCH11 warms up with a Metropolis chain and refines the chain average
// with Nelder-Mead. src drives the chain; nil uses the global generator.
func FitGARCH11(returns []float64, src rand.Source) (GARCH11, error) {
	if len(returns) < minGARCHReturns {
		return GARCH11{}, ErrInsufficientData
	}

	sampleVar := stat.Variance(returns, nil)
	if sampleVar <= 0 || math.IsNaN(sampleVar) {
		return GARCH11{}, ErrInsufficientData
	}

	current := GARCH11{Omega: sampleVar * 0.1, Alpha: 0.1, Beta: 0.8}
	currentLL := current.LogLikelihood(returns)

	omegaStep := distuv.Normal{Mu: 0, Sigma: sampleVar * 0.01, Src: src}
	coefStep := distuv.Normal{Mu: 0, Sigma: 0.01, Src: src}
	uniform := distuv.Uniform{Min: 0, Max: 1, Src: src}

	avg := GARCH11{}
	for i := 1; i < mcmcIterations; i++ {
		proposal := GARCH11{
			Omega: current.Omega + omegaStep.Rand(),
			Alpha: current.Alpha + coefStep.Rand(),
			Beta:  current.Beta + coefStep.Rand(),
		}
		if proposal.stationary() {
			proposalLL := proposal.LogLikelihood(returns)
			if math.Log(uniform.Rand()) < proposalLL-currentLL {
				current, currentLL = proposal, proposalLL
			}
		}
		if i >= mcmcBurnIn {
			avg.Omega += current.Omega
			avg.Alpha += current.Alpha
			avg.Beta += current.Beta
		}
	}
	kept := float64(mcmcIterations - mcmcBurnIn)
	avg.Omega /= kept
	avg.Alpha /= kept
	avg.Beta /= kept

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			ll := GARCH11{Omega: x[0], Alpha: x[1], Beta: x[2]}.LogLikelihood(returns)
			if math.IsInf(ll, 0) || math.IsNaN(ll) {
				return penalty
			}
			return -ll
		},
	}

	result, err := optimize.Minimize(problem, []float64{avg.Omega, avg.Alpha, avg.Beta}, nil, &optimize.NelderMead{})
	if err != nil {
		glog.Warningf("GARCH Nelder-Mead failed, using chain average: %v", err)
		return avg, nil
	}
	fitted := GARCH11{Omega: result.X[0], Alpha: result.X[1], Beta: result.X[2]}
	if !fitted.stationary() || fitted.LogLikelihood(returns) < avg.LogLikelihood(returns) {
		return avg, nil
	}
	return fitted, nil
}
