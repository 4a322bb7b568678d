package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	TradingDays = 252.0

	minVolatilityReturns = 2
	minVaRReturns        = 10
	varPercentile        = 0.05
)

// Metrics are descriptive statistics of a price series, in percent except
// for the Sharpe ratio.
type Metrics struct {
	Volatility          float64 `json:"volatility" csv:"volatility"`
	VaR95               float64 `json:"var_95" csv:"var_95"`
	ExpectedShortfall95 float64 `json:"es_95" csv:"es_95"`
	MaxDrawdown         float64 `json:"max_drawdown" csv:"max_drawdown"`
	SharpeRatio         float64 `json:"sharpe_ratio" csv:"sharpe_ratio"`
	TotalReturn         float64 `json:"total_return" csv:"total_return"`
	AnnualizedReturn    float64 `json:"annualized_return" csv:"annualized_return"`
}

type Validation struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Validate requires at least two finite, strictly positive prices.
func Validate(prices []float64) Validation {
	if len(prices) == 0 {
		return Validation{Message: "no data supplied"}
	}
	if len(prices) < 2 {
		return Validation{Message: "at least 2 data points required"}
	}
	for _, p := range prices {
		if p <= 0 {
			return Validation{Message: "all prices must be positive"}
		}
	}
	for _, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return Validation{Message: "invalid data (NaN or infinite)"}
		}
	}
	return Validation{OK: true, Message: "OK"}
}

// Returns computes simple period-over-period returns.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 {
			returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
		}
	}
	return returns
}

// Volatility is the annualised population standard deviation of returns.
func Volatility(returns []float64) float64 {
	if len(returns) < minVolatilityReturns {
		return 0
	}
	return stat.PopStdDev(returns, nil) * math.Sqrt(TradingDays) * 100
}

// VaR95 is the historical 5th percentile of returns, linearly interpolated
// between order statistics.
func VaR95(returns []float64) float64 {
	if len(returns) < minVaRReturns {
		return 0
	}
	return percentile(returns, varPercentile) * 100
}

// ExpectedShortfall95 is the mean of the returns at or below VaR95.
func ExpectedShortfall95(returns []float64) float64 {
	if len(returns) < minVaRReturns {
		return 0
	}
	cutoff := percentile(returns, varPercentile)
	tail := make([]float64, 0, len(returns)/10+1)
	for _, r := range returns {
		if r <= cutoff {
			tail = append(tail, r)
		}
	}
	return stat.Mean(tail, nil) * 100
}

func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// MaxDrawdown is the largest peak-to-trough decline in percent.
func MaxDrawdown(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	peak := prices[0]
	maxDD := 0.0
	for _, p := range prices[1:] {
		if p > peak {
			peak = p
			continue
		}
		if dd := (peak - p) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD * 100
}

// SharpeRatio annualises mean excess return over its population standard
// deviation. riskFreeRate is annual.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	excess := make([]float64, len(returns))
	copy(excess, returns)
	floats.AddConst(-riskFreeRate/TradingDays, excess)

	mean, std := stat.PopMeanStdDev(excess, nil)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(TradingDays)
}

func TotalReturn(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	return (prices[len(prices)-1]/prices[0] - 1) * 100
}

// AnnualizedReturn compounds the total return over (n-1)/252 years.
func AnnualizedReturn(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	total := prices[len(prices)-1]/prices[0] - 1
	years := float64(len(prices)-1) / TradingDays
	return (math.Pow(1+total, 1/years) - 1) * 100
}

// Compute validates prices and derives every metric. Metrics is zero when
// validation fails.
func Compute(prices []float64, riskFreeRate float64) (Metrics, Validation) {
	v := Validate(prices)
	if !v.OK {
		return Metrics{}, v
	}
	returns := Returns(prices)
	return Metrics{
		Volatility:          Volatility(returns),
		VaR95:               VaR95(returns),
		ExpectedShortfall95: ExpectedShortfall95(returns),
		MaxDrawdown:         MaxDrawdown(prices),
		SharpeRatio:         SharpeRatio(returns, riskFreeRate),
		TotalReturn:         TotalReturn(prices),
		AnnualizedReturn:    AnnualizedReturn(prices),
	}, v
}
