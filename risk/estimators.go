package risk

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Bar is one daily OHLC observation.
type Bar struct {
	Date  string  `csv:"date" json:"date"`
	Open  float64 `csv:"open" json:"open"`
	High  float64 `csv:"high" json:"high"`
	Low   float64 `csv:"low" json:"low"`
	Close float64 `csv:"close" json:"close"`
}

func (b Bar) valid() bool {
	return b.Open > 0 && b.High > 0 && b.Low > 0 && b.Close > 0 && b.High >= b.Low
}

// RangeEstimates holds annualised range-based volatility estimates.
type RangeEstimates struct {
	Bars           int     `json:"bars"`
	Parkinson      float64 `json:"parkinson"`
	GarmanKlass    float64 `json:"garman_klass"`
	RogersSatchell float64 `json:"rogers_satchell"`
	YangZhang      float64 `json:"yang_zhang"`
}

var windows = []struct {
	name string
	days int
}{
	{"1w", 5},
	{"1m", 21},
	{"3m", 63},
	{"6m", 126},
	{"1y", 252},
}

// EstimateWindows applies every estimator to the trailing bars of each
// standard window that the history is long enough to fill.
func EstimateWindows(bars []Bar) map[string]RangeEstimates {
	results := make(map[string]RangeEstimates)
	for _, w := range windows {
		if len(bars) < w.days {
			continue
		}
		tail := bars[len(bars)-w.days:]
		results[w.name] = RangeEstimates{
			Bars:           w.days,
			Parkinson:      Parkinson(tail),
			GarmanKlass:    GarmanKlass(tail),
			RogersSatchell: RogersSatchell(tail),
			YangZhang:      YangZhang(tail),
		}
	}
	return results
}

func wellFormed(bars []Bar) bool {
	if len(bars) == 0 {
		return false
	}
	for _, b := range bars {
		if !b.valid() {
			return false
		}
	}
	return true
}

// Parkinson uses the high-low range only.
func Parkinson(bars []Bar) float64 {
	if !wellFormed(bars) {
		return 0
	}
	sum := 0.0
	for _, b := range bars {
		hl := math.Log(b.High / b.Low)
		sum += hl * hl
	}
	return math.Sqrt(sum / (4 * float64(len(bars)) * math.Ln2) * TradingDays)
}

func GarmanKlass(bars []Bar) float64 {
	if !wellFormed(bars) {
		return 0
	}
	sum := 0.0
	for _, b := range bars {
		hl := math.Log(b.High / b.Low)
		co := math.Log(b.Close / b.Open)
		sum += 0.5*hl*hl - (2*math.Ln2-1)*co*co
	}
	if sum < 0 {
		return 0
	}
	return math.Sqrt(sum / float64(len(bars)) * TradingDays)
}

// RogersSatchell is drift independent.
func RogersSatchell(bars []Bar) float64 {
	if !wellFormed(bars) {
		return 0
	}
	return math.Sqrt(rogersSatchellVariance(bars) * TradingDays)
}

func rogersSatchellVariance(bars []Bar) float64 {
	sum := 0.0
	for _, b := range bars {
		sum += math.Log(b.High/b.Close)*math.Log(b.High/b.Open) +
			math.Log(b.Low/b.Close)*math.Log(b.Low/b.Open)
	}
	return sum / float64(len(bars))
}

// YangZhang combines overnight, open-to-close and Rogers-Satchell variances.
// It needs at least two bars.
func YangZhang(bars []Bar) float64 {
	n := len(bars)
	if n < 2 || !wellFormed(bars) {
		return 0
	}

	overnight := make([]float64, n-1)
	for i := 1; i < n; i++ {
		overnight[i-1] = math.Log(bars[i].Open / bars[i-1].Close)
	}
	openClose := make([]float64, n)
	for i, b := range bars {
		openClose[i] = math.Log(b.Close / b.Open)
	}

	var overnightVar float64
	if len(overnight) > 1 {
		overnightVar = stat.Variance(overnight, nil)
	}
	k := 0.34 / (1.34 + float64(n+1)/float64(n-1))
	variance := overnightVar + k*stat.Variance(openClose, nil) + (1-k)*rogersSatchellVariance(bars)
	if variance < 0 {
		return 0
	}
	return math.Sqrt(variance * TradingDays)
}
