package pricing

import (
	"math"

	"github.com/bcdannyboy/optengine/models"
)

const (
	TradingDays = 252.0
	// PercentScale converts a unit sensitivity to one per percentage point.
	PercentScale = 0.01
)

// BlackScholes prices a European option without dividends.
func BlackScholes(S, K, T, r, sigma float64, optionType models.OptionType) (models.PricingResult, error) {
	return BlackScholesMerton(models.Contract{
		Spot:       S,
		Strike:     K,
		Maturity:   T,
		Rate:       r,
		Volatility: sigma,
		Type:       optionType,
	})
}

// BlackScholesMerton prices a European option on an asset paying a continuous
// dividend yield. Theta is per trading day, vega and rho per percentage point.
func BlackScholesMerton(c models.Contract) (models.PricingResult, error) {
	if err := c.Validate(); err != nil {
		return models.PricingResult{}, err
	}

	S, K, T, r, q, sigma := c.Spot, c.Strike, c.Maturity, c.Rate, c.DividendYield, c.Volatility
	sqrtT := math.Sqrt(T)
	d1, d2 := d1d2(S, K, T, r, q, sigma)
	discR := math.Exp(-r * T)
	discQ := math.Exp(-q * T)
	pdf := NormPDF(d1)

	gamma := discQ * pdf / (S * sigma * sqrtT)
	vega := S * discQ * pdf * sqrtT
	decay := -S * discQ * pdf * sigma / (2 * sqrtT)

	var price, delta, theta, rho float64
	if c.Type.IsCall() {
		price = S*discQ*NormCDF(d1) - K*discR*NormCDF(d2)
		delta = discQ * NormCDF(d1)
		theta = decay - r*K*discR*NormCDF(d2) + q*S*discQ*NormCDF(d1)
		rho = K * T * discR * NormCDF(d2)
	} else {
		price = K*discR*NormCDF(-d2) - S*discQ*NormCDF(-d1)
		delta = discQ * (NormCDF(d1) - 1)
		theta = decay + r*K*discR*NormCDF(-d2) - q*S*discQ*NormCDF(-d1)
		rho = -K * T * discR * NormCDF(-d2)
	}

	return models.PricingResult{
		Price: math.Max(price, 0),
		Delta: delta,
		Gamma: gamma,
		Theta: theta / TradingDays,
		Vega:  vega * PercentScale,
		Rho:   rho * PercentScale,
	}, nil
}

// PriceVega returns the unscaled price and vega. For T <= 0 or sigma <= 0 the
// price collapses to the discounted forward intrinsic value and vega is zero.
func PriceVega(c models.Contract) (float64, float64) {
	S, K, T, r, q, sigma := c.Spot, c.Strike, c.Maturity, c.Rate, c.DividendYield, c.Volatility
	if T <= 0 {
		return Intrinsic(S, K, c.Type), 0
	}
	discR := math.Exp(-r * T)
	discQ := math.Exp(-q * T)
	if sigma <= 0 {
		return Intrinsic(S*discQ, K*discR, c.Type), 0
	}

	d1, d2 := d1d2(S, K, T, r, q, sigma)
	vega := S * discQ * NormPDF(d1) * math.Sqrt(T)
	if c.Type.IsCall() {
		return S*discQ*NormCDF(d1) - K*discR*NormCDF(d2), vega
	}
	return K*discR*NormCDF(-d2) - S*discQ*NormCDF(-d1), vega
}

// Intrinsic is the exercise value of the option at spot S.
func Intrinsic(S, K float64, optionType models.OptionType) float64 {
	if optionType.IsCall() {
		return math.Max(S-K, 0)
	}
	return math.Max(K-S, 0)
}

func d1d2(S, K, T, r, q, sigma float64) (float64, float64) {
	volT := sigma * math.Sqrt(T)
	d1 := (math.Log(S/K) + (r-q+0.5*sigma*sigma)*T) / volT
	return d1, d1 - volT
}
