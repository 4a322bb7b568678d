package pricing

import (
	"fmt"
	"math"
	"sort"

	"github.com/bcdannyboy/optengine/models"
)

// GreekPoint is the option value and its Greeks at one spot level.
type GreekPoint struct {
	Spot   float64 `csv:"spot" json:"spot"`
	Payoff float64 `csv:"payoff" json:"payoff"`
	Price  float64 `csv:"price" json:"option_price"`
	Delta  float64 `csv:"delta" json:"delta"`
	Gamma  float64 `csv:"gamma" json:"gamma"`
	Theta  float64 `csv:"theta" json:"theta"`
	Vega   float64 `csv:"vega" json:"vega"`
	Rho    float64 `csv:"rho" json:"rho"`
}

// GreekCurve is a spot sweep at a fixed volatility and maturity.
type GreekCurve struct {
	Volatility float64      `json:"volatility"`
	Maturity   float64      `json:"maturity"`
	AtSpot     GreekPoint   `json:"values_at_spot"`
	Points     []GreekPoint `json:"points"`
}

// ShadowGamma measures the change in delta when spot and volatility move
// together, spot by priceChange and volatility by volChange (both relative).
func ShadowGamma(c models.Contract, priceChange, volChange float64) (float64, float64, error) {
	base, err := BlackScholesMerton(c)
	if err != nil {
		return 0, 0, err
	}

	up := c
	up.Spot = c.Spot * (1 + priceChange)
	up.Volatility = c.Volatility * (1 + volChange)
	upRes, err := BlackScholesMerton(up)
	if err != nil {
		return 0, 0, fmt.Errorf("shadow gamma up scenario: %w", err)
	}

	down := c
	down.Spot = c.Spot * (1 - priceChange)
	down.Volatility = c.Volatility * (1 - volChange)
	downRes, err := BlackScholesMerton(down)
	if err != nil {
		return 0, 0, fmt.Errorf("shadow gamma down scenario: %w", err)
	}

	shadowUp := (upRes.Delta - base.Delta) / (up.Spot - c.Spot)
	shadowDown := (base.Delta - downRes.Delta) / (c.Spot - down.Spot)
	return shadowUp, shadowDown, nil
}

// SkewGamma is the central difference of unscaled vega in volatility (vomma).
func SkewGamma(c models.Contract, volStep float64) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	upSigma := c.Volatility * (1 + volStep)
	downSigma := c.Volatility * (1 - volStep)
	_, upVega := PriceVega(c.WithVolatility(upSigma))
	_, downVega := PriceVega(c.WithVolatility(downSigma))
	return (upVega - downVega) / (upSigma - downSigma), nil
}

// HigherOrder computes shadow gammas (spot 1%, vol 5%) and skew gamma.
func HigherOrder(c models.Contract) (models.HigherOrderGreeks, error) {
	up, down, err := ShadowGamma(c, 0.01, 0.05)
	if err != nil {
		return models.HigherOrderGreeks{}, err
	}
	skew, err := SkewGamma(c, 0.001)
	if err != nil {
		return models.HigherOrderGreeks{}, err
	}
	return models.HigherOrderGreeks{ShadowUpGamma: up, ShadowDownGamma: down, SkewGamma: skew}, nil
}

// SpotGrid spans 0 to 2*max(S, K) in roughly 100 steps of at least 0.5.
func SpotGrid(S, K float64) []float64 {
	xMax := 2 * math.Max(S, K)
	step := math.Max(0.5, xMax/100)
	n := int(math.Ceil((xMax+step)/step - 1e-9))
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = float64(i) * step
	}
	return grid
}

// GreekCurves sweeps spot across SpotGrid holding every other input fixed.
func GreekCurves(c models.Contract) (GreekCurve, error) {
	if err := c.Validate(); err != nil {
		return GreekCurve{}, err
	}
	return sweep(c, SpotGrid(c.Spot, c.Strike))
}

// VolatilitySensitivity builds one curve per volatility from
// max(sigma-0.10, 0.05) to sigma+0.20 in steps of 0.05.
func VolatilitySensitivity(c models.Contract) ([]GreekCurve, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	grid := SpotGrid(c.Spot, c.Strike)

	lo := math.Max(c.Volatility-0.10, 0.05)
	hi := c.Volatility + 0.20
	var curves []GreekCurve
	for i := 0; ; i++ {
		vol := lo + float64(i)*0.05
		if vol > hi+1e-9 {
			break
		}
		vol = math.Max(round(vol, 3), 0.001)
		curve, err := sweep(c.WithVolatility(vol), grid)
		if err != nil {
			return nil, fmt.Errorf("volatility %.3f: %w", vol, err)
		}
		curves = append(curves, curve)
	}
	return curves, nil
}

// MaturitySensitivity builds one curve per maturity from 0.1 to T+1.0 in steps
// of 0.2, always including T rounded to one decimal.
func MaturitySensitivity(c models.Contract) ([]GreekCurve, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	grid := SpotGrid(c.Spot, c.Strike)

	var maturities []float64
	for i := 0; ; i++ {
		m := 0.1 + float64(i)*0.2
		if m > c.Maturity+1.0+1e-9 {
			break
		}
		maturities = append(maturities, round(m, 1))
	}
	own := round(c.Maturity, 1)
	if own <= 0 {
		own = c.Maturity
	}
	found := false
	for _, m := range maturities {
		if m == own {
			found = true
			break
		}
	}
	if !found {
		maturities = append(maturities, own)
		sort.Float64s(maturities)
	}

	curves := make([]GreekCurve, 0, len(maturities))
	for _, m := range maturities {
		mc := c
		mc.Maturity = m
		curve, err := sweep(mc, grid)
		if err != nil {
			return nil, fmt.Errorf("maturity %.1f: %w", m, err)
		}
		curves = append(curves, curve)
	}
	return curves, nil
}

func sweep(c models.Contract, grid []float64) (GreekCurve, error) {
	atSpot, err := point(c)
	if err != nil {
		return GreekCurve{}, err
	}
	curve := GreekCurve{
		Volatility: c.Volatility,
		Maturity:   c.Maturity,
		AtSpot:     atSpot,
		Points:     make([]GreekPoint, 0, len(grid)),
	}
	for _, s := range grid {
		sc := c
		sc.Spot = math.Max(s, 0.01)
		p, err := point(sc)
		if err != nil {
			return GreekCurve{}, err
		}
		curve.Points = append(curve.Points, p)
	}
	return curve, nil
}

func point(c models.Contract) (GreekPoint, error) {
	res, err := BlackScholesMerton(c)
	if err != nil {
		return GreekPoint{}, err
	}
	return GreekPoint{
		Spot:   c.Spot,
		Payoff: Intrinsic(c.Spot, c.Strike, c.Type),
		Price:  res.Price,
		Delta:  res.Delta,
		Gamma:  res.Gamma,
		Theta:  res.Theta,
		Vega:   res.Vega,
		Rho:    res.Rho,
	}, nil
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
