package models

// PricingResult holds a price and its first/second order sensitivities.
// Theta is per trading day (1/252 year), Vega per 1% volatility and Rho per 1% rate.
type PricingResult struct {
	Price float64 `json:"price"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

type MonteCarloResult struct {
	PricingResult
	StdError           *float64            `json:"stdError,omitempty"`
	ConfidenceInterval *ConfidenceInterval `json:"confidenceInterval,omitempty"`
	Paths              [][]float64         `json:"paths,omitempty"`
	TimeGrid           []float64           `json:"timeGrid,omitempty"`
	NumPaths           int                 `json:"numPaths"`
	NumSteps           int                 `json:"numSteps"`
}

// ImpliedVolatility is only ever produced by a converged solve.
type ImpliedVolatility struct {
	Sigma      float64  `json:"iv"`
	Iterations int      `json:"iterations"`
	Residual   float64  `json:"residual"`
	Contract   Contract `json:"parameters"`
}

// HigherOrderGreeks are finite-difference sensitivities beyond the standard five.
type HigherOrderGreeks struct {
	ShadowUpGamma   float64 `json:"shadowUpGamma"`
	ShadowDownGamma float64 `json:"shadowDownGamma"`
	SkewGamma       float64 `json:"skewGamma"`
}

// Quote is one observed option price used to build a volatility surface.
type Quote struct {
	Strike   float64    `csv:"strike" json:"strike"`
	Maturity float64    `csv:"maturity" json:"maturity"`
	Price    float64    `csv:"price" json:"price"`
	Type     OptionType `csv:"type" json:"type"`
}
