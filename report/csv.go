package report

import (
	"fmt"
	"io"

	"github.com/bcdannyboy/optengine/models"
	"github.com/bcdannyboy/optengine/pricing"
	"github.com/bcdannyboy/optengine/risk"
	"github.com/gocarina/gocsv"
)

const exportPlaces = 6

type surfaceRow struct {
	Maturity   float64 `csv:"maturity"`
	Strike     float64 `csv:"strike"`
	Moneyness  float64 `csv:"moneyness"`
	Volatility float64 `csv:"iv"`
	Converged  bool    `csv:"converged"`
}

type curveRow struct {
	Volatility float64 `csv:"volatility"`
	Maturity   float64 `csv:"maturity"`
	pricing.GreekPoint
}

type priceRow struct {
	Close float64 `csv:"close"`
}

// WriteCurves writes one row per spot level of every curve.
func WriteCurves(w io.Writer, curves []pricing.GreekCurve) error {
	var rows []curveRow
	for _, c := range curves {
		for _, p := range c.Points {
			rows = append(rows, curveRow{
				Volatility: Round(c.Volatility, exportPlaces),
				Maturity:   Round(c.Maturity, exportPlaces),
				GreekPoint: pricing.GreekPoint{
					Spot:   Round(p.Spot, exportPlaces),
					Payoff: Round(p.Payoff, exportPlaces),
					Price:  Round(p.Price, exportPlaces),
					Delta:  Round(p.Delta, exportPlaces),
					Gamma:  Round(p.Gamma, exportPlaces),
					Theta:  Round(p.Theta, exportPlaces),
					Vega:   Round(p.Vega, exportPlaces),
					Rho:    Round(p.Rho, exportPlaces),
				},
			})
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing greek curves: %w", err)
	}
	return nil
}

// WriteSurface flattens the surface into (maturity, strike) rows.
func WriteSurface(w io.Writer, s models.VolatilitySurface) error {
	rows := make([]surfaceRow, 0, len(s.Maturities)*len(s.Strikes))
	for ti, T := range s.Maturities {
		for ki, K := range s.Strikes {
			moneyness := 0.0
			if s.Spot > 0 {
				moneyness = K / s.Spot
			}
			rows = append(rows, surfaceRow{
				Maturity:   Round(T, exportPlaces),
				Strike:     K,
				Moneyness:  Round(moneyness, exportPlaces),
				Volatility: Round(s.Vols[ti][ki], exportPlaces),
				Converged:  s.Converged[ti][ki],
			})
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing volatility surface: %w", err)
	}
	return nil
}

// ReadQuotes expects strike, maturity, price and type columns.
func ReadQuotes(r io.Reader) ([]models.Quote, error) {
	var quotes []models.Quote
	if err := gocsv.Unmarshal(r, &quotes); err != nil {
		return nil, fmt.Errorf("reading quotes: %w", err)
	}
	return quotes, nil
}

// ReadBars reads date, open, high, low and close columns.
func ReadBars(r io.Reader) ([]risk.Bar, error) {
	var bars []risk.Bar
	if err := gocsv.Unmarshal(r, &bars); err != nil {
		return nil, fmt.Errorf("reading bars: %w", err)
	}
	return bars, nil
}

// ReadPrices reads the close column of a price history.
func ReadPrices(r io.Reader) ([]float64, error) {
	var rows []priceRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("reading prices: %w", err)
	}
	prices := make([]float64, len(rows))
	for i, row := range rows {
		prices[i] = row.Close
	}
	return prices, nil
}
