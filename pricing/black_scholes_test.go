package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/bcdannyboy/optengine/models"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestNormCDF(t *testing.T) {
	tests := []struct {
		x, want float64
	}{
		{0, 0.5},
		{1.959963984540054, 0.975},
		{-1.959963984540054, 0.025},
		{1, 0.8413447460685429},
		{-9.5, 1.049451507536e-21},
	}
	for _, tt := range tests {
		if got := NormCDF(tt.x); !scalar.EqualWithinAbs(got, tt.want, 1e-7) {
			t.Errorf("NormCDF(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
	if got := NormPDF(0); !scalar.EqualWithinAbs(got, 1/math.Sqrt(2*math.Pi), 1e-15) {
		t.Errorf("NormPDF(0) = %v", got)
	}
}

func TestBlackScholesReferencePrices(t *testing.T) {
	call, err := BlackScholes(100, 100, 1, 0.05, 0.2, models.Call)
	if err != nil {
		t.Fatal(err)
	}
	put, err := BlackScholes(100, 100, 1, 0.05, 0.2, models.Put)
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(call.Price, 10.450583572185565, 1e-6) {
		t.Errorf("call price = %v", call.Price)
	}
	if !scalar.EqualWithinAbs(put.Price, 5.573526022256971, 1e-6) {
		t.Errorf("put price = %v", put.Price)
	}
}

func TestBlackScholesScenario(t *testing.T) {
	res, err := BlackScholes(100, 105, 1, 0.05, 0.2, models.Call)
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(res.Price, 8.02, 0.005) {
		t.Errorf("price = %v, want ~8.02", res.Price)
	}
	if !scalar.EqualWithinAbs(res.Delta, 0.542, 0.001) {
		t.Errorf("delta = %v, want ~0.542", res.Delta)
	}
}

func TestPutCallParity(t *testing.T) {
	for _, S := range []float64{60, 100, 140} {
		for _, K := range []float64{80, 100, 120} {
			for _, T := range []float64{0.1, 1, 3} {
				for _, sigma := range []float64{0.05, 0.3, 1.2} {
					for _, q := range []float64{0, 0.03} {
						c := models.Contract{Spot: S, Strike: K, Maturity: T, Rate: 0.04, Volatility: sigma, DividendYield: q}
						call, err := BlackScholesMerton(c)
						if err != nil {
							t.Fatal(err)
						}
						c.Type = models.Put
						put, err := BlackScholesMerton(c)
						if err != nil {
							t.Fatal(err)
						}
						want := S*math.Exp(-q*T) - K*math.Exp(-0.04*T)
						if got := call.Price - put.Price; !scalar.EqualWithinAbs(got, want, 1e-6) {
							t.Errorf("S=%v K=%v T=%v sigma=%v q=%v: C-P = %v, want %v", S, K, T, sigma, q, got, want)
						}
					}
				}
			}
		}
	}
}

func TestGreekSigns(t *testing.T) {
	for _, S := range []float64{10, 80, 100, 120, 500} {
		for _, sigma := range []float64{0.01, 0.2, 2} {
			for _, typ := range []models.OptionType{models.Call, models.Put} {
				res, err := BlackScholes(S, 100, 0.5, 0.03, sigma, typ)
				if err != nil {
					t.Fatal(err)
				}
				if typ == models.Call && (res.Delta < 0 || res.Delta > 1) {
					t.Errorf("call delta %v out of [0,1] at S=%v sigma=%v", res.Delta, S, sigma)
				}
				if typ == models.Put && (res.Delta < -1 || res.Delta > 0) {
					t.Errorf("put delta %v out of [-1,0] at S=%v sigma=%v", res.Delta, S, sigma)
				}
				if res.Gamma < 0 || res.Vega < 0 {
					t.Errorf("gamma %v vega %v negative at S=%v sigma=%v", res.Gamma, res.Vega, S, sigma)
				}
			}
		}
	}
}

func TestGreeksMatchFiniteDifferences(t *testing.T) {
	base := models.Contract{Spot: 95, Strike: 100, Maturity: 0.75, Rate: 0.04, Volatility: 0.25, DividendYield: 0.02}
	price := func(c models.Contract) float64 {
		p, _ := PriceVega(c)
		return p
	}

	for _, typ := range []models.OptionType{models.Call, models.Put} {
		c := base
		c.Type = typ
		res, err := BlackScholesMerton(c)
		if err != nil {
			t.Fatal(err)
		}

		const h = 1e-4
		up, down := c, c
		up.Spot, down.Spot = c.Spot+h, c.Spot-h
		if fd := (price(up) - price(down)) / (2 * h); !scalar.EqualWithinAbs(res.Delta, fd, 1e-6) {
			t.Errorf("%s delta %v, finite difference %v", typ, res.Delta, fd)
		}

		up, down = c, c
		up.Maturity, down.Maturity = c.Maturity+h, c.Maturity-h
		if fd := -(price(up) - price(down)) / (2 * h) / TradingDays; !scalar.EqualWithinAbs(res.Theta, fd, 1e-7) {
			t.Errorf("%s theta %v, finite difference %v", typ, res.Theta, fd)
		}

		up, down = c, c
		up.Rate, down.Rate = c.Rate+h, c.Rate-h
		if fd := (price(up) - price(down)) / (2 * h) * PercentScale; !scalar.EqualWithinAbs(res.Rho, fd, 1e-6) {
			t.Errorf("%s rho %v, finite difference %v", typ, res.Rho, fd)
		}

		up, down = c, c
		up.Volatility, down.Volatility = c.Volatility+h, c.Volatility-h
		if fd := (price(up) - price(down)) / (2 * h) * PercentScale; !scalar.EqualWithinAbs(res.Vega, fd, 1e-6) {
			t.Errorf("%s vega %v, finite difference %v", typ, res.Vega, fd)
		}
	}
}

func TestBlackScholesRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name              string
		S, K, T, r, sigma float64
	}{
		{"zero spot", 0, 100, 1, 0.05, 0.2},
		{"negative strike", 100, -5, 1, 0.05, 0.2},
		{"zero maturity", 100, 100, 0, 0.05, 0.2},
		{"zero volatility", 100, 100, 1, 0.05, 0},
		{"nan rate", 100, 100, 1, math.NaN(), 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BlackScholes(tt.S, tt.K, tt.T, tt.r, tt.sigma, models.Call)
			if !errors.Is(err, models.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestPriceVegaDegenerate(t *testing.T) {
	c := models.Contract{Spot: 110, Strike: 100, Maturity: 0, Rate: 0.05, Type: models.Call}
	price, vega := PriceVega(c)
	if price != 10 || vega != 0 {
		t.Errorf("expired call: price %v vega %v", price, vega)
	}
	c.Maturity = 1
	price, vega = PriceVega(c)
	if want := 110 - 100*math.Exp(-0.05); !scalar.EqualWithinAbs(price, want, 1e-12) || vega != 0 {
		t.Errorf("zero-vol call: price %v (want %v) vega %v", price, want, vega)
	}
}
