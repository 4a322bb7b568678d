package pricing

import (
	"testing"

	"github.com/bcdannyboy/optengine/models"
	"gonum.org/v1/gonum/floats/scalar"
)

var atm = models.Contract{Spot: 100, Strike: 105, Maturity: 1, Rate: 0.05, Volatility: 0.2, Type: models.Call}

func TestShadowGammaApproachesGamma(t *testing.T) {
	res, err := BlackScholesMerton(atm)
	if err != nil {
		t.Fatal(err)
	}
	up, down, err := ShadowGamma(atm, 1e-5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(up, res.Gamma, 1e-5) || !scalar.EqualWithinAbs(down, res.Gamma, 1e-5) {
		t.Errorf("shadow gammas %v/%v, gamma %v", up, down, res.Gamma)
	}
}

func TestSkewGammaMatchesVomma(t *testing.T) {
	_, vega := PriceVega(atm)
	d1, d2 := d1d2(atm.Spot, atm.Strike, atm.Maturity, atm.Rate, 0, atm.Volatility)
	want := vega * d1 * d2 / atm.Volatility

	got, err := SkewGamma(atm, 0.001)
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(got, want, 1e-3) {
		t.Errorf("skew gamma %v, analytic vomma %v", got, want)
	}

	hog, err := HigherOrder(atm)
	if err != nil {
		t.Fatal(err)
	}
	if hog.SkewGamma != got {
		t.Errorf("HigherOrder skew gamma %v != %v", hog.SkewGamma, got)
	}
}

func TestSpotGrid(t *testing.T) {
	grid := SpotGrid(100, 105)
	if len(grid) != 101 {
		t.Fatalf("len = %d, want 101", len(grid))
	}
	if grid[0] != 0 || !scalar.EqualWithinAbs(grid[100], 210, 1e-9) {
		t.Errorf("grid spans [%v, %v]", grid[0], grid[100])
	}

	small := SpotGrid(10, 10)
	if small[1]-small[0] != 0.5 {
		t.Errorf("step %v, want minimum of 0.5", small[1]-small[0])
	}
}

func TestGreekCurves(t *testing.T) {
	curve, err := GreekCurves(atm)
	if err != nil {
		t.Fatal(err)
	}
	if curve.Points[0].Spot != 0.01 {
		t.Errorf("first spot %v, want floor 0.01", curve.Points[0].Spot)
	}
	for i := 1; i < len(curve.Points); i++ {
		if curve.Points[i].Delta < curve.Points[i-1].Delta-1e-12 {
			t.Fatalf("call delta decreasing at spot %v", curve.Points[i].Spot)
		}
	}
	last := curve.Points[len(curve.Points)-1]
	if last.Payoff != last.Spot-atm.Strike {
		t.Errorf("payoff %v at spot %v", last.Payoff, last.Spot)
	}
	if !scalar.EqualWithinAbs(curve.AtSpot.Price, 8.021, 0.001) {
		t.Errorf("value at spot %v", curve.AtSpot.Price)
	}
}

func TestVolatilitySensitivity(t *testing.T) {
	curves, err := VolatilitySensitivity(atm)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.10, 0.15, 0.20, 0.25, 0.30, 0.35, 0.40}
	if len(curves) != len(want) {
		t.Fatalf("got %d curves, want %d", len(curves), len(want))
	}
	for i, c := range curves {
		if !scalar.EqualWithinAbs(c.Volatility, want[i], 1e-12) {
			t.Errorf("curve %d volatility %v, want %v", i, c.Volatility, want[i])
		}
		if i > 0 && c.AtSpot.Price <= curves[i-1].AtSpot.Price {
			t.Errorf("price not increasing in volatility at %v", c.Volatility)
		}
	}
}

func TestMaturitySensitivity(t *testing.T) {
	c := atm
	c.Maturity = 0.6
	curves, err := MaturitySensitivity(c)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.1, 0.3, 0.5, 0.6, 0.7, 0.9, 1.1, 1.3, 1.5}
	if len(curves) != len(want) {
		t.Fatalf("got %d curves, want %d", len(curves), len(want))
	}
	for i, cv := range curves {
		if cv.Maturity != want[i] {
			t.Errorf("curve %d maturity %v, want %v", i, cv.Maturity, want[i])
		}
	}
}
