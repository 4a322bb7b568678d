package probability

import (
	"testing"

	"github.com/bcdannyboy/optengine/pricing"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

func TestCalculatePnLRisk(t *testing.T) {
	terminal := make([]float64, 100)
	for i := range terminal {
		terminal[i] = float64(i + 1)
	}
	res, err := CalculatePnLRisk(terminal, func(s float64) float64 { return s }, 50, 0.95)
	if err != nil {
		t.Fatal(err)
	}
	if res.VaR != 44 {
		t.Errorf("VaR = %v, want 44", res.VaR)
	}
	if !scalar.EqualWithinAbs(res.ExpectedShortfall, 46.5, 1e-12) {
		t.Errorf("ES = %v, want 46.5", res.ExpectedShortfall)
	}
	if res.ProbabilityOfProfit != 0.5 || res.MeanPnL != 0.5 {
		t.Errorf("P(profit) %v mean %v", res.ProbabilityOfProfit, res.MeanPnL)
	}

	if _, err := CalculatePnLRisk(nil, func(s float64) float64 { return s }, 0, 0.95); err == nil {
		t.Error("expected error for empty distribution")
	}
	if _, err := CalculatePnLRisk(terminal, func(s float64) float64 { return s }, 0, 1); err == nil {
		t.Error("expected error for confidence 1")
	}
}

func TestCalculatePnLRiskOrderStatistic(t *testing.T) {
	terminal := make([]float64, 20)
	for i := range terminal {
		terminal[i] = float64(i + 1)
	}
	// k = int(20*0.25) = 5, so VaR sits on the 6th worst outcome.
	res, err := CalculatePnLRisk(terminal, func(s float64) float64 { return s }, 0, 0.75)
	if err != nil {
		t.Fatal(err)
	}
	if res.VaR != -6 {
		t.Errorf("VaR = %v, want -6", res.VaR)
	}
	if !scalar.EqualWithinAbs(res.ExpectedShortfall, -3.5, 1e-12) {
		t.Errorf("ES = %v, want -3.5", res.ExpectedShortfall)
	}
}

func TestSimulateTerminalIsRiskNeutral(t *testing.T) {
	terminal, err := SimulateTerminal(scenarioContract, 200000, NewSource(5))
	if err != nil {
		t.Fatal(err)
	}
	forward := scenarioContract.Spot * 1.0512710963760241
	if mean := stat.Mean(terminal, nil); !scalar.EqualWithinAbs(mean, forward, 0.3) {
		t.Errorf("mean terminal %v, forward %v", mean, forward)
	}

	bs, _ := pricing.BlackScholesMerton(scenarioContract)
	res, err := CalculatePnLRisk(terminal, func(s float64) float64 {
		return pricing.Intrinsic(s, scenarioContract.Strike, scenarioContract.Type)
	}, bs.Price, 0.95)
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(res.VaR, bs.Price, 1e-9) {
		t.Errorf("long call VaR %v, want premium %v", res.VaR, bs.Price)
	}
}
