package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bcdannyboy/optengine/config"
	"github.com/bcdannyboy/optengine/probability"
	"github.com/fatih/color"
	"github.com/xhhuango/json"
	"gonum.org/v1/gonum/floats/scalar"
)

func init() {
	color.NoColor = true
}

func run(t *testing.T, fn func(config.Config, []string, io.Writer) error, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	if err := fn(cfg, args, &buf); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return buf.String()
}

func TestBlackScholesCommand(t *testing.T) {
	out := run(t, runBlackScholes, "-S", "100", "-K", "100", "-T", "1", "-r", "0.05", "-sigma", "0.2", "-higher", "-json")

	var got struct {
		Price       float64 `json:"price"`
		Delta       float64 `json:"delta"`
		HigherOrder *struct {
			SkewGamma float64 `json:"skewGamma"`
		} `json:"higherOrder"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if !scalar.EqualWithinAbs(got.Price, 10.450583572185565, 1e-9) {
		t.Errorf("price = %v", got.Price)
	}
	if got.HigherOrder == nil {
		t.Error("missing higher order greeks")
	}

	text := run(t, runBlackScholes, "-type", "put")
	if !strings.Contains(text, "put") {
		t.Errorf("table output lacks option type:\n%s", text)
	}
}

func TestBlackScholesCommandRejectsBadInput(t *testing.T) {
	var buf bytes.Buffer
	if err := runBlackScholes(config.Default(), []string{"-type", "straddle"}, &buf); err == nil {
		t.Error("expected an error for an unknown option type")
	}
	if err := runBlackScholes(config.Default(), []string{"-sigma", "0"}, &buf); err == nil {
		t.Error("expected an error for zero volatility")
	}
}

func TestImpliedVolCommand(t *testing.T) {
	out := run(t, runImpliedVol, "-price", "10.450583572185565", "-r", "0.05", "-json")
	var iv struct {
		Sigma float64 `json:"iv"`
	}
	if err := json.Unmarshal([]byte(out), &iv); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if !scalar.EqualWithinAbs(iv.Sigma, 0.2, 1e-5) {
		t.Errorf("iv = %v, want 0.2", iv.Sigma)
	}

	out = run(t, runImpliedVol, "-price", "150", "-json")
	if strings.TrimSpace(out) != "null" {
		t.Errorf("price above the spot should not solve, got %s", out)
	}
}

func TestMonteCarloCommandNullTheta(t *testing.T) {
	out := run(t, runMonteCarlo, "-T", "0.002", "-paths", "2000", "-steps", "10", "-seed", "7", "-json")

	var got map[string]interface{}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	theta, ok := got["theta"]
	if !ok || theta != nil {
		t.Errorf("theta = %v (present %v), want null", theta, ok)
	}
	if _, ok := got["stdError"]; !ok {
		t.Error("missing stdError")
	}
}

func TestMonteCarloCommandSeeded(t *testing.T) {
	args := []string{"-paths", "5000", "-steps", "50", "-seed", "42", "-var", "0.95", "-json"}
	first := run(t, runMonteCarlo, args...)
	second := run(t, runMonteCarlo, append(args, "-workers", "1")...)
	if first != second {
		t.Errorf("seeded runs differ:\n%s\n%s", first, second)
	}
	if !strings.Contains(first, `"pnlRisk"`) {
		t.Errorf("missing pnl risk in %s", first)
	}
}

func TestSeedSource(t *testing.T) {
	cfg := config.Default()
	cfg.Seed, cfg.HasSeed = 9, true

	tests := []struct {
		name   string
		cfg    config.Config
		args   []string
		seeded bool
		want   uint64
	}{
		{"configured seed", cfg, nil, true, 9},
		{"flag overrides configuration", cfg, []string{"-seed", "5"}, true, 5},
		{"explicit zero is random", cfg, []string{"-seed", "0"}, false, 0},
		{"no seed anywhere", config.Default(), nil, false, 0},
		{"flag without configuration", config.Default(), []string{"-seed", "3"}, true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("mc", flag.ContinueOnError)
			seed := fs.Uint64("seed", tt.cfg.Seed, "")
			if err := fs.Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			src := seedSource(fs, *seed, tt.cfg)
			if (src != nil) != tt.seeded {
				t.Fatalf("seeded = %v, want %v", src != nil, tt.seeded)
			}
			if src != nil && src.NormFloat64() != probability.NewSource(tt.want).NormFloat64() {
				t.Errorf("generator not seeded with %d", tt.want)
			}
		})
	}
}

func TestCurvesCommand(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "curves.csv")
	run(t, runCurves, "-matrix", "vol", "-csv", file)

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if !strings.HasPrefix(lines[0], "volatility,maturity,spot") {
		t.Errorf("unexpected csv header: %s", lines[0])
	}
	if len(lines) < 2 {
		t.Error("no curve rows written")
	}

	var buf bytes.Buffer
	if err := runCurves(config.Default(), []string{"-matrix", "skew"}, &buf); err == nil {
		t.Error("expected an error for an unknown matrix")
	}
}

func writePrices(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,open,high,low,close\n")
	price := 100.0
	for i := 0; i < n; i++ {
		next := price * math.Exp(0.01*math.Sin(float64(i)*1.3))
		fmt.Fprintf(&b, "2024-01-%02d,%.4f,%.4f,%.4f,%.4f\n", i%28+1, price, math.Max(price, next)*1.005, math.Min(price, next)*0.995, next)
		price = next
	}
	file := filepath.Join(t.TempDir(), "prices.csv")
	if err := os.WriteFile(file, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return file
}

func TestRiskCommand(t *testing.T) {
	file := writePrices(t, 60)
	out := run(t, runRisk, "-file", file, "-garch", "-json")

	var got struct {
		Metrics map[string]float64 `json:"metrics"`
		Range   map[string]interface{}
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if len(got.Metrics) == 0 {
		t.Errorf("no metrics in %s", out)
	}

	var buf bytes.Buffer
	if err := runRisk(config.Default(), nil, &buf); err == nil {
		t.Error("expected an error without -file")
	}
}

func TestSurfaceCommand(t *testing.T) {
	var b strings.Builder
	b.WriteString("strike,maturity,price,type\n")
	for _, T := range []float64{0.25, 0.5} {
		for _, K := range []float64{80, 90, 100, 110, 120, 130} {
			fmt.Fprintf(&b, "%v,%v,%.6f,call\n", K, T, bsCall(100, K, T, 0.05, 0.2))
		}
	}
	file := filepath.Join(t.TempDir(), "quotes.csv")
	if err := os.WriteFile(file, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	out := run(t, runSurface, "-quotes", file, "-S", "100", "-r", "0.05", "-workers", "2", "-json")
	var surface struct {
		Strikes    []float64   `json:"strikes"`
		Maturities []float64   `json:"maturities"`
		Vols       [][]float64 `json:"vols"`
	}
	if err := json.Unmarshal([]byte(out), &surface); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if len(surface.Maturities) != 2 || len(surface.Strikes) != 6 {
		t.Fatalf("grid %v x %v", surface.Maturities, surface.Strikes)
	}
	for _, row := range surface.Vols {
		for _, v := range row {
			if !scalar.EqualWithinAbs(v, 0.2, 1e-3) {
				t.Errorf("vol = %v, want 0.2", v)
			}
		}
	}
}

func bsCall(S, K, T, r, sigma float64) float64 {
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * math.Sqrt(T))
	d2 := d1 - sigma*math.Sqrt(T)
	n := func(x float64) float64 { return 0.5 * math.Erfc(-x/math.Sqrt2) }
	return S*n(d1) - K*math.Exp(-r*T)*n(d2)
}
