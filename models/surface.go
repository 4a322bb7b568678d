package models

import "sort"

// VolatilitySurface is an implied volatility grid indexed [maturity][strike].
// Converged is false for cells that were filled rather than solved.
type VolatilitySurface struct {
	Spot       float64     `json:"spot"`
	Strikes    []float64   `json:"strikes"`
	Maturities []float64   `json:"maturities"`
	Vols       [][]float64 `json:"vols"`
	Converged  [][]bool    `json:"converged"`
}

func (s VolatilitySurface) Empty() bool {
	return len(s.Strikes) == 0 || len(s.Maturities) == 0 || len(s.Vols) == 0
}

// Interpolate returns the bilinearly interpolated volatility at (K, t).
// Points outside the grid are clamped to the nearest edge.
func (s VolatilitySurface) Interpolate(K, t float64) float64 {
	if s.Empty() {
		return 0
	}

	t0, t1, xt := bracket(s.Maturities, t)
	k0, k1, xk := bracket(s.Strikes, K)

	v00 := s.Vols[t0][k0]
	v01 := s.Vols[t0][k1]
	v10 := s.Vols[t1][k0]
	v11 := s.Vols[t1][k1]

	return (1-xt)*(1-xk)*v00 + xt*(1-xk)*v10 + (1-xt)*xk*v01 + xt*xk*v11
}

// bracket finds the grid cell around x and the fractional position inside it.
func bracket(grid []float64, x float64) (int, int, float64) {
	n := len(grid)
	if n == 1 || x <= grid[0] {
		return 0, 0, 0
	}
	if x >= grid[n-1] {
		return n - 1, n - 1, 0
	}
	hi := sort.SearchFloat64s(grid, x)
	hi = clamp(hi, 1, n-1)
	lo := hi - 1
	return lo, hi, (x - grid[lo]) / (grid[hi] - grid[lo])
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
