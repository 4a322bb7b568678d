package probability

import (
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/bcdannyboy/optengine/models"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultNumPaths = 100000
	DefaultNumSteps = 252

	DefaultSpotBump = 0.01
	DefaultVolBump  = 0.01
	DefaultRateBump = 1e-4

	MaxReturnedPaths = 200
	MaxReturnedSteps = 300

	minBump   = 1e-6
	chunkSize = 4096
	z95       = 1.96

	tradingDays  = 252.0
	percentScale = 0.01
)

// NormalSource produces standard normal variates. *rand.Rand satisfies it.
type NormalSource interface {
	NormFloat64() float64
}

var rngPool = sync.Pool{
	New: func() interface{} {
		return rand.New(rand.NewSource(uint64(rand.Int63())))
	},
}

func init() {
	rand.Seed(uint64(time.Now().UnixNano()))
}

// NewSource returns a generator whose draws are fully determined by seed.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Options controls a Monte Carlo run. Zero bumps take the package defaults and
// bumps below 1e-6 are raised to 1e-6.
type Options struct {
	NumPaths int
	NumSteps int
	// SpotBump and VolBump are relative, RateBump is absolute.
	SpotBump float64
	VolBump  float64
	RateBump float64
	// ThetaStep in years, 0 means max(T/NumSteps, 1/365).
	ThetaStep    float64
	ReturnStdErr bool
	// ReturnPaths is the number of sample paths to return, capped at 200.
	ReturnPaths int
	Workers     int
}

func DefaultOptions() Options {
	return Options{
		NumPaths:     DefaultNumPaths,
		NumSteps:     DefaultNumSteps,
		SpotBump:     DefaultSpotBump,
		VolBump:      DefaultVolBump,
		RateBump:     DefaultRateBump,
		ReturnStdErr: true,
	}
}

func bump(v, def float64) float64 {
	if v == 0 {
		v = def
	}
	return math.Max(v, minBump)
}

func (o Options) validate() error {
	if o.NumPaths < 1 {
		return &models.InvalidParameterError{Param: "num_paths", Value: float64(o.NumPaths), Reason: "must be at least 1"}
	}
	if o.NumSteps < 1 {
		return &models.InvalidParameterError{Param: "num_steps", Value: float64(o.NumSteps), Reason: "must be at least 1"}
	}
	if o.SpotBump < 0 || o.SpotBump >= 1 {
		return &models.InvalidParameterError{Param: "spot_bump", Value: o.SpotBump, Reason: "must lie in [0, 1)"}
	}
	if o.VolBump < 0 || o.VolBump >= 1 {
		return &models.InvalidParameterError{Param: "vol_bump", Value: o.VolBump, Reason: "must lie in [0, 1)"}
	}
	if o.RateBump < 0 || math.IsNaN(o.RateBump) {
		return &models.InvalidParameterError{Param: "rate_bump", Value: o.RateBump, Reason: "must be non-negative"}
	}
	if o.ThetaStep < 0 || math.IsNaN(o.ThetaStep) {
		return &models.InvalidParameterError{Param: "theta_step", Value: o.ThetaStep, Reason: "must be non-negative"}
	}
	return nil
}

type scenario struct {
	spot     float64
	sigma    float64
	rate     float64
	maturity float64
}

// terminalPricer revalues a European payoff over a fixed batch of normals.
type terminalPricer struct {
	z       []float64
	strike  float64
	q       float64
	isCall  bool
	workers int
}

func (p *terminalPricer) payoff(st float64) float64 {
	if p.isCall {
		return math.Max(st-p.strike, 0)
	}
	return math.Max(p.strike-st, 0)
}

// value returns the discounted mean payoff under sc. When out is non-nil the
// undiscounted payoffs are written into it.
func (p *terminalPricer) value(sc scenario, out []float64) float64 {
	drift := (sc.rate - p.q - 0.5*sc.sigma*sc.sigma) * sc.maturity
	vol := sc.sigma * math.Sqrt(sc.maturity)

	numChunks := (len(p.z) + chunkSize - 1) / chunkSize
	partial := make([]float64, numChunks)
	chunks := make(chan int, numChunks)
	for c := 0; c < numChunks; c++ {
		chunks <- c
	}
	close(chunks)

	workers := p.workers
	if workers > numChunks {
		workers = numChunks
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range chunks {
				lo := c * chunkSize
				hi := lo + chunkSize
				if hi > len(p.z) {
					hi = len(p.z)
				}
				sum := 0.0
				for i := lo; i < hi; i++ {
					v := p.payoff(sc.spot * math.Exp(drift+vol*p.z[i]))
					if out != nil {
						out[i] = v
					}
					sum += v
				}
				partial[c] = sum
			}
		}()
	}
	wg.Wait()

	return math.Exp(-sc.rate*sc.maturity) * floats.Sum(partial) / float64(len(p.z))
}

// MonteCarlo prices a European option by exact simulation of terminal GBM.
// Greeks are bump-and-revalue estimates that reuse the pricing draws. A nil
// src borrows a pooled generator.
func MonteCarlo(c models.Contract, opts Options, src NormalSource) (models.MonteCarloResult, error) {
	if err := c.Validate(); err != nil {
		return models.MonteCarloResult{}, err
	}
	if err := opts.validate(); err != nil {
		return models.MonteCarloResult{}, err
	}
	if src == nil {
		rng := rngPool.Get().(*rand.Rand)
		defer rngPool.Put(rng)
		src = rng
	}

	n := opts.NumPaths
	z := make([]float64, n)
	for i := range z {
		z[i] = src.NormFloat64()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pricer := &terminalPricer{z: z, strike: c.Strike, q: c.DividendYield, isCall: c.Type.IsCall(), workers: workers}
	base := scenario{spot: c.Spot, sigma: c.Volatility, rate: c.Rate, maturity: c.Maturity}

	payoffs := make([]float64, n)
	price := pricer.value(base, payoffs)

	hS := bump(opts.SpotBump, DefaultSpotBump) * c.Spot
	up, down := base, base
	up.spot, down.spot = c.Spot+hS, c.Spot-hS
	vUp, vDown := pricer.value(up, nil), pricer.value(down, nil)
	delta := (vUp - vDown) / (2 * hS)
	gamma := (vUp - 2*price + vDown) / (hS * hS)

	hSigma := bump(opts.VolBump, DefaultVolBump) * c.Volatility
	up, down = base, base
	up.sigma, down.sigma = c.Volatility+hSigma, c.Volatility-hSigma
	vega := (pricer.value(up, nil) - pricer.value(down, nil)) / (2 * hSigma) * percentScale

	dr := bump(opts.RateBump, DefaultRateBump)
	up, down = base, base
	up.rate, down.rate = c.Rate+dr, c.Rate-dr
	rho := (pricer.value(up, nil) - pricer.value(down, nil)) / (2 * dr) * percentScale

	dt := opts.ThetaStep
	if dt == 0 {
		dt = math.Max(c.Maturity/float64(opts.NumSteps), 1.0/365)
	}
	theta := math.NaN()
	if c.Maturity > dt {
		shorter := base
		shorter.maturity = c.Maturity - dt
		theta = (pricer.value(shorter, nil) - price) / dt / tradingDays
	}

	result := models.MonteCarloResult{
		PricingResult: models.PricingResult{
			Price: price,
			Delta: delta,
			Gamma: gamma,
			Theta: theta,
			Vega:  vega,
			Rho:   rho,
		},
		NumPaths: n,
		NumSteps: opts.NumSteps,
	}

	if opts.ReturnStdErr {
		se := 0.0
		if n > 1 {
			se = math.Exp(-c.Rate*c.Maturity) * stat.StdDev(payoffs, nil) / math.Sqrt(float64(n))
		}
		result.StdError = &se
		result.ConfidenceInterval = &models.ConfidenceInterval{Lower: price - z95*se, Upper: price + z95*se}
	}

	if opts.ReturnPaths > 0 {
		result.Paths, result.TimeGrid = SamplePaths(c, opts.ReturnPaths, opts.NumSteps, src)
	}

	return result, nil
}

// SamplePaths simulates discretised GBM trajectories for display. At most 200
// paths and between 2 and 300 steps are generated.
func SamplePaths(c models.Contract, numPaths, numSteps int, src NormalSource) ([][]float64, []float64) {
	if numPaths > MaxReturnedPaths {
		numPaths = MaxReturnedPaths
	}
	if numSteps > MaxReturnedSteps {
		numSteps = MaxReturnedSteps
	}
	if numSteps < 2 {
		numSteps = 2
	}

	dt := c.Maturity / float64(numSteps)
	drift := (c.Rate - c.DividendYield - 0.5*c.Volatility*c.Volatility) * dt
	vol := c.Volatility * math.Sqrt(dt)

	grid := make([]float64, numSteps+1)
	for j := range grid {
		grid[j] = float64(j) * dt
	}

	paths := make([][]float64, numPaths)
	for i := range paths {
		path := make([]float64, numSteps+1)
		path[0] = c.Spot
		for j := 1; j <= numSteps; j++ {
			path[j] = path[j-1] * math.Exp(drift+vol*src.NormFloat64())
		}
		paths[i] = path
	}
	return paths, grid
}
