package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bcdannyboy/optengine/config"
	"github.com/bcdannyboy/optengine/models"
	"github.com/fatih/color"
	"github.com/golang/glog"
	"github.com/xhhuango/json"
)

type command struct {
	name  string
	usage string
	run   func(cfg config.Config, args []string, out io.Writer) error
}

var commands = []command{
	{"bs", "closed-form Black-Scholes-Merton price and Greeks", runBlackScholes},
	{"mc", "Monte Carlo price, standard error and Greeks", runMonteCarlo},
	{"iv", "implied volatility from an observed price", runImpliedVol},
	{"risk", "risk metrics of a price history CSV", runRisk},
	{"curves", "Greek curves and sensitivity matrices", runCurves},
	{"surface", "implied volatility surface from a quotes CSV", runSurface},
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [log flags] <command> [flags]\n\ncommands:\n", filepath.Base(os.Args[0]))
	for _, c := range commands {
		fmt.Fprintf(flag.CommandLine.Output(), "  %-8s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(flag.CommandLine.Output(), "\nlog flags:")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		glog.Errorf("configuration: %v", err)
		os.Exit(1)
	}

	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		if err := c.run(cfg, args[1:], color.Output); err != nil {
			glog.Errorf("%s: %v", c.name, err)
			glog.Flush()
			os.Exit(1)
		}
		return
	}

	glog.Errorf("unknown command %q", args[0])
	usage()
	os.Exit(2)
}

// contractFlags registers the flags shared by every single-contract command.
type contractFlags struct {
	spot, strike, maturity, rate, sigma, q *float64
	optionType                             *string
}

func addContractFlags(fs *flag.FlagSet, cfg config.Config, withSigma bool) contractFlags {
	cf := contractFlags{
		spot:       fs.Float64("S", 100, "spot price"),
		strike:     fs.Float64("K", 100, "strike price"),
		maturity:   fs.Float64("T", 1, "time to maturity in years"),
		rate:       fs.Float64("r", cfg.Rate, "continuously compounded risk-free rate"),
		q:          fs.Float64("q", 0, "continuous dividend yield"),
		optionType: fs.String("type", "call", "call or put"),
	}
	if withSigma {
		cf.sigma = fs.Float64("sigma", 0.2, "volatility")
	}
	return cf
}

func (cf contractFlags) contract() (models.Contract, error) {
	typ, err := models.ParseOptionType(*cf.optionType)
	if err != nil {
		return models.Contract{}, err
	}
	c := models.Contract{
		Spot:          *cf.spot,
		Strike:        *cf.strike,
		Maturity:      *cf.maturity,
		Rate:          *cf.rate,
		DividendYield: *cf.q,
		Type:          typ,
	}
	if cf.sigma != nil {
		c.Volatility = *cf.sigma
	}
	return c, nil
}

func writeJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// outputPath resolves relative output files against the configured directory.
func outputPath(cfg config.Config, file string) (string, error) {
	if filepath.IsAbs(file) || cfg.OutputDir == "" || cfg.OutputDir == "." {
		return file, nil
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	return filepath.Join(cfg.OutputDir, file), nil
}

func createOutput(cfg config.Config, file string) (*os.File, error) {
	path, err := outputPath(cfg, file)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	glog.Infof("writing %s", path)
	return f, nil
}
