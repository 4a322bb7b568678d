package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"

	"github.com/bcdannyboy/optengine/probability"
	"github.com/joho/godotenv"
)

const DefaultEnvFile = ".env"

// Config holds CLI defaults. Command-line flags override every field.
type Config struct {
	Rate      float64
	Paths     int
	Steps     int
	Seed      uint64
	HasSeed   bool
	Workers   int
	OutputDir string
}

func Default() Config {
	return Config{
		Rate:      0.05,
		Paths:     probability.DefaultNumPaths,
		Steps:     probability.DefaultNumSteps,
		Workers:   runtime.NumCPU(),
		OutputDir: ".",
	}
}

// Load reads OPTENGINE_* settings from the process environment, falling back
// to the given dotenv files (default .env). A missing default file is not an
// error.
func Load(files ...string) (Config, error) {
	explicit := len(files) > 0
	if !explicit {
		files = []string{DefaultEnvFile}
	}

	fileEnv := map[string]string{}
	for _, f := range files {
		values, err := godotenv.Read(f)
		if err != nil {
			if !explicit && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
		for k, v := range values {
			if _, ok := fileEnv[k]; !ok {
				fileEnv[k] = v
			}
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok && v != ""
	}

	cfg := Default()
	if v, ok := lookup("OPTENGINE_RATE"); ok {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("OPTENGINE_RATE: %w", err)
		}
		cfg.Rate = rate
	}
	if v, ok := lookup("OPTENGINE_PATHS"); ok {
		n, err := positiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("OPTENGINE_PATHS: %w", err)
		}
		cfg.Paths = n
	}
	if v, ok := lookup("OPTENGINE_STEPS"); ok {
		n, err := positiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("OPTENGINE_STEPS: %w", err)
		}
		cfg.Steps = n
	}
	if v, ok := lookup("OPTENGINE_SEED"); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("OPTENGINE_SEED: %w", err)
		}
		cfg.Seed, cfg.HasSeed = seed, true
	}
	if v, ok := lookup("OPTENGINE_WORKERS"); ok {
		n, err := positiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("OPTENGINE_WORKERS: %w", err)
		}
		cfg.Workers = n
	}
	if v, ok := lookup("OPTENGINE_OUTPUT_DIR"); ok {
		cfg.OutputDir = v
	}
	return cfg, nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("must be at least 1, got %d", n)
	}
	return n, nil
}
