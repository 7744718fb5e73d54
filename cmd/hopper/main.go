package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/dozerworks/hopper"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// This tool reads a scenario, then either simulates its launch or searches the range of one of its parameters.

const defaultScenario = "~~unset~~"

var (
	scenario string
	find     string
	cpus     int
	verbose  bool
)

func init() {
	// Read flags
	flag.StringVar(&scenario, "scenario", defaultScenario, "scenario TOML file (defaults to the rig's scenario)")
	flag.StringVar(&find, "find", "", "parameter to search the range of (delta, h, theta, v0 or spin)")
	flag.IntVar(&cpus, "cpus", 1, "number of concurrent runs per search pass (set to 0 for max CPUs)")
	flag.BoolVar(&verbose, "verbose", false, "log every search pass")
}

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	s := hopper.DefaultScenario()
	if scenario != defaultScenario {
		var err error
		if s, err = hopper.LoadScenario(scenario); err != nil {
			fmt.Fprintf(os.Stderr, "could not load scenario: %s\n", err)
			return 1
		}
	}
	if verbose {
		s.LogLevel = "debug"
	}
	logger, err := hopper.NewLogger(os.Stderr, s.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if find != "" {
		param, err := hopper.ParamFromString(find)
		if err != nil {
			level.Error(logger).Log("subsys", "conf", "err", err)
			flag.Usage()
			return 1
		}
		if err := s.SetSearchParam(param); err != nil {
			level.Error(logger).Log("subsys", "conf", "err", err)
			return 1
		}
	}
	if cpus <= 0 || cpus > runtime.NumCPU() {
		cpus = runtime.NumCPU()
	}
	if cpus > 1 {
		s.Search.Workers = cpus
	}

	if s.Search.Param != 0 {
		return search(s, logger)
	}
	return simulate(s, logger)
}

func simulate(s hopper.Scenario, logger log.Logger) int {
	logger = log.With(logger, "subsys", "sim")
	level.Info(logger).Log("launch", s.Launch, "dt", s.Dt, "scheme", s.Scheme)
	outcome, samples, err := s.Simulator(logger).Run(s.Launch, s.Dt, nil)
	if err != nil {
		level.Error(logger).Log("err", err)
		return 1
	}
	level.Info(logger).Log("outcome", outcome, "t", outcome.T, "x", outcome.Position.X, "y", outcome.Position.Y, "steps", outcome.Steps)
	if !s.Output.IsUseless() {
		paths, err := hopper.Export(s.Output, s.Launch, s.Geometry, samples)
		if err != nil {
			level.Error(logger).Log("err", err)
			return 1
		}
		for _, path := range paths {
			level.Info(logger).Log("exported", path)
		}
	}
	if !outcome.Success {
		return 3
	}
	return 0
}

func search(s hopper.Scenario, logger log.Logger) int {
	param, domain := s.Search.Param, s.Search.Domain
	level.Info(logger).Log("subsys", "search", "param", param, "min", domain.Min, "max", domain.Max, "workers", s.Search.Workers)
	start := time.Now()
	rslt, err := s.Finder(logger).FindRange(param, s.Launch, domain.Min, domain.Max)
	if err != nil {
		level.Error(logger).Log("subsys", "search", "err", err)
		return 1
	}
	if rslt.Ambiguous() {
		// The bounds are those of the domain, which is not a valid range.
		level.Warn(logger).Log("subsys", "search", "status", "no valid range", "verdict", rslt.Verdict, "passes", len(rslt.Passes))
		return 2
	}
	fmt.Printf("%s in [%f, %f] (%d passes, %s)\n", param, rslt.Min, rslt.Max, len(rslt.Passes), time.Since(start))
	return 0
}
