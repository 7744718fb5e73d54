package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dozerworks/hopper"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// This service exposes the simulator and the range finder over HTTP, with Prometheus metrics.

var (
	scenario string
	listen   string
	timeout  time.Duration
)

func init() {
	flag.StringVar(&scenario, "scenario", "", "scenario TOML file providing the defaults and the domains")
	flag.StringVar(&listen, "listen", "0.0.0.0:8086", "address to listen on")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "maximum duration of a range search")
}

func main() {
	flag.Parse()
	s := hopper.DefaultScenario()
	if scenario != "" {
		var err error
		if s, err = hopper.LoadScenario(scenario); err != nil {
			fmt.Fprintf(os.Stderr, "could not load scenario: %s\n", err)
			os.Exit(1)
		}
	}
	logger, err := hopper.NewLogger(os.Stderr, s.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	srv := &http.Server{
		Addr:              listen,
		Handler:           newServer(s, logger, timeout).router(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	level.Info(logger).Log("subsys", "api", "status", "listening", "addr", listen)
	if err := srv.ListenAndServe(); err != nil {
		level.Error(logger).Log("subsys", "api", "err", err)
		os.Exit(1)
	}
}
