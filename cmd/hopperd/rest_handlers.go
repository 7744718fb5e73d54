package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dozerworks/hopper"
	"github.com/dozerworks/hopper/metrics"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type server struct {
	scenario hopper.Scenario
	logger   log.Logger
	metrics  *metrics.Collectors
	timeout  time.Duration // Caller level timeout of a search.
}

func newServer(s hopper.Scenario, logger log.Logger, timeout time.Duration) *server {
	return &server{scenario: s, logger: logger, metrics: metrics.NewCollectors(), timeout: timeout}
}

// router returns the routes of the API, with the metrics of reg served on /metrics.
func (s *server) router(reg *prometheus.Registry) *mux.Router {
	s.metrics.Register(reg)
	r := mux.NewRouter()
	r.HandleFunc("/v1/simulate", s.handleSimulate).Methods(http.MethodPost)
	r.HandleFunc("/v1/range", s.handleRange).Methods(http.MethodPost)
	r.HandleFunc("/v1/domains", s.handleDomains).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return r
}

type simulateRequest struct {
	Launch  *hopper.LaunchParameters `json:"launch,omitempty"`
	Dt      float64                  `json:"dt,omitempty"`
	Samples bool                     `json:"samples,omitempty"`
}

type sampleJSON struct {
	T       float64 `json:"t"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	MagnusX float64 `json:"magnus_x"`
	MagnusY float64 `json:"magnus_y"`
	DragX   float64 `json:"drag_x"`
	DragY   float64 `json:"drag_y"`
}

type simulateResponse struct {
	Success bool         `json:"success"`
	Reason  string       `json:"reason,omitempty"`
	T       float64      `json:"t"`
	X       float64      `json:"x"`
	Y       float64      `json:"y"`
	Steps   uint64       `json:"steps"`
	Samples []sampleJSON `json:"samples,omitempty"`
}

type rangeRequest struct {
	Param  string                   `json:"param"`
	Launch *hopper.LaunchParameters `json:"launch,omitempty"`
	Min    *float64                 `json:"min,omitempty"`
	Max    *float64                 `json:"max,omitempty"`
}

type rangeResponse struct {
	Param     string  `json:"param"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Verdict   string  `json:"verdict"`
	Ambiguous bool    `json:"ambiguous"`
	Passes    int     `json:"passes"`
}

func (s *server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	launch := s.scenario.Launch
	if req.Launch != nil {
		launch = *req.Launch
	}
	dt := s.scenario.Dt
	if req.Dt != 0 {
		dt = req.Dt
	}
	outcome, samples, err := s.scenario.Simulator(s.logger).Run(launch, dt, nil)
	s.metrics.ObserveRun(outcome, err)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	resp := simulateResponse{Success: outcome.Success, T: outcome.T, X: outcome.Position.X, Y: outcome.Position.Y, Steps: outcome.Steps}
	if !outcome.Success {
		resp.Reason = outcome.Reason.String()
	}
	if req.Samples {
		resp.Samples = make([]sampleJSON, len(samples))
		for i, smp := range samples {
			resp.Samples[i] = sampleJSON{smp.T, smp.Position.X, smp.Position.Y, smp.Magnus.X, smp.Magnus.Y, smp.Drag.X, smp.Drag.Y}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type searchResult struct {
	rslt hopper.Range
	err  error
}

func (s *server) handleRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	param, err := hopper.ParamFromString(req.Param)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	scenario := s.scenario
	scenario.Domains = hopper.DefaultDomains()
	for k, d := range s.scenario.Domains {
		scenario.Domains[k] = d
	}
	if err := scenario.SetSearchParam(param); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Launch != nil {
		scenario.Launch = *req.Launch
	}
	if req.Min != nil {
		scenario.Search.Domain.Min = *req.Min
	}
	if req.Max != nil {
		scenario.Search.Domain.Max = *req.Max
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	done := make(chan searchResult, 1)
	start := time.Now()
	go func() {
		// The search cannot be interrupted: on timeout it completes in the background.
		rslt, err := scenario.Finder(s.logger).FindRange(param, scenario.Launch, scenario.Search.Domain.Min, scenario.Search.Domain.Max)
		s.metrics.ObserveSearch(rslt, time.Since(start), err)
		done <- searchResult{rslt, err}
	}()

	select {
	case <-ctx.Done():
		level.Warn(s.logger).Log("subsys", "api", "param", param, "err", ctx.Err())
		writeError(w, http.StatusGatewayTimeout, ctx.Err())
	case res := <-done:
		if res.err != nil {
			writeError(w, statusOf(res.err), res.err)
			return
		}
		writeJSON(w, http.StatusOK, rangeResponse{
			Param:     param.String(),
			Min:       res.rslt.Min,
			Max:       res.rslt.Max,
			Verdict:   res.rslt.Verdict.String(),
			Ambiguous: res.rslt.Ambiguous(),
			Passes:    len(res.rslt.Passes),
		})
	}
}

func (s *server) handleDomains(w http.ResponseWriter, r *http.Request) {
	domains := make(map[string][2]float64, len(s.scenario.Domains))
	for k, d := range s.scenario.Domains {
		domains[k.String()] = [2]float64{d.Min, d.Max}
	}
	writeJSON(w, http.StatusOK, domains)
}

func statusOf(err error) int {
	var divErr *hopper.DivergedError
	switch {
	case errors.Is(err, hopper.ErrInvalidParameters):
		return http.StatusBadRequest
	case errors.As(err, &divErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
