package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/dozerworks/hopper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRun(t *testing.T) {
	c := NewCollectors()
	c.Register(prometheus.NewRegistry())

	c.ObserveRun(hopper.Outcome{Success: true, Steps: 110}, nil)
	c.ObserveRun(hopper.Outcome{Reason: hopper.ExitedSideways, Steps: 30}, nil)
	c.ObserveRun(hopper.Outcome{Reason: hopper.ExitedSideways, Steps: 31}, nil)
	c.ObserveRun(hopper.Outcome{}, &hopper.DivergedError{Steps: 10})
	c.ObserveRun(hopper.Outcome{}, fmt.Errorf("dt: %w", hopper.ErrInvalidParameters))

	for label, exp := range map[string]float64{
		"success":                         1,
		"exited_sideways_above_threshold": 2,
		"diverged":                        1,
		"invalid":                         1,
	} {
		if got := testutil.ToFloat64(c.Simulations.WithLabelValues(label)); got != exp {
			t.Fatalf("%s: %f runs, expected %f", label, got, exp)
		}
	}
	if n := testutil.CollectAndCount(c.SimulationStep); n != 1 {
		t.Fatalf("%d step histograms", n)
	}
}

func TestObserveSearch(t *testing.T) {
	c := NewCollectors()
	reg := prometheus.NewRegistry()
	c.Register(reg)

	c.ObserveSearch(hopper.Range{Verdict: hopper.RangeFound, Passes: make([]hopper.PassReport, 7)}, time.Second, nil)
	c.ObserveSearch(hopper.Range{Verdict: hopper.NoSuccess, Passes: make([]hopper.PassReport, 40)}, time.Second, nil)
	c.ObserveSearch(hopper.Range{}, time.Millisecond, &hopper.DivergedError{})

	if got := testutil.ToFloat64(c.Searches.WithLabelValues("found")); got != 1 {
		t.Fatalf("%f found searches", got)
	}
	if got := testutil.ToFloat64(c.Searches.WithLabelValues("no_success")); got != 1 {
		t.Fatalf("%f searches without success", got)
	}
	if got := testutil.ToFloat64(c.Searches.WithLabelValues("diverged")); got != 1 {
		t.Fatalf("%f diverged searches", got)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() == "hopper_search_duration_seconds" {
			if n := mf.GetMetric()[0].GetHistogram().GetSampleCount(); n != 3 {
				t.Fatalf("%d durations observed", n)
			}
			return
		}
	}
	t.Fatal("search duration not gathered")
}
