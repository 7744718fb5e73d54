package hopper

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-kit/log/level"
	"gonum.org/v1/gonum/floats/scalar"
)

const testScenario = `
[launch]
delta = 36
h = 25
theta = 50
v0 = 200
spin = -12.5

[environment]
vacuum = true

[integrator]
dt = 0.005
scheme = "rk4"

[search]
param = "theta"
min = 10
max = 80
workers = 3

[domains.v0]
min = 50
max = 450

[domains.theta]
tolerance = 0.5

[output]
csv = true
filename = "unit"

[log]
level = "debug"
`

func TestReadScenario(t *testing.T) {
	s, err := ReadScenario(strings.NewReader(testScenario))
	if err != nil {
		t.Fatal(err)
	}
	if s.Launch.Delta != 36 || s.Launch.H != 25 || s.Launch.V0 != 200 || s.Launch.Spin != -12.5 {
		t.Fatalf("unexpected launch %s", s.Launch)
	}
	if !scalar.EqualWithinAbs(s.Launch.Theta, 50*math.Pi/180, 1e-12) {
		t.Fatalf("theta was not converted to radians: %f", s.Launch.Theta)
	}
	if s.Env.AirDensity != 0 || s.Env.Mass != DefaultEnvironment().Mass {
		t.Fatalf("unexpected environment %+v", s.Env)
	}
	if s.Geometry != DefaultGeometry() {
		t.Fatalf("geometry did not default: %+v", s.Geometry)
	}
	if s.Dt != 0.005 || s.Scheme != RK4 || s.MaxSteps != DefaultMaxSteps {
		t.Fatalf("unexpected integrator dt=%f scheme=%s cap=%d", s.Dt, s.Scheme, s.MaxSteps)
	}
	if s.Search.Param != Theta || s.Search.Workers != 3 || s.Search.MaxPasses != DefaultMaxPasses || s.Search.Tolerance != DefaultTolerance {
		t.Fatalf("unexpected search %+v", s.Search)
	}
	if !scalar.EqualWithinAbs(s.Search.Domain.Min, Deg2rad(10), 1e-12) || !scalar.EqualWithinAbs(s.Search.Domain.Max, Deg2rad(80), 1e-12) {
		t.Fatalf("unexpected search domain %+v", s.Search.Domain)
	}
	if s.Domains[V0] != (Domain{Min: 50, Max: 450}) || s.Domains[Delta] != DefaultDomains()[Delta] {
		t.Fatalf("unexpected domains %+v", s.Domains)
	}
	if !scalar.EqualWithinAbs(s.Domains[Theta].Max, math.Pi/2, 1e-12) {
		t.Fatalf("theta domain in degrees: %+v", s.Domains[Theta])
	}
	if !s.Output.AsCSV || s.Output.Plot || s.Output.Filename != "unit" || s.Output.Dir != "." {
		t.Fatalf("unexpected output %+v", s.Output)
	}
	if s.LogLevel != "debug" {
		t.Fatalf("log level %s", s.LogLevel)
	}

	sim := s.Simulator(nil)
	if sim.Scheme != RK4 || sim.Env != s.Env || sim.Geometry != s.Geometry {
		t.Fatalf("simulator does not match the scenario: %+v", sim)
	}
	f := s.Finder(nil)
	if f.Workers != 3 || f.Dt != 0.005 || f.MaxSamples != DefaultMaxSamples {
		t.Fatalf("finder does not match the scenario: %+v", f)
	}
	// Theta is searched in radians with its own tolerance, given in degrees.
	if !scalar.EqualWithinAbs(f.Tolerance, Deg2rad(0.5), 1e-12) {
		t.Fatalf("theta tolerance %f", f.Tolerance)
	}
	if err := s.SetSearchParam(V0); err != nil {
		t.Fatal(err)
	}
	if f := s.Finder(nil); f.Tolerance != DefaultTolerance {
		t.Fatalf("v0 tolerance %f", f.Tolerance)
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dozer.toml")
	if err := os.WriteFile(path, []byte("[launch]\nv0 = 310\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultScenario()
	if s.Launch.V0 != 310 || s.Launch.Delta != def.Launch.Delta || s.Search.Param != 0 {
		t.Fatalf("unexpected scenario %+v", s)
	}
	if _, err := LoadScenario(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestScenarioInvalid(t *testing.T) {
	for _, conf := range []string{
		"[integrator]\ndt = 0\n",
		"[integrator]\nscheme = \"leapfrog\"\n",
		"[launch]\nv0 = -3\n",
		"[search]\nparam = \"mass\"\n",
		"[search]\nparam = \"v0\"\nmin = 10\nmax = 5\n",
		"[domains.h]\nmin = 10\nmax = 5\n",
		"[domains.v0]\ntolerance = -1\n",
		"[search]\nmax_samples = -1\n",
	} {
		if _, err := ReadScenario(strings.NewReader(conf)); !errors.Is(err, ErrInvalidParameters) {
			t.Fatalf("%q: expected invalid parameters, got %v", conf, err)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "info")
	if err != nil {
		t.Fatal(err)
	}
	level.Debug(logger).Log("msg", "hidden")
	level.Info(logger).Log("subsys", "search", "msg", "shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "level=info") || !strings.Contains(out, "subsys=search") {
		t.Fatalf("unexpected log output %q", out)
	}
	if _, err := NewLogger(&buf, "loud"); err == nil {
		t.Fatal("unknown level accepted")
	}
}
