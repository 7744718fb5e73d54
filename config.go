package hopper

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/viper"
)

// Scenario is a launch with everything needed to simulate it or search one of its parameters.
type Scenario struct {
	Launch   LaunchParameters
	Geometry TargetGeometry
	Env      Environment
	Dt       float64
	Scheme   Scheme
	MaxSteps uint64
	Search   SearchConfig
	Domains  map[Param]Domain
	Output   ExportConfig
	LogLevel string
}

// SearchConfig configures a range search. A zero Param means no search is requested.
type SearchConfig struct {
	Param     Param
	Domain    Domain // Defaults to the parameter's domain.
	MaxPasses int
	Tolerance float64 // Overridden by the domain's tolerance if set.
	Workers   int
	// MaxSamples caps the samples of a full sweep, zero for DefaultMaxSamples.
	MaxSamples int
}

// DefaultScenario returns the rig's scenario with the default launch.
func DefaultScenario() Scenario {
	return Scenario{
		Launch:   LaunchParameters{Delta: 48, H: 20, Theta: Deg2rad(45), V0: 240},
		Geometry: DefaultGeometry(),
		Env:      DefaultEnvironment(),
		Dt:       0.01,
		Scheme:   SemiImplicitEuler,
		MaxSteps: DefaultMaxSteps,
		Search:   SearchConfig{MaxPasses: DefaultMaxPasses, Tolerance: DefaultTolerance, Workers: 1, MaxSamples: DefaultMaxSamples},
		Domains:  DefaultDomains(),
		Output:   ExportConfig{Dir: ".", Filename: "trajectory"},
		LogLevel: "info",
	}
}

// LoadScenario reads a TOML (or any viper supported format) scenario file.
func LoadScenario(path string) (Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return ScenarioFromViper(v)
}

// ReadScenario reads a TOML scenario from r.
func ReadScenario(r io.Reader) (Scenario, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(r); err != nil {
		return Scenario{}, err
	}
	return ScenarioFromViper(v)
}

// ScenarioFromViper builds a scenario from a loaded configuration, where missing keys use the
// defaults. Angles are read in degrees.
func ScenarioFromViper(v *viper.Viper) (Scenario, error) {
	s := DefaultScenario()
	setDefaults(v, s)

	s.Launch = LaunchParameters{
		Delta: v.GetFloat64("launch.delta"),
		H:     v.GetFloat64("launch.h"),
		Theta: Deg2rad(v.GetFloat64("launch.theta")),
		V0:    v.GetFloat64("launch.v0"),
		Spin:  v.GetFloat64("launch.spin"),
	}
	s.Geometry = TargetGeometry{
		Threshold:   v.GetFloat64("geometry.threshold"),
		HubWidth:    v.GetFloat64("geometry.hub_width"),
		HubHeight:   v.GetFloat64("geometry.hub_height"),
		HopperWidth: v.GetFloat64("geometry.hopper_width"),
	}
	s.Env = Environment{
		Gravity:         v.GetFloat64("environment.gravity"),
		AirDensity:      v.GetFloat64("environment.air_density"),
		Radius:          v.GetFloat64("environment.radius"),
		Mass:            v.GetFloat64("environment.mass"),
		DragCoefficient: v.GetFloat64("environment.drag_coefficient"),
		FreeStreamSpeed: v.GetFloat64("environment.free_stream_speed"),
	}
	if v.GetBool("environment.vacuum") {
		s.Env.AirDensity = 0
	}

	s.Dt = v.GetFloat64("integrator.dt")
	scheme, err := SchemeFromString(v.GetString("integrator.scheme"))
	if err != nil {
		return s, err
	}
	s.Scheme = scheme
	s.MaxSteps = v.GetUint64("integrator.max_steps")

	for _, key := range Params {
		prefix := "domains." + key.String()
		d := Domain{Min: v.GetFloat64(prefix + ".min"), Max: v.GetFloat64(prefix + ".max"), Tolerance: v.GetFloat64(prefix + ".tolerance")}
		if key == Theta {
			d = Domain{Min: Deg2rad(d.Min), Max: Deg2rad(d.Max), Tolerance: Deg2rad(d.Tolerance)}
		}
		if d.Tolerance < 0 {
			return s, fmt.Errorf("tolerance of %s is negative: %w", key, ErrInvalidParameters)
		}
		if d.Min > d.Max {
			return s, fmt.Errorf("domain of %s [%f, %f] is reversed: %w", key, d.Min, d.Max, ErrInvalidParameters)
		}
		s.Domains[key] = d
	}

	s.Search.MaxPasses = v.GetInt("search.passes")
	s.Search.Tolerance = v.GetFloat64("search.tolerance")
	s.Search.Workers = v.GetInt("search.workers")
	s.Search.MaxSamples = v.GetInt("search.max_samples")
	if name := v.GetString("search.param"); name != "" {
		param, err := ParamFromString(name)
		if err != nil {
			return s, err
		}
		if err := s.SetSearchParam(param); err != nil {
			return s, err
		}
		if v.IsSet("search.min") {
			s.Search.Domain.Min = v.GetFloat64("search.min")
		}
		if v.IsSet("search.max") {
			s.Search.Domain.Max = v.GetFloat64("search.max")
		}
		if param == Theta {
			if v.IsSet("search.min") {
				s.Search.Domain.Min = Deg2rad(s.Search.Domain.Min)
			}
			if v.IsSet("search.max") {
				s.Search.Domain.Max = Deg2rad(s.Search.Domain.Max)
			}
		}
	}

	s.Output = ExportConfig{
		Dir:       v.GetString("output.dir"),
		Filename:  v.GetString("output.filename"),
		AsCSV:     v.GetBool("output.csv"),
		Plot:      v.GetBool("output.plot"),
		Timestamp: v.GetBool("output.timestamp"),
	}
	s.LogLevel = v.GetString("log.level")
	return s, s.Validate()
}

func setDefaults(v *viper.Viper, s Scenario) {
	v.SetDefault("launch.delta", s.Launch.Delta)
	v.SetDefault("launch.h", s.Launch.H)
	v.SetDefault("launch.theta", Rad2deg(s.Launch.Theta))
	v.SetDefault("launch.v0", s.Launch.V0)
	v.SetDefault("launch.spin", s.Launch.Spin)
	v.SetDefault("geometry.threshold", s.Geometry.Threshold)
	v.SetDefault("geometry.hub_width", s.Geometry.HubWidth)
	v.SetDefault("geometry.hub_height", s.Geometry.HubHeight)
	v.SetDefault("geometry.hopper_width", s.Geometry.HopperWidth)
	v.SetDefault("environment.gravity", s.Env.Gravity)
	v.SetDefault("environment.air_density", s.Env.AirDensity)
	v.SetDefault("environment.radius", s.Env.Radius)
	v.SetDefault("environment.mass", s.Env.Mass)
	v.SetDefault("environment.drag_coefficient", s.Env.DragCoefficient)
	v.SetDefault("environment.free_stream_speed", s.Env.FreeStreamSpeed)
	v.SetDefault("integrator.dt", s.Dt)
	v.SetDefault("integrator.scheme", s.Scheme.String())
	v.SetDefault("integrator.max_steps", s.MaxSteps)
	v.SetDefault("search.passes", s.Search.MaxPasses)
	v.SetDefault("search.tolerance", s.Search.Tolerance)
	v.SetDefault("search.workers", s.Search.Workers)
	v.SetDefault("search.max_samples", s.Search.MaxSamples)
	for key, d := range s.Domains {
		prefix := "domains." + key.String()
		if key == Theta {
			d = Domain{Min: Rad2deg(d.Min), Max: Rad2deg(d.Max), Tolerance: Rad2deg(d.Tolerance)}
		}
		v.SetDefault(prefix+".min", d.Min)
		v.SetDefault(prefix+".max", d.Max)
		v.SetDefault(prefix+".tolerance", d.Tolerance)
	}
	v.SetDefault("output.dir", s.Output.Dir)
	v.SetDefault("output.filename", s.Output.Filename)
	v.SetDefault("log.level", s.LogLevel)
}

// SetSearchParam selects the free parameter and seeds its search domain from Domains.
func (s *Scenario) SetSearchParam(param Param) error {
	d, ok := s.Domains[param]
	if !ok {
		return fmt.Errorf("no domain for %s: %w", param, ErrInvalidParameters)
	}
	s.Search.Param = param
	s.Search.Domain = d
	return nil
}

// Validate checks the whole scenario.
func (s Scenario) Validate() error {
	if s.Dt <= 0 || !finite(s.Dt) {
		return fmt.Errorf("time step %f must be positive: %w", s.Dt, ErrInvalidParameters)
	}
	for _, v := range []interface{ Validate() error }{s.Launch, s.Geometry, s.Env} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if s.Search.Param != 0 && s.Search.Domain.Min > s.Search.Domain.Max {
		return fmt.Errorf("search domain [%f, %f] is reversed: %w", s.Search.Domain.Min, s.Search.Domain.Max, ErrInvalidParameters)
	}
	if s.Search.Workers < 0 || s.Search.MaxPasses < 0 || s.Search.Tolerance < 0 || s.Search.MaxSamples < 0 {
		return fmt.Errorf("search settings %+v are negative: %w", s.Search, ErrInvalidParameters)
	}
	return nil
}

// Simulator returns the simulator of this scenario.
func (s Scenario) Simulator(logger log.Logger) *Simulator {
	sim := NewSimulator(s.Geometry, s.Env)
	sim.Scheme = s.Scheme
	sim.MaxSteps = s.MaxSteps
	sim.Logger = logger
	return sim
}

// Finder returns the range finder of this scenario.
func (s Scenario) Finder(logger log.Logger) *Finder {
	f := NewFinder(s.Simulator(logger), s.Dt)
	f.MaxPasses = s.Search.MaxPasses
	f.Tolerance = s.Search.Tolerance
	if s.Search.Domain.Tolerance > 0 {
		f.Tolerance = s.Search.Domain.Tolerance
	}
	f.MaxSamples = s.Search.MaxSamples
	f.Workers = s.Search.Workers
	f.Logger = logger
	return f
}

// NewLogger returns a logfmt logger writing to w and filtered at the provided level.
func NewLogger(w io.Writer, lvl string) (log.Logger, error) {
	var opt level.Option
	switch strings.ToLower(lvl) {
	case "debug":
		opt = level.AllowDebug()
	case "", "info":
		opt = level.AllowInfo()
	case "warn", "warning":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	case "none":
		opt = level.AllowNone()
	default:
		return nil, fmt.Errorf("unknown log level `%s`", lvl)
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	return level.NewFilter(logger, opt), nil
}
