package hopper

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

const (
	// DefaultMaxPasses is the default number of refinement passes of a search.
	DefaultMaxPasses = 40
	// DefaultTolerance is the default change in bounds under which a search stops early.
	DefaultTolerance = 0.15
	// DefaultMaxSamples is the default cap on the number of samples of a full sweep.
	DefaultMaxSamples = 100000
)

// Predicate tells whether the free parameter x succeeds.
type Predicate func(x float64) (bool, error)

// Verdict qualifies the range returned by a search.
type Verdict uint8

const (
	// RangeFound means at least one pass saw both successes and failures.
	RangeFound Verdict = iota + 1
	// NoSuccess means no sample ever succeeded: the bounds are those of the domain.
	NoSuccess
	// AllSuccess means no sample ever failed: the bounds are those of the domain.
	AllSuccess
	// Inconclusive means successes and failures were never sampled in the same pass.
	Inconclusive
)

func (v Verdict) String() string {
	switch v {
	case RangeFound:
		return "found"
	case NoSuccess:
		return "no success"
	case AllSuccess:
		return "all success"
	case Inconclusive:
		return "inconclusive"
	}
	return fmt.Sprintf("verdict(%d)", uint8(v))
}

// PassReport summarizes one pass of a search.
type PassReport struct {
	Index      int
	Step       float64
	Buffer     float64 // Zero on full sweeps.
	Samples    int
	Successes  int
	Failures   int
	Min, Max   float64 // Bounds after this pass.
	Change     float64
	Conclusive bool
}

// Range is the result of a search. Min and Max are the tightest failures found around the
// success band. A side of the band which reaches the domain keeps the domain bound, which is then a
// success. Both stay at the domain bounds if the search was ambiguous.
type Range struct {
	Min, Max float64
	Verdict  Verdict
	Passes   []PassReport
}

// Ambiguous returns whether the bounds do not delimit a success band.
func (r Range) Ambiguous() bool {
	return r.Verdict != RangeFound
}

func (r Range) String() string {
	return fmt.Sprintf("[%f, %f] (%s after %d passes)", r.Min, r.Max, r.Verdict, len(r.Passes))
}

// Finder searches for the range of a launch parameter which lands in the aperture.
type Finder struct {
	Sim       *Simulator
	Dt        float64          // Time step of each run.
	MaxPasses int              // Zero means DefaultMaxPasses.
	Tolerance float64          // Zero means DefaultTolerance. In the parameter's unit, i.e. radians for theta.
	Workers   int              // Number of concurrent runs in a pass.
	// MaxSamples caps the samples of a full sweep at the finest sweep step: wider domains are
	// rejected. Zero means DefaultMaxSamples.
	MaxSamples int
	Logger    log.Logger       // Nil means no logging.
	OnPass    func(PassReport) // Called after each pass, if set.
}

// NewFinder returns a sequential finder with the default pass budget and tolerance.
func NewFinder(sim *Simulator, dt float64) *Finder {
	return &Finder{Sim: sim, Dt: dt, MaxPasses: DefaultMaxPasses, Tolerance: DefaultTolerance, Workers: 1, MaxSamples: DefaultMaxSamples, Logger: log.NewNopLogger()}
}

// passStep returns the sampling interval of pass p.
func passStep(p int) float64 {
	return passScale(p) * math.Pow(10, float64(-(p/2)+1))
}

// passBuffer returns the half width of the window around each bound of pass p.
func passBuffer(p int) float64 {
	return passScale(p) * math.Pow(10, float64(-(p/2)+2))
}

func passScale(p int) float64 {
	if p%2 == 0 {
		return 5
	}
	return 1
}

// FindRange searches the values of param within [domainMin, domainMax] for which the launch
// succeeds, all other parameters being those of fixed.
func (f *Finder) FindRange(param Param, fixed LaunchParameters, domainMin, domainMax float64) (Range, error) {
	if f.Sim == nil {
		return Range{}, fmt.Errorf("finder has no simulator: %w", ErrInvalidParameters)
	}
	if _, err := ParamFromString(param.String()); err != nil {
		return Range{}, err
	}
	pred := func(x float64) (bool, error) {
		outcome, _, err := f.Sim.Run(WithOverride(fixed, param, x), f.Dt, nil)
		if err != nil {
			return false, err
		}
		return outcome.Success, nil
	}
	return f.search(pred, domainMin, domainMax, log.With(f.logger(), "param", param))
}

// Search runs the refinement passes on an arbitrary predicate. The success set is assumed to be a
// single band in [domainMin, domainMax]; if it is not, one of its bands is reported.
func (f *Finder) Search(pred Predicate, domainMin, domainMax float64) (Range, error) {
	return f.search(pred, domainMin, domainMax, f.logger())
}

func (f *Finder) logger() log.Logger {
	if f.Logger == nil {
		return log.NewNopLogger()
	}
	return f.Logger
}

func (f *Finder) search(pred Predicate, domainMin, domainMax float64, logger log.Logger) (Range, error) {
	if !finite(domainMin, domainMax) || domainMin > domainMax {
		return Range{}, fmt.Errorf("domain [%f, %f] is invalid: %w", domainMin, domainMax, ErrInvalidParameters)
	}
	maxSamples := f.MaxSamples
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	// Passes 0 and 1 both sweep the whole domain, the latter at the finer step.
	if (domainMax-domainMin)/passStep(1) > float64(maxSamples) {
		return Range{}, fmt.Errorf("domain [%g, %g] needs more than %d samples: %w", domainMin, domainMax, maxSamples, ErrInvalidParameters)
	}
	maxPasses := f.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	tolerance := f.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	rslt := Range{Min: domainMin, Max: domainMax}
	sawSuccess, sawFailure, conclusive := false, false, false
	for p := 0; p < maxPasses; p++ {
		report := PassReport{Index: p, Step: passStep(p)}
		var xs []float64
		if p < 2 {
			xs = samplePoints(rslt.Min, rslt.Max, report.Step, domainMin, domainMax)
		} else {
			report.Buffer = passBuffer(p)
			xs = samplePoints(rslt.Min-report.Buffer, rslt.Min+report.Buffer, report.Step, domainMin, domainMax)
			xs = append(xs, samplePoints(rslt.Max-report.Buffer, rslt.Max+report.Buffer, report.Step, domainMin, domainMax)...)
			xs = dedup(xs)
		}
		oks, err := f.evaluate(pred, xs)
		if err != nil {
			return rslt, err
		}

		var successes, failures []float64
		for i, x := range xs {
			if oks[i] {
				successes = append(successes, x)
			} else {
				failures = append(failures, x)
			}
		}
		report.Samples, report.Successes, report.Failures = len(xs), len(successes), len(failures)
		sawSuccess = sawSuccess || len(successes) > 0
		sawFailure = sawFailure || len(failures) > 0

		if len(successes) > 0 && len(failures) > 0 {
			report.Conclusive = true
			conclusive = true
			minSuccess, maxSuccess := floats.Min(successes), floats.Max(successes)
			prevMin, prevMax := rslt.Min, rslt.Max
			for _, x := range failures {
				if x < minSuccess && x > rslt.Min {
					rslt.Min = x
				} else if x > maxSuccess && x < rslt.Max {
					rslt.Max = x
				}
			}
			report.Change = math.Abs(rslt.Min-prevMin) + math.Abs(rslt.Max-prevMax)
		}
		report.Min, report.Max = rslt.Min, rslt.Max
		rslt.Passes = append(rslt.Passes, report)
		level.Debug(logger).Log("subsys", "search", "pass", p, "step", report.Step, "samples", report.Samples, "successes", report.Successes, "min", rslt.Min, "max", rslt.Max, "change", report.Change)
		if f.OnPass != nil {
			f.OnPass(report)
		}
		if report.Change > 0 && report.Change < tolerance {
			break
		}
	}

	switch {
	case conclusive:
		rslt.Verdict = RangeFound
	case !sawSuccess:
		rslt.Verdict = NoSuccess
	case !sawFailure:
		rslt.Verdict = AllSuccess
	default:
		rslt.Verdict = Inconclusive
	}
	level.Info(logger).Log("subsys", "search", "status", "finished", "range", rslt)
	return rslt, nil
}

// evaluate runs the predicate on all xs, possibly concurrently, and returns the results in order.
func (f *Finder) evaluate(pred Predicate, xs []float64) ([]bool, error) {
	oks := make([]bool, len(xs))
	workers := f.Workers
	if workers <= 1 || len(xs) <= 1 {
		for i, x := range xs {
			ok, err := pred(x)
			if err != nil {
				return nil, err
			}
			oks[i] = ok
		}
		return oks, nil
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	idxChan := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxChan {
				ok, err := pred(xs[i])
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					continue
				}
				oks[i] = ok
			}
		}()
	}
	for i := range xs {
		idxChan <- i
	}
	close(idxChan)
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return oks, nil
}

// sampleLimit bounds the points of a single window whatever the domain.
const sampleLimit = 1 << 20

// samplePoints returns lo, lo+step, ... up to hi, restricted to [domainMin, domainMax], and at
// most sampleLimit+1 points.
func samplePoints(lo, hi, step, domainMin, domainMax float64) []float64 {
	lo = math.Max(lo, domainMin)
	hi = math.Min(hi, domainMax)
	if lo > hi {
		return nil
	}
	count := math.Floor((hi-lo)/step + 1e-9)
	if !(count < sampleLimit) {
		count = sampleLimit
	}
	n := int(count)
	xs := make([]float64, 0, n+1)
	for k := 0; k <= n; k++ {
		xs = append(xs, lo+float64(k)*step)
	}
	return xs
}

// dedup sorts xs and removes the duplicates of overlapping windows.
func dedup(xs []float64) []float64 {
	sort.Float64s(xs)
	out := xs[:0]
	for i, x := range xs {
		if i > 0 && scalar.EqualWithinAbs(x, out[len(out)-1], 1e-9) {
			continue
		}
		out = append(out, x)
	}
	return out
}
