// Package estimator implements a convergence-based statistic estimator. Samples are drawn
// with a caller-supplied function in growing rounds until two successive estimates agree
// within a relative tolerance, separating how a data source is sampled from the decision
// of when enough samples have been taken.
package estimator

import (
	"context"
	"fmt"
	"math"

	"github.com/go-sif/spatial/errors"
	iutil "github.com/go-sif/spatial/internal/util"
	"gonum.org/v1/gonum/stat"
)

const (
	defaultTolerance         = 0.01
	defaultInitialSampleSize = 16
	defaultMaxRounds         = 12
)

// SampleFunction draws a single random sample from a data source
type SampleFunction func() (float64, error)

// AggregateFunction turns the samples drawn so far into a candidate estimate
type AggregateFunction func(samples []float64) float64

// AcceptFunction decides whether two successive estimates are close enough
type AcceptFunction func(limit1, limit2 float64) bool

// Range is a pair of successive estimates
type Range struct {
	Limit1 float64
	Limit2 float64
}

// Mid returns the average of the two limits
func (r Range) Mid() float64 {
	return (r.Limit1 + r.Limit2) / 2
}

// Max returns the larger of the two limits, a conservative choice when sizing partitions
func (r Range) Max() float64 {
	return math.Max(r.Limit1, r.Limit2)
}

// Conf configures an Estimator
type Conf struct {
	Tolerance         float64           // Relative difference under which two estimates are accepted. Defaults to 0.01.
	InitialSampleSize int               // Number of samples in the first round. Each later round doubles the sample. Defaults to 16.
	MaxRounds         int               // Maximum number of rounds before giving up. Defaults to 12.
	Sample            SampleFunction    // Draws one random sample. Required.
	Aggregate         AggregateFunction // Produces an estimate from samples. Defaults to the sample mean.
	Accept            AcceptFunction    // Compares estimates. Defaults to a relative-difference test against Tolerance.
}

// Estimator repeatedly samples a data source until its estimate converges
type Estimator struct {
	conf *Conf
}

// New creates an Estimator, filling unset options with defaults
func New(conf *Conf) (*Estimator, error) {
	if conf.Sample == nil {
		return nil, fmt.Errorf("estimator requires a sample function")
	}
	if conf.Tolerance == 0 {
		conf.Tolerance = defaultTolerance
	}
	if conf.Tolerance < 0 {
		return nil, fmt.Errorf("tolerance must be positive, was %f", conf.Tolerance)
	}
	if conf.InitialSampleSize <= 0 {
		conf.InitialSampleSize = defaultInitialSampleSize
	}
	if conf.MaxRounds <= 0 {
		conf.MaxRounds = defaultMaxRounds
	}
	if conf.Aggregate == nil {
		conf.Aggregate = Mean(nil)
	}
	if conf.Accept == nil {
		conf.Accept = RelativeTolerance(conf.Tolerance)
	}
	return &Estimator{conf: conf}, nil
}

// Estimate draws samples in rounds of doubling size until two successive estimates
// are accepted. If the round budget runs out first, the last range is returned
// together with a ConvergenceFailureError so that callers may fall back to it.
func (e *Estimator) Estimate(ctx context.Context) (Range, error) {
	samples := make([]float64, 0, e.conf.InitialSampleSize*2)
	if err := e.draw(ctx, &samples, e.conf.InitialSampleSize); err != nil {
		return Range{}, err
	}
	var rng Range
	prev, err := e.aggregate(samples)
	if err != nil {
		return Range{}, err
	}
	for round := 1; round <= e.conf.MaxRounds; round++ {
		// doubling the sample draws as many new samples as we already have
		if err := e.draw(ctx, &samples, len(samples)); err != nil {
			return Range{}, err
		}
		next, err := e.aggregate(samples)
		if err != nil {
			return Range{}, err
		}
		rng = Range{Limit1: prev, Limit2: next}
		if e.conf.Accept(prev, next) {
			return rng, nil
		}
		prev = next
	}
	return rng, errors.ConvergenceFailureError{Rounds: e.conf.MaxRounds, Limit1: rng.Limit1, Limit2: rng.Limit2}
}

func (e *Estimator) draw(ctx context.Context, samples *[]float64, n int) error {
	for i := 0; i < n; i++ {
		if i%64 == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		v, err := e.sample()
		if err != nil {
			return err
		}
		*samples = append(*samples, v)
	}
	return nil
}

// sample calls the user-supplied SampleFunction, recovering panics
func (e *Estimator) sample() (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("Sample Panic: %v\n%s", r, iutil.GetTrace())
		}
	}()
	return e.conf.Sample()
}

// aggregate calls the user-supplied AggregateFunction, recovering panics
func (e *Estimator) aggregate(samples []float64) (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("Aggregate Panic: %v\n%s", r, iutil.GetTrace())
		}
	}()
	return e.conf.Aggregate(samples), nil
}

// Mean produces an AggregateFunction which applies fn to the sample mean.
// A nil fn returns the mean itself.
func Mean(fn func(mean float64) float64) AggregateFunction {
	return func(samples []float64) float64 {
		m := stat.Mean(samples, nil)
		if fn == nil {
			return m
		}
		return fn(m)
	}
}

// RelativeTolerance accepts two estimates whose difference, relative to the
// smaller of the two, does not exceed tolerance. Identical estimates are always accepted.
func RelativeTolerance(tolerance float64) AcceptFunction {
	return func(limit1, limit2 float64) bool {
		diff := math.Abs(limit2 - limit1)
		if diff == 0 {
			return true
		}
		denom := math.Min(math.Abs(limit1), math.Abs(limit2))
		if denom == 0 {
			return false
		}
		return diff/denom <= tolerance
	}
}
