// Package integrator advances a descent through the atmosphere until it
// lands, aborts or runs out of time.
package integrator

import (
	"fmt"
	"math"
	"time"

	"github.com/picogrid/descent-simulations/pkg/atmosphere"
	"github.com/picogrid/descent-simulations/pkg/dynamics"
	"github.com/picogrid/descent-simulations/pkg/geo"
	"github.com/picogrid/descent-simulations/pkg/simerr"
)

// Status is the lifecycle state of a run
type Status string

const (
	Airborne Status = "airborne"
	Landed   Status = "landed"
	Aborted  Status = "aborted"
)

// Dynamics is the equation of motion the integrator advances
type Dynamics interface {
	Derivative(s dynamics.State, sample atmosphere.Sample) (dynamics.Derivative, error)
	RelaxationTime(s dynamics.State, sample atmosphere.Sample) (float64, error)
	TerminalVelocity(density, alt float64) (float64, error)
}

// stability returns how many relaxation times one step of m may span
func stability(m Method) float64 {
	if m == Midpoint {
		return 1.5
	}
	return 2
}

// Landing is where and when the descent met the ground
type Landing struct {
	Lat            float64       `json:"lat"`
	Lon            float64       `json:"lon"`
	Alt            float64       `json:"alt"`
	Time           time.Time     `json:"time"`
	FlightDuration time.Duration `json:"flight_duration"`
	VerticalSpeed  float64       `json:"vertical_speed"`
	Distance       float64       `json:"distance"` // metres from the release point
	Bearing        float64       `json:"bearing"`  // degrees from the release point
}

// Point returns the landing position
func (l Landing) Point() geo.Point {
	return geo.Point{Lat: l.Lat, Lon: l.Lon}
}

// Result is the outcome of one run. Landing is set only when Status is
// Landed; Err and Reason only when it is Aborted.
type Result struct {
	Status     Status
	Release    dynamics.State
	Trajectory *Trajectory
	Landing    *Landing
	Reason     simerr.Reason
	Err        error
	Steps      int
}

// Elapsed returns the simulated time covered by the run
func (r *Result) Elapsed() time.Duration {
	if r.Landing != nil {
		return r.Landing.FlightDuration
	}
	if last, ok := r.Trajectory.Last(); ok {
		return last.Time.Sub(r.Release.Time)
	}
	return 0
}

func (r *Result) abort(err error) *Result {
	r.Status = Aborted
	r.Err = err
	r.Reason = simerr.Classify(err)
	return r
}

// Integrator runs descents with a fixed set of options. It keeps no state
// between runs and may be shared by concurrent callers.
type Integrator struct {
	opts Options
}

// New applies defaults to opts and validates them
func New(opts Options) (*Integrator, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Integrator{opts: opts}, nil
}

// Options returns the effective options
func (in *Integrator) Options() Options {
	return in.opts
}

// Integrate advances release until the altitude crosses the terrain. Errors
// never escape: a provider or dynamics failure, or a ceiling being hit,
// ends the run as Aborted with the cause attached.
func (in *Integrator) Integrate(model Dynamics, provider atmosphere.Provider, release dynamics.State) *Result {
	release.Lon = geo.NormalizeLongitude(release.Lon)
	res := &Result{Status: Airborne, Release: release, Trajectory: NewTrajectory(512)}

	ground := in.opts.Ground.Elevation(release.Lat, release.Lon)
	if !(release.Alt > ground) {
		return res.abort(simerr.Invalid("release.altitude", release.Alt, "must be above the ground elevation %g m", ground))
	}
	res.Trajectory.append(release)

	var (
		state    = release
		h        = in.opts.MaxStep.Seconds()
		minStep  = in.opts.MinStep.Seconds()
		maxStep  = in.opts.MaxStep.Seconds()
		fineStep = in.opts.FineStep.Seconds()
		prev     atmosphere.Sample
		prevVz   float64
	)

	for {
		if res.Steps >= in.opts.MaxSteps {
			return res.abort(&simerr.RunTimeoutError{
				Elapsed: state.Time.Sub(release.Time),
				Ceiling: in.opts.MaxFlightTime,
				Steps:   res.Steps,
			})
		}

		sample, err := provider.Sample(state.Lat, state.Lon, state.Alt, state.Time)
		if err != nil {
			return res.abort(fmt.Errorf("step %d: sampling atmosphere: %w", res.Steps, err))
		}
		d0, err := model.Derivative(state, sample)
		if err != nil {
			return res.abort(fmt.Errorf("step %d: %w", res.Steps, err))
		}

		if res.Steps > 0 {
			change := math.Max(
				math.Abs(state.VerticalSpeed-prevVz),
				math.Hypot(sample.WindEast-prev.WindEast, sample.WindNorth-prev.WindNorth),
			)
			switch {
			case change > in.opts.Tolerance:
				h = math.Max(h/2, minStep)
			case change < in.opts.Tolerance/4:
				h = math.Min(h*1.5, maxStep)
			}
		}
		prev, prevVz = sample, state.VerticalSpeed

		step := h
		if state.Alt-ground < in.opts.FineAltitude {
			step = math.Min(step, fineStep)
		}
		tau, err := model.RelaxationTime(state, sample)
		if err != nil {
			return res.abort(fmt.Errorf("step %d: %w", res.Steps, err))
		}
		// relaxation faster than the smallest step: the vertical speed
		// follows its local terminal value
		limit := stability(in.opts.Method) * tau
		settled := limit < minStep
		if settled {
			step = math.Min(step, minStep)
		} else {
			step = math.Min(step, limit)
		}

		next, err := in.advance(model, provider, state, d0, step, settled)
		res.Steps++
		if err != nil {
			return res.abort(fmt.Errorf("step %d: %w", res.Steps, err))
		}

		nextGround := in.opts.Ground.Elevation(next.Lat, next.Lon)
		if next.Alt <= nextGround {
			landed := in.touchdown(state, next, ground, nextGround)
			res.Trajectory.append(landed)
			res.Status = Landed
			res.Landing = landing(release, landed)
			return res
		}

		res.Trajectory.append(next)
		state, ground = next, nextGround

		if elapsed := state.Time.Sub(release.Time); elapsed > in.opts.MaxFlightTime {
			return res.abort(&simerr.RunTimeoutError{
				Elapsed: elapsed,
				Ceiling: in.opts.MaxFlightTime,
				Steps:   res.Steps,
			})
		}
	}
}

// advance takes one explicit step of dt seconds from s, whose derivative d0
// is already known. When settled is set every stage pins the vertical speed
// to the local terminal velocity.
func (in *Integrator) advance(model Dynamics, provider atmosphere.Provider, s dynamics.State, d0 dynamics.Derivative, dt float64, settled bool) (dynamics.State, error) {
	eval := func(x dynamics.State) (dynamics.Derivative, error) {
		sample, err := provider.Sample(x.Lat, x.Lon, x.Alt, x.Time)
		if err != nil {
			return dynamics.Derivative{}, fmt.Errorf("sampling atmosphere: %w", err)
		}
		if settled {
			if x.VerticalSpeed, err = sinking(model, x, sample); err != nil {
				return dynamics.Derivative{}, err
			}
		}
		d, err := model.Derivative(x, sample)
		if settled {
			d.DVerticalSpeed = 0
		}
		return d, err
	}

	if settled {
		sample, err := provider.Sample(s.Lat, s.Lon, s.Alt, s.Time)
		if err != nil {
			return s, fmt.Errorf("sampling atmosphere: %w", err)
		}
		if s.VerticalSpeed, err = sinking(model, s, sample); err != nil {
			return s, err
		}
		if d0, err = eval(s); err != nil {
			return s, err
		}
	}

	next, err := in.step(eval, s, d0, dt)
	if err != nil || !settled {
		return next, err
	}
	sample, err := provider.Sample(next.Lat, next.Lon, next.Alt, next.Time)
	if err != nil {
		// the next step reports it
		return next, nil
	}
	next.VerticalSpeed, err = sinking(model, next, sample)
	return next, err
}

// sinking returns the settled vertical speed at x
func sinking(model Dynamics, x dynamics.State, sample atmosphere.Sample) (float64, error) {
	vt, err := model.TerminalVelocity(sample.Density, x.Alt)
	if err != nil {
		return 0, err
	}
	return -vt, nil
}

func (in *Integrator) step(eval func(dynamics.State) (dynamics.Derivative, error), s dynamics.State, d0 dynamics.Derivative, dt float64) (dynamics.State, error) {
	if in.opts.Method == Midpoint {
		k2, err := eval(apply(s, d0, dt/2))
		if err != nil {
			return s, err
		}
		return apply(s, k2, dt), nil
	}

	k2, err := eval(apply(s, d0, dt/2))
	if err != nil {
		return s, err
	}
	k3, err := eval(apply(s, k2, dt/2))
	if err != nil {
		return s, err
	}
	k4, err := eval(apply(s, k3, dt))
	if err != nil {
		return s, err
	}
	avg := dynamics.Derivative{
		DLat:           (d0.DLat + 2*k2.DLat + 2*k3.DLat + k4.DLat) / 6,
		DLon:           (d0.DLon + 2*k2.DLon + 2*k3.DLon + k4.DLon) / 6,
		DAlt:           (d0.DAlt + 2*k2.DAlt + 2*k3.DAlt + k4.DAlt) / 6,
		DVerticalSpeed: (d0.DVerticalSpeed + 2*k2.DVerticalSpeed + 2*k3.DVerticalSpeed + k4.DVerticalSpeed) / 6,
	}
	return apply(s, avg, dt), nil
}

func apply(s dynamics.State, d dynamics.Derivative, dt float64) dynamics.State {
	return dynamics.State{
		Lat:           s.Lat + d.DLat*dt,
		Lon:           geo.NormalizeLongitude(s.Lon + d.DLon*dt),
		Alt:           s.Alt + d.DAlt*dt,
		VerticalSpeed: s.VerticalSpeed + d.DVerticalSpeed*dt,
		Time:          s.Time.Add(seconds(dt)),
	}
}

// touchdown interpolates the state where the step from a to b crossed the
// ground
func (in *Integrator) touchdown(a, b dynamics.State, groundA, groundB float64) dynamics.State {
	above := a.Alt - groundA
	below := b.Alt - groundB
	frac := 1.0
	if above-below > 0 {
		frac = above / (above - below)
	}

	lat := a.Lat + frac*(b.Lat-a.Lat)
	lon := geo.NormalizeLongitude(a.Lon + frac*geo.LongitudeDelta(a.Lon, b.Lon))
	return dynamics.State{
		Lat:           lat,
		Lon:           lon,
		Alt:           in.opts.Ground.Elevation(lat, lon),
		VerticalSpeed: a.VerticalSpeed + frac*(b.VerticalSpeed-a.VerticalSpeed),
		Time:          a.Time.Add(time.Duration(frac * float64(b.Time.Sub(a.Time)))),
	}
}

func landing(release, s dynamics.State) *Landing {
	return &Landing{
		Lat:            s.Lat,
		Lon:            s.Lon,
		Alt:            s.Alt,
		Time:           s.Time,
		FlightDuration: s.Time.Sub(release.Time),
		VerticalSpeed:  s.VerticalSpeed,
		Distance:       geo.Distance(release.Point(), s.Point()),
		Bearing:        geo.InitialBearing(release.Point(), s.Point()),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
