package scenario

import (
	"math/rand/v2"
	"time"

	"github.com/picogrid/descent-simulations/pkg/dynamics"
	"github.com/picogrid/descent-simulations/pkg/geo"
)

// sampler draws the perturbations of one ensemble member. Each member gets
// its own stream, so a member's inputs do not depend on scheduling.
type sampler struct {
	rng  *rand.Rand
	dist Distribution
}

func newSampler(seed uint64, member int, dist Distribution) *sampler {
	return &sampler{rng: rand.New(rand.NewPCG(seed, uint64(member))), dist: dist}
}

// draw returns a zero-mean deviate scaled by sigma
func (s *sampler) draw(sigma float64) float64 {
	if sigma == 0 {
		return 0
	}
	if s.dist == Uniform {
		return (2*s.rng.Float64() - 1) * sigma
	}
	return s.rng.NormFloat64() * sigma
}

// Member is the perturbed input of one ensemble run
type Member struct {
	Index   int              `json:"index"`
	Release dynamics.State   `json:"release"`
	Profile dynamics.Profile `json:"profile"`
}

// perturb draws member i from the base release and profile. The draw order
// is fixed so a seed always reproduces the same inputs.
func perturb(p Perturbation, seed uint64, i int, release dynamics.State, profile dynamics.Profile) Member {
	s := newSampler(seed, i, p.Distribution)

	east, north := s.draw(p.PositionSigma), s.draw(p.PositionSigma)
	pos := geo.Offset(release.Point(), east, north)
	release.Lat, release.Lon = pos.Lat, pos.Lon
	release.Alt += s.draw(p.AltitudeSigma)
	release.Time = release.Time.Add(time.Duration(s.draw(p.TimeJitter.Seconds()) * float64(time.Second)))

	mass := 1 + s.draw(p.MassFraction)
	drag := 1 + s.draw(p.DragFraction)
	vt := 1 + s.draw(p.TerminalVelocityFraction)
	heading := s.draw(p.HeadingSigma)

	profile.Mass *= mass
	profile.DragCoefficient *= drag
	if len(profile.DragTable) > 0 {
		table := make([]dynamics.DragPoint, len(profile.DragTable))
		for j, d := range profile.DragTable {
			table[j] = dynamics.DragPoint{Altitude: d.Altitude, DragCoefficient: d.DragCoefficient * drag}
		}
		profile.DragTable = table
	}
	profile.TerminalVelocity *= vt
	if profile.Guidance.Mode == dynamics.GuidanceHeading {
		profile.Guidance.Heading = geo.NormalizeLongitude(profile.Guidance.Heading + heading)
	}

	return Member{Index: i, Release: release, Profile: profile}
}
