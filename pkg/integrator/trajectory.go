package integrator

import "github.com/picogrid/descent-simulations/pkg/dynamics"

// Trajectory is the ordered list of states a run passed through. It only
// grows while the run is in progress.
type Trajectory struct {
	points []dynamics.State
}

// NewTrajectory preallocates room for n states
func NewTrajectory(n int) *Trajectory {
	return &Trajectory{points: make([]dynamics.State, 0, n)}
}

func (t *Trajectory) append(s dynamics.State) {
	t.points = append(t.points, s)
}

// Len returns the number of stored states
func (t *Trajectory) Len() int {
	if t == nil {
		return 0
	}
	return len(t.points)
}

// Points returns a copy of the stored states
func (t *Trajectory) Points() []dynamics.State {
	if t == nil {
		return nil
	}
	return append([]dynamics.State(nil), t.points...)
}

// Last returns the most recent state
func (t *Trajectory) Last() (dynamics.State, bool) {
	if t.Len() == 0 {
		return dynamics.State{}, false
	}
	return t.points[len(t.points)-1], true
}

// Decimate keeps every n-th state plus the final one, for plotting and export
func (t *Trajectory) Decimate(n int) []dynamics.State {
	if n <= 1 || t.Len() <= 2 {
		return t.Points()
	}
	out := make([]dynamics.State, 0, t.Len()/n+2)
	for i := 0; i < len(t.points); i += n {
		out = append(out, t.points[i])
	}
	if (len(t.points)-1)%n != 0 {
		out = append(out, t.points[len(t.points)-1])
	}
	return out
}
