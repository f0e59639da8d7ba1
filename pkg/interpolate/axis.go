// Package interpolate brackets query coordinates on sampled axes and turns
// the bracket into linear interpolation weights.
package interpolate

import (
	"fmt"
	"math"
	"sort"
)

// Bracket is a pair of neighbouring node indices with linear weights.
// WLo+WHi == 1. A query that falls exactly on a node puts the full weight on
// that node.
type Bracket struct {
	Lo, Hi   int
	WLo, WHi float64
}

// Axis is a strictly monotonic sequence of node coordinates. A periodic axis
// (longitude) wraps from its last node back to the first.
type Axis struct {
	nodes      []float64
	descending bool
	period     float64
	uniform    bool
	step       float64
}

// NewAxis validates nodes and builds an axis over them. Nodes must be
// strictly increasing or strictly decreasing.
func NewAxis(nodes []float64) (*Axis, error) {
	if len(nodes) < 2 {
		return nil, fmt.Errorf("axis needs at least 2 nodes, got %d", len(nodes))
	}
	for i, x := range nodes {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("axis node %d is not finite", i)
		}
	}

	a := &Axis{nodes: append([]float64(nil), nodes...)}
	a.descending = nodes[1] < nodes[0]
	for i := 1; i < len(nodes); i++ {
		d := nodes[i] - nodes[i-1]
		if (a.descending && d >= 0) || (!a.descending && d <= 0) {
			return nil, fmt.Errorf("axis nodes must be strictly monotonic (node %d = %g follows %g)", i, nodes[i], nodes[i-1])
		}
	}

	a.step = nodes[1] - nodes[0]
	a.uniform = true
	for i := 2; i < len(nodes); i++ {
		if math.Abs((nodes[i]-nodes[i-1])-a.step) > 1e-9*math.Abs(a.step) {
			a.uniform = false
			break
		}
	}
	return a, nil
}

// NewPoint builds a degenerate axis over one node. It brackets only that
// exact coordinate.
func NewPoint(x float64) (*Axis, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, fmt.Errorf("axis node 0 is not finite")
	}
	return &Axis{nodes: []float64{x}, uniform: true}, nil
}

// Periodic marks the axis as wrapping with the given period. It returns an
// error if the nodes span a full period or more, or are descending.
func (a *Axis) Periodic(period float64) error {
	if a.descending || len(a.nodes) < 2 {
		return fmt.Errorf("periodic axis must be ascending")
	}
	if a.nodes[len(a.nodes)-1]-a.nodes[0] >= period {
		return fmt.Errorf("axis span %g covers a full period %g", a.nodes[len(a.nodes)-1]-a.nodes[0], period)
	}
	a.period = period
	return nil
}

// Len returns the number of nodes
func (a *Axis) Len() int { return len(a.nodes) }

// Node returns the i-th node coordinate
func (a *Axis) Node(i int) float64 { return a.nodes[i] }

// Nodes returns a copy of the node coordinates
func (a *Axis) Nodes() []float64 { return append([]float64(nil), a.nodes...) }

// Min and Max return the covered range
func (a *Axis) Min() float64 {
	if a.descending {
		return a.nodes[len(a.nodes)-1]
	}
	return a.nodes[0]
}

func (a *Axis) Max() float64 {
	if a.descending {
		return a.nodes[0]
	}
	return a.nodes[len(a.nodes)-1]
}

// Wraps reports whether the periodic axis closes the gap between its last
// and first node, i.e. it covers the full circle.
func (a *Axis) Wraps() bool {
	if a.period == 0 || !a.uniform {
		return false
	}
	gap := a.nodes[0] + a.period - a.nodes[len(a.nodes)-1]
	return math.Abs(gap-a.step) <= 1e-9*a.step
}

// Bracket locates x on the axis
func (a *Axis) Bracket(x float64) (Bracket, bool) {
	if math.IsNaN(x) {
		return Bracket{}, false
	}
	if len(a.nodes) == 1 {
		if x != a.nodes[0] {
			return Bracket{}, false
		}
		return Bracket{WLo: 1}, true
	}
	if a.period > 0 {
		x = a.nodes[0] + math.Mod(math.Mod(x-a.nodes[0], a.period)+a.period, a.period)
		last := len(a.nodes) - 1
		if x > a.nodes[last] {
			if !a.Wraps() {
				return Bracket{}, false
			}
			w := (x - a.nodes[last]) / a.step
			return weights(last, 0, w), true
		}
	}

	if x < a.Min() || x > a.Max() {
		return Bracket{}, false
	}

	i := a.search(x)
	if i == len(a.nodes)-1 {
		// x sits on the final node
		return Bracket{Lo: i - 1, Hi: i, WLo: 0, WHi: 1}, true
	}
	w := (x - a.nodes[i]) / (a.nodes[i+1] - a.nodes[i])
	return weights(i, i+1, w), true
}

// search returns the index i of the node with nodes[i] <= x < nodes[i+1]
// (in axis order), or the last index when x equals the final node.
func (a *Axis) search(x float64) int {
	n := len(a.nodes)
	if a.uniform {
		i := int(math.Floor((x - a.nodes[0]) / a.step))
		if i < 0 {
			i = 0
		}
		if i > n-1 {
			i = n - 1
		}
		// floating point can put i one cell off
		for i > 0 && a.before(x, a.nodes[i]) {
			i--
		}
		for i < n-1 && !a.before(x, a.nodes[i+1]) {
			i++
		}
		return i
	}

	j := sort.Search(n, func(k int) bool { return a.before(x, a.nodes[k]) })
	return j - 1
}

// before reports whether x comes strictly before node in axis order
func (a *Axis) before(x, node float64) bool {
	if a.descending {
		return x > node
	}
	return x < node
}

func weights(lo, hi int, w float64) Bracket {
	return Bracket{Lo: lo, Hi: hi, WLo: 1 - w, WHi: w}
}

// Linear interpolates ys over strictly ascending xs, clamping outside the
// table to the end values
func Linear(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 || x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	i := sort.SearchFloat64s(xs, x)
	if xs[i] == x {
		return ys[i]
	}
	w := (x - xs[i-1]) / (xs[i] - xs[i-1])
	return ys[i-1]*(1-w) + ys[i]*w
}
