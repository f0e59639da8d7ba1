package scenario

import (
	"context"
	"math"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/picogrid/descent-simulations/pkg/dynamics"
	"github.com/picogrid/descent-simulations/pkg/simerr"
)

// ReachabilityResult is the set of landing points reachable by gliding on a
// fixed heading from release to touchdown. Runs are ordered by heading.
type ReachabilityResult struct {
	ID          uuid.UUID    `json:"id"`
	GlideRatio  float64      `json:"glide_ratio"`
	Runs        []RunOutcome `json:"runs"`
	Headings    []float64    `json:"headings"`
	Landed      int          `json:"landed"`
	Aborted     int          `json:"aborted"`
	MinDistance float64      `json:"min_distance"` // metres from the release point
	MaxDistance float64      `json:"max_distance"`
	Cancelled   bool         `json:"cancelled"`
}

// Reachability sweeps cfg.Reachability.Headings evenly spaced headings with
// the profile's glide ratio and collects the landing contour
func (r *Runner) Reachability(ctx context.Context) (*ReachabilityResult, error) {
	n := r.cfg.Reachability.Headings
	if n <= 0 {
		return nil, simerr.Invalid("reachability.headings", n, "must be positive for a reachability sweep")
	}
	if r.cfg.Profile.GlideRatio <= 0 {
		return nil, simerr.Invalid("profile.glide_ratio", r.cfg.Profile.GlideRatio, "a reachability sweep needs a positive glide ratio")
	}

	ctx, span := r.tracer.Start(ctx, "descent.reachability")
	defer span.End()
	span.SetAttributes(attribute.Int("headings", n))

	release := r.Release()
	members := make([]Member, n)
	headings := make([]float64, n)
	for i := range members {
		profile := r.cfg.Profile
		headings[i] = 360 * float64(i) / float64(n)
		profile.Guidance = dynamics.Guidance{Mode: dynamics.GuidanceHeading, Heading: headings[i]}
		members[i] = Member{Index: i, Release: release, Profile: profile}
	}

	outcomes := r.runMembers(ctx, members, true, r.cfg.Ensemble.Workers)
	res := &ReachabilityResult{
		ID:          uuid.New(),
		GlideRatio:  r.cfg.Profile.GlideRatio,
		Runs:        outcomes,
		Headings:    headings,
		MinDistance: math.Inf(1),
	}
	for _, o := range outcomes {
		switch {
		case o.Landing != nil:
			res.Landed++
			res.MinDistance = math.Min(res.MinDistance, o.Landing.Distance)
			res.MaxDistance = math.Max(res.MaxDistance, o.Landing.Distance)
		case o.Status == Skipped:
			res.Cancelled = true
		default:
			res.Aborted++
		}
	}
	if res.Landed == 0 {
		res.MinDistance = 0
	}

	r.log.WithField("sweep", res.ID.String()[:8]).Debugf("%d headings landed, %d aborted", res.Landed, res.Aborted)
	return res, nil
}
