package scenario

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/picogrid/descent-simulations/pkg/dynamics"
	"github.com/picogrid/descent-simulations/pkg/integrator"
	"github.com/picogrid/descent-simulations/pkg/simerr"
)

// Skipped marks ensemble members that never ran because the ensemble was
// cancelled
const Skipped integrator.Status = "skipped"

// RunOutcome is the result of one ensemble member. Trajectories are not
// kept; rerun the member's inputs through Single for a full track.
type RunOutcome struct {
	Member
	Status  integrator.Status   `json:"status"`
	Reason  simerr.Reason       `json:"reason,omitempty"`
	Error   string              `json:"error,omitempty"`
	Landing *integrator.Landing `json:"landing,omitempty"`
	Steps   int                 `json:"steps"`
}

// EnsembleResult aggregates a Monte Carlo ensemble. Aborted runs are kept in
// Runs and counted in FailureRate but excluded from Stats.
type EnsembleResult struct {
	ID          uuid.UUID             `json:"id"`
	Reference   dynamics.State        `json:"reference"`
	Runs        []RunOutcome          `json:"runs"`
	Landed      int                   `json:"landed"`
	Aborted     int                   `json:"aborted"`
	Skipped     int                   `json:"skipped"`
	FailureRate float64               `json:"failure_rate"`
	Threshold   float64               `json:"failure_threshold"`
	Degraded    bool                  `json:"degraded"`
	Cancelled   bool                  `json:"cancelled"`
	Reasons     map[simerr.Reason]int `json:"reasons"`
	Stats       *Statistics           `json:"stats,omitempty"`
	Elapsed     time.Duration         `json:"elapsed"`
}

// Landings returns the landings of the members that reached the ground
func (e *EnsembleResult) Landings() []integrator.Landing {
	out := make([]integrator.Landing, 0, e.Landed)
	for _, r := range e.Runs {
		if r.Landing != nil {
			out = append(out, *r.Landing)
		}
	}
	return out
}

// Ensemble runs cfg.Ensemble.Runs perturbed members on a bounded pool of
// goroutines. Cancellation is checked between runs: members already flying
// finish, the rest are marked Skipped. The error is non-nil only for an
// invalid ensemble size.
func (r *Runner) Ensemble(ctx context.Context) (*EnsembleResult, error) {
	ec := r.cfg.Ensemble
	if ec.Runs <= 0 {
		return nil, simerr.Invalid("ensemble.runs", ec.Runs, "must be positive for an ensemble")
	}
	members := make([]Member, ec.Runs)
	base := r.Release()
	for i := range members {
		members[i] = perturb(ec.Perturbation, ec.Seed, i, base, r.cfg.Profile)
	}

	ctx, span := r.tracer.Start(ctx, "descent.ensemble")
	defer span.End()
	span.SetAttributes(attribute.Int("runs", ec.Runs), attribute.Int64("seed", int64(ec.Seed)))

	start := time.Now()
	outcomes := r.runMembers(ctx, members, ec.Perturbation.affectsProfile(), ec.Workers)

	res := &EnsembleResult{
		ID:        uuid.New(),
		Reference: base,
		Runs:      outcomes,
		Threshold: ec.FailureThreshold,
		Reasons:   map[simerr.Reason]int{},
		Elapsed:   time.Since(start),
	}
	var landings []integrator.Landing
	for _, o := range outcomes {
		switch o.Status {
		case integrator.Landed:
			res.Landed++
			landings = append(landings, *o.Landing)
		case Skipped:
			res.Skipped++
		default:
			res.Aborted++
			res.Reasons[o.Reason]++
		}
	}
	if attempted := res.Landed + res.Aborted; attempted > 0 {
		res.FailureRate = float64(res.Aborted) / float64(attempted)
	}
	res.Degraded = res.FailureRate > ec.FailureThreshold || res.Landed == 0
	res.Cancelled = res.Skipped > 0
	res.Stats = ComputeStatistics(base.Point(), landings)

	span.SetAttributes(
		attribute.Int("landed", res.Landed),
		attribute.Int("aborted", res.Aborted),
		attribute.Bool("degraded", res.Degraded),
	)
	r.metrics.ObserveEnsemble(res.FailureRate, res.Degraded)

	log := r.log.WithField("ensemble", res.ID.String()[:8])
	if res.Degraded {
		log.Warnf("%d of %d runs aborted (%.1f%%, threshold %.1f%%)", res.Aborted, res.Landed+res.Aborted, res.FailureRate*100, ec.FailureThreshold*100)
	} else {
		log.Debugf("%d runs landed, %d aborted in %s", res.Landed, res.Aborted, res.Elapsed.Round(time.Millisecond))
	}
	if res.Cancelled {
		log.Warnf("cancelled with %d runs left", res.Skipped)
	}
	return res, nil
}

// runMembers integrates every member with at most workers running at once.
// Outcomes are stored by member index.
func (r *Runner) runMembers(ctx context.Context, members []Member, ownModel bool, workers int) []RunOutcome {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	outcomes := make([]RunOutcome, len(members))
	for i, m := range members {
		outcomes[i] = RunOutcome{Member: m, Status: Skipped}
	}

	var (
		wg        sync.WaitGroup
		done      atomic.Int64
		semaphore = make(chan struct{}, workers)
	)

dispatch:
	for i := range members {
		select {
		case <-ctx.Done():
			break dispatch
		case semaphore <- struct{}{}:
		}
		if ctx.Err() != nil {
			<-semaphore
			break
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			outcomes[i] = r.runMember(ctx, members[i], ownModel)
			if r.progress != nil {
				r.progress(int(done.Add(1)), len(members))
			}
		}(i)
	}
	wg.Wait()
	return outcomes
}

func (r *Runner) runMember(ctx context.Context, m Member, ownModel bool) RunOutcome {
	out := RunOutcome{Member: m}
	model := r.model
	if ownModel {
		var err error
		if model, err = dynamics.NewModel(m.Profile); err != nil {
			out.Status = integrator.Aborted
			out.Reason = simerr.Classify(err)
			out.Error = err.Error()
			return out
		}
	}

	res := r.run(ctx, "descent.member", r.integ, model, m.Release)
	out.Status = res.Status
	out.Reason = res.Reason
	out.Landing = res.Landing
	out.Steps = res.Steps
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}
