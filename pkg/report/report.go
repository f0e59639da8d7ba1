// Package report renders descent results for people: coloured console
// summaries and saved JSON or Markdown reports.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/picogrid/descent-simulations/pkg/dynamics"
	"github.com/picogrid/descent-simulations/pkg/geo"
	"github.com/picogrid/descent-simulations/pkg/integrator"
	"github.com/picogrid/descent-simulations/pkg/scenario"
	"github.com/picogrid/descent-simulations/pkg/simerr"
)

// Version is stamped into every saved report
const Version = "1.0"

// Kind names the mode that produced a report
type Kind string

const (
	KindSingle       Kind = "single"
	KindEnsemble     Kind = "ensemble"
	KindReachability Kind = "reachability"
)

// RunSummary is the serialisable form of one integrator result
type RunSummary struct {
	Status     integrator.Status   `json:"status"`
	Reason     simerr.Reason       `json:"reason,omitempty"`
	Error      string              `json:"error,omitempty"`
	Steps      int                 `json:"steps"`
	Elapsed    time.Duration       `json:"elapsed"`
	Release    dynamics.State      `json:"release"`
	Landing    *integrator.Landing `json:"landing,omitempty"`
	Trajectory []dynamics.State    `json:"trajectory,omitempty"`
}

// Summarize converts res into a RunSummary keeping every n-th trajectory
// state. n < 0 drops the trajectory.
func Summarize(res *integrator.Result, n int) RunSummary {
	s := RunSummary{
		Status:  res.Status,
		Reason:  res.Reason,
		Steps:   res.Steps,
		Elapsed: res.Elapsed(),
		Release: res.Release,
		Landing: res.Landing,
	}
	if res.Err != nil {
		s.Error = res.Err.Error()
	}
	if n >= 0 {
		s.Trajectory = res.Trajectory.Decimate(n)
	}
	return s
}

// Metadata identifies a saved report
type Metadata struct {
	ReportID    uuid.UUID `json:"report_id"`
	Scenario    string    `json:"scenario"`
	Kind        Kind      `json:"kind"`
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version"`
}

// Document is a complete report of one scenario run. Exactly one of
// Single, Ensemble and Reachability is set.
type Document struct {
	Metadata     Metadata                     `json:"metadata"`
	Config       scenario.Config              `json:"config"`
	Single       *RunSummary                  `json:"single,omitempty"`
	Ensemble     *scenario.EnsembleResult     `json:"ensemble,omitempty"`
	Reachability *scenario.ReachabilityResult `json:"reachability,omitempty"`
}

func newDocument(kind Kind, cfg scenario.Config) *Document {
	return &Document{
		Metadata: Metadata{
			ReportID:    uuid.New(),
			Scenario:    cfg.Name,
			Kind:        kind,
			GeneratedAt: time.Now().UTC(),
			Version:     Version,
		},
		Config: cfg,
	}
}

// ForSingle builds a report of a single run, keeping every n-th state
func ForSingle(cfg scenario.Config, res *integrator.Result, n int) *Document {
	d := newDocument(KindSingle, cfg)
	s := Summarize(res, n)
	d.Single = &s
	return d
}

// ForEnsemble builds a report of a Monte Carlo ensemble
func ForEnsemble(cfg scenario.Config, res *scenario.EnsembleResult) *Document {
	d := newDocument(KindEnsemble, cfg)
	d.Ensemble = res
	return d
}

// ForReachability builds a report of a heading sweep
func ForReachability(cfg scenario.Config, res *scenario.ReachabilityResult) *Document {
	d := newDocument(KindReachability, cfg)
	d.Reachability = res
	return d
}

// Config configures report saving
type Config struct {
	OutputDir string
	Format    string // "json", "markdown" or "both"
}

// Save writes doc into cfg.OutputDir and returns the written paths
func Save(cfg Config, doc *Document) ([]string, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s", doc.Metadata.Kind, doc.Metadata.GeneratedAt.Format("20060102_150405"), doc.Metadata.ReportID.String()[:8])
	var paths []string
	switch cfg.Format {
	case "json", "":
		paths = append(paths, filepath.Join(cfg.OutputDir, name+".json"))
	case "markdown":
		paths = append(paths, filepath.Join(cfg.OutputDir, name+".md"))
	case "both":
		paths = append(paths, filepath.Join(cfg.OutputDir, name+".json"), filepath.Join(cfg.OutputDir, name+".md"))
	default:
		return nil, fmt.Errorf("unsupported report format: %s", cfg.Format)
	}

	for _, path := range paths {
		var data []byte
		if strings.HasSuffix(path, ".md") {
			data = []byte(Markdown(doc))
		} else {
			var err error
			if data, err = json.MarshalIndent(doc, "", "  "); err != nil {
				return nil, fmt.Errorf("failed to marshal report: %w", err)
			}
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write report: %w", err)
		}
	}
	return paths, nil
}

// Markdown renders doc as a Markdown document
func Markdown(doc *Document) string {
	var sb strings.Builder

	sb.WriteString("# Descent Report\n\n")
	sb.WriteString(fmt.Sprintf("**Report ID:** %s\n", doc.Metadata.ReportID))
	sb.WriteString(fmt.Sprintf("**Scenario:** %s\n", doc.Metadata.Scenario))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n\n", doc.Metadata.GeneratedAt.Format("2006-01-02 15:04:05")))

	r := doc.Config.Release
	sb.WriteString("## Release\n\n")
	sb.WriteString(fmt.Sprintf("- **Position:** %s\n", formatPosition(r.Latitude, r.Longitude)))
	sb.WriteString(fmt.Sprintf("- **Altitude:** %.0f m\n", r.Altitude))
	sb.WriteString(fmt.Sprintf("- **Time:** %s\n\n", r.Time.UTC().Format(time.RFC3339)))

	switch {
	case doc.Single != nil:
		s := doc.Single
		sb.WriteString("## Single Run\n\n")
		sb.WriteString(fmt.Sprintf("- **Status:** %s\n", s.Status))
		if s.Landing != nil {
			l := s.Landing
			sb.WriteString(fmt.Sprintf("- **Landing:** %s\n", formatPosition(l.Lat, l.Lon)))
			sb.WriteString(fmt.Sprintf("- **Flight Time:** %s\n", formatDuration(l.FlightDuration)))
			sb.WriteString(fmt.Sprintf("- **Drift:** %.2f km towards %03.0f°\n", l.Distance/1000, l.Bearing))
		} else {
			sb.WriteString(fmt.Sprintf("- **Reason:** %s (%s)\n", s.Reason, s.Error))
		}
		sb.WriteString(fmt.Sprintf("- **Steps:** %d\n\n", s.Steps))

	case doc.Ensemble != nil:
		e := doc.Ensemble
		sb.WriteString("## Ensemble\n\n")
		sb.WriteString(fmt.Sprintf("- **Runs:** %d landed, %d aborted, %d skipped\n", e.Landed, e.Aborted, e.Skipped))
		sb.WriteString(fmt.Sprintf("- **Failure Rate:** %.1f%% (threshold %.1f%%)\n", e.FailureRate*100, e.Threshold*100))
		if e.Degraded {
			sb.WriteString("- **Degraded:** yes\n")
		}
		if s := e.Stats; s != nil {
			sb.WriteString(fmt.Sprintf("- **Centroid:** %s\n", formatPosition(s.Centroid.Lat, s.Centroid.Lon)))
			sb.WriteString(fmt.Sprintf("- **1σ Ellipse:** %.0f m x %.0f m, major axis %03.0f°\n", s.Ellipse.SemiMajor, s.Ellipse.SemiMinor, s.Ellipse.Orientation))
			sb.WriteString(fmt.Sprintf("- **Miss Distance:** median %.0f m, p95 %.0f m, max %.0f m\n", s.MedianMiss, s.P95Miss, s.MaxMiss))
		}
		sb.WriteString("\n")
		if len(e.Reasons) > 0 {
			sb.WriteString("### Abort Reasons\n\n")
			for _, reason := range sortedReasons(e.Reasons) {
				sb.WriteString(fmt.Sprintf("- %s: %d\n", reason, e.Reasons[reason]))
			}
			sb.WriteString("\n")
		}

	case doc.Reachability != nil:
		rr := doc.Reachability
		sb.WriteString("## Reachability\n\n")
		sb.WriteString(fmt.Sprintf("- **Glide Ratio:** %.1f\n", rr.GlideRatio))
		sb.WriteString(fmt.Sprintf("- **Range:** %.2f to %.2f km\n\n", rr.MinDistance/1000, rr.MaxDistance/1000))
		sb.WriteString("| Heading | Status | Landing | Distance |\n|---|---|---|---|\n")
		for i, run := range rr.Runs {
			landing, dist := "-", "-"
			if run.Landing != nil {
				landing = formatPosition(run.Landing.Lat, run.Landing.Lon)
				dist = fmt.Sprintf("%.2f km", run.Landing.Distance/1000)
			}
			sb.WriteString(fmt.Sprintf("| %03.0f° | %s | %s | %s |\n", rr.Headings[i], run.Status, landing, dist))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatPosition(lat, lon float64) string {
	return fmt.Sprintf("%.5f, %.5f", lat, geo.SignedLongitude(lon))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
