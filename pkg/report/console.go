package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/picogrid/descent-simulations/pkg/integrator"
	"github.com/picogrid/descent-simulations/pkg/logger"
	"github.com/picogrid/descent-simulations/pkg/scenario"
	"github.com/picogrid/descent-simulations/pkg/simerr"
)

// Color definitions
var (
	colorLanded   = newColor(color.FgGreen, color.Bold)
	colorAborted  = newColor(color.FgRed, color.Bold)
	colorSkipped  = newColor(color.FgHiBlack)
	colorDegraded = newColor(color.FgYellow, color.Bold)
	colorID       = newColor(color.FgHiBlack)
)

func newColor(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	c.EnableColor()
	return c
}

// Printer writes human-readable results to a terminal or file
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter colours output only when w is a terminal
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, color: !color.NoColor && logger.IsTerminal(w)}
}

// NewPrinterWithColor forces colour on or off
func NewPrinterWithColor(w io.Writer, enabled bool) *Printer {
	return &Printer{w: w, color: enabled}
}

func (p *Printer) paint(c *color.Color, s string) string {
	if !p.color {
		return s
	}
	return c.Sprint(s)
}

func (p *Printer) status(s integrator.Status) string {
	switch s {
	case integrator.Landed:
		return p.paint(colorLanded, string(s))
	case scenario.Skipped:
		return p.paint(colorSkipped, string(s))
	default:
		return p.paint(colorAborted, string(s))
	}
}

func (p *Printer) kv(key string, value interface{}) {
	logger.FprintKeyValue(p.w, key, value, p.color)
}

func (p *Printer) header(title, id string) {
	logger.FprintSection(p.w, title, p.color)
	fmt.Fprintln(p.w, p.paint(colorID, "report "+id))
}

// Single prints the outcome of one run
func (p *Printer) Single(cfg scenario.Config, res *integrator.Result) {
	p.header(logger.IconParachute+" Descent: "+cfg.Name, uuid.NewString())

	r := res.Release
	p.kv("Release", fmt.Sprintf("%s at %.0f m", formatPosition(r.Lat, r.Lon), r.Alt))
	p.kv("Release time", r.Time.UTC().Format(time.RFC3339))
	p.kv("Status", p.status(res.Status))
	p.kv("Integration steps", res.Steps)

	if l := res.Landing; l != nil {
		p.kv("Landing", formatPosition(l.Lat, l.Lon))
		p.kv("Landing time", l.Time.UTC().Format(time.RFC3339))
		p.kv("Flight time", formatDuration(l.FlightDuration))
		p.kv("Drift", fmt.Sprintf("%.2f km towards %03.0f°", l.Distance/1000, l.Bearing))
		p.kv("Impact speed", fmt.Sprintf("%.1f m/s", -l.VerticalSpeed))
		return
	}
	p.kv("Reason", p.paint(colorAborted, string(res.Reason)))
	if res.Err != nil {
		p.kv("Error", res.Err)
	}
	if last, ok := res.Trajectory.Last(); ok {
		p.kv("Last state", fmt.Sprintf("%s at %.0f m after %s", formatPosition(last.Lat, last.Lon), last.Alt, formatDuration(res.Elapsed())))
	}
}

// Ensemble prints the aggregate of a Monte Carlo ensemble
func (p *Printer) Ensemble(cfg scenario.Config, res *scenario.EnsembleResult) {
	p.header(logger.IconChart+" Ensemble: "+cfg.Name, res.ID.String())

	p.kv("Reference release", fmt.Sprintf("%s at %.0f m", formatPosition(res.Reference.Lat, res.Reference.Lon), res.Reference.Alt))
	p.kv("Runs", fmt.Sprintf("%s %d, %s %d, %s %d",
		p.status(integrator.Landed), res.Landed,
		p.status(integrator.Aborted), res.Aborted,
		p.status(scenario.Skipped), res.Skipped))

	rate := fmt.Sprintf("%.1f%% (threshold %.1f%%)", res.FailureRate*100, res.Threshold*100)
	if res.Degraded {
		rate = p.paint(colorDegraded, rate+" DEGRADED")
	}
	p.kv("Failure rate", rate)
	if res.Cancelled {
		p.kv("Cancelled", p.paint(colorDegraded, fmt.Sprintf("%d runs never started", res.Skipped)))
	}
	p.kv("Wall time", res.Elapsed.Round(time.Millisecond))

	if s := res.Stats; s != nil {
		fmt.Fprintln(p.w)
		p.kv("Centroid", formatPosition(s.Centroid.Lat, s.Centroid.Lon))
		p.kv("Centroid offset", fmt.Sprintf("%.0f m east, %.0f m north", s.CentroidEast, s.CentroidNorth))
		p.kv("Spread (1σ)", fmt.Sprintf("%.0f m east, %.0f m north", s.EastStdDev, s.NorthStdDev))
		p.kv("Ellipse", fmt.Sprintf("%.0f m x %.0f m, major axis %03.0f°", s.Ellipse.SemiMajor, s.Ellipse.SemiMinor, s.Ellipse.Orientation))
		p.kv("Miss distance", fmt.Sprintf("median %.0f m, p95 %.0f m, max %.0f m", s.MedianMiss, s.P95Miss, s.MaxMiss))
		p.kv("Mean flight time", formatDuration(s.MeanFlightDuration))
		p.kv("Bounds", fmt.Sprintf("lat %.4f..%.4f, lon %.4f..%.4f", s.Bounds.MinLat, s.Bounds.MaxLat, s.Bounds.MinLon, s.Bounds.MaxLon))
	}

	if len(res.Reasons) > 0 {
		fmt.Fprintln(p.w)
		t := logger.NewTable("REASON", "RUNS")
		for _, reason := range sortedReasons(res.Reasons) {
			t.AddRow(string(reason), fmt.Sprint(res.Reasons[reason]))
		}
		t.Render(p.w)
	}
}

// Reachability prints the landing contour of a heading sweep
func (p *Printer) Reachability(cfg scenario.Config, res *scenario.ReachabilityResult) {
	p.header(logger.IconTarget+" Reachability: "+cfg.Name, res.ID.String())

	p.kv("Glide ratio", fmt.Sprintf("%.1f", res.GlideRatio))
	p.kv("Headings", fmt.Sprintf("%d (%d landed, %d aborted)", len(res.Runs), res.Landed, res.Aborted))
	if res.Landed > 0 {
		p.kv("Range", fmt.Sprintf("%.2f to %.2f km", res.MinDistance/1000, res.MaxDistance/1000))
	}
	fmt.Fprintln(p.w)

	t := logger.NewTable("HEADING", "STATUS", "LANDING", "DISTANCE", "FLIGHT")
	for i, run := range res.Runs {
		row := []string{fmt.Sprintf("%03.0f", res.Headings[i]), string(run.Status), "-", "-", "-"}
		if l := run.Landing; l != nil {
			row[2] = formatPosition(l.Lat, l.Lon)
			row[3] = fmt.Sprintf("%.2f km", l.Distance/1000)
			row[4] = formatDuration(l.FlightDuration)
		} else if run.Reason != "" {
			row[2] = string(run.Reason)
		}
		t.AddRow(row...)
	}
	t.Render(p.w)
}

func sortedReasons(m map[simerr.Reason]int) []simerr.Reason {
	out := make([]simerr.Reason, 0, len(m))
	for r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if m[out[i]] != m[out[j]] {
			return m[out[i]] > m[out[j]]
		}
		return strings.Compare(string(out[i]), string(out[j])) < 0
	})
	return out
}
