package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/picogrid/descent-simulations/pkg/atmosphere"
	"github.com/picogrid/descent-simulations/pkg/gridfile"
	"github.com/picogrid/descent-simulations/pkg/logger"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Inspect and generate wind grid files",
}

var gridInspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show the shape and coverage of a grid file",
	Args:  cobra.ExactArgs(1),
	RunE:  inspectGrid,
}

var gridSynthCmd = &cobra.Command{
	Use:   "synth <file>",
	Short: "Write a synthetic jet stream grid",
	Long: `Write a synthetic grid whose wind speed peaks at the jet altitude.
The output format follows the file extension: .json or .yaml, optionally
followed by .zst or .gz.`,
	Args: cobra.ExactArgs(1),
	RunE: synthGrid,
}

func init() {
	f := gridSynthCmd.Flags()
	f.String("cycle", "", "cycle time, RFC 3339 (default: the last 6-hourly cycle)")
	f.Float64("hours", 24, "forecast length in hours")
	f.Float64("step", 3, "forecast step in hours")
	f.Float64("lat-min", 40, "southern edge in degrees")
	f.Float64("lat-max", 60, "northern edge in degrees")
	f.Float64("lon-min", -10, "western edge in degrees")
	f.Float64("lon-max", 10, "eastern edge in degrees")
	f.Float64("resolution", 1, "grid spacing in degrees")
	f.Float64("surface-speed", 5, "surface wind speed in m/s")
	f.Float64("jet-speed", 40, "peak wind speed in m/s")
	f.Float64("jet-altitude", 11000, "altitude of the peak in metres")
	f.Float64("jet-width", 4000, "falloff of the jet in metres")
	f.Float64("direction", 90, "direction the wind blows towards, degrees true")

	gridCmd.AddCommand(gridInspectCmd)
	gridCmd.AddCommand(gridSynthCmd)
}

func inspectGrid(cmd *cobra.Command, args []string) error {
	var grid *atmosphere.Grid
	err := logger.WithSpinner("Loading grid", func() error {
		var err error
		grid, err = gridfile.Load(args[0])
		return err
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	color := logger.IsTerminal(w)
	hours, levels, lats, lons := grid.Shape()
	cov := grid.Coverage()

	logger.FprintSection(w, "Grid "+args[0], color)
	logger.FprintKeyValue(w, "Cycle", grid.CycleTime().Format(time.RFC3339), color)
	logger.FprintKeyValue(w, "Shape", fmt.Sprintf("%d hours x %d levels x %d lat x %d lon", hours, levels, lats, lons), color)
	logger.FprintKeyValue(w, "Valid", fmt.Sprintf("%s to %s", cov.Start.Format(time.RFC3339), cov.End.Format(time.RFC3339)), color)
	logger.FprintKeyValue(w, "Latitude", fmt.Sprintf("%.2f to %.2f", cov.MinLatitude, cov.MaxLatitude), color)
	if cov.GlobalLon {
		logger.FprintKeyValue(w, "Longitude", "global", color)
	} else {
		logger.FprintKeyValue(w, "Longitude", fmt.Sprintf("%.2f to %.2f", cov.MinLongitude, cov.MaxLongitude), color)
	}
	logger.FprintKeyValue(w, "Ceiling", fmt.Sprintf("%.0f m", cov.MaxAltitude), color)
	logger.FprintKeyValue(w, "Temperature", grid.HasTemperature(), color)
	logger.FprintKeyValue(w, "Heights", grid.HasHeights(), color)
	return nil
}

func synthGrid(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	get := func(name string) float64 {
		v, _ := f.GetFloat64(name)
		return v
	}

	cycle := time.Now().UTC().Truncate(6 * time.Hour)
	if raw, _ := f.GetString("cycle"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("invalid cycle: %w", err)
		}
		cycle = t.UTC()
	}

	hours, err := axis(0, get("hours"), get("step"))
	if err != nil {
		return fmt.Errorf("forecast hours: %w", err)
	}
	lats, err := axis(get("lat-min"), get("lat-max"), get("resolution"))
	if err != nil {
		return fmt.Errorf("latitudes: %w", err)
	}
	lons, err := axis(get("lon-min"), get("lon-max"), get("resolution"))
	if err != nil {
		return fmt.Errorf("longitudes: %w", err)
	}

	jet := atmosphere.JetStream{
		Surface:   get("surface-speed"),
		Peak:      get("jet-speed"),
		Altitude:  get("jet-altitude"),
		Width:     get("jet-width"),
		Direction: get("direction"),
	}
	grid, err := atmosphere.NewGridBuilder(cycle, hours, atmosphere.StandardLevels(), lats, lons).
		WithTemperature().
		WithHeights().
		Build(jet.Fill)
	if err != nil {
		return err
	}

	if err := gridfile.Save(args[0], grid); err != nil {
		return err
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	logger.Successf("Wrote %s (%d bytes)", args[0], info.Size())
	return nil
}

// axis returns min, min+step, ... up to and including max
func axis(min, max, step float64) ([]float64, error) {
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive")
	}
	if max <= min {
		return nil, fmt.Errorf("range %g to %g is empty", min, max)
	}
	var out []float64
	for v := min; v < max-step*1e-9; v += step {
		out = append(out, v)
	}
	return append(out, max), nil
}
