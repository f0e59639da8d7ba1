// Package gridfile reads and writes atmospheric grids as JSON or YAML
// documents, optionally compressed with zstd or gzip.
package gridfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/picogrid/descent-simulations/pkg/atmosphere"
)

// Format is the document encoding of a grid file
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// Compression wraps the encoded document
type Compression string

const (
	None Compression = ""
	Zstd Compression = "zstd"
	Gzip Compression = "gzip"
)

// Document is the on-disk layout of a grid. Field arrays are row-major
// [hour][level][lat][lon]; W, T and HGT may be omitted.
type Document struct {
	Source        string    `json:"source,omitempty" yaml:"source,omitempty"`
	CycleTime     time.Time `json:"cycle_time" yaml:"cycle_time"`
	ForecastHours []float64 `json:"forecast_hours" yaml:"forecast_hours,flow"`
	Levels        []float64 `json:"levels" yaml:"levels,flow"`
	Latitudes     []float64 `json:"latitudes" yaml:"latitudes,flow"`
	Longitudes    []float64 `json:"longitudes" yaml:"longitudes,flow"`

	U   []float64 `json:"u" yaml:"u,flow"`
	V   []float64 `json:"v" yaml:"v,flow"`
	W   []float64 `json:"w,omitempty" yaml:"w,omitempty,flow"`
	T   []float64 `json:"t,omitempty" yaml:"t,omitempty,flow"`
	HGT []float64 `json:"hgt,omitempty" yaml:"hgt,omitempty,flow"`
}

// FromGrid captures g as a document
func FromGrid(g *atmosphere.Grid, source string) Document {
	s := g.Spec()
	return Document{
		Source:        source,
		CycleTime:     s.CycleTime.UTC(),
		ForecastHours: s.ForecastHours,
		Levels:        s.Levels,
		Latitudes:     s.Latitudes,
		Longitudes:    s.Longitudes,
		U:             s.U,
		V:             s.V,
		W:             s.W,
		T:             s.T,
		HGT:           s.HGT,
	}
}

// Grid validates the document and builds a grid from it
func (d Document) Grid() (*atmosphere.Grid, error) {
	return atmosphere.NewGrid(atmosphere.GridSpec{
		CycleTime:     d.CycleTime,
		ForecastHours: d.ForecastHours,
		Levels:        d.Levels,
		Latitudes:     d.Latitudes,
		Longitudes:    d.Longitudes,
		U:             d.U,
		V:             d.V,
		W:             d.W,
		T:             d.T,
		HGT:           d.HGT,
	})
}

// DetectFormat infers the encoding and compression from a file name such
// as gfs.json.zst or winds.yaml.gz
func DetectFormat(path string) (Format, Compression, error) {
	name := strings.ToLower(filepath.Base(path))
	comp := None
	switch {
	case strings.HasSuffix(name, ".zst"):
		comp, name = Zstd, strings.TrimSuffix(name, ".zst")
	case strings.HasSuffix(name, ".gz"):
		comp, name = Gzip, strings.TrimSuffix(name, ".gz")
	}

	switch filepath.Ext(name) {
	case ".json":
		return JSON, comp, nil
	case ".yaml", ".yml":
		return YAML, comp, nil
	}
	return "", comp, fmt.Errorf("unrecognised grid file extension: %s", path)
}

// Decode reads a grid document from r
func Decode(r io.Reader, format Format) (*atmosphere.Grid, error) {
	var doc Document
	switch format {
	case JSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("error parsing grid JSON: %w", err)
		}
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("error parsing grid YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported grid format: %q", format)
	}

	g, err := doc.Grid()
	if err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}
	return g, nil
}

// Encode writes g to w as a grid document
func Encode(w io.Writer, g *atmosphere.Grid, format Format) error {
	doc := FromGrid(g, "")
	switch format {
	case JSON:
		return json.NewEncoder(w).Encode(doc)
	case YAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported grid format: %q", format)
}

// Load reads the grid file at path
func Load(path string) (*atmosphere.Grid, error) {
	format, comp, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening grid file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch comp {
	case Zstd:
		zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	case Gzip:
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", path, err)
		}
		defer gr.Close()
		r = gr
	}

	g, err := Decode(r, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Save writes g to path, creating parent directories. The encoding and
// compression follow the file name.
func Save(path string, g *atmosphere.Grid) (err error) {
	format, comp, err := DetectFormat(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating grid file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.WriteCloser
	switch comp {
	case Zstd:
		if w, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression)); err != nil {
			return err
		}
	case Gzip:
		w = gzip.NewWriter(f)
	default:
		return Encode(f, g, format)
	}

	if err := Encode(w, g, format); err != nil {
		w.Close()
		return fmt.Errorf("error writing grid: %w", err)
	}
	return w.Close()
}
