// Package chart renders aggregated benchmark series as bar charts.
package chart

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Mode selects how the y axis is labeled.
type Mode int

const (
	Linear  Mode = iota
	Percent      // values are fractions, ticks read "75%"
)

// Series is one set of bars, one value per category.
type Series struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

// Chart describes one bar chart. Tool and Name determine the output files.
type Chart struct {
	Tool       string   `json:"tool"`
	Name       string   `json:"name"`
	Title      string   `json:"title"`
	XLabel     string   `json:"xlabel"`
	YLabel     string   `json:"ylabel"`
	Categories []string `json:"categories"`
	Series     []Series `json:"series"`
	Stacked    bool     `json:"stacked,omitempty"`
	Mode       Mode     `json:"mode,omitempty"`
	// MaxLine draws a horizontal reference line at the largest value of the
	// first series, annotated with that value.
	MaxLine bool `json:"maxline,omitempty"`
}

// Bar returns a single-series chart.
func Bar(tool, name, title, xlabel, ylabel string, x []string, y []float64) Chart {
	return Chart{
		Tool:       tool,
		Name:       name,
		Title:      title,
		XLabel:     xlabel,
		YLabel:     ylabel,
		Categories: x,
		Series:     []Series{{Values: y}},
	}
}

// Key identifies the chart in an archive.
func (c Chart) Key() string {
	return c.Tool + "/" + c.Name
}

// Empty reports whether the chart has no bars.
func (c Chart) Empty() bool {
	return len(c.Categories) == 0 || len(c.Series) == 0
}

func (c Chart) validate() error {
	for _, s := range c.Series {
		if len(s.Values) != len(c.Categories) {
			return errors.Errorf("series %q has %d values for %d categories", s.Label, len(s.Values), len(c.Categories))
		}
	}
	return nil
}

// Recorder receives the data of every rendered chart.
type Recorder interface {
	Record(c Chart) error
}

// Renderer writes charts as JPEG and SVG below Dir/graphs.
type Renderer struct {
	Dir      string
	Width    vg.Length
	Height   vg.Length
	DPI      int
	Recorder Recorder
	Log      zerolog.Logger
}

// NewRenderer creates a renderer with the default image geometry.
func NewRenderer(dir string, log zerolog.Logger) *Renderer {
	return &Renderer{
		Dir:    dir,
		Width:  16 * vg.Centimeter,
		Height: 10 * vg.Centimeter,
		DPI:    300,
		Log:    log,
	}
}

// Paths returns the raster and vector output files of c.
func (r *Renderer) Paths(c Chart) (jpg, svg string) {
	jpg = filepath.Join(r.Dir, "graphs", "jpg", c.Tool, c.Name+".jpg")
	svg = filepath.Join(r.Dir, "graphs", "svg", c.Tool, c.Name+".svg")
	return jpg, svg
}

// Render draws c and saves both image variants. Charts without data are
// skipped with a warning.
func (r *Renderer) Render(c Chart) error {
	if c.Empty() {
		r.Log.Warn().Str("chart", c.Key()).Msg("No data for chart, skipping")
		return nil
	}
	if err := c.validate(); err != nil {
		return errors.Wrap(err, c.Key())
	}
	p, err := r.plot(c)
	if err != nil {
		return errors.Wrapf(err, "can't plot %s", c.Key())
	}
	jpg, svg := r.Paths(c)
	r.Log.Info().Str("jpg", jpg).Str("svg", svg).Msg("Generating bar plot")
	for _, dir := range []string{filepath.Dir(jpg), filepath.Dir(svg)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "can't create graph dir")
		}
	}
	if err := r.saveJPEG(p, jpg); err != nil {
		return errors.Wrapf(err, "can't save %s", jpg)
	}
	if err := p.Save(r.Width, r.Height, svg); err != nil {
		return errors.Wrapf(err, "can't save %s", svg)
	}
	if r.Recorder != nil {
		if err := r.Recorder.Record(c); err != nil {
			return errors.Wrapf(err, "can't record %s", c.Key())
		}
	}
	return nil
}

func (r *Renderer) plot(c Chart) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.NominalX(c.Categories...)
	if c.Mode == Percent {
		p.Y.Tick.Marker = percentTicks{}
	}

	var (
		n          = len(c.Series)
		barSpacing = vg.Points(2)
		barWidth   = vg.Points(36)
		groupWidth vg.Length
		prev       *plotter.BarChart
	)
	if n > 1 && !c.Stacked {
		barWidth = vg.Points(36) / vg.Length(n)
		groupWidth = (barWidth + barSpacing) * vg.Length(n-1)
	}
	for i, s := range c.Series {
		bc, err := plotter.NewBarChart(plotter.Values(s.Values), barWidth)
		if err != nil {
			return nil, err
		}
		bc.Color = plotutil.Color(i)
		bc.LineStyle.Color = color.Black
		switch {
		case c.Stacked && prev != nil:
			bc.StackOn(prev)
		case !c.Stacked && n > 1:
			bc.Offset = (barWidth+barSpacing)*vg.Length(i) - groupWidth/2
		}
		p.Add(bc)
		if s.Label != "" && n > 1 {
			p.Legend.Add(s.Label, bc)
		}
		prev = bc
	}
	p.Legend.Top = true

	if c.MaxLine {
		if err := addMaxLine(p, c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// addMaxLine draws a dashed line across the plot at the maximum of the first
// series and labels it with the value.
func addMaxLine(p *plot.Plot, c Chart) error {
	top := floats.Max(c.Series[0].Values)
	xmin, xmax := -0.5, float64(len(c.Categories))-0.5
	l, err := plotter.NewLine(plotter.XYs{{X: xmin, Y: top}, {X: xmax, Y: top}})
	if err != nil {
		return err
	}
	l.Color = color.RGBA{R: 200, A: 255}
	l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	label := fmt.Sprintf("max %.2f", top)
	if c.Mode == Percent {
		label = "max " + formatPercent(top)
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: xmin, Y: top}},
		Labels: []string{label},
	})
	if err != nil {
		return err
	}
	labels.Offset = vg.Point{X: vg.Points(4), Y: vg.Points(3)}
	p.Add(l, labels)
	if p.Y.Max < top*1.15 {
		p.Y.Max = top * 1.15
	}
	return nil
}

func (r *Renderer) saveJPEG(p *plot.Plot, file string) error {
	c := vgimg.NewWith(vgimg.UseWH(r.Width, r.Height), vgimg.UseDPI(r.DPI))
	p.Draw(draw.New(c))
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if _, err := (vgimg.JpegCanvas{Canvas: c}).WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
