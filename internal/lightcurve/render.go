package lightcurve

import (
	"bytes"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/tphakala/exoplanet-go/internal/errors"
)

// Plot geometry
const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch
	plotDPI    = 100
)

var (
	fluxColor = color.NRGBA{R: 0x4a, G: 0x9e, B: 0xff, A: 0xcc}
	gridColor = color.Gray{Y: 225}
)

// RenderOptions controls the plot decoration
type RenderOptions struct {
	Title string
	// YMin and YMax fix the flux axis when YMax > YMin
	YMin, YMax float64
}

// Render draws the series as a PNG
func Render(s Series, opts RenderOptions) ([]byte, error) {
	if s.Len() == 0 {
		return nil, errors.Newf("nothing to render").
			Component("lightcurve").
			Category(errors.CategoryRendering).
			Build()
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Time (days)"
	p.Y.Label.Text = "Normalized Flux"

	grid := plotter.NewGrid()
	grid.Vertical.Color = gridColor
	grid.Horizontal.Color = gridColor
	p.Add(grid)

	pts := make(plotter.XYs, s.Len())
	for i := range s.Time {
		pts[i].X = s.Time[i]
		pts[i].Y = s.Flux[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, renderError(err)
	}
	line.Color = fluxColor
	line.Width = vg.Points(1)
	p.Add(line)

	if opts.YMax > opts.YMin {
		p.Y.Min = opts.YMin
		p.Y.Max = opts.YMax
	}

	canvas := vgimg.NewWith(vgimg.UseWH(plotWidth, plotHeight), vgimg.UseDPI(plotDPI))
	p.Draw(draw.New(canvas))

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(&buf); err != nil {
		return nil, renderError(err)
	}
	return buf.Bytes(), nil
}

func renderError(err error) error {
	return errors.New(err).
		Component("lightcurve").
		Category(errors.CategoryRendering).
		Context("operation", "render_png").
		Build()
}
