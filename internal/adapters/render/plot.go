package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	panelWidth  = 360
	panelHeight = 260
	marginLeft  = 48
	marginRight = 12
	marginTop   = 24
	marginBot   = 30
)

var (
	background = color.RGBA{0xff, 0xff, 0xff, 0xff}
	ink        = color.RGBA{0x22, 0x22, 0x22, 0xff}
	gridInk    = color.RGBA{0xcc, 0xcc, 0xcc, 0xff}
	barFill    = color.RGBA{0x4c, 0x72, 0xb0, 0xff}
	pointFill  = color.RGBA{0xdd, 0x84, 0x52, 0xff}
)

// Series is one attribute's values for a histogram panel.
type Series struct {
	Name   string
	Values []float64
}

// PointSeries is one attribute pair for a scatterplot panel.
type PointSeries struct {
	X, Y   string
	Points [][2]float64
}

// canvas lays panels out on a near-square grid.
type canvas struct {
	img  *image.RGBA
	cols int
}

func newCanvas(panels int) *canvas {
	panels = max(panels, 1)
	cols := int(math.Ceil(math.Sqrt(float64(panels))))
	rows := (panels + cols - 1) / cols
	img := image.NewRGBA(image.Rect(0, 0, cols*panelWidth, rows*panelHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	return &canvas{img: img, cols: cols}
}

// plotArea returns panel i's drawing rectangle inside its margins.
func (c *canvas) plotArea(i int) image.Rectangle {
	x0 := (i % c.cols) * panelWidth
	y0 := (i / c.cols) * panelHeight
	return image.Rect(x0+marginLeft, y0+marginTop, x0+panelWidth-marginRight, y0+panelHeight-marginBot)
}

func (c *canvas) fill(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r.Intersect(c.img.Bounds()), image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *canvas) text(x, y int, s string) {
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(ink),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

// frame draws the axes, title and axis extents for a panel.
func (c *canvas) frame(area image.Rectangle, title string, xlo, xhi float64, ylabel string) {
	c.fill(image.Rect(area.Min.X, area.Max.Y, area.Max.X, area.Max.Y+1), ink)
	c.fill(image.Rect(area.Min.X-1, area.Min.Y, area.Min.X, area.Max.Y+1), ink)

	c.text(area.Min.X+(area.Dx()-textWidth(title))/2, area.Min.Y-8, title)
	c.text(area.Min.X, area.Max.Y+16, tick(xlo))
	hiLabel := tick(xhi)
	c.text(area.Max.X-textWidth(hiLabel), area.Max.Y+16, hiLabel)
	if ylabel != "" {
		c.text(area.Min.X-textWidth(ylabel)-4, area.Min.Y+10, ylabel)
	}
}

func (c *canvas) encode(w io.Writer) error {
	if err := png.Encode(w, c.img); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}

func tick(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}

// Histograms draws one histogram per series as a PNG.
func Histograms(w io.Writer, series []Series) error {
	c := newCanvas(len(series))
	for i, s := range series {
		area := c.plotArea(i)
		edges, counts := Histogram(s.Values, AutoBins(s.Values))
		peak := max(slices.Max(counts), 1)

		c.frame(area, fmt.Sprintf("%s (n=%d)", s.Name, len(s.Values)), edges[0], edges[len(edges)-1], strconv.Itoa(peak))

		barWidth := float64(area.Dx()) / float64(len(counts))
		for b, n := range counts {
			if n == 0 {
				continue
			}
			x0 := area.Min.X + int(math.Round(float64(b)*barWidth))
			x1 := area.Min.X + int(math.Round(float64(b+1)*barWidth))
			h := int(math.Round(float64(area.Dy()) * float64(n) / float64(peak)))
			c.fill(image.Rect(x0, area.Max.Y-h, max(x1-1, x0+1), area.Max.Y), barFill)
		}
	}
	return c.encode(w)
}

// Scatterplots draws one scatterplot per attribute pair as a PNG.
func Scatterplots(w io.Writer, series []PointSeries) error {
	c := newCanvas(len(series))
	for i, s := range series {
		area := c.plotArea(i)
		xlo, xhi := extent(s.Points, 0)
		ylo, yhi := extent(s.Points, 1)

		c.frame(area, s.X+" vs "+s.Y, xlo, xhi, tick(yhi))
		c.fill(image.Rect(area.Min.X, area.Min.Y, area.Max.X, area.Min.Y+1), gridInk)

		for _, pt := range s.Points {
			px := area.Min.X + int(math.Round((pt[0]-xlo)/(xhi-xlo)*float64(area.Dx()-1)))
			py := area.Max.Y - 1 - int(math.Round((pt[1]-ylo)/(yhi-ylo)*float64(area.Dy()-1)))
			c.fill(image.Rect(px-1, py-1, px+2, py+2), pointFill)
		}
	}
	return c.encode(w)
}

// extent returns the min and max of one coordinate, widened when flat.
func extent(points [][2]float64, axis int) (float64, float64) {
	if len(points) == 0 {
		return 0, 1
	}
	lo, hi := points[0][axis], points[0][axis]
	for _, p := range points[1:] {
		lo = math.Min(lo, p[axis])
		hi = math.Max(hi, p[axis])
	}
	if lo == hi {
		return lo - 0.5, hi + 0.5
	}
	return lo, hi
}

// WriteFile creates path (and its directory) and renders into it.
func WriteFile(path string, render func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("render: create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
