package inference

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const paletteSize = 256

// grid adapts a Slice to plotter.GridXYZ with row 0 at the bottom.
type grid struct {
	s Slice
}

func (g grid) Dims() (int, int) { return g.s.Cols, g.s.Rows }

func (g grid) Z(c, r int) float64 { return g.s.At(r, c) }

func (g grid) X(c int) float64 { return float64(c) }

func (g grid) Y(r int) float64 { return float64(r) }

func (g grid) bounds() (lo, hi float64) {
	lo, hi = g.s.Values[0], g.s.Values[0]
	for _, v := range g.s.Values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// grayscale runs from black to white.
type grayscale int

func (p grayscale) Colors() []color.Color {
	colors := make([]color.Color, int(p))
	for i := range colors {
		level := uint8(i * 255 / (int(p) - 1))
		colors[i] = color.Gray{Y: level}
	}
	return colors
}

// bone is gray with a blue cast in the shadows.
type bone int

func (p bone) Colors() []color.Color {
	colors := make([]color.Color, int(p))
	for i := range colors {
		t := float64(i) / float64(int(p)-1)
		r := 0.875*t + 0.125*clamp01((t-0.75)/0.25)
		g := 0.875*t + 0.125*clamp01((t-0.375)/0.375)
		b := 0.875*t + 0.125*clamp01(t/0.375)
		colors[i] = color.RGBA{R: uint8(255 * clamp01(r)), G: uint8(255 * clamp01(g)), B: uint8(255 * clamp01(b)), A: 255}
	}
	return colors
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}

func panel(title string, s Slice, pal palette.Palette) (*plot.Plot, error) {
	if len(s.Values) == 0 {
		return nil, fmt.Errorf("panel %q: empty slice", title)
	}
	g := grid{s: s}
	heat := plotter.NewHeatMap(g, pal)
	lo, hi := g.bounds()
	if hi <= lo {
		hi = lo + 1
	}
	heat.Min, heat.Max = lo, hi

	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	p.Add(heat)
	return p, nil
}

// RenderTriptych writes the MRI, ground-truth and prediction panels side by
// side to path as PNG.
func RenderTriptych(path string, image, mask, prediction Slice, diceScore float64) error {
	titles := []string{"MRI", "Ground Truth", fmt.Sprintf("Prediction\n(Dice = %.4f)", diceScore)}
	slices := []Slice{image, mask, prediction}
	palettes := []palette.Palette{bone(paletteSize), grayscale(paletteSize), grayscale(paletteSize)}

	row := make([]*plot.Plot, len(slices))
	for i := range slices {
		p, err := panel(titles[i], slices[i], palettes[i])
		if err != nil {
			return err
		}
		row[i] = p
	}

	img := vgimg.New(15*vg.Inch, 5*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 1, Cols: len(row), PadX: vg.Millimeter * 4, PadY: vg.Millimeter * 4}
	canvases := plot.Align([][]*plot.Plot{row}, tiles, dc)
	for i, p := range row {
		p.Draw(canvases[0][i])
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return file.Close()
}
