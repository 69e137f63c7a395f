package telemetry

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/pthm-cable/succession/landscape"
)

// ANPPGrid is the AG-NPP of every raster cell at the end of a timestep,
// row-major. Inactive cells are 0.
type ANPPGrid struct {
	Rows, Cols int
	Values     []float64
}

// NewANPPGrid reads AG-NPP from every active site.
func NewANPPGrid(l *landscape.Landscape) *ANPPGrid {
	g := &ANPPGrid{Rows: l.Rows(), Cols: l.Cols(), Values: make([]float64, l.Cells())}
	for _, s := range l.Sites() {
		g.Values[s.Location.ID] = s.State.AGNPP
	}
	return g
}

// Pixel returns the map value of a cell: AG-NPP truncated to an integer
// and clamped to the 16-bit range.
func (g *ANPPGrid) Pixel(row, col int) uint16 {
	v := math.Trunc(g.Values[row*g.Cols+col])
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(v)
}

// Image renders the grid as a 16-bit grayscale image, one pixel per cell.
func (g *ANPPGrid) Image() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, g.Cols, g.Rows))
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			img.SetGray16(c, r, color.Gray16{Y: g.Pixel(r, c)})
		}
	}
	return img
}

// WritePNG writes the grid image to path.
func (g *ANPPGrid) WritePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, g.Image()); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

// heatGrid adapts ANPPGrid to plotter.GridXYZ. Row 0 is the top of the
// raster, so it is plotted at the largest y.
type heatGrid struct{ g *ANPPGrid }

func (h heatGrid) Dims() (c, r int)   { return h.g.Cols, h.g.Rows }
func (h heatGrid) Z(c, r int) float64 { return h.g.Values[(h.g.Rows-1-r)*h.g.Cols+c] }
func (h heatGrid) X(c int) float64    { return float64(c) }
func (h heatGrid) Y(r int) float64    { return float64(r) }

// WriteHeatmap plots the grid as a colored heat map and saves it to path;
// the image format follows the extension.
func (g *ANPPGrid) WriteHeatmap(path string, time int) error {
	if g.Rows == 0 || g.Cols == 0 {
		return fmt.Errorf("heat map of empty %dx%d grid", g.Rows, g.Cols)
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("AG-NPP, year %d", time)
	p.X.Label.Text = "column"
	p.Y.Label.Text = "row (from bottom)"

	hm := plotter.NewHeatMap(heatGrid{g}, moreland.ExtendedBlackBody().Palette(255))
	if hm.Max <= hm.Min {
		// A uniform grid still needs a non-empty color range.
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	w := vg.Length(math.Max(4, math.Min(12, float64(g.Cols)/8))) * vg.Inch
	h := vg.Length(math.Max(4, math.Min(12, float64(g.Rows)/8))) * vg.Inch
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("saving heat map %s: %w", path, err)
	}
	return nil
}
