package sim

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Grid is an integer raster of map codes, row-major, read from a headerless
// CSV with one line per raster row.
type Grid struct {
	Rows, Cols int
	Codes      []int
}

// At returns the code at (row, col).
func (g *Grid) At(row, col int) int { return g.Codes[row*g.Cols+col] }

// ReadGrid reads a map-code raster.
func ReadGrid(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening map %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.Comment = '#'
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading map %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("map %s is empty", path)
	}

	g := &Grid{Rows: len(records), Cols: len(records[0])}
	g.Codes = make([]int, 0, g.Rows*g.Cols)
	for row, rec := range records {
		for col, field := range rec {
			v, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				return nil, fmt.Errorf("map %s row %d col %d: %w", path, row+1, col+1, err)
			}
			g.Codes = append(g.Codes, v)
		}
	}
	return g, nil
}
