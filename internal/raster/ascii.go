package raster

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Meta holds the georeferencing header of an ESRI ASCII grid.
type Meta struct {
	XLLCorner float64
	YLLCorner float64
	CellSize  float64
	Nodata    float64
}

// DefaultNodata is written when a grid has no explicit NODATA value.
const DefaultNodata = -9999

// ReadASCIIGrid parses an ESRI ASCII grid (AAIGrid). Cells equal to the
// declared NODATA value are loaded as NaN.
func ReadASCIIGrid(r io.Reader) (*Layer, Meta, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	header := map[string]float64{}
	meta := Meta{Nodata: DefaultNodata}

	var rows, cols int
	var dataLines []string

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		// Header lines are "key value" pairs; the first line that does not
		// start with a letter begins the data block.
		if len(fields) == 2 && isHeaderKey(fields[0]) {
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, Meta{}, eris.Wrapf(err, "raster: parse header %s", fields[0])
			}
			header[strings.ToLower(fields[0])] = v
			continue
		}
		dataLines = append(dataLines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, Meta{}, eris.Wrap(err, "raster: scan ascii grid")
	}

	cv, ok := header["ncols"]
	if !ok {
		return nil, Meta{}, eris.New("raster: ascii grid missing ncols")
	}
	rv, ok := header["nrows"]
	if !ok {
		return nil, Meta{}, eris.New("raster: ascii grid missing nrows")
	}
	cols, rows = int(cv), int(rv)

	meta.XLLCorner = header["xllcorner"]
	meta.YLLCorner = header["yllcorner"]
	meta.CellSize = header["cellsize"]
	if nd, ok := header["nodata_value"]; ok {
		meta.Nodata = nd
	}

	layer, err := NewLayer(rows, cols)
	if err != nil {
		return nil, Meta{}, err
	}

	i := 0
	for _, line := range dataLines {
		for _, tok := range strings.Fields(line) {
			if i >= rows*cols {
				return nil, Meta{}, eris.Errorf("raster: ascii grid has more than %d cells", rows*cols)
			}
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, Meta{}, eris.Wrapf(err, "raster: parse cell %d", i)
			}
			if v == meta.Nodata {
				v = math.NaN()
			}
			layer.Data[i] = v
			i++
		}
	}
	if i != rows*cols {
		return nil, Meta{}, eris.Errorf("raster: ascii grid has %d cells, want %d", i, rows*cols)
	}

	return layer, meta, nil
}

// WriteASCIIGrid emits a layer as an ESRI ASCII grid. NaN cells are written
// as the meta's NODATA value.
func WriteASCIIGrid(w io.Writer, l *Layer, meta Meta) error {
	bw := bufio.NewWriter(w)

	nodata := meta.Nodata
	if nodata == 0 {
		nodata = DefaultNodata
	}

	fmt.Fprintf(bw, "ncols %d\n", l.Cols)
	fmt.Fprintf(bw, "nrows %d\n", l.Rows)
	fmt.Fprintf(bw, "xllcorner %g\n", meta.XLLCorner)
	fmt.Fprintf(bw, "yllcorner %g\n", meta.YLLCorner)
	fmt.Fprintf(bw, "cellsize %g\n", meta.CellSize)
	fmt.Fprintf(bw, "NODATA_value %g\n", nodata)

	for r := 0; r < l.Rows; r++ {
		for c := 0; c < l.Cols; c++ {
			if c > 0 {
				bw.WriteByte(' ')
			}
			v := l.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = nodata
			}
			fmt.Fprintf(bw, "%g", v)
		}
		bw.WriteByte('\n')
	}

	if err := bw.Flush(); err != nil {
		return eris.Wrap(err, "raster: write ascii grid")
	}
	return nil
}

func isHeaderKey(s string) bool {
	switch strings.ToLower(s) {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
		return true
	}
	return false
}
