// Package report renders safe-zone and decomposition results as plain-text
// summaries, CSV tables, and XLSX workbooks.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/decompose"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/safezone"
)

// Header carries run metadata printed at the top of every report.
type Header struct {
	RunID       string
	GeneratedAt time.Time
	CellSize    float64
	Rows        int
	Cols        int
}

// WriteText renders the safe-zone table as a human-readable report, grouped
// by source, then speed, then threshold.
func WriteText(w io.Writer, h Header, res *safezone.Result) error {
	p := message.NewPrinter(language.English)

	if _, err := p.Fprintf(w, "Evacuation Travel Time Analysis\n"); err != nil {
		return eris.Wrap(err, "report: write text")
	}
	p.Fprintf(w, "Run:       %s\n", h.RunID)
	p.Fprintf(w, "Generated: %s\n", h.GeneratedAt.Format(time.RFC3339))
	p.Fprintf(w, "Grid:      %d x %d cells at %g m\n\n", h.Rows, h.Cols, h.CellSize)

	for pi, src := range res.Sources {
		p.Fprintf(w, "Source: %s\n", src)
		for si, sp := range res.Speeds {
			p.Fprintf(w, "  Walking speed %s (%.2f m/s):\n", sp.Name, sp.MetersPerSecond)
			for ti, th := range res.Thresholds {
				e := res.At(si, ti, pi)
				if !e.Found {
					p.Fprintf(w, "    %-10s no accessible safe zone\n", th.ID)
					continue
				}
				p.Fprintf(w, "    %-10s %8.3f hours  (cell %d,%d)\n",
					th.ID, e.Time, e.Cell.Row, e.Cell.Col)
			}
		}
		p.Fprintf(w, "\n")
	}
	return nil
}

// csvHeader is the column layout of the safe-zone CSV export.
var csvHeader = []string{"source", "speed", "threshold", "travel_time_hours", "row", "col", "found"}

// WriteCSV renders the safe-zone table as CSV, one row per
// (source, speed, threshold) combination. Missing combinations keep their
// row with found=false and an empty time so downstream joins stay aligned.
func WriteCSV(w io.Writer, res *safezone.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for pi, src := range res.Sources {
		for si, sp := range res.Speeds {
			for ti, th := range res.Thresholds {
				e := res.At(si, ti, pi)
				rec := []string{src, sp.Name, th.ID, "", "", "", "false"}
				if e.Found {
					rec[3] = strconv.FormatFloat(e.Time, 'f', 6, 64)
					rec[4] = strconv.Itoa(e.Cell.Row)
					rec[5] = strconv.Itoa(e.Cell.Col)
					rec[6] = "true"
				}
				if err := cw.Write(rec); err != nil {
					return eris.Wrap(err, "report: write csv record")
				}
			}
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}

// WriteDecompositionCSV renders per-threshold cost attributions. Layer
// columns are sorted by name so the output is stable across runs.
func WriteDecompositionCSV(w io.Writer, source string, rows []decompose.Row) error {
	if len(rows) == 0 {
		return eris.New("report: no decomposition rows")
	}

	layers := make([]string, 0, len(rows[0].Contributions))
	for name := range rows[0].Contributions {
		layers = append(layers, name)
	}
	sort.Strings(layers)

	cw := csv.NewWriter(w)
	header := append([]string{"source", "threshold"}, layers...)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "report: write decomposition header")
	}
	for _, row := range rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, source, row.Threshold.ID)
		for _, name := range layers {
			v := row.Contributions[name]
			if math.IsNaN(v) {
				rec = append(rec, "")
			} else {
				rec = append(rec, strconv.FormatFloat(v, 'f', 2, 64))
			}
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrap(err, "report: write decomposition record")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush decomposition csv")
}

// WriteDecompositionWorkbook writes one source's per-threshold attributions
// to an XLSX workbook, threshold rows against sorted layer columns.
func WriteDecompositionWorkbook(path, source string, rows []decompose.Row) error {
	if len(rows) == 0 {
		return eris.New("report: no decomposition rows")
	}

	layers := make([]string, 0, len(rows[0].Contributions))
	for name := range rows[0].Contributions {
		layers = append(layers, name)
	}
	sort.Strings(layers)

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName(source))
	if err != nil {
		return eris.Wrapf(err, "report: add decomposition sheet for %s", source)
	}

	header := sheet.AddRow()
	header.AddCell().SetString("threshold")
	for _, name := range layers {
		header.AddCell().SetString(name)
	}
	for _, row := range rows {
		r := sheet.AddRow()
		r.AddCell().SetString(row.Threshold.ID)
		for _, name := range layers {
			cell := r.AddCell()
			if v := row.Contributions[name]; math.IsNaN(v) {
				cell.SetString("n/a")
			} else {
				cell.SetFloat(v)
			}
		}
	}
	return eris.Wrapf(f.Save(path), "report: save workbook %s", path)
}

// WriteWorkbook writes an XLSX workbook: one sheet per walking speed with the
// threshold-by-source travel-time matrix, plus a Statistics sheet with
// min/max/mean per speed over the found entries.
func WriteWorkbook(path string, res *safezone.Result) error {
	f := xlsx.NewFile()

	for si, sp := range res.Speeds {
		sheet, err := f.AddSheet(sp.Name)
		if err != nil {
			return eris.Wrapf(err, "report: add sheet %s", sp.Name)
		}

		header := sheet.AddRow()
		header.AddCell().SetString("threshold")
		for _, src := range res.Sources {
			header.AddCell().SetString(src)
		}

		for ti, th := range res.Thresholds {
			row := sheet.AddRow()
			row.AddCell().SetString(th.ID)
			for pi := range res.Sources {
				e := res.At(si, ti, pi)
				cell := row.AddCell()
				if e.Found {
					cell.SetFloat(e.Time)
				} else {
					cell.SetString("n/a")
				}
			}
		}
	}

	stats, err := f.AddSheet("Statistics")
	if err != nil {
		return eris.Wrap(err, "report: add statistics sheet")
	}
	header := stats.AddRow()
	for _, name := range []string{"speed", "entries", "min_hours", "max_hours", "mean_hours"} {
		header.AddCell().SetString(name)
	}
	for si, sp := range res.Speeds {
		min, max, mean, n := speedStats(res, si)
		row := stats.AddRow()
		row.AddCell().SetString(sp.Name)
		row.AddCell().SetInt(n)
		if n > 0 {
			row.AddCell().SetFloat(min)
			row.AddCell().SetFloat(max)
			row.AddCell().SetFloat(mean)
		}
	}

	return eris.Wrapf(f.Save(path), "report: save workbook %s", path)
}

func speedStats(res *safezone.Result, speed int) (min, max, mean float64, n int) {
	min = math.Inf(1)
	max = math.Inf(-1)
	var sum float64
	for ti := range res.Thresholds {
		for pi := range res.Sources {
			e := res.At(speed, ti, pi)
			if !e.Found {
				continue
			}
			min = math.Min(min, e.Time)
			max = math.Max(max, e.Time)
			sum += e.Time
			n++
		}
	}
	if n == 0 {
		return 0, 0, 0, 0
	}
	return min, max, sum / float64(n), n
}

// SheetName formats one decomposition sheet title per source, trimmed to the
// 31-character limit XLSX imposes.
func SheetName(source string) string {
	name := fmt.Sprintf("decomp %s", source)
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
