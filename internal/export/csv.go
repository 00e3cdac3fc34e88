// Package export writes panel results as CSV, GeoJSON and a YAML run report.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/ifews/nsurplus/internal/panel"
	"github.com/ifews/nsurplus/internal/variable"
)

// Key column names shared by every export.
const (
	ColCounty = "CountyName"
	ColYear   = "Year"
)

// WriteCSV writes one wide row per record: CountyName, Year, then vars. Absent cells are empty.
// A nil vars writes every column of p.
func WriteCSV(w io.Writer, p *panel.Panel, vars []variable.Variable) error {
	if vars == nil {
		vars = p.Vars()
	}
	cw := csv.NewWriter(w)

	header := []string{ColCounty, ColYear}
	for _, v := range vars {
		header = append(header, v.String())
	}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}

	for _, r := range p.Records() {
		row := make([]string, 0, len(header))
		row = append(row, r.County, strconv.Itoa(r.Year))
		for _, v := range vars {
			row = append(row, formatCell(r.Get(v)))
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func formatCell(c panel.Cell) string {
	if !c.Known() {
		return ""
	}
	return strconv.FormatFloat(c.Value, 'f', -1, 64)
}

// CellRow is one long-format export row.
type CellRow struct {
	CountyName string  `csv:"CountyName"`
	Year       int     `csv:"Year"`
	Variable   string  `csv:"variable"`
	Value      string  `csv:"value"`
	Provenance string  `csv:"provenance"`
}

// WriteLongCSV writes every known cell of p as one row with its provenance.
func WriteLongCSV(w io.Writer, p *panel.Panel) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(CellRow{}); err != nil {
		return eris.Wrap(err, "export: write long csv header")
	}

	vars := p.Vars()
	for _, r := range p.Records() {
		for _, v := range vars {
			c := r.Get(v)
			if !c.Known() {
				continue
			}
			if err := enc.Encode(CellRow{
				CountyName: r.County,
				Year:       r.Year,
				Variable:   v.String(),
				Value:      formatCell(c),
				Provenance: c.Provenance.String(),
			}); err != nil {
				return eris.Wrap(err, "export: encode long csv row")
			}
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush long csv")
}
