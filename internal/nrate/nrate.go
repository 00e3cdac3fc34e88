// Package nrate loads the county fertilizer application-rate panel (lb N/acre).
//
// The rates come from a zonal-statistics pass over gridded fertilizer maps that runs outside this
// program; its output is a CSV with the columns CountyName, Year and CN_lb/ac.
package nrate

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ifews/nsurplus/internal/county"
	"github.com/ifews/nsurplus/internal/fetcher"
	"github.com/ifews/nsurplus/internal/panel"
	"github.com/ifews/nsurplus/internal/variable"
)

// Column names of the rate file.
const (
	ColCounty = "CountyName"
	ColYear   = "Year"
	ColRate   = "CN_lb/ac"
)

// Rate is one row of the rate file.
type Rate struct {
	CountyName string   `csv:"CountyName"`
	Year       int      `csv:"Year"`
	LbPerAcre  *float64 `csv:"CN_lb/ac,omitempty"`
}

// Load reads a rate CSV. County names are normalized. Rows with an empty rate are skipped and
// the first row wins for a repeated (county, year).
func Load(r io.Reader) (map[panel.Key]float64, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err == io.EOF {
		return map[panel.Key]float64{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "nrate: read header")
	}
	if err := checkHeader(dec.Header()); err != nil {
		return nil, err
	}

	rates := make(map[panel.Key]float64)
	var skipped, dupes int
	for {
		var row Rate
		err := dec.Decode(&row)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "nrate: decode row")
		}
		if row.LbPerAcre == nil {
			skipped++
			continue
		}
		k := panel.Key{County: county.Normalize(row.CountyName), Year: row.Year}
		if _, ok := rates[k]; ok {
			dupes++
			continue
		}
		rates[k] = *row.LbPerAcre
	}

	zap.L().Debug("loaded fertilizer rates",
		zap.String("component", "nrate"),
		zap.Int("rates", len(rates)),
		zap.Int("skipped", skipped),
		zap.Int("duplicates", dupes),
	)
	return rates, nil
}

// LoadFile reads the rate file at path. Files ending in .xlsx are read from their first sheet.
func LoadFile(path string) (map[panel.Key]float64, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loadXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "nrate: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return Load(f)
}

func checkHeader(header []string) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	for _, col := range []string{ColCounty, ColYear, ColRate} {
		if !have[col] {
			return eris.Wrapf(variable.ErrSchemaMismatch, "nrate: missing column %q", col)
		}
	}
	return nil
}

func loadXLSX(path string) (map[panel.Key]float64, error) {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "nrate: read %s", path)
	}
	if len(rows) > 0 {
		width := len(rows[0])
		for i, r := range rows {
			switch {
			case len(r) < width:
				rows[i] = append(r, make([]string, width-len(r))...)
			case len(r) > width:
				rows[i] = r[:width]
			}
		}
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, eris.Wrap(err, "nrate: convert workbook")
	}
	return Load(&buf)
}

// FileSource loads rates from a file path on each call.
type FileSource string

// Rates implements the pipeline rate source.
func (f FileSource) Rates(_ context.Context) (map[panel.Key]float64, error) {
	return LoadFile(string(f))
}
