package nrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/ifews/nsurplus/internal/panel"
	"github.com/ifews/nsurplus/internal/variable"
)

func TestLoad(t *testing.T) {
	in := `CountyName,Year,CN_lb/ac
Adair,2010,142.5
Obrien,2010,150
O'Brien,2010,999
Story,2011,
`
	rates, err := Load(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, map[panel.Key]float64{
		{County: "ADAIR", Year: 2010}:   142.5,
		{County: "O BRIEN", Year: 2010}: 150,
	}, rates)
}

func TestLoad_ExtraColumnsIgnored(t *testing.T) {
	in := "geometry,CountyName,Year,CN_lb/ac\nPOLY,Linn,1999,120\n"
	rates, err := Load(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 120.0, rates[panel.Key{County: "LINN", Year: 1999}])
}

func TestLoad_MissingColumn(t *testing.T) {
	_, err := Load(strings.NewReader("CountyName,Year\nAdair,2010\n"))
	assert.ErrorIs(t, err, variable.ErrSchemaMismatch)
}

func TestLoad_BadNumber(t *testing.T) {
	_, err := Load(strings.NewReader("CountyName,Year,CN_lb/ac\nAdair,twenty,1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nrate: decode row")
}

func TestLoad_Empty(t *testing.T) {
	rates, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rates)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nrate.csv")
	require.NoError(t, os.WriteFile(path, []byte("CountyName,Year,CN_lb/ac\nBoone,2005,130\n"), 0o644))

	rates, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, rates, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestLoadFile_Workbook(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("rates")
	require.NoError(t, err)
	for _, rec := range [][]string{
		{"CountyName", "Year", "CN_lb/ac"},
		{"Adair", "1990", "120.5"},
		{"Adams", "1990"},
	} {
		row := sheet.AddRow()
		for _, v := range rec {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "rates.xlsx")
	require.NoError(t, f.Save(path))

	rates, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[panel.Key]float64{{County: "ADAIR", Year: 1990}: 120.5}, rates)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.csv")
	require.NoError(t, os.WriteFile(path, []byte("CountyName,Year,CN_lb/ac\nStory,2001,130\n"), 0o644))

	rates, err := FileSource(path).Rates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 130.0, rates[panel.Key{County: "STORY", Year: 2001}])
}
