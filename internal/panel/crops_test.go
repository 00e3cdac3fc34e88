package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifews/nsurplus/internal/variable"
)

func cropPanel(t *testing.T, from, to int, points map[int]float64) *Panel {
	t.Helper()
	var in []Observation
	for y, v := range points {
		in = append(in, obs("ADAIR", variable.CornYield, y, v))
	}
	p, _, err := Expand(in, []variable.Variable{variable.CornYield}, YearRange{From: from, To: to}, 0)
	require.NoError(t, err)
	return p
}

func TestInterpolateCrops_ExtrapolatesTrend(t *testing.T) {
	p := cropPanel(t, 2008, 2014, map[int]float64{2010: 50, 2012: 60})
	out, issues := InterpolateCrops(p, variable.CornYield)
	assert.Empty(t, issues)

	want := map[int]float64{2008: 40, 2009: 45, 2010: 50, 2011: 55, 2012: 60, 2013: 65, 2014: 70}
	for y, v := range want {
		assert.Equal(t, v, cell(t, out, "ADAIR", y, variable.CornYield).Value, "year %d", y)
	}
	assert.Equal(t, Interpolated, cell(t, out, "ADAIR", 2008, variable.CornYield).Provenance)
	assert.Equal(t, Observed, cell(t, out, "ADAIR", 2012, variable.CornYield).Provenance)
}

func TestInterpolateCrops_ClampsThenForwardFillsZeros(t *testing.T) {
	p := cropPanel(t, 2010, 2013, map[int]float64{2010: 10, 2011: 5})
	out, issues := InterpolateCrops(p, variable.CornYield)
	assert.Empty(t, issues)

	// 2012 extrapolates to 0 and 2013 to -5; both become zero and carry 2011 forward.
	assert.Equal(t, Cell{Value: 5, Provenance: Interpolated}, cell(t, out, "ADAIR", 2012, variable.CornYield))
	assert.Equal(t, Cell{Value: 5, Provenance: Interpolated}, cell(t, out, "ADAIR", 2013, variable.CornYield))
}

func TestInterpolateCrops_ObservedZeroForwardFilled(t *testing.T) {
	p := cropPanel(t, 2010, 2012, map[int]float64{2010: 30, 2011: 0, 2012: 40})
	out, issues := InterpolateCrops(p, variable.CornYield)
	assert.Empty(t, issues)
	assert.Equal(t, Cell{Value: 30, Provenance: Interpolated}, cell(t, out, "ADAIR", 2011, variable.CornYield))
}

func TestInterpolateCrops_LeadingZeroUnresolved(t *testing.T) {
	p := cropPanel(t, 2010, 2012, map[int]float64{2010: 0, 2011: 30, 2012: 30})
	out, issues := InterpolateCrops(p, variable.CornYield)

	require.Len(t, issues, 1)
	assert.Equal(t, UnresolvedZero, issues[0].Kind)
	assert.Equal(t, 2010, issues[0].Year)
	assert.False(t, cell(t, out, "ADAIR", 2010, variable.CornYield).Known())
	assert.Equal(t, 30.0, cell(t, out, "ADAIR", 2011, variable.CornYield).Value)
}

func TestInterpolateCrops_NoDataReported(t *testing.T) {
	p := New([]string{"ADAIR"}, []int{2010, 2011}, variable.Crops())
	out, issues := InterpolateCrops(p)
	assert.Len(t, issues, len(variable.Crops()))
	for _, i := range issues {
		assert.Equal(t, MissingReferenceData, i.Kind)
	}
	assert.False(t, cell(t, out, "ADAIR", 2010, variable.SoyYield).Known())
}

func TestInterpolateCrops_SinglePoint(t *testing.T) {
	p := cropPanel(t, 2010, 2012, map[int]float64{2011: 150})
	out, _ := InterpolateCrops(p, variable.CornYield)
	assert.Equal(t, 150.0, cell(t, out, "ADAIR", 2010, variable.CornYield).Value)
	assert.Equal(t, 150.0, cell(t, out, "ADAIR", 2012, variable.CornYield).Value)
}
