package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifews/nsurplus/internal/panel"
	"github.com/ifews/nsurplus/internal/variable"
)

func TestParseGroups(t *testing.T) {
	groups, err := parseGroups("")
	require.NoError(t, err)
	assert.Equal(t, []variable.Group{variable.GroupAnimal, variable.GroupCrop}, groups)

	groups, err = parseGroups("crops")
	require.NoError(t, err)
	assert.Equal(t, []variable.Group{variable.GroupCrop}, groups)

	_, err = parseGroups("fertilizer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fertilizer")
}

func TestSummarize(t *testing.T) {
	v := 1200.0
	obs := []panel.Observation{
		{County: "ADAIR", Variable: variable.Hogs, Year: 2010, Value: &v},
		{County: "ADAIR", Variable: variable.Hogs, Year: 2011},
		{County: "ADAMS", Variable: variable.Hogs, Year: 2010, Value: &v},
	}
	totals := panel.ControlTotals{}
	totals.Set(variable.Hogs, 2010, 15000)
	totals.Set(variable.Hogs, 2012, 15500)
	totals.Set(variable.Beef, 2011, 900)

	s := summarize(variable.GroupAnimal, obs, totals)
	assert.Equal(t, 3, s.Observations)
	assert.Equal(t, 1, s.Suppressed)
	assert.Equal(t, 2, s.Counties)
	assert.Equal(t, 3, s.Totals)
	assert.Equal(t, 2010, s.FirstYear)
	assert.Equal(t, 2012, s.LastYear)
}

func TestFormatFetchSummary(t *testing.T) {
	var buf bytes.Buffer
	formatFetchSummary(&buf, []groupSummary{
		{Group: variable.GroupAnimal, Observations: 3, Suppressed: 1, Counties: 2, Totals: 3, FirstYear: 2010, LastYear: 2012},
		{Group: variable.GroupCrop},
	})

	output := buf.String()
	assert.Contains(t, output, "GROUP")
	assert.Contains(t, output, "animals")
	assert.Contains(t, output, "2010-2012")
	assert.Contains(t, output, "crops")
	assert.Contains(t, output, "-\n")
}
