package nbalance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifews/nsurplus/internal/panel"
	"github.com/ifews/nsurplus/internal/variable"
)

var key = panel.Key{County: "ADAIR", Year: 2010}

func record(t *testing.T, vals map[variable.Variable]float64) *panel.Panel {
	t.Helper()
	p := panel.New([]string{key.County}, []int{key.Year}, nil)
	for v, val := range vals {
		require.True(t, p.Set(key, v, panel.Cell{Value: val, Provenance: panel.Observed}))
	}
	return p
}

func baseInputs() map[variable.Variable]float64 {
	return map[variable.Variable]float64{
		variable.CNRate:        100,
		variable.HogsSow:       0,
		variable.HogsBoars:     0,
		variable.HogsFin:       0,
		variable.Hogs:          0,
		variable.Milk:          10,
		variable.Beef:          0,
		variable.Cattle:        10,
		variable.Dairy150:      0,
		variable.Dairy400:      0,
		variable.Bulls:         0,
		variable.Steers:        0,
		variable.FinCattle:     0,
		variable.SoyYield:      45,
		variable.SoyPlanted:    100,
		variable.SoyHarvested:  100,
		variable.CornYield:     150,
		variable.CornPlanted:   300,
		variable.CornHarvested: 300,
	}
}

func get(t *testing.T, p *panel.Panel, v variable.Variable) panel.Cell {
	t.Helper()
	c, ok := p.Get(key, v)
	require.True(t, ok, v.String())
	return c
}

func TestEvaluate_Components(t *testing.T) {
	out, issues := Evaluate(record(t, baseInputs()))
	assert.Empty(t, issues)

	want := map[variable.Variable]float64{
		variable.CN:    112.1,
		variable.MN:    4.5,
		variable.MNOld: 4.6,
		variable.FN:    36.2,
		variable.GN:    131.7,
		variable.NS:    21.1,
	}
	for v, val := range want {
		c := get(t, out, v)
		assert.InDelta(t, val, c.Value, 1e-9, v.String())
		assert.Equal(t, panel.Derived, c.Provenance, v.String())
	}
}

func TestEvaluate_SurplusIdentity(t *testing.T) {
	in := baseInputs()
	in[variable.HogsFin] = 5000
	in[variable.Beef] = 300
	in[variable.CNRate] = 137
	out, _ := Evaluate(record(t, in))

	cn := get(t, out, variable.CN).Value
	mn := get(t, out, variable.MN).Value
	fn := get(t, out, variable.FN).Value
	gn := get(t, out, variable.GN).Value
	assert.InDelta(t, cn+mn+fn-gn, get(t, out, variable.NS).Value, 0.05)
}

func TestEvaluate_AbsentInputPropagates(t *testing.T) {
	in := baseInputs()
	delete(in, variable.CNRate)
	out, issues := Evaluate(record(t, in))
	assert.Empty(t, issues)
	assert.False(t, get(t, out, variable.CN).Known())
	assert.False(t, get(t, out, variable.NS).Known())
	assert.True(t, get(t, out, variable.MN).Known())
}

func TestEvaluate_ZeroAcreageIsDegenerate(t *testing.T) {
	in := baseInputs()
	in[variable.SoyPlanted] = 0
	in[variable.CornPlanted] = 0
	out, issues := Evaluate(record(t, in))

	require.Len(t, issues, 3)
	kinds := map[variable.Variable]bool{}
	for _, i := range issues {
		assert.Equal(t, panel.DegenerateDivision, i.Kind)
		kinds[i.Variable] = true
	}
	assert.Equal(t, map[variable.Variable]bool{variable.MN: true, variable.MNOld: true, variable.FN: true}, kinds)
	assert.False(t, get(t, out, variable.MN).Known())
	assert.False(t, get(t, out, variable.NS).Known())
	assert.True(t, get(t, out, variable.GN).Known())
}

func TestEvaluate_DoesNotMutateInput(t *testing.T) {
	p := record(t, baseInputs())
	_, _ = Evaluate(p)
	assert.False(t, p.HasVar(variable.NS))
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 4.5, round1(4.5097))
	assert.Equal(t, -1.2, round1(-1.23))
	assert.Equal(t, 0.0, round1(0.04))
}
