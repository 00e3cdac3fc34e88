package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifews/nsurplus/internal/variable"
)

func TestLeftJoin(t *testing.T) {
	left := New([]string{"A", "B"}, []int{2000}, hogsOnly)
	left.Set(Key{County: "A", Year: 2000}, variable.Hogs, Cell{Value: 1, Provenance: Observed})

	right := New([]string{"A"}, []int{2000}, []variable.Variable{variable.Hogs, variable.CornYield})
	right.Set(Key{County: "A", Year: 2000}, variable.Hogs, Cell{Value: 99, Provenance: Observed})
	right.Set(Key{County: "A", Year: 2000}, variable.CornYield, Cell{Value: 150, Provenance: Interpolated})

	out := LeftJoin(left, right)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, []variable.Variable{variable.Hogs, variable.CornYield}, out.Vars())
	assert.Equal(t, 1.0, cell(t, out, "A", 2000, variable.Hogs).Value, "left value wins")
	assert.Equal(t, Cell{Value: 150, Provenance: Interpolated}, cell(t, out, "A", 2000, variable.CornYield))
	assert.False(t, cell(t, out, "B", 2000, variable.CornYield).Known())
}

func TestInnerJoinRates(t *testing.T) {
	p := New([]string{"A", "B"}, []int{2000, 2001}, hogsOnly)
	rates := map[Key]float64{
		{County: "A", Year: 2001}: 120.5,
		{County: "B", Year: 2000}: 90,
		{County: "Z", Year: 2000}: 1,
	}
	out := InnerJoinRates(p, rates, variable.CNRate)

	require.Equal(t, 2, out.Len())
	assert.Equal(t, Cell{Value: 120.5, Provenance: Observed}, cell(t, out, "A", 2001, variable.CNRate))
	_, ok := out.Record(Key{County: "A", Year: 2000})
	assert.False(t, ok)
	assert.Equal(t, []variable.Variable{variable.Hogs, variable.CNRate}, out.Vars())
	assert.Equal(t, 4, p.Len(), "input keeps all records")
}
