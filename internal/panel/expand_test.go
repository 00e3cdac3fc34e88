package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifews/nsurplus/internal/variable"
)

var hogsOnly = []variable.Variable{variable.Hogs}

func TestExpand_FullGrid(t *testing.T) {
	in := []Observation{
		obs("ADAIR", variable.Hogs, 2000, 100),
		obs("BOONE", variable.Hogs, 2002, 5),
	}
	p, issues, err := Expand(in, hogsOnly, YearRange{From: 2000, To: 2003}, 2003)
	require.NoError(t, err)
	assert.Empty(t, issues)

	assert.Equal(t, 6, p.Len())
	assert.Equal(t, []int{2000, 2001, 2002}, p.Years())
	assert.Equal(t, Cell{Value: 100, Provenance: Observed}, cell(t, p, "ADAIR", 2000, variable.Hogs))
	assert.Equal(t, Cell{}, cell(t, p, "ADAIR", 2001, variable.Hogs))
	assert.Equal(t, Cell{Value: 5, Provenance: Observed}, cell(t, p, "BOONE", 2002, variable.Hogs))
}

func TestExpand_SuppressedValueStaysAbsent(t *testing.T) {
	in := []Observation{{County: "ADAIR", Variable: variable.Hogs, Year: 2000}}
	p, issues, err := Expand(in, hogsOnly, YearRange{From: 2000, To: 2001}, 0)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, 2, p.Len())
	assert.False(t, cell(t, p, "ADAIR", 2000, variable.Hogs).Known())
}

func TestExpand_DuplicateKeepsFirst(t *testing.T) {
	in := []Observation{
		obs("ADAIR", variable.Hogs, 2000, 100),
		obs("ADAIR", variable.Hogs, 2000, 999),
	}
	p, issues, err := Expand(in, hogsOnly, YearRange{From: 2000, To: 2000}, 0)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, DuplicateObservation, issues[0].Kind)
	assert.Equal(t, 100.0, cell(t, p, "ADAIR", 2000, variable.Hogs).Value)
}

func TestExpand_OutOfRangeDropped(t *testing.T) {
	in := []Observation{
		obs("ADAIR", variable.Hogs, 1990, 1),
		obs("ADAIR", variable.Hogs, 2023, 1),
		obs("ADAIR", variable.Hogs, 2000, 7),
	}
	p, issues, err := Expand(in, hogsOnly, YearRange{From: 2000, To: 2025}, 2023)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, OutOfRange, issues[0].Kind)
	assert.Equal(t, 1990, issues[0].Year)
	assert.Equal(t, 2023, issues[1].Year)
	_, ok := p.Record(Key{County: "ADAIR", Year: 2023})
	assert.False(t, ok)
}

func TestExpand_Errors(t *testing.T) {
	_, _, err := Expand(nil, hogsOnly, YearRange{From: 2000, To: 2001}, 0)
	assert.ErrorIs(t, err, ErrNoCounties)

	_, _, err = Expand([]Observation{obs("A", variable.Hogs, 2000, 1)}, hogsOnly, YearRange{From: 2023, To: 2030}, 2023)
	assert.ErrorIs(t, err, ErrEmptyReferenceRange)

	_, _, err = Expand([]Observation{obs("A", variable.Beef, 2000, 1)}, hogsOnly, YearRange{From: 2000, To: 2001}, 0)
	assert.ErrorIs(t, err, variable.ErrSchemaMismatch)
}
