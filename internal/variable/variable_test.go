package variable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Variable
	}{
		{"hogs", Hogs},
		{"HOGS_BREEDING", HogsBreeding},
		{" corng_pa ", CornPlanted},
		{"dairy_400", Dairy400},
		{"ns", NS},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Unknown(t *testing.T) {
	_, err := Parse("chickens")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
	assert.Contains(t, err.Error(), "chickens")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]string{"beef", "milk", "soy_y"}))

	err := Validate([]string{"beef", "turkeys", "goats", "turkeys"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
	assert.Contains(t, err.Error(), "goats, turkeys")
}

func TestGroups(t *testing.T) {
	assert.Equal(t, []Variable{Hogs, HogsBreeding, HogsSales, Beef, Milk, Cattle, Steers, OnFeedSold}, Reconcilable())
	assert.Equal(t, []Variable{CornYield, CornPlanted, CornHarvested, SoyYield, SoyPlanted, SoyHarvested}, Crops())
	assert.Len(t, Derived(), 9)
	assert.Equal(t, []Variable{CN, MN, MNOld, FN, GN, NS}, Nitrogen())
	assert.Equal(t, GroupFertilizer, CNRate.Group())
}

func TestString_RoundTrip(t *testing.T) {
	for v := Hogs; v <= NS; v++ {
		require.True(t, v.Valid())
		got, err := Parse(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	assert.Equal(t, "unknown", Variable(999).String())
	assert.False(t, Variable(0).Valid())
}
