package panel

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/ifews/nsurplus/internal/variable"
)

// Expand builds the full county x year grid for vars over the reference range. Years at or
// after cutoff are excluded when cutoff > 0. Every county that appears in obs gets a row for
// every year; observed values are copied in with Observed provenance and everything else
// starts Absent.
//
// Duplicate (county, year, variable) observations keep the first value seen. Observations
// outside the range are dropped. Both are reported as issues rather than errors. An
// observation of a variable not in vars fails with variable.ErrSchemaMismatch.
func Expand(obs []Observation, vars []variable.Variable, rng YearRange, cutoff int) (*Panel, []Issue, error) {
	years := rng.Years(cutoff)
	if len(years) == 0 {
		return nil, nil, eris.Wrapf(ErrEmptyReferenceRange, "panel: expand %d-%d cutoff %d", rng.From, rng.To, cutoff)
	}
	inRange := make(map[int]bool, len(years))
	for _, y := range years {
		inRange[y] = true
	}
	wanted := make(map[variable.Variable]bool, len(vars))
	for _, v := range vars {
		wanted[v] = true
	}

	var counties []string
	seenCounty := make(map[string]bool)
	for _, o := range obs {
		if !wanted[o.Variable] {
			return nil, nil, eris.Wrapf(variable.ErrSchemaMismatch, "panel: observation of %s is not a panel column", o.Variable)
		}
		if !seenCounty[o.County] {
			seenCounty[o.County] = true
			counties = append(counties, o.County)
		}
	}
	if len(counties) == 0 {
		return nil, nil, eris.Wrap(ErrNoCounties, "panel: expand")
	}

	p := New(counties, years, vars)

	type cellKey struct {
		Key
		v variable.Variable
	}
	seen := make(map[cellKey]bool, len(obs))
	var issues []Issue
	for _, o := range obs {
		if !inRange[o.Year] {
			issues = append(issues, Issue{
				Kind:     OutOfRange,
				County:   o.County,
				Year:     o.Year,
				Variable: o.Variable,
				Detail:   fmt.Sprintf("outside %d-%d", years[0], years[len(years)-1]),
			})
			continue
		}
		k := cellKey{Key: Key{County: o.County, Year: o.Year}, v: o.Variable}
		if seen[k] {
			issues = append(issues, Issue{
				Kind:     DuplicateObservation,
				County:   o.County,
				Year:     o.Year,
				Variable: o.Variable,
				Detail:   "kept first value",
			})
			continue
		}
		seen[k] = true
		if o.Value == nil {
			continue
		}
		p.Set(k.Key, o.Variable, Cell{Value: *o.Value, Provenance: Observed})
	}
	return p, issues, nil
}
