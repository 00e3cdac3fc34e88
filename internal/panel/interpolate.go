package panel

import (
	"gonum.org/v1/gonum/interp"

	"github.com/ifews/nsurplus/internal/variable"
)

// Interpolate fills the Absent cells of v in every county series. Interior gaps are filled by
// linear interpolation between the nearest known years; gaps before the first or after the last
// known year take that known value. Filled values are rounded and tagged Interpolated. A county
// with a single known year is filled with that value. A county with no known year is left
// Absent and reported as MissingReferenceData.
//
// Known cells are never changed, so applying Interpolate twice gives the same panel.
func Interpolate(p *Panel, v variable.Variable) (*Panel, []Issue) {
	out := p.Clone()
	out.AddVar(v)
	var issues []Issue
	for _, county := range out.Counties() {
		idx := out.series(county)
		xs, ys := knownPoints(out, idx, v)

		var predict func(x float64) float64
		switch len(xs) {
		case 0:
			issues = append(issues, Issue{
				Kind:     MissingReferenceData,
				County:   county,
				Variable: v,
				Detail:   "no observed year to interpolate from",
			})
			continue
		case 1:
			only := ys[0]
			predict = func(float64) float64 { return only }
		default:
			var pl interp.PiecewiseLinear
			if err := pl.Fit(xs, ys); err != nil {
				// Years within a county are unique and sorted, so Fit only fails on bad input.
				issues = append(issues, Issue{Kind: MissingReferenceData, County: county, Variable: v, Detail: err.Error()})
				continue
			}
			predict = pl.Predict
		}

		for _, i := range idx {
			r := out.records[i]
			if r.Cells[v].Known() {
				continue
			}
			r.Cells[v] = Cell{Value: Round(predict(float64(r.Year))), Provenance: Interpolated}
		}
	}
	return out, issues
}

// knownPoints collects the (year, value) pairs of the known cells in a county series.
func knownPoints(p *Panel, idx []int, v variable.Variable) (xs, ys []float64) {
	for _, i := range idx {
		r := p.records[i]
		if val, ok := r.Value(v); ok {
			xs = append(xs, float64(r.Year))
			ys = append(ys, val)
		}
	}
	return xs, ys
}
