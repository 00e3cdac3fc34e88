package panel

import (
	"gonum.org/v1/gonum/interp"

	"github.com/ifews/nsurplus/internal/variable"
)

// InterpolateCrops fills the crop columns of every county series. Interior gaps are linear
// between the nearest known years. Gaps before the first or after the last known year are
// extrapolated along the line through the two nearest known points, so a county with a
// trend keeps it at the edges. Filled values are rounded and clamped at zero.
//
// A zero, observed or filled, means "not reported" for crops. Each zero is replaced by the most
// recent earlier non-zero value of the same county. A zero with no earlier non-zero value is
// made Absent and reported as UnresolvedZero.
func InterpolateCrops(p *Panel, vars ...variable.Variable) (*Panel, []Issue) {
	if len(vars) == 0 {
		vars = variable.Crops()
	}
	out := p.Clone()
	var issues []Issue
	for _, v := range vars {
		out.AddVar(v)
		for _, county := range out.Counties() {
			idx := out.series(county)
			issues = append(issues, fillCropSeries(out, idx, county, v)...)
			issues = append(issues, forwardFillZeros(out, idx, county, v)...)
		}
	}
	return out, issues
}

func fillCropSeries(p *Panel, idx []int, county string, v variable.Variable) []Issue {
	xs, ys := knownPoints(p, idx, v)
	var predict func(x float64) float64
	switch len(xs) {
	case 0:
		return []Issue{{
			Kind:     MissingReferenceData,
			County:   county,
			Variable: v,
			Detail:   "no observed year to interpolate from",
		}}
	case 1:
		only := ys[0]
		predict = func(float64) float64 { return only }
	default:
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err != nil {
			return []Issue{{Kind: MissingReferenceData, County: county, Variable: v, Detail: err.Error()}}
		}
		n := len(xs)
		predict = func(x float64) float64 {
			switch {
			case x < xs[0]:
				return line(xs[0], ys[0], xs[1], ys[1], x)
			case x > xs[n-1]:
				return line(xs[n-2], ys[n-2], xs[n-1], ys[n-1], x)
			default:
				return pl.Predict(x)
			}
		}
	}

	for _, i := range idx {
		r := p.records[i]
		if r.Cells[v].Known() {
			continue
		}
		val := Round(predict(float64(r.Year)))
		if val < 0 {
			val = 0
		}
		r.Cells[v] = Cell{Value: val, Provenance: Interpolated}
	}
	return nil
}

// line evaluates the line through (x0, y0) and (x1, y1) at x.
func line(x0, y0, x1, y1, x float64) float64 {
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

func forwardFillZeros(p *Panel, idx []int, county string, v variable.Variable) []Issue {
	var (
		issues []Issue
		last   float64
		have   bool
	)
	for _, i := range idx {
		r := p.records[i]
		c := r.Cells[v]
		if !c.Known() {
			continue
		}
		if c.Value != 0 {
			last, have = c.Value, true
			continue
		}
		if have {
			r.Cells[v] = Cell{Value: last, Provenance: Interpolated}
			continue
		}
		r.Cells[v] = Cell{}
		issues = append(issues, Issue{
			Kind:     UnresolvedZero,
			County:   county,
			Year:     r.Year,
			Variable: v,
			Detail:   "zero with no earlier non-zero value",
		})
	}
	return issues
}
