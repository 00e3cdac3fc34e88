package panel

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/ifews/nsurplus/internal/variable"
)

// Reconcile rescales the Interpolated cells of v so each year sums to its state control total.
// For every year with a total, the remainder (total minus the sum of every known cell that is not
// Interpolated, floored at zero) is split across that year's Interpolated cells in proportion to
// their interpolated values, or equally when those values sum to zero. Rescaled cells are rounded
// and tagged Reconciled. Cells that are not Interpolated are never changed. Years without a total are left as they are and reported
// as MissingControlTotal.
//
// After rounding, a year's sum can differ from its total by at most the number of rescaled cells.
func Reconcile(p *Panel, v variable.Variable, totals ControlTotals) (*Panel, []Issue) {
	out := p.Clone()
	var issues []Issue
	for _, year := range out.Years() {
		var (
			fixed  []float64
			interp []float64
			idx    []int
		)
		for i, r := range out.records {
			if r.Year != year {
				continue
			}
			c := r.Cells[v]
			switch c.Provenance {
			case Absent:
			case Interpolated:
				interp = append(interp, c.Value)
				idx = append(idx, i)
			default:
				fixed = append(fixed, c.Value)
			}
		}
		if len(idx) == 0 {
			continue
		}

		total, ok := totals.Lookup(v, year)
		if !ok {
			issues = append(issues, Issue{
				Kind:     MissingControlTotal,
				Year:     year,
				Variable: v,
				Detail:   fmt.Sprintf("%d interpolated cells left unreconciled", len(idx)),
			})
			continue
		}

		remaining := max(0, total-floats.Sum(fixed))
		interpSum := floats.Sum(interp)
		for n, i := range idx {
			var share float64
			if interpSum == 0 {
				share = remaining / float64(len(idx))
			} else {
				share = remaining * interp[n] / interpSum
			}
			out.records[i].Cells[v] = Cell{Value: Round(share), Provenance: Reconciled}
		}
	}
	return out, issues
}
