package panel

import "github.com/ifews/nsurplus/internal/variable"

// Derive computes the derived livestock columns from the reconciled counts of each record.
// A derived cell is Absent when any of its inputs is Absent. When beef+milk is zero the
// beef_heifers and dairy_150/dairy_400 splits are set to 0 and reported as DegenerateDivision.
func Derive(p *Panel) (*Panel, []Issue) {
	out := p.Clone()
	for _, v := range variable.Derived() {
		out.AddVar(v)
	}
	var issues []Issue
	for _, r := range out.records {
		issues = append(issues, deriveRecord(r)...)
	}
	return out, issues
}

func deriveRecord(r Record) []Issue {
	var issues []Issue
	set := func(v variable.Variable, val float64) {
		r.Cells[v] = Cell{Value: val, Provenance: Derived}
	}

	beef, hasBeef := r.Value(variable.Beef)
	milk, hasMilk := r.Value(variable.Milk)
	cattle, hasCattle := r.Value(variable.Cattle)
	steers, hasSteers := r.Value(variable.Steers)
	onfeed, hasOnfeed := r.Value(variable.OnFeedSold)

	if hasBeef {
		bulls := Round(beef * 0.05)
		set(variable.Bulls, bulls)

		if hasMilk && hasCattle && hasSteers {
			calves := Round(cattle - (beef + milk + bulls + steers))
			set(variable.Calves, calves)

			if herd := beef + milk; herd == 0 {
				set(variable.BeefHeifers, 0)
				set(variable.Dairy150, 0)
				set(variable.Dairy400, 0)
				issues = append(issues, Issue{
					Kind:     DegenerateDivision,
					County:   r.County,
					Year:     r.Year,
					Variable: variable.BeefHeifers,
					Detail:   "beef+milk is zero, calf split set to 0",
				})
			} else {
				set(variable.BeefHeifers, Round(calves*beef/herd))
				dairy := Round(0.5 * calves * milk / herd)
				set(variable.Dairy150, dairy)
				set(variable.Dairy400, dairy)
			}
		}
	}

	if hasSteers && hasOnfeed {
		set(variable.FinCattle, Round((steers+onfeed)/3))
	}

	if hogs, ok := r.Value(variable.Hogs); ok {
		if sales, ok := r.Value(variable.HogsSales); ok {
			set(variable.HogsFin, Round((hogs+sales)/3))
		}
	}

	if breeding, ok := r.Value(variable.HogsBreeding); ok {
		sow := Round(breeding / 21)
		set(variable.HogsSow, sow)
		set(variable.HogsBoars, Round(breeding-sow))
	}
	return issues
}
