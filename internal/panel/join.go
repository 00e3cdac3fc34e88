package panel

import "github.com/ifews/nsurplus/internal/variable"

// LeftJoin returns every record of left with the columns of right added. Records of left with
// no match in right get Absent cells for right's columns. Where both panels carry a column the
// value from left wins.
func LeftJoin(left, right *Panel) *Panel {
	out := left.Clone()
	for _, v := range right.vars {
		if out.HasVar(v) {
			continue
		}
		out.AddVar(v)
		for _, r := range out.records {
			if c, ok := right.Get(r.Key, v); ok {
				r.Cells[v] = c
			}
		}
	}
	return out
}

// InnerJoinRates keeps only the records that have an entry in rates and stores the rate in
// column v with Observed provenance.
func InnerJoinRates(p *Panel, rates map[Key]float64, v variable.Variable) *Panel {
	out := &Panel{vars: append(p.Vars(), v)}
	if p.HasVar(v) {
		out.vars = p.Vars()
	}
	for _, r := range p.records {
		rate, ok := rates[r.Key]
		if !ok {
			continue
		}
		cells := make(map[variable.Variable]Cell, len(r.Cells)+1)
		for k, c := range r.Cells {
			cells[k] = c
		}
		cells[v] = Cell{Value: rate, Provenance: Observed}
		out.records = append(out.records, Record{Key: r.Key, Cells: cells})
	}
	out.reindex()
	return out
}
