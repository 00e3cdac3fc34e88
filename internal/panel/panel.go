// Package panel builds the reconciled county-year panel.
//
// A Panel holds one Record per (County, Year). Every cell carries a Provenance tag alongside its
// value so later stages can tell a measured value from a filled one:
//
//	Absent        no value (suppressed, never reported, or undefined)
//	Observed      taken directly from an upstream observation
//	Interpolated  filled by the temporal or crop interpolator
//	Reconciled    an interpolated value rescaled to agree with a state control total
//	Derived       computed from other cells of the same record
//
// Stages never mutate their input: each returns a new Panel built from a Clone.
package panel

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/ifews/nsurplus/internal/variable"
)

var (
	// ErrNoCounties is returned when an expansion has no observations to seed the county list.
	ErrNoCounties = eris.New("panel: no counties observed")
	// ErrEmptyReferenceRange is returned when the reference range contains no usable year.
	ErrEmptyReferenceRange = eris.New("panel: empty reference year range")
)

// Provenance records how a cell obtained its value.
type Provenance uint8

const (
	Absent Provenance = iota
	Observed
	Interpolated
	Reconciled
	Derived
)

// String returns the lower-case provenance name.
func (p Provenance) String() string {
	switch p {
	case Absent:
		return "absent"
	case Observed:
		return "observed"
	case Interpolated:
		return "interpolated"
	case Reconciled:
		return "reconciled"
	case Derived:
		return "derived"
	default:
		return "unknown"
	}
}

// Cell is one variable value of one record.
type Cell struct {
	Value      float64
	Provenance Provenance
}

// Known reports whether the cell holds a value.
func (c Cell) Known() bool { return c.Provenance != Absent }

// Key identifies a record.
type Key struct {
	County string
	Year   int
}

// Observation is one upstream county-level value. A nil Value means the source
// published the row but suppressed the number.
type Observation struct {
	County   string
	Variable variable.Variable
	Year     int
	Value    *float64
}

// Record is the set of cells for one (County, Year).
type Record struct {
	Key
	Cells map[variable.Variable]Cell
}

// Get returns the cell for v; a missing column reads as Absent.
func (r Record) Get(v variable.Variable) Cell {
	return r.Cells[v]
}

// Value returns the cell value and whether it is known.
func (r Record) Value(v variable.Variable) (float64, bool) {
	c := r.Cells[v]
	return c.Value, c.Known()
}

// YearRange is an inclusive range of years.
type YearRange struct {
	From int
	To   int
}

// Years lists the years of the range, stopping before cutoff when cutoff > 0.
func (r YearRange) Years(cutoff int) []int {
	var out []int
	for y := r.From; y <= r.To; y++ {
		if cutoff > 0 && y >= cutoff {
			break
		}
		out = append(out, y)
	}
	return out
}

// Panel is an ordered collection of records keyed by (County, Year).
type Panel struct {
	vars    []variable.Variable
	records []Record
	index   map[Key]int
	byCnty  map[string][]int
}

// New allocates a full county x year grid with every variable Absent.
func New(counties []string, years []int, vars []variable.Variable) *Panel {
	cs := append([]string(nil), counties...)
	sort.Strings(cs)
	ys := append([]int(nil), years...)
	sort.Ints(ys)

	p := &Panel{vars: append([]variable.Variable(nil), vars...)}
	p.records = make([]Record, 0, len(cs)*len(ys))
	for _, c := range cs {
		for _, y := range ys {
			cells := make(map[variable.Variable]Cell, len(vars))
			for _, v := range vars {
				cells[v] = Cell{}
			}
			p.records = append(p.records, Record{Key: Key{County: c, Year: y}, Cells: cells})
		}
	}
	p.reindex()
	return p
}

func (p *Panel) reindex() {
	sort.SliceStable(p.records, func(i, j int) bool {
		a, b := p.records[i].Key, p.records[j].Key
		if a.County != b.County {
			return a.County < b.County
		}
		return a.Year < b.Year
	})
	p.index = make(map[Key]int, len(p.records))
	p.byCnty = make(map[string][]int)
	for i, r := range p.records {
		p.index[r.Key] = i
		p.byCnty[r.County] = append(p.byCnty[r.County], i)
	}
}

// Clone returns a deep copy of the panel.
func (p *Panel) Clone() *Panel {
	out := &Panel{
		vars:    append([]variable.Variable(nil), p.vars...),
		records: make([]Record, len(p.records)),
	}
	for i, r := range p.records {
		cells := make(map[variable.Variable]Cell, len(r.Cells))
		for v, c := range r.Cells {
			cells[v] = c
		}
		out.records[i] = Record{Key: r.Key, Cells: cells}
	}
	out.reindex()
	return out
}

// Len returns the number of records.
func (p *Panel) Len() int { return len(p.records) }

// Vars returns the panel's columns in order.
func (p *Panel) Vars() []variable.Variable {
	return append([]variable.Variable(nil), p.vars...)
}

// HasVar reports whether v is a column of the panel.
func (p *Panel) HasVar(v variable.Variable) bool {
	for _, x := range p.vars {
		if x == v {
			return true
		}
	}
	return false
}

// Records returns the records ordered by county then year. Callers must not mutate the cells.
func (p *Panel) Records() []Record { return p.records }

// Counties returns the distinct counties in sorted order.
func (p *Panel) Counties() []string {
	out := make([]string, 0, len(p.byCnty))
	for c := range p.byCnty {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Years returns the distinct years in sorted order.
func (p *Panel) Years() []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range p.records {
		if !seen[r.Year] {
			seen[r.Year] = true
			out = append(out, r.Year)
		}
	}
	sort.Ints(out)
	return out
}

// Record returns the record for k.
func (p *Panel) Record(k Key) (Record, bool) {
	i, ok := p.index[k]
	if !ok {
		return Record{}, false
	}
	return p.records[i], true
}

// Get returns the cell for (k, v).
func (p *Panel) Get(k Key, v variable.Variable) (Cell, bool) {
	r, ok := p.Record(k)
	if !ok {
		return Cell{}, false
	}
	c, ok := r.Cells[v]
	return c, ok
}

// Set writes a cell, adding v as a column if needed. It returns false when k is not in the panel.
// Set mutates p; stages call it only on their own clones.
func (p *Panel) Set(k Key, v variable.Variable, c Cell) bool {
	i, ok := p.index[k]
	if !ok {
		return false
	}
	p.addVar(v)
	p.records[i].Cells[v] = c
	return true
}

// AddVar appends v as an Absent column to every record that lacks it.
func (p *Panel) AddVar(v variable.Variable) {
	p.addVar(v)
	for i := range p.records {
		if _, ok := p.records[i].Cells[v]; !ok {
			p.records[i].Cells[v] = Cell{}
		}
	}
}

func (p *Panel) addVar(v variable.Variable) {
	if !p.HasVar(v) {
		p.vars = append(p.vars, v)
	}
}

// series returns the record indices of one county in year order.
func (p *Panel) series(county string) []int {
	return p.byCnty[county]
}

// Sum adds the known values of v across all records of year.
func (p *Panel) Sum(v variable.Variable, year int) float64 {
	var total float64
	for _, r := range p.records {
		if r.Year != year {
			continue
		}
		if val, ok := r.Value(v); ok {
			total += val
		}
	}
	return total
}

// ControlTotals holds independently sourced state-level totals by variable and year.
type ControlTotals map[variable.Variable]map[int]float64

// Set records a total.
func (t ControlTotals) Set(v variable.Variable, year int, value float64) {
	if t[v] == nil {
		t[v] = make(map[int]float64)
	}
	t[v][year] = value
}

// Lookup returns the total for (v, year).
func (t ControlTotals) Lookup(v variable.Variable, year int) (float64, bool) {
	byYear, ok := t[v]
	if !ok {
		return 0, false
	}
	val, ok := byYear[year]
	return val, ok
}

// Range returns the min/max year present across all variables.
func (t ControlTotals) Range() (YearRange, bool) {
	var r YearRange
	found := false
	for _, byYear := range t {
		for y := range byYear {
			if !found {
				r = YearRange{From: y, To: y}
				found = true
				continue
			}
			if y < r.From {
				r.From = y
			}
			if y > r.To {
				r.To = y
			}
		}
	}
	return r, found
}
