// Package nbalance computes the county nitrogen balance (kg N/ha) from a joined panel.
//
//	NS = CN + MN + FN - GN
//
// CN is commercial fertilizer, MN is manure nitrogen after storage loss, FN is soybean
// fixation and GN is nitrogen removed in harvested grain. MN_old, the manure estimate
// without storage loss, is carried alongside for comparison.
package nbalance

import (
	"math"

	"github.com/ifews/nsurplus/internal/panel"
	"github.com/ifews/nsurplus/internal/variable"
)

// Conversion constants.
const (
	// HectaresPerAcre converts acres to hectares.
	HectaresPerAcre = 0.404686
	// KgHaPerLbAc converts lb/acre to kg/ha.
	KgHaPerLbAc = 1.121
)

type outcome int

const (
	computed outcome = iota
	missingInput
	zeroDenominator
)

type component struct {
	out     variable.Variable
	compute func(panel.Record) (float64, outcome)
}

// components run in order; NS reads the components written before it.
var components = []component{
	{variable.CN, commercialN},
	{variable.MN, manureN},
	{variable.MNOld, manureNNoStorageLoss},
	{variable.FN, fixationN},
	{variable.GN, grainN},
	{variable.NS, surplus},
}

// Evaluate adds the CN, MN, MN_old, FN, GN and NS columns to every record. Each value is rounded
// to one decimal. A component with an Absent input is Absent. A component whose denominator is
// zero is Absent and reported as DegenerateDivision.
func Evaluate(p *panel.Panel) (*panel.Panel, []panel.Issue) {
	out := p.Clone()
	for _, c := range components {
		out.AddVar(c.out)
	}
	var issues []panel.Issue
	for _, r := range out.Records() {
		for _, c := range components {
			val, res := c.compute(r)
			switch res {
			case computed:
				out.Set(r.Key, c.out, panel.Cell{Value: round1(val), Provenance: panel.Derived})
			case zeroDenominator:
				issues = append(issues, panel.Issue{
					Kind:     panel.DegenerateDivision,
					County:   r.County,
					Year:     r.Year,
					Variable: c.out,
					Detail:   "zero acreage denominator",
				})
			}
		}
	}
	return out, issues
}

func round1(x float64) float64 {
	return math.RoundToEven(x*10) / 10
}

// values returns the known values of vars, or false if any is Absent.
func values(r panel.Record, vars ...variable.Variable) ([]float64, bool) {
	out := make([]float64, len(vars))
	for i, v := range vars {
		val, ok := r.Value(v)
		if !ok {
			return nil, false
		}
		out[i] = val
	}
	return out, true
}

func commercialN(r panel.Record) (float64, outcome) {
	rate, ok := r.Value(variable.CNRate)
	if !ok {
		return 0, missingInput
	}
	return rate * KgHaPerLbAc, computed
}

// manureN uses daily excretion (kg N/animal/day) times days on farm per year.
func manureN(r panel.Record) (float64, outcome) {
	v, ok := values(r,
		variable.HogsSow, variable.HogsBoars, variable.HogsFin,
		variable.Milk, variable.Beef, variable.Dairy150, variable.Dairy400,
		variable.Bulls, variable.Steers, variable.FinCattle,
		variable.SoyPlanted, variable.CornPlanted,
	)
	if !ok {
		return 0, missingInput
	}
	sow, boars, fin, milk, beef, d150, d400, bulls, steers, finCattle := v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7], v[8], v[9]
	acres := v[10] + v[11]
	if acres == 0 {
		return 0, zeroDenominator
	}
	n := sow*0.036*365 +
		boars*0.022*365 +
		fin*0.028*180 +
		milk*0.2*365 +
		beef*0.029*365 +
		d150*0.031*200 +
		d400*0.060*365 +
		bulls*0.029*365 +
		steers*0.019*365 +
		finCattle*0.089*365
	return n / (HectaresPerAcre * acres), computed
}

func manureNNoStorageLoss(r panel.Record) (float64, outcome) {
	v, ok := values(r,
		variable.Hogs, variable.Milk, variable.Beef, variable.Cattle,
		variable.SoyPlanted, variable.CornPlanted,
	)
	if !ok {
		return 0, missingInput
	}
	hogs, milk, beef, cattle := v[0], v[1], v[2], v[3]
	acres := v[4] + v[5]
	if acres == 0 {
		return 0, zeroDenominator
	}
	// The non-cow remainder of the herd is split evenly between heifers/steers and slaughter cattle.
	half := 0.5 * (cattle - (beef + milk))
	n := hogs*0.027*365 +
		milk*0.204*365 +
		beef*0.15*365 +
		half*0.1455*365 +
		half*0.104*170
	return n / (HectaresPerAcre * acres), computed
}

// fixationN converts soybean yield to t/ha (1 bu/ac is 1/15 t/ha) and weights by soybean share
// of planted acreage.
func fixationN(r panel.Record) (float64, outcome) {
	v, ok := values(r, variable.SoyYield, variable.SoyPlanted, variable.CornPlanted)
	if !ok {
		return 0, missingInput
	}
	yield, soy, corn := v[0], v[1], v[2]
	if soy+corn == 0 {
		return 0, zeroDenominator
	}
	return ((yield/15)*81.1 - 98.5) * (soy / (soy + corn)), computed
}

func grainN(r panel.Record) (float64, outcome) {
	v, ok := values(r, variable.SoyYield, variable.SoyHarvested, variable.CornYield, variable.CornHarvested)
	if !ok {
		return 0, missingInput
	}
	soyY, soyHa, cornY, cornHa := v[0], v[1], v[2], v[3]
	if soyHa+cornHa == 0 {
		return 0, zeroDenominator
	}
	n := soyY*67.25*6.4/100*soyHa*HectaresPerAcre +
		cornY*62.77*1.18/100*cornHa*HectaresPerAcre
	return n / (HectaresPerAcre * (soyHa + cornHa)), computed
}

func surplus(r panel.Record) (float64, outcome) {
	v, ok := values(r, variable.CN, variable.MN, variable.FN, variable.GN)
	if !ok {
		return 0, missingInput
	}
	return v[0] + v[1] + v[2] - v[3], computed
}
