// Package variable defines the enumerated column registry for the county-year panel.
package variable

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrSchemaMismatch is returned when upstream data carries a label that is not in the registry.
// It is fatal to the whole ingestion batch.
var ErrSchemaMismatch = eris.New("schema mismatch")

// Variable identifies one named column of the panel.
type Variable int

// Livestock base categories. These are the only variables reconciled against state control totals.
const (
	Hogs Variable = iota + 1
	HogsBreeding
	HogsSales
	Beef
	Milk
	Cattle
	Steers
	OnFeedSold

	// Derived livestock sub-populations.
	Bulls
	Calves
	BeefHeifers
	Dairy150
	Dairy400
	FinCattle
	HogsFin
	HogsSow
	HogsBoars

	// Crop yield and acreage.
	CornYield
	CornPlanted
	CornHarvested
	SoyYield
	SoyPlanted
	SoyHarvested

	// CNRate is the commercial nitrogen application rate in lb N/acre.
	CNRate

	// Nitrogen balance components in kg/ha.
	CN
	MN
	MNOld
	FN
	GN
	NS
)

// Group classifies variables by origin.
type Group string

const (
	GroupAnimal     Group = "animals"
	GroupDerived    Group = "derived"
	GroupCrop       Group = "crops"
	GroupFertilizer Group = "fertilizer"
	GroupNitrogen   Group = "nitrogen"
)

type info struct {
	name  string
	group Group
}

var registry = map[Variable]info{
	Hogs:          {"hogs", GroupAnimal},
	HogsBreeding:  {"hogs_breeding", GroupAnimal},
	HogsSales:     {"hogs_sales", GroupAnimal},
	Beef:          {"beef", GroupAnimal},
	Milk:          {"milk", GroupAnimal},
	Cattle:        {"cattle", GroupAnimal},
	Steers:        {"steers", GroupAnimal},
	OnFeedSold:    {"onfeed_sold", GroupAnimal},
	Bulls:         {"bulls", GroupDerived},
	Calves:        {"calves", GroupDerived},
	BeefHeifers:   {"beef_heifers", GroupDerived},
	Dairy150:      {"dairy_150", GroupDerived},
	Dairy400:      {"dairy_400", GroupDerived},
	FinCattle:     {"fin_cattle", GroupDerived},
	HogsFin:       {"hogs_fin", GroupDerived},
	HogsSow:       {"hogs_sow", GroupDerived},
	HogsBoars:     {"hogs_boars", GroupDerived},
	CornYield:     {"corng_y", GroupCrop},
	CornPlanted:   {"corng_pa", GroupCrop},
	CornHarvested: {"corng_ha", GroupCrop},
	SoyYield:      {"soy_y", GroupCrop},
	SoyPlanted:    {"soy_pa", GroupCrop},
	SoyHarvested:  {"soy_ha", GroupCrop},
	CNRate:        {"cn_lb_ac", GroupFertilizer},
	CN:            {"cn", GroupNitrogen},
	MN:            {"mn", GroupNitrogen},
	MNOld:         {"mn_old", GroupNitrogen},
	FN:            {"fn", GroupNitrogen},
	GN:            {"gn", GroupNitrogen},
	NS:            {"ns", GroupNitrogen},
}

var byName = func() map[string]Variable {
	m := make(map[string]Variable, len(registry))
	for v, i := range registry {
		m[i.name] = v
	}
	return m
}()

// String returns the canonical column name.
func (v Variable) String() string {
	if i, ok := registry[v]; ok {
		return i.name
	}
	return "unknown"
}

// Group returns the variable's group, or "" for an unregistered value.
func (v Variable) Group() Group {
	return registry[v].group
}

// Valid reports whether v is a registered variable.
func (v Variable) Valid() bool {
	_, ok := registry[v]
	return ok
}

// Parse maps a column name (case-insensitive) to its Variable.
func Parse(name string) (Variable, error) {
	v, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, eris.Wrapf(ErrSchemaMismatch, "variable: unknown label %q", name)
	}
	return v, nil
}

// Validate checks every label of an ingestion batch and reports all unknown labels at once.
func Validate(names []string) error {
	seen := make(map[string]bool)
	var unknown []string
	for _, n := range names {
		if _, ok := byName[strings.ToLower(strings.TrimSpace(n))]; ok || seen[n] {
			continue
		}
		seen[n] = true
		unknown = append(unknown, n)
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return eris.Wrapf(ErrSchemaMismatch, "variable: unknown labels %s", strings.Join(unknown, ", "))
}

// InGroup returns every variable of the group in declaration order.
func InGroup(g Group) []Variable {
	var out []Variable
	for v := Hogs; v <= NS; v++ {
		if registry[v].group == g {
			out = append(out, v)
		}
	}
	return out
}

// Reconcilable returns the livestock variables that have state control totals.
func Reconcilable() []Variable { return InGroup(GroupAnimal) }

// Crops returns the crop yield and acreage variables.
func Crops() []Variable { return InGroup(GroupCrop) }

// Derived returns the livestock sub-populations computed from base categories.
func Derived() []Variable { return InGroup(GroupDerived) }

// Nitrogen returns the nitrogen balance outputs.
func Nitrogen() []Variable { return InGroup(GroupNitrogen) }
