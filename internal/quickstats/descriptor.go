// Package quickstats reads county observations and state control totals from USDA NASS
// QuickStats and its CSV report mirror.
package quickstats

import (
	"net/url"

	"github.com/ifews/nsurplus/internal/variable"
)

// Level is the aggregation level of a request.
type Level string

const (
	County Level = "COUNTY"
	State  Level = "STATE"
)

// Source selects the endpoint a descriptor is sent to.
type Source int

const (
	// API is the keyed QuickStats api_GET endpoint.
	API Source = iota
	// Mirror is the keyless CSV report mirror. It ignores state_name, so rows are filtered locally.
	Mirror
)

// Row is one CSV row keyed by column name.
type Row map[string]string

// Get returns the value of col, or "" when the column is absent.
func (r Row) Get(col string) string { return r[col] }

// Output maps the rows of a response that pass Filter onto a panel variable.
// A nil Filter accepts every row.
type Output struct {
	Variable variable.Variable
	Filter   func(Row) bool
}

// Descriptor is one upstream request and the variables it produces.
type Descriptor struct {
	ID      string
	Group   variable.Group
	Level   Level
	Source  Source
	Params  url.Values
	Outputs []Output
}

// Variables lists the variables the descriptor produces.
func (d Descriptor) Variables() []variable.Variable {
	out := make([]variable.Variable, len(d.Outputs))
	for i, o := range d.Outputs {
		out[i] = o.Variable
	}
	return out
}

func shortDesc(want string) func(Row) bool {
	return func(r Row) bool { return r.Get("short_desc") == want }
}

func shortDescTotal(want string) func(Row) bool {
	return func(r Row) bool {
		return r.Get("short_desc") == want && r.Get("domain_desc") == "TOTAL"
	}
}

func classDesc(want string) func(Row) bool {
	return func(r Row) bool { return r.Get("class_desc") == want }
}

func params(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Add(kv[i], kv[i+1])
	}
	return v
}

// Short descriptions shared by county and state requests.
const (
	descCornYield      = "CORN, GRAIN - YIELD, MEASURED IN BU / ACRE"
	descCornPlanted    = "CORN - ACRES PLANTED"
	descCornHarvested  = "CORN, GRAIN - ACRES HARVESTED"
	descSoyYield       = "SOYBEANS - YIELD, MEASURED IN BU / ACRE"
	descSoyPlanted     = "SOYBEANS - ACRES PLANTED"
	descSoyHarvested   = "SOYBEANS - ACRES HARVESTED"
	descHogs           = "HOGS - INVENTORY"
	descHogsBreeding   = "HOGS, BREEDING - INVENTORY"
	descHogsSales      = "HOGS - SALES, MEASURED IN HEAD"
	descBeef           = "CATTLE, COWS, BEEF - INVENTORY"
	descMilk           = "CATTLE, COWS, MILK - INVENTORY"
	descCattle         = "CATTLE, INCL CALVES - INVENTORY"
	descOnFeed         = "CATTLE, ON FEED - INVENTORY"
	descOnFeedSold = "CATTLE, ON FEED - SALES FOR SLAUGHTER, MEASURED IN HEAD"
)

const animalsSector = "ANIMALS & PRODUCTS"

// CountyDescriptors returns the county-level requests for both groups, crops first.
func CountyDescriptors() []Descriptor {
	return []Descriptor{
		{
			ID: "corng_y", Group: variable.GroupCrop, Level: County, Source: API,
			Params: params("source_desc", "SURVEY", "sector_desc", "CROPS", "commodity_desc", "CORN",
				"statisticcat_desc", "YIELD", "util_practice_desc", "GRAIN", "short_desc", descCornYield,
				"freq_desc", "ANNUAL", "reference_period_desc", "YEAR"),
			Outputs: []Output{{Variable: variable.CornYield}},
		},
		{
			ID: "soy_y", Group: variable.GroupCrop, Level: County, Source: API,
			Params: params("source_desc", "SURVEY", "sector_desc", "CROPS", "commodity_desc", "SOYBEANS",
				"statisticcat_desc", "YIELD", "short_desc", descSoyYield,
				"freq_desc", "ANNUAL", "reference_period_desc", "YEAR"),
			Outputs: []Output{{Variable: variable.SoyYield}},
		},
		{
			ID: "corng_pa", Group: variable.GroupCrop, Level: County, Source: API,
			Params: params("source_desc", "SURVEY", "sector_desc", "CROPS", "commodity_desc", "CORN",
				"statisticcat_desc__LIKE", "PLANTED", "short_desc", descCornPlanted, "unit_desc", "ACRES",
				"freq_desc", "ANNUAL", "reference_period_desc", "YEAR"),
			Outputs: []Output{{Variable: variable.CornPlanted}},
		},
		{
			ID: "corng_ha", Group: variable.GroupCrop, Level: County, Source: API,
			Params: params("source_desc", "SURVEY", "sector_desc", "CROPS", "commodity_desc", "CORN",
				"util_practice_desc", "GRAIN", "statisticcat_desc__LIKE", "HARVESTED",
				"short_desc", descCornHarvested, "unit_desc", "ACRES",
				"freq_desc", "ANNUAL", "reference_period_desc", "YEAR"),
			Outputs: []Output{{Variable: variable.CornHarvested}},
		},
		{
			ID: "soy_pa", Group: variable.GroupCrop, Level: County, Source: API,
			Params: params("source_desc", "SURVEY", "sector_desc", "CROPS", "group_desc", "FIELD CROPS",
				"commodity_desc", "SOYBEANS", "statisticcat_desc__LIKE", "PLANTED",
				"short_desc", descSoyPlanted, "unit_desc", "ACRES",
				"freq_desc", "ANNUAL", "reference_period_desc", "YEAR"),
			Outputs: []Output{{Variable: variable.SoyPlanted}},
		},
		{
			ID: "soy_ha", Group: variable.GroupCrop, Level: County, Source: API,
			Params: params("source_desc", "SURVEY", "sector_desc", "CROPS", "group_desc", "FIELD CROPS",
				"commodity_desc", "SOYBEANS", "statisticcat_desc__LIKE", "HARVESTED",
				"short_desc", descSoyHarvested, "unit_desc", "ACRES",
				"freq_desc", "ANNUAL", "reference_period_desc", "YEAR"),
			Outputs: []Output{{Variable: variable.SoyHarvested}},
		},
		{
			ID: "hogs", Group: variable.GroupAnimal, Level: County, Source: API,
			Params: params("sector_desc", animalsSector, "group_desc", "LIVESTOCK", "commodity_desc", "HOGS",
				"statisticcat_desc", "INVENTORY", "domain_desc", "TOTAL", "domaincat_desc", "NOT SPECIFIED",
				"unit_desc", "HEAD"),
			Outputs: []Output{{Variable: variable.Hogs, Filter: shortDesc(descHogs)}},
		},
		{
			ID: "hogs_others", Group: variable.GroupAnimal, Level: County, Source: API,
			Params: params("sector_desc", animalsSector, "group_desc", "LIVESTOCK", "commodity_desc", "HOGS",
				"util_practice_desc", "BREEDING", "domaincat_desc", "NOT SPECIFIED", "unit_desc", "HEAD"),
			Outputs: []Output{
				{Variable: variable.HogsBreeding, Filter: shortDescTotal(descHogsBreeding)},
				{Variable: variable.HogsSales, Filter: shortDescTotal(descHogsSales)},
			},
		},
		{
			ID: "beef", Group: variable.GroupAnimal, Level: County, Source: API,
			Params: params("sector_desc", animalsSector, "group_desc", "LIVESTOCK", "commodity_desc", "CATTLE",
				"class_desc__LIKE", "BEEF", "statisticcat_desc", "INVENTORY", "domain_desc", "TOTAL",
				"domaincat_desc", "NOT SPECIFIED", "unit_desc", "HEAD"),
			Outputs: []Output{{Variable: variable.Beef, Filter: shortDesc(descBeef)}},
		},
		{
			ID: "milk", Group: variable.GroupAnimal, Level: County, Source: API,
			Params: params("sector_desc", animalsSector, "group_desc", "LIVESTOCK", "commodity_desc", "CATTLE",
				"class_desc__LIKE", "MILK", "statisticcat_desc", "INVENTORY", "domain_desc", "TOTAL",
				"domaincat_desc", "NOT SPECIFIED", "unit_desc", "HEAD"),
			Outputs: []Output{{Variable: variable.Milk, Filter: shortDesc(descMilk)}},
		},
		{
			ID: "other_cattle", Group: variable.GroupAnimal, Level: County, Source: API,
			Params: params("sector_desc", animalsSector, "group_desc", "LIVESTOCK", "commodity_desc", "CATTLE",
				"class_desc", "INCL CALVES", "statisticcat_desc", "INVENTORY", "unit_desc", "HEAD",
				"short_desc", descCattle, "domain_desc", "TOTAL"),
			Outputs: []Output{{Variable: variable.Cattle, Filter: classDesc("INCL CALVES")}},
		},
		{
			ID: "onfeed_sold", Group: variable.GroupAnimal, Level: County, Source: API,
			Params: params("sector_desc", animalsSector, "group_desc", "LIVESTOCK", "commodity_desc", "CATTLE",
				"statisticcat_desc", "SALES FOR SLAUGHTER", "short_desc__LIKE", descOnFeedSold,
				"domain_desc", "TOTAL", "unit_desc", "HEAD"),
			Outputs: []Output{{Variable: variable.OnFeedSold, Filter: shortDescTotal(descOnFeedSold)}},
		},
		{
			ID: "steers", Group: variable.GroupAnimal, Level: County, Source: API,
			Params: params("sector_desc", animalsSector, "group_desc", "LIVESTOCK", "commodity_desc", "CATTLE",
				"prodn_practice_desc", "ON FEED", "short_desc__LIKE", descOnFeed,
				"domain_desc", "TOTAL", "unit_desc", "HEAD"),
			Outputs: []Output{{Variable: variable.Steers, Filter: shortDescTotal(descOnFeed)}},
		},
	}
}

func mirror(id string, g variable.Group, v variable.Variable, desc, refPeriod string) Descriptor {
	p := params("short_desc", desc)
	if refPeriod != "" {
		p.Set("reference_period_desc", refPeriod)
	}
	return Descriptor{
		ID: id, Group: g, Level: State, Source: Mirror, Params: p,
		Outputs: []Output{{Variable: v}},
	}
}

// StateDescriptors returns the state-level control-total requests for both groups.
func StateDescriptors() []Descriptor {
	return []Descriptor{
		mirror("state_corng_y", variable.GroupCrop, variable.CornYield, descCornYield, ""),
		mirror("state_corng_ha", variable.GroupCrop, variable.CornHarvested, descCornHarvested, ""),
		mirror("state_corng_pa", variable.GroupCrop, variable.CornPlanted, descCornPlanted, ""),
		mirror("state_soy_y", variable.GroupCrop, variable.SoyYield, descSoyYield, ""),
		mirror("state_soy_ha", variable.GroupCrop, variable.SoyHarvested, descSoyHarvested, ""),
		mirror("state_soy_pa", variable.GroupCrop, variable.SoyPlanted, descSoyPlanted, ""),

		mirror("state_beef", variable.GroupAnimal, variable.Beef, descBeef, "FIRST OF JAN"),
		mirror("state_milk", variable.GroupAnimal, variable.Milk, descMilk, "FIRST OF JAN"),
		mirror("state_cattle", variable.GroupAnimal, variable.Cattle, descCattle, "FIRST OF JAN"),
		mirror("state_hogs", variable.GroupAnimal, variable.Hogs, descHogs, "FIRST OF DEC"),
		mirror("state_hogs_breeding", variable.GroupAnimal, variable.HogsBreeding, descHogsBreeding, "FIRST OF DEC"),
		mirror("state_hogs_sales", variable.GroupAnimal, variable.HogsSales, descHogsSales, "YEAR"),
		{
			ID: "state_on_feed", Group: variable.GroupAnimal, Level: State, Source: API,
			Params: params("sector_desc", animalsSector, "group_desc", "LIVESTOCK", "commodity_desc", "CATTLE",
				"prodn_practice_desc", "ON FEED", "unit_desc", "HEAD"),
			Outputs: []Output{
				{Variable: variable.Steers, Filter: shortDescTotal(descOnFeed)},
				{Variable: variable.OnFeedSold, Filter: shortDescTotal(descOnFeedSold)},
			},
		},
	}
}

// Select returns the descriptors of the given group.
func Select(ds []Descriptor, g variable.Group) []Descriptor {
	var out []Descriptor
	for _, d := range ds {
		if d.Group == g {
			out = append(out, d)
		}
	}
	return out
}
