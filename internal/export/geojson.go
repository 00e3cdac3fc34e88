package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/ifews/nsurplus/internal/boundary"
	"github.com/ifews/nsurplus/internal/panel"
	"github.com/ifews/nsurplus/internal/variable"
)

// WriteGeoJSON writes a FeatureCollection with one feature per record. Geometry comes from
// boundaries; records whose county has no polygon get a null geometry. Absent cells are null.
func WriteGeoJSON(w io.Writer, p *panel.Panel, boundaries boundary.Boundaries, vars []variable.Variable) error {
	if vars == nil {
		vars = p.Vars()
	}

	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, p.Len())}
	for _, r := range p.Records() {
		props := map[string]any{
			ColCounty: r.County,
			ColYear:   r.Year,
		}
		for _, v := range vars {
			if x, ok := r.Value(v); ok {
				props[v.String()] = x
			} else {
				props[v.String()] = nil
			}
		}

		f := &geojson.Feature{
			ID:         fmt.Sprintf("%s-%d", r.County, r.Year),
			Properties: props,
		}
		if mp, ok := boundaries[r.County]; ok && mp != nil {
			f.Geometry = mp
		}
		fc.Features = append(fc.Features, f)
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}
