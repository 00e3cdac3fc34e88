// Package boundary loads county polygons from TIGER/Line style shapefiles.
package boundary

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/ifews/nsurplus/internal/county"
	"github.com/ifews/nsurplus/internal/fetcher"
)

// DefaultURL is the Census TIGER/Line national county shapefile.
const DefaultURL = "https://www2.census.gov/geo/tiger/TIGER2023/COUNTY/tl_2023_us_county.zip"

// Options selects the attribute columns of the shapefile.
type Options struct {
	NameField  string // county name attribute, default "NAME"
	StateField string // state FIPS attribute, default "STATEFP"
	StateFIPS  string // keep only this state when set, e.g. "19"
}

func (o Options) withDefaults() Options {
	if o.NameField == "" {
		o.NameField = "NAME"
	}
	if o.StateField == "" {
		o.StateField = "STATEFP"
	}
	return o
}

// Boundaries maps normalized county names to their polygons.
type Boundaries map[string]*geom.MultiPolygon

// Lookup returns the polygon for a county name in any spelling.
func (b Boundaries) Lookup(name string) (*geom.MultiPolygon, bool) {
	mp, ok := b[county.Normalize(name)]
	return mp, ok
}

// LoadShapefile reads county polygons from a .shp file or a .zip archive containing one.
func LoadShapefile(path string, opts Options) (Boundaries, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		dir, err := os.MkdirTemp("", "nsurplus-boundary-*")
		if err != nil {
			return nil, eris.Wrap(err, "boundary: create temp dir")
		}
		defer os.RemoveAll(dir) //nolint:errcheck

		files, err := fetcher.ExtractZIP(path, dir)
		if err != nil {
			return nil, eris.Wrapf(err, "boundary: extract %s", path)
		}
		shpPath, err := fetcher.FindByExt(files, ".shp")
		if err != nil {
			return nil, eris.Wrapf(err, "boundary: %s", path)
		}
		path = shpPath
	}
	return readShapefile(path, opts.withDefaults())
}

func readShapefile(path string, opts Options) (Boundaries, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToUpper(name)] = i
	}
	nameIdx, ok := fieldIdx[strings.ToUpper(opts.NameField)]
	if !ok {
		return nil, eris.Errorf("boundary: shapefile %s has no %s field", path, opts.NameField)
	}
	stateIdx, hasState := fieldIdx[strings.ToUpper(opts.StateField)]
	if opts.StateFIPS != "" && !hasState {
		return nil, eris.Errorf("boundary: shapefile %s has no %s field", path, opts.StateField)
	}

	out := make(Boundaries)
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		if opts.StateFIPS != "" && attribute(reader, stateIdx) != opts.StateFIPS {
			continue
		}
		name := county.Normalize(attribute(reader, nameIdx))
		if name == "" {
			skipped++
			continue
		}
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}
		if _, dup := out[name]; dup {
			skipped++
			continue
		}
		out[name] = mp
	}

	zap.L().Debug("boundary: shapefile loaded",
		zap.String("path", path),
		zap.Int("counties", len(out)),
		zap.Int("skipped", skipped),
	)
	return out, nil
}

func attribute(r *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(r.Attribute(idx), "\x00"))
}

// Download fetches a boundary archive into destDir unless it is already there, and returns its path.
func Download(ctx context.Context, f fetcher.Fetcher, url, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "boundary: create dest dir")
	}

	parts := strings.Split(url, "/")
	dest := filepath.Join(destDir, parts[len(parts)-1])
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return dest, nil
	}

	zap.L().Info("downloading county boundaries", zap.String("url", url))
	body, err := f.Download(ctx, url)
	if err != nil {
		return "", eris.Wrap(err, "boundary: download")
	}
	defer body.Close() //nolint:errcheck

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return "", eris.Wrap(err, "boundary: create file")
	}
	if _, err := io.Copy(out, body); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return "", eris.Wrap(err, "boundary: write file")
	}
	if err := out.Close(); err != nil {
		return "", eris.Wrap(err, "boundary: close file")
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", eris.Wrap(err, "boundary: rename file")
	}
	return dest, nil
}
