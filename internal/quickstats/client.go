package quickstats

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ifews/nsurplus/internal/county"
	"github.com/ifews/nsurplus/internal/fetcher"
	"github.com/ifews/nsurplus/internal/panel"
	"github.com/ifews/nsurplus/internal/variable"
)

// Defaults for Options.
const (
	DefaultBaseURL   = "https://quickstats.nass.usda.gov/api/api_GET/"
	DefaultMirrorURL = "https://api.usda-reports.penguinlabs.net/data.csv"
	DefaultState     = "IOWA"
	DefaultStartYear = 1968
)

// Options configures a Client.
type Options struct {
	APIKey      string
	BaseURL     string
	MirrorURL   string
	State       string
	StartYear   int
	Concurrency int
}

// Client fetches and decodes QuickStats responses.
type Client struct {
	fetcher fetcher.Fetcher
	opts    Options
}

// NewClient creates a Client that downloads through f.
func NewClient(f fetcher.Fetcher, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MirrorURL == "" {
		opts.MirrorURL = DefaultMirrorURL
	}
	if opts.State == "" {
		opts.State = DefaultState
	}
	if opts.StartYear == 0 {
		opts.StartYear = DefaultStartYear
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	opts.State = strings.ToUpper(opts.State)
	return &Client{fetcher: f, opts: opts}
}

// URL builds the request URL for d.
func (c *Client) URL(d Descriptor) string {
	q := url.Values{}
	for k, vs := range d.Params {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("year__GE", strconv.Itoa(c.opts.StartYear))
	q.Set("agg_level_desc", string(d.Level))

	base := c.opts.MirrorURL
	if d.Source == API {
		base = c.opts.BaseURL
		q.Set("key", c.opts.APIKey)
		q.Set("state_name", c.opts.State)
		q.Set("format", "CSV")
		if d.Level == County {
			q.Set("county_code__LT", "998")
		}
	}
	return base + "?" + q.Encode()
}

func requiredColumns(l Level) []string {
	if l == County {
		return []string{"county_name", "year", "Value"}
	}
	return []string{"year", "Value"}
}

// Rows downloads d and returns its rows. QuickStats answers a query with no matching data with
// HTTP 400, which is returned as zero rows. A response missing a required column fails with
// variable.ErrSchemaMismatch.
func (c *Client) Rows(ctx context.Context, d Descriptor) ([]Row, error) {
	log := zap.L().With(zap.String("component", "quickstats"), zap.String("request", d.ID))
	rawURL := c.URL(d)

	body, err := c.fetcher.Download(ctx, rawURL)
	if err != nil {
		var se *fetcher.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(se.Body), "no data") {
			log.Warn("no data for request")
			return nil, nil
		}
		return nil, eris.Wrapf(err, "quickstats: fetch %s", d.ID)
	}
	defer body.Close() //nolint:errcheck

	var rows []Row
	checkHeader := func(header []string) error {
		have := make(map[string]bool, len(header))
		for _, h := range header {
			have[h] = true
		}
		for _, col := range requiredColumns(d.Level) {
			if !have[col] {
				return eris.Wrapf(variable.ErrSchemaMismatch, "quickstats: %s response has no %q column", d.ID, col)
			}
		}
		return nil
	}
	err = fetcher.ReadRows(ctx, body, checkHeader, func(r map[string]string) error {
		rows = append(rows, Row(r))
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "quickstats: read %s", d.ID)
	}
	log.Debug("fetched rows", zap.Int("rows", len(rows)))
	return rows, nil
}

func parseYear(d Descriptor, r Row) (int, error) {
	y, err := strconv.Atoi(strings.TrimSpace(r.Get("year")))
	if err != nil {
		return 0, eris.Wrapf(variable.ErrSchemaMismatch, "quickstats: %s has non-numeric year %q", d.ID, r.Get("year"))
	}
	return y, nil
}

func checkGroup(g variable.Group) error {
	if g != variable.GroupAnimal && g != variable.GroupCrop {
		return eris.Errorf("quickstats: unknown group %q", g)
	}
	return nil
}

// fanOut runs fn for every descriptor with bounded concurrency and keeps results in descriptor order.
func fanOut[T any](ctx context.Context, limit int, ds []Descriptor, fn func(context.Context, Descriptor) ([]T, error)) ([]T, error) {
	results := make([][]T, len(ds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, d := range ds {
		g.Go(func() error {
			out, err := fn(gctx, d)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var all []T
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

// Observations fetches every county request of group g. County names are normalized and
// aggregate pseudo-counties are dropped. Suppressed values become observations with a nil Value
// so the county still appears in the panel.
func (c *Client) Observations(ctx context.Context, g variable.Group) ([]panel.Observation, error) {
	if err := checkGroup(g); err != nil {
		return nil, err
	}
	ds := Select(CountyDescriptors(), g)
	obs, err := fanOut(ctx, c.opts.Concurrency, ds, c.countyObservations)
	if err != nil {
		return nil, err
	}
	zap.L().Info("fetched county observations",
		zap.String("component", "quickstats"),
		zap.String("group", string(g)),
		zap.Int("requests", len(ds)),
		zap.Int("observations", len(obs)),
	)
	return obs, nil
}

func (c *Client) countyObservations(ctx context.Context, d Descriptor) ([]panel.Observation, error) {
	rows, err := c.Rows(ctx, d)
	if err != nil {
		return nil, err
	}
	var out []panel.Observation
	for _, r := range rows {
		name := county.Normalize(r.Get("county_name"))
		if name == "" || county.IsAggregate(name) {
			continue
		}
		year, err := parseYear(d, r)
		if err != nil {
			return nil, err
		}
		for _, o := range d.Outputs {
			if o.Filter != nil && !o.Filter(r) {
				continue
			}
			ob := panel.Observation{County: name, Variable: o.Variable, Year: year}
			if v, ok := ParseValue(r.Get("Value")); ok {
				ob.Value = &v
			}
			out = append(out, ob)
		}
	}
	return out, nil
}

type total struct {
	v     variable.Variable
	year  int
	value float64
}

// ControlTotals fetches the state-level totals of group g for the configured state. When a
// (variable, year) appears more than once the first row wins.
func (c *Client) ControlTotals(ctx context.Context, g variable.Group) (panel.ControlTotals, error) {
	if err := checkGroup(g); err != nil {
		return nil, err
	}
	ds := Select(StateDescriptors(), g)
	all, err := fanOut(ctx, c.opts.Concurrency, ds, c.stateTotals)
	if err != nil {
		return nil, err
	}
	totals := panel.ControlTotals{}
	for _, t := range all {
		if _, ok := totals.Lookup(t.v, t.year); ok {
			continue
		}
		totals.Set(t.v, t.year, t.value)
	}
	return totals, nil
}

func (c *Client) stateTotals(ctx context.Context, d Descriptor) ([]total, error) {
	rows, err := c.Rows(ctx, d)
	if err != nil {
		return nil, err
	}
	var out []total
	for _, r := range rows {
		if st := r.Get("state_name"); st != "" && !strings.EqualFold(strings.TrimSpace(st), c.opts.State) {
			continue
		}
		year, err := parseYear(d, r)
		if err != nil {
			return nil, err
		}
		v, ok := ParseValue(r.Get("Value"))
		if !ok {
			continue
		}
		for _, o := range d.Outputs {
			if o.Filter != nil && !o.Filter(r) {
				continue
			}
			out = append(out, total{v: o.Variable, year: year, value: v})
		}
	}
	return out, nil
}
