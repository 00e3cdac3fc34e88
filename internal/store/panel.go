package store

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ifews/nsurplus/internal/db"
	"github.com/ifews/nsurplus/internal/panel"
	"github.com/ifews/nsurplus/internal/variable"
)

var cellUpsert = db.UpsertConfig{
	Table:        "ifews.panel_cells",
	Columns:      []string{"run_id", "county_name", "year", "variable", "value", "provenance"},
	ConflictKeys: []string{"run_id", "county_name", "year", "variable"},
}

// BalanceColumns is the column order of ifews.balance.
var BalanceColumns = func() []string {
	cols := []string{"run_id", "county_name", "year"}
	for _, v := range variable.Nitrogen() {
		cols = append(cols, v.String())
	}
	return cols
}()

// PanelStore writes panel results to Postgres.
type PanelStore struct {
	pool db.Pool
}

// NewPanelStore creates a PanelStore backed by the given pool.
func NewPanelStore(pool db.Pool) *PanelStore {
	return &PanelStore{pool: pool}
}

// SavePanel upserts every known cell of p in long format. Absent cells are not stored.
func (s *PanelStore) SavePanel(ctx context.Context, runID string, p *panel.Panel) (int64, error) {
	rows := CellRows(runID, p)
	n, err := db.BulkUpsert(ctx, s.pool, cellUpsert, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "store: save panel for run %s", runID)
	}
	zap.L().Debug("store: panel saved",
		zap.String("run_id", runID),
		zap.Int64("rows", n),
	)
	return n, nil
}

// SaveBalance copies one wide row per record into ifews.balance. Absent outputs are NULL.
func (s *PanelStore) SaveBalance(ctx context.Context, runID string, p *panel.Panel) (int64, error) {
	rows := BalanceRows(runID, p)
	n, err := db.CopyFromSchema(ctx, s.pool, "ifews", "balance", BalanceColumns, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "store: save balance for run %s", runID)
	}
	return n, nil
}

// CellRows flattens p into (run_id, county_name, year, variable, value, provenance) rows.
func CellRows(runID string, p *panel.Panel) [][]any {
	var rows [][]any
	vars := p.Vars()
	for _, r := range p.Records() {
		for _, v := range vars {
			c := r.Get(v)
			if !c.Known() {
				continue
			}
			rows = append(rows, []any{runID, r.County, r.Year, v.String(), c.Value, c.Provenance.String()})
		}
	}
	return rows
}

// BalanceRows builds the ifews.balance rows for p.
func BalanceRows(runID string, p *panel.Panel) [][]any {
	nvars := variable.Nitrogen()
	rows := make([][]any, 0, p.Len())
	for _, r := range p.Records() {
		row := []any{runID, r.County, r.Year}
		for _, v := range nvars {
			if x, ok := r.Value(v); ok {
				row = append(row, &x)
			} else {
				row = append(row, (*float64)(nil))
			}
		}
		rows = append(rows, row)
	}
	return rows
}
