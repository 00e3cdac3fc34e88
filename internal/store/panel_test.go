package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifews/nsurplus/internal/panel"
	"github.com/ifews/nsurplus/internal/variable"
)

func balancePanel() *panel.Panel {
	p := panel.New([]string{"ADAIR", "ADAMS"}, []int{2010}, []variable.Variable{variable.Hogs, variable.NS, variable.CN})
	p.Set(panel.Key{County: "ADAIR", Year: 2010}, variable.Hogs, panel.Cell{Value: 100, Provenance: panel.Observed})
	p.Set(panel.Key{County: "ADAIR", Year: 2010}, variable.NS, panel.Cell{Value: 21.1, Provenance: panel.Derived})
	p.Set(panel.Key{County: "ADAMS", Year: 2010}, variable.Hogs, panel.Cell{Value: 40, Provenance: panel.Reconciled})
	return p
}

func TestCellRows_SkipsAbsent(t *testing.T) {
	rows := CellRows("run-1", balancePanel())
	require.Len(t, rows, 3)
	assert.Equal(t, []any{"run-1", "ADAIR", 2010, "hogs", 100.0, "observed"}, rows[0])
	assert.Equal(t, []any{"run-1", "ADAIR", 2010, "ns", 21.1, "derived"}, rows[1])
	assert.Equal(t, []any{"run-1", "ADAMS", 2010, "hogs", 40.0, "reconciled"}, rows[2])
}

func TestBalanceRows_NullForAbsent(t *testing.T) {
	rows := BalanceRows("run-1", balancePanel())
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], len(BalanceColumns))
	assert.Equal(t, []string{"run_id", "county_name", "year", "cn", "mn", "mn_old", "fn", "gn", "ns"}, BalanceColumns)

	ns := rows[0][len(rows[0])-1].(*float64)
	require.NotNil(t, ns)
	assert.InDelta(t, 21.1, *ns, 1e-9)
	assert.Nil(t, rows[0][3].(*float64))
	assert.Nil(t, rows[1][len(rows[1])-1].(*float64))
}

func TestSavePanel(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_ifews_panel_cells"}, cellUpsert.Columns).WillReturnResult(3)
	mock.ExpectExec("DELETE FROM").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", 3))
	mock.ExpectCommit()

	n, err := NewPanelStore(mock).SavePanel(context.Background(), "run-1", balancePanel())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePanel_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(fmt.Errorf("too many connections"))

	_, err = NewPanelStore(mock).SavePanel(context.Background(), "run-1", balancePanel())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store: save panel for run run-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"ifews", "balance"}, BalanceColumns).WillReturnResult(2)

	n, err := NewPanelStore(mock).SaveBalance(context.Background(), "run-1", balancePanel())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
