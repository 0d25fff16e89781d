package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

func rowsFor(orderIDs ...string) []types.OrderRow {
	out := make([]types.OrderRow, len(orderIDs))
	for i, id := range orderIDs {
		out[i] = types.OrderRow{OrderID: id, CustomerName: "Customer " + id, Payment: types.PaymentCOD}
	}
	return out
}

func TestFileStore_SaveAndLatest(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	first, err := store.Save(ctx, types.BatchTypeDownload, rowsFor("1"))
	require.NoError(t, err)
	assert.Equal(t, "000001", first.ID)
	assert.Equal(t, 1, first.Count)

	second, err := store.Save(ctx, types.BatchTypeEmail, rowsFor("2", "3"))
	require.NoError(t, err)
	assert.Equal(t, "000002", second.ID)

	latest, err = store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "000002", latest.ID)
	assert.Equal(t, types.BatchTypeEmail, latest.Type)
	assert.Len(t, latest.Rows, 2)
}

func TestFileStore_CapsHistory(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	for i := 0; i < MaxBatches+5; i++ {
		_, err := store.Save(ctx, types.BatchTypeDownload, rowsFor("x"))
		require.NoError(t, err)
	}

	batches, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, batches, MaxBatches)
	assert.Equal(t, FormatID(MaxBatches+5), batches[0].ID)
	assert.Equal(t, FormatID(6), batches[MaxBatches-1].ID)

	// ids keep increasing after eviction
	next, err := store.Save(ctx, types.BatchTypeDownload, nil)
	require.NoError(t, err)
	assert.Equal(t, FormatID(MaxBatches+6), next.ID)
}

func TestFileStore_ContinuesLegacyIDs(t *testing.T) {
	dir := t.TempDir()
	legacy := []types.Batch{{ID: "1767225600000", Type: types.BatchTypeDownload, Rows: rowsFor("1")}}
	data, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "history.json"), data, 0o644))

	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	b, err := store.Save(context.Background(), types.BatchTypeDownload, rowsFor("2"))
	require.NoError(t, err)
	assert.Equal(t, "1767225600001", b.ID)
}

func TestFileStore_Update(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	fixed := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	saved, err := store.Save(ctx, types.BatchTypeDownload, rowsFor("1"))
	require.NoError(t, err)

	updated, err := store.Update(ctx, saved.ID, rowsFor("1", "2"))
	require.NoError(t, err)
	assert.Len(t, updated.Rows, 2)
	require.NotNil(t, updated.LastModified)
	assert.True(t, fixed.Equal(*updated.LastModified))

	_, err = store.Update(ctx, "999999", nil)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestAverageShippingCost(t *testing.T) {
	c1, c2, zero := 80.0, 110.0, 0.0
	batches := []types.Batch{
		{Rows: []types.OrderRow{{ShippingCost: &c1}, {}, {ShippingCost: &zero}}},
		{Rows: []types.OrderRow{{ShippingCost: &c2}}},
	}

	avg, ok := AverageShippingCost(batches)
	assert.True(t, ok)
	assert.InDelta(t, 95.0, avg, 0.001)

	_, ok = AverageShippingCost([]types.Batch{{Rows: rowsFor("1")}})
	assert.False(t, ok)

	_, ok = AverageShippingCost([]types.Batch{{Rows: []types.OrderRow{{ShippingCost: &zero}}}})
	assert.False(t, ok)
}

func TestParseID(t *testing.T) {
	seq, ok := ParseID("000042")
	assert.True(t, ok)
	assert.Equal(t, int64(42), seq)

	_, ok = ParseID("abc")
	assert.False(t, ok)
}

var batchCols = []string{"seq", "created_at", "type", "row_count", "rows", "last_modified"}

func TestPostgresStore_Latest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	created := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT seq, created_at, type, row_count, rows, last_modified FROM batches ORDER BY seq DESC LIMIT 1")).
		WillReturnRows(sqlmock.NewRows(batchCols).
			AddRow(int64(42), created, types.BatchTypeDownload, 1, []byte(`[{"orderId":"1573","customerName":"Ansh"}]`), nil))

	b, err := store.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "000042", b.ID)
	assert.Equal(t, "1573", b.Rows[0].OrderID)
	assert.Nil(t, b.LastModified)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT seq")).
		WillReturnRows(sqlmock.NewRows(batchCols))

	b, err = store.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, b)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM batches ORDER BY seq DESC LIMIT $1")).
		WithArgs(MaxBatches).
		WillReturnRows(sqlmock.NewRows(batchCols).
			AddRow(int64(2), now, types.BatchTypeEmail, 0, []byte(`[]`), now).
			AddRow(int64(1), now, types.BatchTypeDownload, 0, []byte(`[]`), nil))

	batches, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "000002", batches[0].ID)
	assert.NotNil(t, batches[0].LastModified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO batches (created_at, type, row_count, rows) VALUES ($1, $2, $3, $4) RETURNING seq")).
		WithArgs(sqlmock.AnyArg(), types.BatchTypeDownload, 2, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM batches WHERE seq NOT IN")).
		WithArgs(MaxBatches).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	b, err := store.Save(context.Background(), types.BatchTypeDownload, rowsFor("1", "2"))
	require.NoError(t, err)
	assert.Equal(t, "000007", b.ID)
	assert.Equal(t, 2, b.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRollsBackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO batches")).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err = store.Save(context.Background(), types.BatchTypeDownload, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert batch")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE batches SET rows = $1, last_modified = $2 WHERE seq = $3")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(5)).
		WillReturnRows(sqlmock.NewRows(batchCols).
			AddRow(int64(5), now, types.BatchTypeDownload, 1, []byte(`[{"orderId":"9"}]`), now))

	b, err := store.Update(context.Background(), "000005", rowsFor("9"))
	require.NoError(t, err)
	assert.Equal(t, "000005", b.ID)
	require.NotNil(t, b.LastModified)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE batches")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(6)).
		WillReturnRows(sqlmock.NewRows(batchCols))

	_, err = store.Update(context.Background(), "000006", nil)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = store.Update(context.Background(), "not-a-number", nil)
	assert.ErrorAs(t, err, &nf)

	assert.NoError(t, mock.ExpectationsWereMet())
}

var _ Store = (*FileStore)(nil)
var _ Store = (*PostgresStore)(nil)
