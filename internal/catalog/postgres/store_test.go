package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/LukSky123/Prices.ai/internal/catalog"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func TestFindOrCreateItemExisting(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	existing := uuid.New()

	mock.ExpectQuery("SELECT id FROM items").
		WithArgs("Rice", "50kg").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(existing))

	id, created, err := store.FindOrCreateItem(context.Background(), "Rice", "50kg", "")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, existing, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreateItemInserts(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	inserted := uuid.New()

	mock.ExpectQuery("SELECT id FROM items").
		WithArgs("Rice", "50kg").
		WillReturnError(pgx.ErrNoRows)

	mock.ExpectQuery("INSERT INTO items").
		WithArgs(pgxmock.AnyArg(), "Rice", "50kg", "https://example.com/rice").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(inserted))

	id, created, err := store.FindOrCreateItem(context.Background(), "Rice", "50kg", "https://example.com/rice")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, inserted, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPrice(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	obs := catalog.PriceObservation{
		ItemID:      uuid.New(),
		MarketID:    uuid.New(),
		Price:       47200,
		DateScraped: time.Unix(1700000000, 0).UTC(),
	}

	mock.ExpectExec("INSERT INTO prices").
		WithArgs(obs.ItemID, obs.MarketID, obs.Price, obs.DateScraped).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.InsertPrice(context.Background(), obs))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindDuplicateGroups(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT name, unit, count").
		WillReturnRows(pgxmock.NewRows([]string{"name", "unit", "count"}).
			AddRow("Rice", "50kg", 3).
			AddRow("Beans", "5kg", 2))

	groups, err := store.FindDuplicateGroups(context.Background())
	require.NoError(t, err)
	require.Equal(t, []catalog.DuplicateGroup{
		{Name: "Rice", Unit: "50kg", Count: 3},
		{Name: "Beans", Unit: "5kg", Count: 2},
	}, groups)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeGroupIsTransactional(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	survivor := uuid.New()
	dups := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE prices SET item_id").
		WithArgs(survivor, dups).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))
	mock.ExpectExec("DELETE FROM items").
		WithArgs(dups).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	require.NoError(t, store.MergeGroup(context.Background(), survivor, dups))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeGroupRollsBackOnRepointFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	survivor := uuid.New()
	dups := []uuid.UUID{uuid.New()}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE prices SET item_id").
		WithArgs(survivor, dups).
		WillReturnError(errBoom{})
	mock.ExpectRollback()

	err := store.MergeGroup(context.Background(), survivor, dups)
	require.Error(t, err)
	require.Contains(t, err.Error(), "repoint prices")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeGroupNoDuplicatesIsNoop(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	require.NoError(t, store.MergeGroup(context.Background(), uuid.New(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListItemsWithoutPrices(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery("LEFT JOIN prices").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(a).AddRow(b))

	ids, err := store.ListItemsWithoutPrices(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{a, b}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteItems(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectExec("DELETE FROM items").
		WithArgs(ids).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	require.NoError(t, store.DeleteItems(context.Background(), ids))
	require.NoError(t, store.DeleteItems(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT").
		WillReturnRows(pgxmock.NewRows([]string{"items", "markets", "prices"}).
			AddRow(int64(120), int64(5), int64(9800)))

	st, err := store.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, catalog.Stats{Items: 120, Markets: 5, Prices: 9800}, st)
	require.NoError(t, mock.ExpectationsWereMet())
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
