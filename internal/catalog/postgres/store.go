// Package postgres provides the Postgres-backed catalog store.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LukSky123/Prices.ai/internal/catalog"
)

// pool is the subset of pgxpool.Pool the store needs, narrowed so tests can
// substitute pgxmock.
type pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store implements catalog.Store on a pgx connection pool.
type Store struct {
	pool pool
}

// NewStore connects a catalog store to Postgres.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: p}, nil
}

// NewStoreWithPool constructs a store from an existing pool (primarily for
// testing).
func NewStoreWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// FindOrCreateItem implements catalog.Store. The lookup is select-then-insert
// because (name, unit) uniqueness is a convention repaired retroactively,
// not a schema constraint.
func (s *Store) FindOrCreateItem(ctx context.Context, name, unit, itemURL string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM items WHERE name = $1 AND unit = $2 ORDER BY created_at LIMIT 1;`,
		name, unit,
	).Scan(&id)
	switch {
	case err == nil:
		return id, false, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return uuid.Nil, false, fmt.Errorf("find item: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO items (id, name, unit, item_url, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 RETURNING id;`,
		uuid.New(), name, unit, itemURL,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("insert item: %w", err)
	}
	return id, true, nil
}

// FindOrCreateMarket implements catalog.Store.
func (s *Store) FindOrCreateMarket(ctx context.Context, name, url string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM markets WHERE name = $1 LIMIT 1;`,
		name,
	).Scan(&id)
	switch {
	case err == nil:
		return id, false, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return uuid.Nil, false, fmt.Errorf("find market: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO markets (id, name, url, created_at)
		 VALUES ($1, $2, $3, now())
		 RETURNING id;`,
		uuid.New(), name, url,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("insert market: %w", err)
	}
	return id, true, nil
}

// InsertPrice implements catalog.Store. Prices are append-only.
func (s *Store) InsertPrice(ctx context.Context, obs catalog.PriceObservation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO prices (item_id, market_id, price, date_scraped)
		 VALUES ($1, $2, $3, $4);`,
		obs.ItemID, obs.MarketID, obs.Price, obs.DateScraped,
	)
	if err != nil {
		return fmt.Errorf("insert price: %w", err)
	}
	return nil
}

// FindDuplicateGroups implements catalog.Store.
func (s *Store) FindDuplicateGroups(ctx context.Context) ([]catalog.DuplicateGroup, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, unit, count(*) AS count
		 FROM items
		 GROUP BY name, unit
		 HAVING count(*) > 1
		 ORDER BY count DESC, name;`,
	)
	if err != nil {
		return nil, fmt.Errorf("find duplicate groups: %w", err)
	}
	defer rows.Close()

	var groups []catalog.DuplicateGroup
	for rows.Next() {
		var g catalog.DuplicateGroup
		if err := rows.Scan(&g.Name, &g.Unit, &g.Count); err != nil {
			return nil, fmt.Errorf("scan duplicate group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicate groups: %w", err)
	}
	return groups, nil
}

// ListItemIDs implements catalog.Store. Earliest creation first, so the
// first id is the merge survivor.
func (s *Store) ListItemIDs(ctx context.Context, name, unit string) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM items WHERE name = $1 AND unit = $2 ORDER BY created_at;`,
		name, unit,
	)
	if err != nil {
		return nil, fmt.Errorf("list item ids: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// MergeGroup implements catalog.Store. The re-point and the delete run in
// one transaction so a failed re-point never leaves observations pointing
// at a deleted item.
func (s *Store) MergeGroup(ctx context.Context, survivor uuid.UUID, duplicates []uuid.UUID) error {
	if len(duplicates) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx,
		`UPDATE prices SET item_id = $1 WHERE item_id = ANY($2);`,
		survivor, duplicates,
	); err != nil {
		return fmt.Errorf("repoint prices: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM items WHERE id = ANY($1);`,
		duplicates,
	); err != nil {
		return fmt.Errorf("delete duplicate items: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit merge: %w", err)
	}
	return nil
}

// ListItemsWithoutPrices implements catalog.Store.
func (s *Store) ListItemsWithoutPrices(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT i.id
		 FROM items i
		 LEFT JOIN prices p ON p.item_id = i.id
		 WHERE p.item_id IS NULL
		 ORDER BY i.created_at;`,
	)
	if err != nil {
		return nil, fmt.Errorf("list items without prices: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// DeleteItems implements catalog.Store.
func (s *Store) DeleteItems(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM items WHERE id = ANY($1);`, ids); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	return nil
}

// Stats implements catalog.Store.
func (s *Store) Stats(ctx context.Context) (catalog.Stats, error) {
	var st catalog.Stats
	err := s.pool.QueryRow(ctx,
		`SELECT
			(SELECT count(*) FROM items),
			(SELECT count(*) FROM markets),
			(SELECT count(*) FROM prices);`,
	).Scan(&st.Items, &st.Markets, &st.Prices)
	if err != nil {
		return catalog.Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	return st, nil
}

func scanIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return ids, nil
}
