package cleanup

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LukSky123/Prices.ai/internal/catalog"
)

// memStore is an in-memory catalog.Store for repairer tests.
type memStore struct {
	mu          sync.Mutex
	items       map[uuid.UUID]catalog.Item
	prices      map[uuid.UUID][]catalog.PriceObservation // keyed by item id
	markets     map[uuid.UUID]catalog.Market
	deleteErrAt int // fail the Nth DeleteItems call (1-based); 0 = never
	deleteCalls int
	mergeErr    error
}

func newMemStore() *memStore {
	return &memStore{
		items:   map[uuid.UUID]catalog.Item{},
		prices:  map[uuid.UUID][]catalog.PriceObservation{},
		markets: map[uuid.UUID]catalog.Market{},
	}
}

func (m *memStore) addItem(name, unit string, createdAt time.Time, observations int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.items[id] = catalog.Item{ID: id, Name: name, Unit: unit, CreatedAt: createdAt}
	for i := 0; i < observations; i++ {
		m.prices[id] = append(m.prices[id], catalog.PriceObservation{ItemID: id, Price: 100})
	}
	return id
}

func (m *memStore) FindOrCreateItem(context.Context, string, string, string) (uuid.UUID, bool, error) {
	return uuid.Nil, false, errors.New("not used")
}

func (m *memStore) FindOrCreateMarket(context.Context, string, string) (uuid.UUID, bool, error) {
	return uuid.Nil, false, errors.New("not used")
}

func (m *memStore) InsertPrice(context.Context, catalog.PriceObservation) error {
	return errors.New("not used")
}

func (m *memStore) FindDuplicateGroups(context.Context) ([]catalog.DuplicateGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[[2]string]int{}
	for _, it := range m.items {
		counts[[2]string{it.Name, it.Unit}]++
	}
	var groups []catalog.DuplicateGroup
	for k, n := range counts {
		if n > 1 {
			groups = append(groups, catalog.DuplicateGroup{Name: k[0], Unit: k[1], Count: n})
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (m *memStore) ListItemIDs(_ context.Context, name, unit string) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []catalog.Item
	for _, it := range m.items {
		if it.Name == name && it.Unit == unit {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids, nil
}

func (m *memStore) MergeGroup(_ context.Context, survivor uuid.UUID, duplicates []uuid.UUID) error {
	if m.mergeErr != nil {
		return m.mergeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range duplicates {
		for _, obs := range m.prices[id] {
			obs.ItemID = survivor
			m.prices[survivor] = append(m.prices[survivor], obs)
		}
		delete(m.prices, id)
		delete(m.items, id)
	}
	return nil
}

func (m *memStore) ListItemsWithoutPrices(context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id := range m.items {
		if len(m.prices[id]) == 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (m *memStore) DeleteItems(_ context.Context, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.deleteErrAt > 0 && m.deleteCalls == m.deleteErrAt {
		return errors.New("storage boundary overwhelmed")
	}
	for _, id := range ids {
		delete(m.items, id)
		delete(m.prices, id)
	}
	return nil
}

func (m *memStore) Stats(context.Context) (catalog.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var prices int64
	for _, obs := range m.prices {
		prices += int64(len(obs))
	}
	return catalog.Stats{
		Items:   int64(len(m.items)),
		Markets: int64(len(m.markets)),
		Prices:  prices,
	}, nil
}

func (m *memStore) Close() {}

func (m *memStore) hasItem(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[id]
	return ok
}

func (m *memStore) observationCount(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prices[id])
}

func TestMergeDuplicatesKeepsEarliest(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := store.addItem("Rice", "50kg", t0, 2)
	b := store.addItem("Rice", "50kg", t0.Add(time.Hour), 3)
	keepAlone := store.addItem("Beans", "5kg", t0, 1)

	r := NewRepairer(store, Config{}, zap.NewNop())
	removed, err := r.MergeDuplicates(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	require.True(t, store.hasItem(a), "earliest-created item survives")
	require.False(t, store.hasItem(b), "later duplicate is removed")
	require.True(t, store.hasItem(keepAlone))
	require.Equal(t, 5, store.observationCount(a), "all observations re-point to the survivor")
}

func TestMergeDuplicatesGroupFailureIsIsolated(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.addItem("Rice", "50kg", t0, 1)
	store.addItem("Rice", "50kg", t0.Add(time.Hour), 1)
	store.mergeErr = errors.New("repoint failed")

	r := NewRepairer(store, Config{}, zap.NewNop())
	removed, err := r.MergeDuplicates(context.Background())
	require.Error(t, err)
	require.Zero(t, removed)

	// Delete never ran for the failed group: both items still exist.
	groups, gerr := store.FindDuplicateGroups(context.Background())
	require.NoError(t, gerr)
	require.Len(t, groups, 1)
}

func TestMergeDuplicatesNothingToDo(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.addItem("Rice", "50kg", time.Now(), 1)

	r := NewRepairer(store, Config{}, zap.NewNop())
	removed, err := r.MergeDuplicates(context.Background())
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestRemoveOrphans(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	t0 := time.Now()
	kept := store.addItem("Rice", "50kg", t0, 1)
	var orphans []uuid.UUID
	for i := 0; i < 7; i++ {
		orphans = append(orphans, store.addItem("Stale", "1kg", t0, 0))
	}

	r := NewRepairer(store, Config{BatchSize: 3, BatchDelay: time.Millisecond}, zap.NewNop())
	removed, err := r.RemoveOrphans(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, removed)
	require.Equal(t, 3, store.deleteCalls, "7 orphans in batches of 3")

	require.True(t, store.hasItem(kept), "items with observations are retained")
	for _, id := range orphans {
		require.False(t, store.hasItem(id))
	}
}

func TestRemoveOrphansBatchFailureAbortsRemaining(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	for i := 0; i < 6; i++ {
		store.addItem("Stale", "1kg", time.Now(), 0)
	}
	store.deleteErrAt = 2

	r := NewRepairer(store, Config{BatchSize: 2}, zap.NewNop())
	removed, err := r.RemoveOrphans(context.Background())
	require.Error(t, err)
	require.Equal(t, 2, removed, "first batch stands, later batches abort")

	stats, serr := store.Stats(context.Background())
	require.NoError(t, serr)
	require.Equal(t, int64(4), stats.Items)
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	t0 := time.Now()
	store.addItem("Rice", "50kg", t0, 2)
	store.addItem("Rice", "50kg", t0.Add(time.Minute), 1)
	store.addItem("Stale", "1kg", t0, 0)

	r := NewRepairer(store, Config{}, zap.NewNop())
	report, err := r.Analyze(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), report.Stats.Items)
	require.Len(t, report.DuplicateGroups, 1)
	require.Equal(t, 1, report.Orphans)
}
