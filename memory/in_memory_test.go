package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clerkmesh/clerkmesh/core"
)

// Interface compliance (compile-time assertions)
var (
	_ core.MemoryStore = (*InMemoryStore)(nil)
	_ Embedder         = HashedEmbedder{}
)

func TestHashedEmbedder_Deterministic(t *testing.T) {
	e := HashedEmbedder{}
	a := e.Embed("Electric bill from City Power")
	b := e.Embed("Electric bill from City Power")
	assert.Equal(t, a, b)
	assert.Len(t, a, embeddingDim)

	// Normalized vectors: self-similarity is 1 within float tolerance.
	assert.InDelta(t, 1.0, cosine(a, b), 1e-9)

	// Disjoint vocabulary scores lower than shared vocabulary.
	q := e.Embed("electric bill")
	unrelated := e.Embed("dentist appointment tuesday")
	assert.Greater(t, cosine(q, a), cosine(q, unrelated))
}

func TestInMemoryStore_StoreAndGet(t *testing.T) {
	store := NewInMemoryStore()

	id, err := store.Store(core.MemoryBilling, "Bill from City Power: 84.50 due 2026-08-15", map[string]any{"vendor": "City Power"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, core.MemoryBilling, rec.Type)
	assert.Equal(t, "City Power", rec.Metadata["vendor"])
	assert.NotEmpty(t, rec.Embedding)
	// Get does not count as a retrieval.
	assert.Equal(t, 0, rec.AccessCount)

	// mutation safety (returned record is a copy)
	rec.Metadata["vendor"] = "changed"
	again, _ := store.Get(id)
	assert.Equal(t, "City Power", again.Metadata["vendor"])

	_, err = store.Store(core.MemoryBilling, "", nil)
	assert.Error(t, err)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, core.ErrMemoryNotFound)
}

func TestInMemoryStore_RetrieveByType(t *testing.T) {
	store := NewInMemoryStore()

	var billing []string
	for i := 0; i < 4; i++ {
		id, err := store.Store(core.MemoryBilling, fmt.Sprintf("bill %d", i), nil)
		require.NoError(t, err)
		billing = append(billing, id)
	}
	_, err := store.Store(core.MemoryContact, "landlord contact", nil)
	require.NoError(t, err)

	recs := store.RetrieveByType(core.MemoryBilling, 0)
	require.Len(t, recs, 4)
	for _, rec := range recs {
		assert.Equal(t, core.MemoryBilling, rec.Type)
		assert.Equal(t, 1, rec.AccessCount)
	}

	// limit truncates
	recs = store.RetrieveByType(core.MemoryBilling, 2)
	assert.Len(t, recs, 2)

	// empty bucket
	assert.Empty(t, store.RetrieveByType(core.MemorySchedule, 10))

	// access bookkeeping accumulates across retrievals
	rec, _ := store.Get(billing[0])
	assert.GreaterOrEqual(t, rec.AccessCount, 1)
}

func TestInMemoryStore_RetrieveByQueryRanking(t *testing.T) {
	store := NewInMemoryStore()

	billID, err := store.Store(core.MemoryBilling, "electric bill city power august", nil)
	require.NoError(t, err)
	_, err = store.Store(core.MemoryContact, "dentist phone number", nil)
	require.NoError(t, err)
	_, err = store.Store(core.MemoryPreference, "prefers paperless statements", nil)
	require.NoError(t, err)

	recs := store.RetrieveByQuery("electric bill", 2)
	require.Len(t, recs, 2)
	assert.Equal(t, billID, recs[0].ID)
	assert.Equal(t, 1, recs[0].AccessCount)
}

func TestInMemoryStore_IndexConsistency(t *testing.T) {
	store := NewInMemoryStore()

	id, err := store.Store(core.MemoryBilling, "water bill 32.10", nil)
	require.NoError(t, err)

	// Type change re-files the record under the new bucket.
	newType := core.MemoryHistory
	require.NoError(t, store.Update(id, core.MemoryUpdate{Type: &newType}))

	assert.Empty(t, store.RetrieveByType(core.MemoryBilling, 0))
	recs := store.RetrieveByType(core.MemoryHistory, 0)
	require.Len(t, recs, 1)
	assert.Equal(t, id, recs[0].ID)

	stats := store.Stats()
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByType[core.MemoryHistory])
	assert.Zero(t, stats.ByType[core.MemoryBilling])

	// Delete unindexes and removes together.
	require.NoError(t, store.Delete(id))
	assert.Empty(t, store.RetrieveByType(core.MemoryHistory, 0))
	assert.Zero(t, store.Stats().Total)

	assert.ErrorIs(t, store.Delete(id), core.ErrMemoryNotFound)
	assert.ErrorIs(t, store.Update(id, core.MemoryUpdate{}), core.ErrMemoryNotFound)
}

func TestInMemoryStore_UpdateContentReembeds(t *testing.T) {
	store := NewInMemoryStore()

	id, err := store.Store(core.MemoryPreference, "prefers morning appointments", nil)
	require.NoError(t, err)

	content := "prefers evening appointments after work"
	require.NoError(t, store.Update(id, core.MemoryUpdate{Content: &content, Metadata: map[string]any{"confirmed": true}}))

	rec, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, content, rec.Content)
	assert.Equal(t, true, rec.Metadata["confirmed"])
	assert.Equal(t, HashedEmbedder{}.Embed(content), rec.Embedding)
}

func TestInMemoryStore_CompactContext(t *testing.T) {
	store := NewInMemoryStore()
	store.SetRelevantTypes("bill_scanner", core.MemoryBilling, core.MemoryHistory)

	for i := 0; i < 8; i++ {
		_, err := store.Store(core.MemoryBilling, fmt.Sprintf("bill %d", i), nil)
		require.NoError(t, err)
	}
	hotID, err := store.Store(core.MemoryBilling, "hot bill", nil)
	require.NoError(t, err)
	_, err = store.Store(core.MemoryContact, "should never appear", nil)
	require.NoError(t, err)
	_, err = store.Store(core.MemorySchedule, "dentist friday", nil)
	require.NoError(t, err)

	// Drive the hot record's access count up so scoring must surface it.
	for i := 0; i < 5; i++ {
		store.RetrieveByQuery("hot bill", 1)
	}

	recs := store.CompactContextForHandler("bill_scanner", 3)
	require.Len(t, recs, 3)
	assert.Equal(t, hotID, recs[0].ID)
	for _, rec := range recs {
		assert.NotEqual(t, core.MemoryContact, rec.Type)
	}

	// Unknown handlers fall back to every type.
	all := store.CompactContextForHandler("unknown", 100)
	assert.Len(t, all, 11)

	// A non-positive cap falls back to the default instead of unbounded.
	capped := store.CompactContextForHandler("unknown", 0)
	assert.Len(t, capped, 10)
}

func TestInMemoryStore_Summarize(t *testing.T) {
	store := NewInMemoryStore()

	assert.Equal(t, "no memories", store.Summarize(nil))

	id1, _ := store.Store(core.MemoryBilling, "internet bill 59.99", nil)
	id2, _ := store.Store(core.MemoryContact, "plumber 555-0101", nil)
	long := ""
	for i := 0; i < 30; i++ {
		long += "verylongword "
	}
	id3, _ := store.Store(core.MemoryHistory, long, nil)

	out := store.Summarize([]string{id1, id2, id3, "missing"})
	assert.Contains(t, out, "billing (1):")
	assert.Contains(t, out, "contact (1):")
	assert.Contains(t, out, "internet bill 59.99")
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, long)
}

func TestInMemoryStore_Stats(t *testing.T) {
	store := NewInMemoryStore()

	for i := 0; i < 7; i++ {
		_, err := store.Store(core.MemoryBilling, fmt.Sprintf("bill %d", i), nil)
		require.NoError(t, err)
	}
	hotID, _ := store.Store(core.MemorySchedule, "dentist friday", nil)
	store.RetrieveByType(core.MemorySchedule, 0)
	store.RetrieveByType(core.MemorySchedule, 0)

	stats := store.Stats()
	assert.Equal(t, 8, stats.Total)
	assert.Equal(t, 7, stats.ByType[core.MemoryBilling])
	assert.Equal(t, 1, stats.ByType[core.MemorySchedule])
	require.Len(t, stats.MostAccessed, 5)
	assert.Equal(t, hotID, stats.MostAccessed[0].ID)
	assert.Equal(t, 2, stats.MostAccessed[0].AccessCount)
	assert.Len(t, stats.Oldest, 5)
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryStore()
	store.SetRelevantTypes("bill_scanner", core.MemoryBilling)

	wg := sync.WaitGroup{}
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := store.Store(core.MemoryBilling, fmt.Sprintf("bill %d", i), nil)
			if err != nil {
				t.Errorf("store: %v", err)
				return
			}
			store.RetrieveByType(core.MemoryBilling, 5)
			store.RetrieveByQuery("bill", 3)
			store.CompactContextForHandler("bill_scanner", 4)
			if _, err := store.Get(id); err != nil {
				t.Errorf("get: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, store.Stats().Total)
}
