package memory

import (
	"fmt"
	"maps"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/logging"
)

// Ranking parameters for context compaction. The composite score is
// accessCount + recencyWeight * exp(-elapsed/recencyHalfLife), so a record
// touched just now outranks one with up to recencyWeight extra historical
// accesses, and the advantage decays smoothly with time since last access.
const (
	recencyWeight   = 10.0
	recencyHalfLife = 24 * time.Hour
)

// summarizePreviewLen bounds the per-record content preview in Summarize.
const summarizePreviewLen = 80

// InMemoryStore is a process-local MemoryStore. A single mutex guards the
// flat record map, the per-type index and the relevance mapping, so every
// logical update (insert+index, delete+unindex, type re-file) is indivisible
// and the index can never diverge from the records under concurrent access.
type InMemoryStore struct {
	mu        sync.Mutex
	records   map[string]*core.MemoryRecord
	typeIndex map[core.MemoryType]map[string]struct{}
	relevance map[string][]core.MemoryType
	embedder  Embedder
	logger    logging.Logger
}

// NewInMemoryStore constructs an empty store with the hashed embedder.
func NewInMemoryStore(optFns ...func(s *InMemoryStore)) *InMemoryStore {
	s := &InMemoryStore{
		records:   make(map[string]*core.MemoryRecord),
		typeIndex: make(map[core.MemoryType]map[string]struct{}),
		relevance: make(map[string][]core.MemoryType),
		embedder:  HashedEmbedder{},
		logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// WithEmbedder overrides the embedding function used at store and query time.
func WithEmbedder(e Embedder) func(s *InMemoryStore) {
	return func(s *InMemoryStore) {
		if e != nil {
			s.embedder = e
		}
	}
}

// WithLogger overrides the store's logger.
func WithLogger(l logging.Logger) func(s *InMemoryStore) {
	return func(s *InMemoryStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store ingests a record, deriving its embedding from content, and inserts it
// into the flat map and the type index in one step.
func (s *InMemoryStore) Store(typ core.MemoryType, content string, metadata map[string]any) (string, error) {
	if content == "" {
		return "", fmt.Errorf("store memory: empty content")
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	now := time.Now().UTC()
	rec := &core.MemoryRecord{
		ID:         core.NewID(),
		Type:       typ,
		Content:    content,
		Embedding:  s.embedder.Embed(content),
		LastAccess: now,
		Created:    now,
		Metadata:   metadata,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	s.indexLocked(rec)
	return rec.ID, nil
}

// Get returns a copy of a record without touching access bookkeeping.
func (s *InMemoryStore) Get(id string) (*core.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("get memory %s: %w", id, core.ErrMemoryNotFound)
	}
	return rec.Clone(), nil
}

// RetrieveByType returns records of one type ordered most-recently-accessed
// first, truncated to limit. Access bookkeeping is updated for every returned
// record.
func (s *InMemoryStore) RetrieveByType(typ core.MemoryType, limit int) []*core.MemoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.typeIndex[typ]
	recs := make([]*core.MemoryRecord, 0, len(bucket))
	for id := range bucket {
		recs = append(recs, s.records[id])
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].LastAccess.Equal(recs[j].LastAccess) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].LastAccess.After(recs[j].LastAccess)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return s.touchAndCloneLocked(recs)
}

// RetrieveByQuery embeds the query with the store's embedder, ranks all
// records by cosine similarity descending and returns the top limit records.
// Access bookkeeping is updated for returned records only.
func (s *InMemoryStore) RetrieveByQuery(query string, limit int) []*core.MemoryRecord {
	qvec := s.embedder.Embed(query)

	s.mu.Lock()
	defer s.mu.Unlock()
	type scored struct {
		rec   *core.MemoryRecord
		score float64
	}
	ranked := make([]scored, 0, len(s.records))
	for _, rec := range s.records {
		ranked = append(ranked, scored{rec: rec, score: cosine(qvec, rec.Embedding)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score == ranked[j].score {
			return ranked[i].rec.ID < ranked[j].rec.ID
		}
		return ranked[i].score > ranked[j].score
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	recs := make([]*core.MemoryRecord, len(ranked))
	for i, sc := range ranked {
		recs[i] = sc.rec
	}
	return s.touchAndCloneLocked(recs)
}

// SetRelevantTypes declares which record types a handler cares about.
// Handlers without a declaration fall back to all types.
func (s *InMemoryStore) SetRelevantTypes(handlerName string, types ...core.MemoryType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relevance[handlerName] = append([]core.MemoryType(nil), types...)
}

// CompactContextForHandler gathers candidates across exactly the type buckets
// declared relevant for the handler, ranks them by the composite
// frequency+recency score and returns at most maxMemories records. This is
// the mechanism bounding the state handed to any single handler invocation.
func (s *InMemoryStore) CompactContextForHandler(handlerName string, maxMemories int) []*core.MemoryRecord {
	if maxMemories <= 0 {
		maxMemories = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	types, ok := s.relevance[handlerName]
	if !ok {
		types = core.AllMemoryTypes()
	}
	now := time.Now().UTC()
	type scored struct {
		rec   *core.MemoryRecord
		score float64
	}
	candidates := make([]scored, 0)
	for _, typ := range types {
		for id := range s.typeIndex[typ] {
			rec := s.records[id]
			candidates = append(candidates, scored{rec: rec, score: compactionScore(rec, now)})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score == candidates[j].score {
			return candidates[i].rec.ID < candidates[j].rec.ID
		}
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > maxMemories {
		candidates = candidates[:maxMemories]
	}
	recs := make([]*core.MemoryRecord, len(candidates))
	for i, c := range candidates {
		recs[i] = c.rec
	}
	return s.touchAndCloneLocked(recs)
}

// compactionScore favors frequently and recently used records: raw access
// count plus an exponentially decaying recency bonus.
func compactionScore(rec *core.MemoryRecord, now time.Time) float64 {
	elapsed := now.Sub(rec.LastAccess)
	if elapsed < 0 {
		elapsed = 0
	}
	return float64(rec.AccessCount) + recencyWeight*math.Exp(-float64(elapsed)/float64(recencyHalfLife))
}

// Summarize renders a bounded digest of the given records grouped by type.
// Unknown ids are skipped; previews are truncated so output growth stays
// bounded by the number of requested ids.
func (s *InMemoryStore) Summarize(ids []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	groups := make(map[core.MemoryType][]*core.MemoryRecord)
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			groups[rec.Type] = append(groups[rec.Type], rec)
		}
	}
	var b strings.Builder
	for _, typ := range core.AllMemoryTypes() {
		recs := groups[typ]
		if len(recs) == 0 {
			continue
		}
		sort.Slice(recs, func(i, j int) bool { return recs[i].Created.Before(recs[j].Created) })
		fmt.Fprintf(&b, "%s (%d):\n", typ, len(recs))
		for _, rec := range recs {
			fmt.Fprintf(&b, "  - %s\n", preview(rec.Content))
		}
	}
	if b.Len() == 0 {
		return "no memories"
	}
	return strings.TrimRight(b.String(), "\n")
}

func preview(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if len(content) > summarizePreviewLen {
		return content[:summarizePreviewLen] + "..."
	}
	return content
}

// Update applies a partial update. A type change re-files the record under
// the new index bucket in the same critical section; a content change
// re-derives the embedding.
func (s *InMemoryStore) Update(id string, update core.MemoryUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("update memory %s: %w", id, core.ErrMemoryNotFound)
	}
	if update.Type != nil && *update.Type != rec.Type {
		s.unindexLocked(rec)
		rec.Type = *update.Type
		s.indexLocked(rec)
	}
	if update.Content != nil {
		rec.Content = *update.Content
		rec.Embedding = s.embedder.Embed(rec.Content)
	}
	maps.Copy(rec.Metadata, update.Metadata)
	return nil
}

// Delete removes the record from the flat map and its type bucket together.
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("delete memory %s: %w", id, core.ErrMemoryNotFound)
	}
	s.unindexLocked(rec)
	delete(s.records, id)
	return nil
}

// Stats returns a read-only composition snapshot: totals, per-type counts and
// the top-5 most accessed and oldest records.
func (s *InMemoryStore) Stats() core.MemoryStats {
	const topN = 5

	s.mu.Lock()
	defer s.mu.Unlock()
	stats := core.MemoryStats{
		Total:  len(s.records),
		ByType: make(map[core.MemoryType]int, len(s.typeIndex)),
	}
	for typ, bucket := range s.typeIndex {
		stats.ByType[typ] = len(bucket)
	}
	all := make([]*core.MemoryRecord, 0, len(s.records))
	for _, rec := range s.records {
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].AccessCount == all[j].AccessCount {
			return all[i].ID < all[j].ID
		}
		return all[i].AccessCount > all[j].AccessCount
	})
	stats.MostAccessed = refs(all, topN)
	sort.Slice(all, func(i, j int) bool {
		if all[i].Created.Equal(all[j].Created) {
			return all[i].ID < all[j].ID
		}
		return all[i].Created.Before(all[j].Created)
	})
	stats.Oldest = refs(all, topN)
	return stats
}

func refs(recs []*core.MemoryRecord, n int) []core.MemoryRef {
	if len(recs) > n {
		recs = recs[:n]
	}
	out := make([]core.MemoryRef, len(recs))
	for i, rec := range recs {
		out[i] = core.MemoryRef{ID: rec.ID, Type: rec.Type, AccessCount: rec.AccessCount, Created: rec.Created}
	}
	return out
}

// touchAndCloneLocked bumps access bookkeeping for the given records and
// returns copies safe for the caller. Caller must hold the lock.
func (s *InMemoryStore) touchAndCloneLocked(recs []*core.MemoryRecord) []*core.MemoryRecord {
	now := time.Now().UTC()
	out := make([]*core.MemoryRecord, len(recs))
	for i, rec := range recs {
		rec.AccessCount++
		rec.LastAccess = now
		out[i] = rec.Clone()
	}
	return out
}

func (s *InMemoryStore) indexLocked(rec *core.MemoryRecord) {
	bucket, ok := s.typeIndex[rec.Type]
	if !ok {
		bucket = make(map[string]struct{})
		s.typeIndex[rec.Type] = bucket
	}
	bucket[rec.ID] = struct{}{}
}

func (s *InMemoryStore) unindexLocked(rec *core.MemoryRecord) {
	bucket, ok := s.typeIndex[rec.Type]
	if !ok {
		s.logger.Warn("type index missing bucket %s for record %s", rec.Type, rec.ID)
		return
	}
	delete(bucket, rec.ID)
	if len(bucket) == 0 {
		delete(s.typeIndex, rec.Type)
	}
}
