package core

import (
	"maps"
	"time"
)

// MemoryType buckets long-lived records by the category of recurring
// information they capture. Every record belongs to exactly one bucket and the
// store's per-type index must always agree with the record's Type field.
type MemoryType string

const (
	// MemoryBilling holds bills, invoices and payment facts.
	MemoryBilling MemoryType = "billing"
	// MemoryPreference holds user preferences and standing instructions.
	MemoryPreference MemoryType = "preference"
	// MemoryHistory holds records of completed actions.
	MemoryHistory MemoryType = "history"
	// MemoryContact holds people, account and address facts.
	MemoryContact MemoryType = "contact"
	// MemorySchedule holds dated obligations and appointments.
	MemorySchedule MemoryType = "schedule"
)

// AllMemoryTypes returns the closed set of record types in a stable order.
func AllMemoryTypes() []MemoryType {
	return []MemoryType{MemoryBilling, MemoryPreference, MemoryHistory, MemoryContact, MemorySchedule}
}

// MemoryRecord is a long-lived typed fact retained across sessions. Reads
// through the retrieval operations bump AccessCount and LastAccess; records
// are never deleted except through an explicit Delete.
type MemoryRecord struct {
	ID          string         `json:"id"`
	Type        MemoryType     `json:"type"`
	Content     string         `json:"content"`
	Embedding   []float64      `json:"-"`
	AccessCount int            `json:"access_count"`
	LastAccess  time.Time      `json:"last_access"`
	Created     time.Time      `json:"created"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy safe for independent mutation.
func (r *MemoryRecord) Clone() *MemoryRecord {
	c := *r
	c.Embedding = append([]float64(nil), r.Embedding...)
	c.Metadata = make(map[string]any, len(r.Metadata))
	maps.Copy(c.Metadata, r.Metadata)
	return &c
}

// MemoryUpdate is a partial update for a record. A Type change re-files the
// record under the new index bucket atomically; a Content change re-derives
// the embedding. Metadata entries are merged.
type MemoryUpdate struct {
	Type     *MemoryType
	Content  *string
	Metadata map[string]any
}

// MemoryRef is a lightweight reference used in stats listings.
type MemoryRef struct {
	ID          string     `json:"id"`
	Type        MemoryType `json:"type"`
	AccessCount int        `json:"access_count"`
	Created     time.Time  `json:"created"`
}

// MemoryStats is a read-only snapshot of store composition.
type MemoryStats struct {
	Total        int                `json:"total"`
	ByType       map[MemoryType]int `json:"by_type"`
	MostAccessed []MemoryRef        `json:"most_accessed"`
	Oldest       []MemoryRef        `json:"oldest"`
}

// MemoryStore persists typed records with relevance-based retrieval and
// bounded context compaction. Every operation is atomic at the level of a
// single logical update: the flat record map and the per-type index move
// together or not at all.
type MemoryStore interface {
	// Store ingests a record, deriving its embedding from content.
	Store(typ MemoryType, content string, metadata map[string]any) (string, error)

	// Get returns a copy of a record without touching access bookkeeping.
	Get(id string) (*MemoryRecord, error)

	// RetrieveByType returns records of one type ordered most-recently-accessed
	// first, truncated to limit (limit <= 0 means no truncation). Access
	// bookkeeping is updated for every returned record.
	RetrieveByType(typ MemoryType, limit int) []*MemoryRecord

	// RetrieveByQuery ranks all records by cosine similarity to the embedded
	// query and returns the top limit records, updating access bookkeeping for
	// returned records only.
	RetrieveByQuery(query string, limit int) []*MemoryRecord

	// CompactContextForHandler returns at most maxMemories records drawn from
	// the type buckets declared relevant for the named handler, ranked by a
	// composite frequency+recency score.
	CompactContextForHandler(handlerName string, maxMemories int) []*MemoryRecord

	// SetRelevantTypes declares which record types a handler cares about.
	SetRelevantTypes(handlerName string, types ...MemoryType)

	// Summarize renders a bounded human-readable digest of the given records,
	// grouped by type.
	Summarize(ids []string) string

	// Update applies a partial update, keeping index and map consistent.
	Update(id string, update MemoryUpdate) error

	// Delete removes the record from both the flat map and its type bucket.
	Delete(id string) error

	// Stats returns a read-only composition snapshot.
	Stats() MemoryStats
}
