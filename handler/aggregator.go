package handler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/clerkmesh/clerkmesh/core"
)

// ConflictSeverityHigh marks conflict groups large enough to need attention.
const ConflictSeverityHigh = "high"

// Conflict is a group of same-domain records landing on the same calendar
// day. Groups of one or two are normal scheduling; more than two is flagged.
type Conflict struct {
	Domain    core.MemoryType `json:"domain"`
	Day       string          `json:"day"`
	RecordIDs []string        `json:"record_ids"`
	Severity  string          `json:"severity"`
}

// timelineEntry is one dated record in the merged sequence.
type timelineEntry struct {
	ID      string          `json:"id"`
	Type    core.MemoryType `json:"type"`
	Day     string          `json:"day"`
	Content string          `json:"content"`
}

// AggregatorHandler is the aggregator variant: it reads across every memory
// bucket relevant to the domain, merges date-bearing records into one
// time-ordered sequence and detects calendar-day conflicts.
type AggregatorHandler struct {
	BaseHandler
}

// NewAggregatorHandler constructs the aggregator for the aggregate category.
// It declares every memory type relevant.
func NewAggregatorHandler(deps Deps) *AggregatorHandler {
	return &AggregatorHandler{
		BaseHandler: NewBaseHandler(
			"schedule_aggregator",
			core.CategoryAggregate,
			core.AllMemoryTypes(),
			deps,
		),
	}
}

// Execute builds the merged timeline and conflict report. Detected conflicts
// are surfaced to the dispatcher as an input_required notice.
func (h *AggregatorHandler) Execute(ctx context.Context, item *core.WorkItem, sessionID string) (*core.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var timeline []timelineEntry
	var allIDs []string
	groups := map[core.MemoryType]map[string][]string{}
	for _, typ := range h.RelevantMemoryTypes() {
		for _, rec := range h.Memory().RetrieveByType(typ, 0) {
			allIDs = append(allIDs, rec.ID)
			day, ok := recordDay(rec)
			if !ok {
				continue
			}
			timeline = append(timeline, timelineEntry{ID: rec.ID, Type: rec.Type, Day: day, Content: rec.Content})
			if groups[typ] == nil {
				groups[typ] = map[string][]string{}
			}
			groups[typ][day] = append(groups[typ][day], rec.ID)
		}
	}
	sort.Slice(timeline, func(i, j int) bool {
		if timeline[i].Day == timeline[j].Day {
			return timeline[i].ID < timeline[j].ID
		}
		return timeline[i].Day < timeline[j].Day
	})

	conflicts := detectConflicts(groups)
	if len(conflicts) > 0 {
		h.SendCorrelated(core.MessageInputRequired, core.DispatcherAddress, item.ID, map[string]any{
			"reason":    "calendar conflicts detected",
			"conflicts": len(conflicts),
		})
	}

	return &core.Result{
		Outcome: core.OutcomeCompleted,
		Summary: fmt.Sprintf("%d dated records, %d conflicts", len(timeline), len(conflicts)),
		Data: map[string]any{
			"timeline":  timeline,
			"conflicts": conflicts,
			"digest":    h.Memory().Summarize(allIDs),
		},
	}, nil
}

// detectConflicts flags every (domain, day) group holding more than two
// records. Output order is stable.
func detectConflicts(groups map[core.MemoryType]map[string][]string) []Conflict {
	var conflicts []Conflict
	for _, typ := range core.AllMemoryTypes() {
		days := groups[typ]
		keys := make([]string, 0, len(days))
		for day := range days {
			keys = append(keys, day)
		}
		sort.Strings(keys)
		for _, day := range keys {
			ids := days[day]
			if len(ids) <= 2 {
				continue
			}
			sort.Strings(ids)
			conflicts = append(conflicts, Conflict{
				Domain:    typ,
				Day:       day,
				RecordIDs: ids,
				Severity:  ConflictSeverityHigh,
			})
		}
	}
	return conflicts
}

// recordDay normalizes a record's date metadata ("due_date" or "date",
// RFC 3339 or YYYY-MM-DD) to a UTC calendar day.
func recordDay(rec *core.MemoryRecord) (string, bool) {
	for _, key := range []string{"due_date", "date"} {
		raw, _ := rec.Metadata[key].(string)
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC().Format("2006-01-02"), true
		}
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
