package scheduler

import (
	"sort"
	"sync"

	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// DefaultHistoryLimit caps the results kept per target.
const DefaultHistoryLimit = 100

// History is a bounded in-memory ring of recent results per target. It is a
// cache for digests; the Result Store stays the source of truth.
type History struct {
	mu      sync.Mutex
	limit   int
	entries map[string][]models.AuditResult
}

func NewHistory(limit int) *History {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit, entries: make(map[string][]models.AuditResult)}
}

// Add appends r, evicting the oldest entry of its target when full.
func (h *History) Add(r models.AuditResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := append(h.entries[r.TargetID], r)
	if over := len(list) - h.limit; over > 0 {
		list = append([]models.AuditResult(nil), list[over:]...)
	}
	h.entries[r.TargetID] = list
}

// Entries returns a copy of the target's results, oldest first.
func (h *History) Entries(targetID string) []models.AuditResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.AuditResult(nil), h.entries[targetID]...)
}

// Latest returns the most recent result of a target.
func (h *History) Latest(targetID string) (models.AuditResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.entries[targetID]
	if len(list) == 0 {
		return models.AuditResult{}, false
	}
	return list[len(list)-1], true
}

// Targets returns the ids with at least one entry, sorted.
func (h *History) Targets() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.entries))
	for id := range h.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
