// Package history derives the deduplicated watch-history view from the
// append-only log of view events and records new events asynchronously.
package history

import (
	"sort"

	"github.com/streamtweet/backend/internal/models"
)

// Collapse reduces raw watch entries to one entry per distinct video, keeping
// the most recent watchedAt for each, ordered descending by watchedAt. The
// raw log is the source of truth; this projection is computed on every read
// and never stored.
func Collapse(entries []models.WatchEntry) []models.WatchEntry {
	latest := make(map[string]models.WatchEntry, len(entries))
	for _, entry := range entries {
		if entry.VideoID == "" {
			continue
		}
		current, ok := latest[entry.VideoID]
		if !ok || entry.WatchedAt.After(current.WatchedAt) {
			latest[entry.VideoID] = entry
		}
	}

	collapsed := make([]models.WatchEntry, 0, len(latest))
	for _, entry := range latest {
		collapsed = append(collapsed, entry)
	}

	sort.Slice(collapsed, func(i, j int) bool {
		return collapsed[i].WatchedAt.After(collapsed[j].WatchedAt)
	})

	return collapsed
}
