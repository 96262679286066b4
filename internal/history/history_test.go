package history

import (
	"testing"
	"time"

	"github.com/streamtweet/backend/internal/models"
)

func entry(videoID string, watchedAt time.Time) models.WatchEntry {
	return models.WatchEntry{UserID: "user-1", VideoID: videoID, WatchedAt: watchedAt}
}

func TestCollapseDeduplicatesByLatestWatch(t *testing.T) {
	base := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)

	entries := []models.WatchEntry{
		entry("video-a", base),                    // A @ 10:00
		entry("video-b", base.Add(5*time.Minute)), // B @ 10:05
		entry("video-a", base.Add(10*time.Minute)), // A @ 10:10
	}

	collapsed := Collapse(entries)

	if len(collapsed) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(collapsed), collapsed)
	}
	if collapsed[0].VideoID != "video-a" || !collapsed[0].WatchedAt.Equal(base.Add(10*time.Minute)) {
		t.Fatalf("expected video-a @ 10:10 first, got %+v", collapsed[0])
	}
	if collapsed[1].VideoID != "video-b" || !collapsed[1].WatchedAt.Equal(base.Add(5*time.Minute)) {
		t.Fatalf("expected video-b @ 10:05 second, got %+v", collapsed[1])
	}
}

func TestCollapseOrdersDescending(t *testing.T) {
	base := time.Now().UTC()

	entries := []models.WatchEntry{
		entry("v1", base.Add(-3*time.Hour)),
		entry("v2", base.Add(-time.Hour)),
		entry("v3", base.Add(-2*time.Hour)),
	}

	collapsed := Collapse(entries)

	want := []string{"v2", "v3", "v1"}
	for i, id := range want {
		if collapsed[i].VideoID != id {
			t.Fatalf("position %d: expected %s got %s", i, id, collapsed[i].VideoID)
		}
	}
}

func TestCollapseEmptyAndBlankEntries(t *testing.T) {
	if got := Collapse(nil); len(got) != 0 {
		t.Fatalf("expected empty projection, got %+v", got)
	}

	entries := []models.WatchEntry{{UserID: "user-1", WatchedAt: time.Now()}}
	if got := Collapse(entries); len(got) != 0 {
		t.Fatalf("entries without a video id should be skipped, got %+v", got)
	}
}
