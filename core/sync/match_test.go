package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRow(id, uid, title, startDate, startTime string) EventRow {
	return EventRow{
		ID:          id,
		ProviderUID: uid,
		Title:       title,
		StartDate:   startDate,
		StartTime:   startTime,
	}
}

func TestMatchEvent_UIDMatch(t *testing.T) {
	rows := []EventRow{
		testRow("r1", "uid-1", "Kamp mod Brøndby", "2026-03-01", "10:00:00"),
		testRow("r2", "uid-2", "Træning", "2026-03-02", "17:00:00"),
	}

	event := FetchedEvent{
		UID:       "uid-2",
		Summary:   "Completely Different Title",
		StartDate: "2026-05-05",
		StartTime: "09:00:00",
	}

	got := MatchEvent(event, rows, DefaultOptions())
	require.NotNil(t, got)
	// uid wins even when title and start disagree
	assert.Equal(t, "r2", got.ID)
}

func TestMatchEvent_ContentMatch(t *testing.T) {
	rows := []EventRow{
		testRow("r1", "old-uid", "Kamp mod Brøndby", "2026-03-01", "10:00:00"),
	}

	event := FetchedEvent{
		UID:       "churned-uid",
		Summary:   "Kamp mod Brøndby",
		StartDate: "2026-03-01",
		StartTime: "10:00:00",
	}

	got := MatchEvent(event, rows, DefaultOptions())
	require.NotNil(t, got)
	assert.Equal(t, "r1", got.ID)
}

func TestMatchEvent_ContentMatchRequiresExactStart(t *testing.T) {
	rows := []EventRow{
		testRow("r1", "old-uid", "Styremøde", "2026-03-01", "10:00:00"),
	}

	// Same title, one second off, and too dissimilar for fuzzy to
	// matter (title identical, so fuzzy actually matches it via tier 3
	// within tolerance). Push the start outside the tolerance window.
	event := FetchedEvent{
		UID:       "churned-uid",
		Summary:   "Styremøde",
		StartDate: "2026-03-01",
		StartTime: "11:00:00",
	}

	got := MatchEvent(event, rows, DefaultOptions())
	assert.Nil(t, got)
}

func TestMatchEvent_FuzzyMatch(t *testing.T) {
	rows := []EventRow{
		testRow("r1", "old-uid", "Hjemmekamp mod Brøndby IF", "2026-03-01", "10:02:00"),
		testRow("r2", "other", "Generalforsamling klubhuset", "2026-03-01", "10:00:00"),
	}

	event := FetchedEvent{
		UID:       "new-uid",
		Summary:   "Hjemmekamp mod Brøndby",
		StartDate: "2026-03-01",
		StartTime: "10:00:00",
	}

	got := MatchEvent(event, rows, DefaultOptions())
	require.NotNil(t, got)
	assert.Equal(t, "r1", got.ID)
}

func TestMatchEvent_FuzzyRespectsTimeTolerance(t *testing.T) {
	rows := []EventRow{
		// Identical title but starts six minutes away: pre-filter
		// removes it before scoring.
		testRow("r1", "old-uid", "Hjemmekamp mod Brøndby", "2026-03-01", "10:06:00"),
	}

	event := FetchedEvent{
		UID:       "new-uid",
		Summary:   "Hjemmekamp mod Brøndby IF",
		StartDate: "2026-03-01",
		StartTime: "10:00:00",
	}

	got := MatchEvent(event, rows, DefaultOptions())
	assert.Nil(t, got)
}

func TestMatchEvent_FuzzyThresholdBoundary(t *testing.T) {
	// Identical titles and no locations score exactly 0.7. The start
	// is one minute off so the exact-content tier cannot shortcut.
	rows := []EventRow{
		testRow("r1", "old-uid", "kampen brøndby hjemmebane", "2026-03-01", "10:01:00"),
	}

	event := FetchedEvent{
		UID:       "new-uid",
		Summary:   "kampen brøndby hjemmebane",
		StartDate: "2026-03-01",
		StartTime: "10:00:00",
	}

	tests := []struct {
		name      string
		threshold float64
		wantMatch bool
	}{
		{name: "score equals threshold matches", threshold: 0.7, wantMatch: true},
		{name: "score below threshold does not match", threshold: 0.7 + 1e-9, wantMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.FuzzyThreshold = tt.threshold
			got := MatchEvent(event, rows, opts)
			if tt.wantMatch {
				assert.NotNil(t, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestMatchEvent_FuzzyLocationTerm(t *testing.T) {
	opts := DefaultOptions()
	opts.FuzzyThreshold = 0.9

	rows := []EventRow{
		{
			ID:          "r1",
			ProviderUID: "old-uid",
			Title:       "Hjemmekamp mod Brøndby",
			Location:    "Parken København",
			StartDate:   "2026-03-01",
			StartTime:   "10:01:00",
		},
	}

	// Identical title alone caps the score at 0.7; the location term
	// is needed to clear a 0.9 threshold. One minute of start skew
	// keeps the exact-content tier from shortcutting.
	event := FetchedEvent{
		UID:       "new-uid",
		Summary:   "Hjemmekamp mod Brøndby",
		StartDate: "2026-03-01",
		StartTime: "10:00:00",
	}
	assert.Nil(t, MatchEvent(event, rows, opts))

	event.Location = "Parken København"
	got := MatchEvent(event, rows, opts)
	require.NotNil(t, got)
	assert.Equal(t, "r1", got.ID)
}

func TestMatchEvent_FuzzyTieBreaksFirstSeen(t *testing.T) {
	// Both rows score identically; the start is off by a minute so the
	// exact-content tier stays out of the way.
	rows := []EventRow{
		testRow("r1", "a", "Fælles løbetur søndag", "2026-03-01", "10:01:00"),
		testRow("r2", "b", "Fælles løbetur søndag", "2026-03-01", "10:01:00"),
	}

	event := FetchedEvent{
		UID:       "new-uid",
		Summary:   "Fælles løbetur søndag",
		StartDate: "2026-03-01",
		StartTime: "10:00:00",
	}

	got := MatchEvent(event, rows, DefaultOptions())
	require.NotNil(t, got)
	assert.Equal(t, "r1", got.ID)
}

func TestMatchEvent_NoCandidates(t *testing.T) {
	event := FetchedEvent{UID: "u1", Summary: "Kamp", StartDate: "2026-03-01", StartTime: "10:00:00"}
	assert.Nil(t, MatchEvent(event, nil, DefaultOptions()))
}
