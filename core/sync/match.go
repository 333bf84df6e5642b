package sync

import "time"

// localDateTimeLayout parses the composed local date-time strings that
// the feed layer normalizes events into.
const localDateTimeLayout = "2006-01-02T15:04:05"

// MatchEvent finds the persisted row that represents the fetched
// event, if any. Candidates are searched in three tiers, first hit
// wins:
//
//  1. Exact provider uid match. The common path when the provider
//     keeps uids stable across fetches.
//  2. Exact content match: identical title and identical composed
//     local start date-time. Recovers rows whose uid churned but whose
//     title and start did not.
//  3. Fuzzy match: restricted to candidates whose start lies within
//     opts.DTToleranceSeconds of the event's start, scored as
//     0.7*overlap(summary,title) + 0.3*overlap(location,location).
//     The best-scoring candidate wins only if the score reaches
//     opts.FuzzyThreshold; ties go to the first-seen candidate.
//
// Returns nil when no tier produces a hit: no existing row represents
// this fetched event.
func MatchEvent(event FetchedEvent, candidates []EventRow, opts Options) *EventRow {
	// Tier 1: provider uid.
	for i := range candidates {
		if candidates[i].ProviderUID == event.UID {
			return &candidates[i]
		}
	}

	// Tier 2: title + composed local start.
	eventStart := DateTimeString(event.StartDate, event.StartTime)
	for i := range candidates {
		if candidates[i].Title == event.Summary &&
			DateTimeString(candidates[i].StartDate, candidates[i].StartTime) == eventStart {
			return &candidates[i]
		}
	}

	// Tier 3: fuzzy. The time-tolerance pre-filter is cheap; token
	// scoring only runs on survivors.
	eventStartAt, err := time.Parse(localDateTimeLayout, eventStart)
	if err != nil {
		return nil
	}
	summaryTokens := Tokenize(event.Summary)

	var best *EventRow
	bestScore := 0.0
	for i := range candidates {
		row := &candidates[i]
		rowStartAt, perr := time.Parse(localDateTimeLayout, DateTimeString(row.StartDate, row.StartTime))
		if perr != nil || !WithinTolerance(eventStartAt, rowStartAt, opts.DTToleranceSeconds) {
			continue
		}

		score := 0.7 * TokenOverlap(summaryTokens, Tokenize(row.Title))
		if event.Location != "" && row.Location != "" {
			score += 0.3 * TokenOverlap(Tokenize(event.Location), Tokenize(row.Location))
		}

		if score > bestScore {
			best = row
			bestScore = score
		}
	}

	if best != nil && bestScore >= opts.FuzzyThreshold {
		return best
	}
	return nil
}
