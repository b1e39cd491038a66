package main

import "time"

// Session-style logs: meditation, breathing, sleep, stress and activities.

var (
	meditationTable = tableDef{name: "meditation_sessions", order: newestFirst}
	breathingTable  = tableDef{name: "breathing_sessions", order: newestFirst}
	sleepTable      = tableDef{name: "sleep_entries", order: newestFirst}
	stressTable     = tableDef{name: "stress_entries", order: newestFirst}
	activityTable   = tableDef{name: "activity_completions", order: newestFirst}
)

func (h *Handler) meditationResource() *resource[meditationSession, meditationPayload] {
	return newResource(h, h.stores.meditation, resource[meditationSession, meditationPayload]{
		path:         "/meditation-sessions",
		noun:         "meditation session",
		notFoundCode: "MEDITATION_SESSION_NOT_FOUND",
		defaultLimit: 50,
		maxLimit:     100,
		filters: []filterParam{
			enumFilter("type", "type", "TYPE", meditationTypes),
			boolFilter("completed", "completed"),
		},
		defaults: func(time.Time) columnSet {
			return columnSet{{column: "completed", value: false}}
		},
	})
}

func (h *Handler) breathingResource() *resource[breathingSession, breathingPayload] {
	return newResource(h, h.stores.breathing, resource[breathingSession, breathingPayload]{
		path:         "/breathing-sessions",
		noun:         "breathing session",
		notFoundCode: "BREATHING_SESSION_NOT_FOUND",
		defaultLimit: 50,
		maxLimit:     100,
		filters: []filterParam{
			enumFilter("technique", "technique", "TECHNIQUE", techniques),
		},
	})
}

func (h *Handler) sleepResource() *resource[sleepEntry, sleepPayload] {
	return newResource(h, h.stores.sleep, resource[sleepEntry, sleepPayload]{
		path:         "/sleep-tracking",
		noun:         "sleep entry",
		notFoundCode: "SLEEP_ENTRY_NOT_FOUND",
		defaultLimit: 50,
		maxLimit:     100,
		filters:      []filterParam{dateRangeFilter("sleep_date")},
		summarize:    func(rows []sleepEntry) any { return summarizeSleep(rows) },
	})
}

func (h *Handler) stressResource() *resource[stressEntry, stressPayload] {
	return newResource(h, h.stores.stress, resource[stressEntry, stressPayload]{
		path:         "/stress-tracking",
		noun:         "stress entry",
		notFoundCode: "STRESS_ENTRY_NOT_FOUND",
		defaultLimit: 50,
		maxLimit:     100,
		filters:      []filterParam{dateRangeFilter("created_at")},
		summarize:    func(rows []stressEntry) any { return summarizeStress(rows) },
	})
}

func (h *Handler) activityResource() *resource[activityCompletion, activityPayload] {
	return newResource(h, h.stores.activities, resource[activityCompletion, activityPayload]{
		path:         "/activity-completions",
		noun:         "activity completion",
		notFoundCode: "ACTIVITY_COMPLETION_NOT_FOUND",
		defaultLimit: 50,
		maxLimit:     100,
		filters: []filterParam{
			boolFilter("completed", "completed"),
			dateRangeFilter("completion_date"),
		},
		defaults: func(now time.Time) columnSet {
			return columnSet{
				{column: "completed", value: true},
				{column: "completion_date", value: today(now)},
			}
		},
	})
}

// today truncates now to midnight UTC, the value stored in date columns.
func today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

/* ─── Stats ──────────────────────────────────────────────────────────── */

type sleepStats struct {
	Count          int     `json:"count"`
	AverageHours   float64 `json:"averageHours"`
	AverageQuality float64 `json:"averageQuality"`
	MinHours       *int    `json:"minHours"`
	MaxHours       *int    `json:"maxHours"`
}

func summarizeSleep(rows []sleepEntry) sleepStats {
	hours := make([]int, len(rows))
	quality := make([]int, len(rows))
	for i, s := range rows {
		hours[i] = s.HoursSlept
		quality[i] = s.Quality
	}
	stats := sleepStats{Count: len(rows)}
	stats.AverageHours, stats.MinHours, stats.MaxHours = describe(hours)
	stats.AverageQuality, _, _ = describe(quality)
	return stats
}

type stressStats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Min     *int    `json:"min"`
	Max     *int    `json:"max"`
}

func summarizeStress(rows []stressEntry) stressStats {
	levels := make([]int, len(rows))
	for i, s := range rows {
		levels[i] = s.StressLevel
	}
	stats := stressStats{Count: len(rows)}
	stats.Average, stats.Min, stats.Max = describe(levels)
	return stats
}
