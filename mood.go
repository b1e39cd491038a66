package main

import "math"

var moodTable = tableDef{name: "mood_entries", order: newestFirst, tracksUpdatedAt: true}

func (h *Handler) moodResource() *resource[moodEntry, moodPayload] {
	return newResource(h, h.stores.moods, resource[moodEntry, moodPayload]{
		path:         "/mood-tracking",
		noun:         "mood entry",
		notFoundCode: "MOOD_ENTRY_NOT_FOUND",
		defaultLimit: 30,
		maxLimit:     100,
		filters: []filterParam{
			enumFilter("moodLabel", "mood_label", "MOOD_LABEL", moodLabels),
			dateRangeFilter("created_at"),
		},
		summarize: func(rows []moodEntry) any { return summarizeMoods(rows) },
	})
}

// moodStats is the GET /api/mood-tracking?stats=true response.
type moodStats struct {
	Count   int            `json:"count"`
	Average float64        `json:"average"`
	Min     *int           `json:"min"`
	Max     *int           `json:"max"`
	ByLabel map[string]int `json:"byLabel"`
}

func summarizeMoods(rows []moodEntry) moodStats {
	stats := moodStats{Count: len(rows), ByLabel: make(map[string]int)}
	values := make([]int, len(rows))
	for i, m := range rows {
		values[i] = m.MoodValue
		stats.ByLabel[m.MoodLabel]++
	}
	stats.Average, stats.Min, stats.Max = describe(values)
	return stats
}

// describe returns the rounded mean, min and max of values. Min and max are
// nil for an empty slice.
func describe(values []int) (avg float64, lo, hi *int) {
	if len(values) == 0 {
		return 0, nil, nil
	}
	minV, maxV, sum := values[0], values[0], 0
	for _, v := range values {
		sum += v
		minV = min(minV, v)
		maxV = max(maxV, v)
	}
	return round2(float64(sum) / float64(len(values))), &minV, &maxV
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
