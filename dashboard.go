package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// dashboardSummary is the GET /api/dashboard response.
type dashboardSummary struct {
	MoodAverage7d   *float64    `json:"moodAverage7d"`
	MoodEntries7d   int         `json:"moodEntries7d"`
	StressAverage7d *float64    `json:"stressAverage7d"`
	LastSleep       *sleepEntry `json:"lastSleep"`
	PendingTasks    int         `json:"pendingTasks"`
	ActiveGoals     int         `json:"activeGoals"`
	ActivitiesToday int         `json:"activitiesToday"`
}

// dashboard handles GET /api/dashboard: a snapshot of the caller's last
// seven days of mood and stress plus current task, goal and activity counts.
func (h *Handler) dashboard(c *gin.Context) {
	summary, err := h.buildDashboard(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondErr(c, h.log, &serverErr{message: "failed to build dashboard", err: err})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) buildDashboard(ctx context.Context, userID string) (dashboardSummary, error) {
	now := h.now()
	week := []condition{{column: "created_at", op: opGTE, value: now.AddDate(0, 0, -7)}}
	var out dashboardSummary

	moods, err := h.stores.moods.list(ctx, userID, listQuery{conds: week})
	if err != nil {
		return out, err
	}
	out.MoodEntries7d = len(moods)
	if len(moods) > 0 {
		avg := summarizeMoods(moods).Average
		out.MoodAverage7d = &avg
	}

	stress, err := h.stores.stress.list(ctx, userID, listQuery{conds: week})
	if err != nil {
		return out, err
	}
	if len(stress) > 0 {
		avg := summarizeStress(stress).Average
		out.StressAverage7d = &avg
	}

	sleep, err := h.stores.sleep.list(ctx, userID, listQuery{
		limit: 1,
		order: []orderKey{{column: "sleep_date", desc: true}, {column: "id", desc: true}},
	})
	if err != nil {
		return out, err
	}
	if len(sleep) > 0 {
		out.LastSleep = &sleep[0]
	}

	tasks, err := h.stores.tasks.list(ctx, userID, listQuery{
		conds: []condition{{column: "status", op: opEq, value: "pending"}},
	})
	if err != nil {
		return out, err
	}
	out.PendingTasks = len(tasks)

	goals, err := h.stores.goals.list(ctx, userID, listQuery{
		conds: []condition{{column: "status", op: opEq, value: "active"}},
	})
	if err != nil {
		return out, err
	}
	out.ActiveGoals = len(goals)

	activities, err := h.stores.activities.list(ctx, userID, listQuery{
		conds: []condition{
			{column: "completed", op: opEq, value: true},
			{column: "completion_date", op: opEq, value: today(now)},
		},
	})
	if err != nil {
		return out, err
	}
	out.ActivitiesToday = len(activities)

	return out, nil
}
