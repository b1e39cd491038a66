package main

import "time"

// Tasks list by priority (high first), then soonest due date with undated
// tasks last, then newest.
var taskTable = tableDef{
	name: "tasks",
	order: []orderKey{
		{column: "priority", desc: true, rank: taskPriorities},
		{column: "due_date"},
		{column: "created_at", desc: true},
		{column: "id", desc: true},
	},
	tracksUpdatedAt: true,
}

var goalTable = tableDef{name: "goals", order: newestFirst, tracksUpdatedAt: true}

func (h *Handler) taskResource() *resource[task, taskPayload] {
	return newResource(h, h.stores.tasks, resource[task, taskPayload]{
		path:         "/tasks",
		noun:         "task",
		notFoundCode: "TASK_NOT_FOUND",
		defaultLimit: 50,
		maxLimit:     100,
		filters: []filterParam{
			enumFilter("status", "status", "STATUS", taskStatuses),
			enumFilter("priority", "priority", "PRIORITY", taskPriorities),
		},
		defaults: func(time.Time) columnSet {
			return columnSet{
				{column: "status", value: "pending"},
				{column: "priority", value: "medium"},
			}
		},
	})
}

func (h *Handler) goalResource() *resource[goal, goalPayload] {
	return newResource(h, h.stores.goals, resource[goal, goalPayload]{
		path:         "/goals",
		noun:         "goal",
		notFoundCode: "GOAL_NOT_FOUND",
		defaultLimit: 50,
		maxLimit:     100,
		filters: []filterParam{
			enumFilter("status", "status", "STATUS", goalStatuses),
		},
		defaults: func(time.Time) columnSet {
			return columnSet{{column: "status", value: "active"}}
		},
	})
}
