package main

import (
	"context"
	"errors"
	"time"
)

// errNotFound is returned by stores when no row matches both the id and the
// owner. Handlers turn it into a 404 without revealing which half failed.
var errNotFound = errors.New("record not found")

// rowStore is the persistence contract every resource is built on. Every
// method is scoped to userID; implementations must apply the owner condition
// inside the same statement as the read or write.
type rowStore[T any] interface {
	list(ctx context.Context, userID string, q listQuery) ([]T, error)
	get(ctx context.Context, userID string, id int64) (T, error)
	insert(ctx context.Context, userID string, set columnSet) (T, error)
	// update applies set and bumps updated_at (when tracked) atomically.
	update(ctx context.Context, userID string, id int64, set columnSet) (T, error)
	remove(ctx context.Context, userID string, id int64) (T, error)
	removeAll(ctx context.Context, userID string) (int64, error)
}

type condOp int

const (
	opEq condOp = iota
	opGTE
	opLT
	opSearch // case-insensitive substring match over columns
)

type condition struct {
	column  string
	columns []string
	op      condOp
	value   any
}

// listQuery is a filtered, paginated read. A zero limit means no limit and is
// only used internally (stats, dashboard); request limits are always clamped.
type listQuery struct {
	conds  []condition
	limit  int
	offset int
	order  []orderKey // overrides the table's default ordering when set
}

func (q listQuery) ordering(def tableDef) []orderKey {
	if q.order != nil {
		return q.order
	}
	return def.order
}

// orderKey is one ORDER BY term. When rank is set the column is ordered by the
// position of its value in rank instead of its natural order.
type orderKey struct {
	column string
	desc   bool
	rank   []string
}

// tableDef describes how one entity is stored.
type tableDef struct {
	name            string
	order           []orderKey
	tracksUpdatedAt bool
}

var newestFirst = []orderKey{{column: "created_at", desc: true}, {column: "id", desc: true}}

/* ─── Store set ──────────────────────────────────────────────────────── */

// stores bundles one rowStore per entity. Built by newPostgresStores or
// newMemoryStores depending on STORAGE_BACKEND.
type stores struct {
	journal    rowStore[journalEntry]
	moods      rowStore[moodEntry]
	tasks      rowStore[task]
	goals      rowStore[goal]
	chat       rowStore[chatMessage]
	meditation rowStore[meditationSession]
	breathing  rowStore[breathingSession]
	sleep      rowStore[sleepEntry]
	stress     rowStore[stressEntry]
	activities rowStore[activityCompletion]
}

func newMemoryStores(now func() time.Time) stores {
	return stores{
		journal:    newMemStore[journalEntry](journalTable, now),
		moods:      newMemStore[moodEntry](moodTable, now),
		tasks:      newMemStore[task](taskTable, now),
		goals:      newMemStore[goal](goalTable, now),
		chat:       newMemStore[chatMessage](chatTable, now),
		meditation: newMemStore[meditationSession](meditationTable, now),
		breathing:  newMemStore[breathingSession](breathingTable, now),
		sleep:      newMemStore[sleepEntry](sleepTable, now),
		stress:     newMemStore[stressEntry](stressTable, now),
		activities: newMemStore[activityCompletion](activityTable, now),
	}
}
