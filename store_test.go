package main

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

/* ─── SQL builders ───────────────────────────────────────────────────── */

func TestListSQL(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		def      tableDef
		q        listQuery
		wantSQL  string
		wantArgs pgx.NamedArgs
	}{
		{
			name:     "owner scope only",
			def:      stressTable,
			q:        listQuery{limit: 50},
			wantSQL:  "SELECT * FROM stress_entries WHERE user_id = @userID ORDER BY created_at DESC, id DESC LIMIT @limit",
			wantArgs: pgx.NamedArgs{"userID": "u1", "limit": 50},
		},
		{
			name: "ranked task order with filters",
			def:  taskTable,
			q: listQuery{
				conds:  []condition{{column: "status", op: opEq, value: "pending"}},
				limit:  10,
				offset: 20,
			},
			wantSQL: "SELECT * FROM tasks WHERE user_id = @userID AND status = @f0" +
				" ORDER BY CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 END DESC," +
				" due_date ASC, created_at DESC, id DESC LIMIT @limit OFFSET @offset",
			wantArgs: pgx.NamedArgs{"userID": "u1", "f0": "pending", "limit": 10, "offset": 20},
		},
		{
			name: "search and date range",
			def:  journalTable,
			q: listQuery{conds: []condition{
				{columns: []string{"title", "content"}, op: opSearch, value: "calm"},
				{column: "created_at", op: opGTE, value: start},
				{column: "created_at", op: opLT, value: start.AddDate(0, 0, 1)},
			}},
			wantSQL: "SELECT * FROM journal_entries WHERE user_id = @userID" +
				" AND (strpos(lower(title), lower(@f0)) > 0 OR strpos(lower(content), lower(@f0)) > 0)" +
				" AND created_at >= @f1 AND created_at < @f2 ORDER BY created_at DESC, id DESC",
			wantArgs: pgx.NamedArgs{"userID": "u1", "f0": "calm", "f1": start, "f2": start.AddDate(0, 0, 1)},
		},
		{
			name:     "chat ascending",
			def:      chatTable,
			q:        listQuery{limit: 200},
			wantSQL:  "SELECT * FROM chat_messages WHERE user_id = @userID ORDER BY created_at ASC, id ASC LIMIT @limit",
			wantArgs: pgx.NamedArgs{"userID": "u1", "limit": 200},
		},
		{
			name:     "order override",
			def:      chatTable,
			q:        listQuery{limit: 20, order: newestFirst},
			wantSQL:  "SELECT * FROM chat_messages WHERE user_id = @userID ORDER BY created_at DESC, id DESC LIMIT @limit",
			wantArgs: pgx.NamedArgs{"userID": "u1", "limit": 20},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newPGStore[task](nil, zap.NewNop(), tc.def)
			sql, args := s.listSQL("u1", tc.q)
			assert.Equal(t, tc.wantSQL, sql)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}

func TestInsertSQL(t *testing.T) {
	s := newPGStore[chatMessage](nil, zap.NewNop(), chatTable)
	sql, args := s.insertSQL("u1", columnSet{{column: "message", value: "hi"}, {column: "role", value: "user"}})
	assert.Equal(t, "INSERT INTO chat_messages (user_id, message, role) VALUES (@userID, @message, @role) RETURNING *", sql)
	assert.Equal(t, pgx.NamedArgs{"userID": "u1", "message": "hi", "role": "user"}, args)
}

func TestUpdateSQL(t *testing.T) {
	set := columnSet{{column: "title", value: "New"}}

	tracked := newPGStore[journalEntry](nil, zap.NewNop(), journalTable)
	sql, args := tracked.updateSQL("u1", 7, set)
	assert.Equal(t, "UPDATE journal_entries SET title = @title, updated_at = now() WHERE id = @id AND user_id = @userID RETURNING *", sql)
	assert.Equal(t, pgx.NamedArgs{"id": int64(7), "userID": "u1", "title": "New"}, args)

	untracked := newPGStore[stressEntry](nil, zap.NewNop(), stressTable)
	sql, _ = untracked.updateSQL("u1", 7, columnSet{{column: "notes", value: "x"}})
	assert.Equal(t, "UPDATE stress_entries SET notes = @notes WHERE id = @id AND user_id = @userID RETURNING *", sql)
}

/* ─── Memory store ───────────────────────────────────────────────────── */

func TestMemStore_OwnerScoping(t *testing.T) {
	ctx := context.Background()
	s := newMemStore[goal](goalTable, func() time.Time { return testNow })

	g, err := s.insert(ctx, "alice", columnSet{{column: "title", value: "a"}, {column: "status", value: "active"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), g.ID)
	assert.Equal(t, "alice", g.UserID)

	_, err = s.get(ctx, "bob", g.ID)
	assert.ErrorIs(t, err, errNotFound)
	_, err = s.update(ctx, "bob", g.ID, columnSet{{column: "title", value: "stolen"}})
	assert.ErrorIs(t, err, errNotFound)
	_, err = s.remove(ctx, "bob", g.ID)
	assert.ErrorIs(t, err, errNotFound)
	n, err := s.removeAll(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := s.get(ctx, "alice", g.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title)
}

func TestMemStore_NullableAndDateColumns(t *testing.T) {
	ctx := context.Background()
	s := newMemStore[goal](goalTable, func() time.Time { return testNow })

	target := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	g, err := s.insert(ctx, "alice", columnSet{
		{column: "title", value: "a"},
		{column: "status", value: "active"},
		{column: "description", value: "desc"},
		{column: "target_date", value: target},
	})
	require.NoError(t, err)
	require.NotNil(t, g.Description)
	assert.Equal(t, "desc", *g.Description)
	require.NotNil(t, g.TargetDate)
	assert.True(t, g.TargetDate.Equal(target))

	_, err = s.insert(ctx, "alice", columnSet{{column: "no_such_column", value: 1}})
	assert.ErrorContains(t, err, "unknown column")
}

func TestMemStore_UpdateBumpsUpdatedAtOnlyWhenTracked(t *testing.T) {
	ctx := context.Background()
	now := testNow
	clock := func() time.Time { return now }

	journal := newMemStore[journalEntry](journalTable, clock)
	e, err := journal.insert(ctx, "alice", columnSet{{column: "title", value: "a"}, {column: "content", value: "b"}})
	require.NoError(t, err)

	now = now.Add(time.Hour)
	set := columnSet{{column: "title", value: "b"}}
	e, err = journal.update(ctx, "alice", e.ID, set)
	require.NoError(t, err)
	assert.True(t, e.UpdatedAt.Equal(now))
	assert.True(t, e.CreatedAt.Equal(testNow))
	assert.Len(t, set, 1, "caller's set must not be modified")
}

func TestMemStore_SearchIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := newMemStore[journalEntry](journalTable, func() time.Time { return testNow })
	for _, title := range []string{"Morning Calm", "busy day", "CALMER evening"} {
		_, err := s.insert(ctx, "alice", columnSet{{column: "title", value: title}, {column: "content", value: "-"}})
		require.NoError(t, err)
	}

	rows, err := s.list(ctx, "alice", listQuery{conds: []condition{
		{columns: []string{"title", "content"}, op: opSearch, value: "calm"},
	}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "CALMER evening", rows[0].Title)
	assert.Equal(t, "Morning Calm", rows[1].Title)
}

func TestMemStore_SearchMatchesWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	s := newMemStore[journalEntry](journalTable, func() time.Time { return testNow })
	for _, title := range []string{"100% rested", "1000 steps", "snake_case notes", "snakes"} {
		_, err := s.insert(ctx, "alice", columnSet{{column: "title", value: title}, {column: "content", value: "-"}})
		require.NoError(t, err)
	}

	cases := map[string][]string{
		"100%":   {"100% rested"},
		"e_c":    {"snake_case notes"},
		"%":      {"100% rested"},
		"snake_": {"snake_case notes"},
	}
	for term, want := range cases {
		rows, err := s.list(ctx, "alice", listQuery{conds: []condition{
			{columns: []string{"title", "content"}, op: opSearch, value: term},
		}})
		require.NoError(t, err)
		var got []string
		for _, r := range rows {
			got = append(got, r.Title)
		}
		assert.Equal(t, want, got, term)
	}
}

func TestMemStore_NullDueDatesSortLast(t *testing.T) {
	ctx := context.Background()
	s := newMemStore[task](taskTable, func() time.Time { return testNow })
	due := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	insert := func(title, priority string, dueDate any) {
		set := columnSet{{column: "title", value: title}, {column: "status", value: "pending"}, {column: "priority", value: priority}}
		if dueDate != nil {
			set = append(set, columnValue{column: "due_date", value: dueDate})
		}
		_, err := s.insert(ctx, "alice", set)
		require.NoError(t, err)
	}
	insert("undated", "medium", nil)
	insert("later", "medium", due.AddDate(0, 1, 0))
	insert("sooner", "medium", due)

	rows, err := s.list(ctx, "alice", listQuery{})
	require.NoError(t, err)
	var titles []string
	for _, r := range rows {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"sooner", "later", "undated"}, titles)
}

func TestCompareValues(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Negative(t, compareValues(int64(1), int64(2)))
	assert.Positive(t, compareValues("b", "a"))
	assert.Zero(t, compareValues(early, early))
	assert.Negative(t, compareValues(false, true))
	assert.Positive(t, compareValues(nil, int64(1)), "nil sorts last")
	assert.Negative(t, compareValues(int64(1), nil))
}
