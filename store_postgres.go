package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// querier is the subset of *pgxpool.Pool the stores use.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

/* ─── Database helpers ────────────────────────────────────────────────── */

// queryOne runs a query and scans the first row into T using RowToStructByName.
// Logs query and scan errors for debugging (e.g. struct/column mismatches).
// pgx.ErrNoRows is translated to errNotFound and not logged.
func queryOne[T any](ctx context.Context, db querier, log *zap.Logger, sql string, args pgx.NamedArgs) (T, error) {
	rows, err := db.Query(ctx, sql, args)
	if err != nil {
		log.Error("query failed", zap.String("op", "queryOne"), zap.Error(err))
		var zero T
		return zero, err
	}
	result, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if errors.Is(err, pgx.ErrNoRows) {
		return result, errNotFound
	}
	if err != nil {
		log.Error("scan failed", zap.String("op", "queryOne"), zap.Error(err))
	}
	return result, err
}

// queryMany runs a query and scans all rows into []T using RowToStructByName.
func queryMany[T any](ctx context.Context, db querier, log *zap.Logger, sql string, args pgx.NamedArgs) ([]T, error) {
	rows, err := db.Query(ctx, sql, args)
	if err != nil {
		log.Error("query failed", zap.String("op", "queryMany"), zap.Error(err))
		return nil, err
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		log.Error("scan failed", zap.String("op", "queryMany"), zap.Error(err))
	}
	return results, err
}

// newDBPool creates a connection pool. We use a pool (not a single conn) because
// Neon closes idle connections after ~5 minutes.
func newDBPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse DB URL: %w", err)
	}
	// Use simple query protocol to avoid "cached plan must not change result type"
	// errors from Neon's server-side prepared statement cache after schema changes.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

/* ─── pgStore ────────────────────────────────────────────────────────── */

// pgStore implements rowStore for one table. Column and table names come from
// tableDef and payload struct tags, never from the request.
type pgStore[T any] struct {
	db  querier
	log *zap.Logger
	def tableDef
}

func newPGStore[T any](db querier, log *zap.Logger, def tableDef) *pgStore[T] {
	return &pgStore[T]{db: db, log: log.With(zap.String("table", def.name)), def: def}
}

func newPostgresStores(db querier, log *zap.Logger) stores {
	return stores{
		journal:    newPGStore[journalEntry](db, log, journalTable),
		moods:      newPGStore[moodEntry](db, log, moodTable),
		tasks:      newPGStore[task](db, log, taskTable),
		goals:      newPGStore[goal](db, log, goalTable),
		chat:       newPGStore[chatMessage](db, log, chatTable),
		meditation: newPGStore[meditationSession](db, log, meditationTable),
		breathing:  newPGStore[breathingSession](db, log, breathingTable),
		sleep:      newPGStore[sleepEntry](db, log, sleepTable),
		stress:     newPGStore[stressEntry](db, log, stressTable),
		activities: newPGStore[activityCompletion](db, log, activityTable),
	}
}

func (s *pgStore[T]) list(ctx context.Context, userID string, q listQuery) ([]T, error) {
	sql, args := s.listSQL(userID, q)
	rows, err := queryMany[T](ctx, s.db, s.log, sql, args)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.def.name, err)
	}
	return rows, nil
}

func (s *pgStore[T]) get(ctx context.Context, userID string, id int64) (T, error) {
	return s.one(ctx, "get",
		"SELECT * FROM "+s.def.name+" WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": id, "userID": userID})
}

func (s *pgStore[T]) insert(ctx context.Context, userID string, set columnSet) (T, error) {
	sql, args := s.insertSQL(userID, set)
	return s.one(ctx, "insert into", sql, args)
}

func (s *pgStore[T]) update(ctx context.Context, userID string, id int64, set columnSet) (T, error) {
	sql, args := s.updateSQL(userID, id, set)
	return s.one(ctx, "update", sql, args)
}

func (s *pgStore[T]) remove(ctx context.Context, userID string, id int64) (T, error) {
	return s.one(ctx, "delete from",
		"DELETE FROM "+s.def.name+" WHERE id = @id AND user_id = @userID RETURNING *",
		pgx.NamedArgs{"id": id, "userID": userID})
}

func (s *pgStore[T]) removeAll(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.Exec(ctx,
		"DELETE FROM "+s.def.name+" WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		s.log.Error("bulk delete failed", zap.Error(err))
		return 0, fmt.Errorf("delete from %s: %w", s.def.name, err)
	}
	return result.RowsAffected(), nil
}

func (s *pgStore[T]) one(ctx context.Context, op, sql string, args pgx.NamedArgs) (T, error) {
	row, err := queryOne[T](ctx, s.db, s.log, sql, args)
	if err != nil && !errors.Is(err, errNotFound) {
		return row, fmt.Errorf("%s %s: %w", op, s.def.name, err)
	}
	return row, err
}

/* ─── SQL builders ───────────────────────────────────────────────────── */

func (s *pgStore[T]) listSQL(userID string, q listQuery) (string, pgx.NamedArgs) {
	var b strings.Builder
	args := pgx.NamedArgs{"userID": userID}

	b.WriteString("SELECT * FROM " + s.def.name + " WHERE user_id = @userID")
	for i, c := range q.conds {
		name := "f" + strconv.Itoa(i)
		args[name] = c.value
		switch c.op {
		case opEq:
			b.WriteString(" AND " + c.column + " = @" + name)
		case opGTE:
			b.WriteString(" AND " + c.column + " >= @" + name)
		case opLT:
			b.WriteString(" AND " + c.column + " < @" + name)
		case opSearch:
			parts := make([]string, len(c.columns))
			for j, col := range c.columns {
				parts[j] = "strpos(lower(" + col + "), lower(@" + name + ")) > 0"
			}
			b.WriteString(" AND (" + strings.Join(parts, " OR ") + ")")
		}
	}
	b.WriteString(" ORDER BY " + orderClause(q.ordering(s.def)))
	if q.limit > 0 {
		b.WriteString(" LIMIT @limit")
		args["limit"] = q.limit
	}
	if q.offset > 0 {
		b.WriteString(" OFFSET @offset")
		args["offset"] = q.offset
	}
	return b.String(), args
}

func (s *pgStore[T]) insertSQL(userID string, set columnSet) (string, pgx.NamedArgs) {
	cols := []string{"user_id"}
	vals := []string{"@userID"}
	args := pgx.NamedArgs{"userID": userID}
	for _, cv := range set {
		cols = append(cols, cv.column)
		vals = append(vals, "@"+cv.column)
		args[cv.column] = cv.value
	}
	sql := "INSERT INTO " + s.def.name + " (" + strings.Join(cols, ", ") + ")" +
		" VALUES (" + strings.Join(vals, ", ") + ") RETURNING *"
	return sql, args
}

// updateSQL builds the SET clause from the columns the client sent, the same
// way patchUserSettings does. Ownership lives in the WHERE clause so the
// existence check and the write are a single statement.
func (s *pgStore[T]) updateSQL(userID string, id int64, set columnSet) (string, pgx.NamedArgs) {
	setClauses := make([]string, 0, len(set)+1)
	args := pgx.NamedArgs{"id": id, "userID": userID}
	for _, cv := range set {
		setClauses = append(setClauses, cv.column+" = @"+cv.column)
		args[cv.column] = cv.value
	}
	if s.def.tracksUpdatedAt {
		setClauses = append(setClauses, "updated_at = now()")
	}
	sql := "UPDATE " + s.def.name + " SET " + strings.Join(setClauses, ", ") +
		" WHERE id = @id AND user_id = @userID RETURNING *"
	return sql, args
}

func orderClause(keys []orderKey) string {
	terms := make([]string, len(keys))
	for i, k := range keys {
		expr := k.column
		if len(k.rank) > 0 {
			var b strings.Builder
			b.WriteString("CASE " + k.column)
			for pos, v := range k.rank {
				b.WriteString(" WHEN '" + v + "' THEN " + strconv.Itoa(pos+1))
			}
			b.WriteString(" END")
			expr = b.String()
		}
		if k.desc {
			expr += " DESC"
		} else {
			expr += " ASC"
		}
		terms[i] = expr
	}
	return strings.Join(terms, ", ")
}
