package main

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"
)

// memStore is the in-memory rowStore used when STORAGE_BACKEND=memory (local
// development and tests). It mirrors pgStore's semantics: owner scoping,
// filters, ORDER BY including ranked columns, NULL ordering and RETURNING.
type memStore[T any] struct {
	mu     sync.Mutex
	def    tableDef
	now    func() time.Time
	fields map[string]int // db column -> struct field index
	rows   []T
	nextID int64
}

func newMemStore[T any](def tableDef, now func() time.Time) *memStore[T] {
	fields := make(map[string]int)
	t := reflect.TypeFor[T]()
	for i := 0; i < t.NumField(); i++ {
		if col := t.Field(i).Tag.Get("db"); col != "" && col != "-" {
			fields[col] = i
		}
	}
	return &memStore[T]{def: def, now: now, fields: fields}
}

func (s *memStore[T]) list(_ context.Context, userID string, q listQuery) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]T, 0)
	for _, row := range s.rows {
		rv := reflect.ValueOf(row)
		if s.column(rv, "user_id") != userID || !s.matches(rv, q.conds) {
			continue
		}
		matched = append(matched, row)
	}

	order := q.ordering(s.def)
	slices.SortStableFunc(matched, func(a, b T) int {
		av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
		for _, k := range order {
			c := compareValues(rankValue(k, s.column(av, k.column)), rankValue(k, s.column(bv, k.column)))
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})

	if q.offset >= len(matched) {
		return []T{}, nil
	}
	matched = matched[q.offset:]
	if q.limit > 0 && q.limit < len(matched) {
		matched = matched[:q.limit]
	}
	return matched, nil
}

func (s *memStore[T]) get(_ context.Context, userID string, id int64) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(userID, id)
	if i < 0 {
		var zero T
		return zero, errNotFound
	}
	return s.rows[i], nil
}

func (s *memStore[T]) insert(_ context.Context, userID string, set columnSet) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row T
	rv := reflect.ValueOf(&row).Elem()
	now := s.now()
	base := columnSet{
		{column: "id", value: s.nextID + 1},
		{column: "user_id", value: userID},
		{column: "created_at", value: now},
	}
	if _, ok := s.fields["updated_at"]; ok {
		base = append(base, columnValue{column: "updated_at", value: now})
	}
	for _, cv := range append(base, set...) {
		if err := s.assign(rv, cv); err != nil {
			var zero T
			return zero, err
		}
	}
	s.nextID++
	s.rows = append(s.rows, row)
	return row, nil
}

func (s *memStore[T]) update(_ context.Context, userID string, id int64, set columnSet) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	i := s.find(userID, id)
	if i < 0 {
		return zero, errNotFound
	}
	row := s.rows[i]
	rv := reflect.ValueOf(&row).Elem()
	if s.def.tracksUpdatedAt {
		set = append(slices.Clone(set), columnValue{column: "updated_at", value: s.now()})
	}
	for _, cv := range set {
		if err := s.assign(rv, cv); err != nil {
			return zero, err
		}
	}
	s.rows[i] = row
	return row, nil
}

func (s *memStore[T]) remove(_ context.Context, userID string, id int64) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(userID, id)
	if i < 0 {
		var zero T
		return zero, errNotFound
	}
	row := s.rows[i]
	s.rows = slices.Delete(s.rows, i, i+1)
	return row, nil
}

func (s *memStore[T]) removeAll(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.rows)
	s.rows = slices.DeleteFunc(s.rows, func(row T) bool {
		return s.column(reflect.ValueOf(row), "user_id") == userID
	})
	return int64(before - len(s.rows)), nil
}

// find returns the index of the row with id owned by userID, or -1.
func (s *memStore[T]) find(userID string, id int64) int {
	for i, row := range s.rows {
		rv := reflect.ValueOf(row)
		if s.column(rv, "id") == id && s.column(rv, "user_id") == userID {
			return i
		}
	}
	return -1
}

func (s *memStore[T]) matches(rv reflect.Value, conds []condition) bool {
	for _, c := range conds {
		switch c.op {
		case opSearch:
			term := strings.ToLower(fmt.Sprint(c.value))
			found := false
			for _, col := range c.columns {
				if v, ok := s.column(rv, col).(string); ok && strings.Contains(strings.ToLower(v), term) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			v := s.column(rv, c.column)
			if v == nil {
				return false
			}
			order := compareValues(v, normalize(reflect.ValueOf(c.value)))
			if (c.op == opEq && order != 0) || (c.op == opGTE && order < 0) || (c.op == opLT && order >= 0) {
				return false
			}
		}
	}
	return true
}

// column reads a field by its db tag, normalized for comparison.
func (s *memStore[T]) column(rv reflect.Value, name string) any {
	i, ok := s.fields[name]
	if !ok {
		return nil
	}
	return normalize(rv.Field(i))
}

func (s *memStore[T]) assign(rv reflect.Value, cv columnValue) error {
	i, ok := s.fields[cv.column]
	if !ok {
		return fmt.Errorf("%s: unknown column %q", s.def.name, cv.column)
	}
	return setValue(rv.Field(i), cv.value)
}

var (
	timeType     = reflect.TypeFor[time.Time]()
	dateOnlyType = reflect.TypeFor[DateOnly]()
)

// setValue stores value into field, allocating pointers for nullable columns
// and wrapping time.Time into DateOnly for date columns.
func setValue(field reflect.Value, value any) error {
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	target := field.Type()
	isPtr := target.Kind() == reflect.Pointer
	if isPtr {
		target = target.Elem()
	}

	v := reflect.ValueOf(value)
	switch {
	case target == dateOnlyType && v.Type() == timeType:
		v = reflect.ValueOf(DateOnly{value.(time.Time)})
	case v.Kind() == target.Kind() && v.Type().ConvertibleTo(target):
		v = v.Convert(target)
	default:
		return fmt.Errorf("cannot assign %T to %s", value, field.Type())
	}

	if isPtr {
		p := reflect.New(target)
		p.Elem().Set(v)
		field.Set(p)
		return nil
	}
	field.Set(v)
	return nil
}

// normalize unwraps pointers and DateOnly and widens integers so values of
// the same column compare with compareValues. Nil pointers become nil.
func normalize(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch x := v.Interface().(type) {
	case DateOnly:
		return x.Time
	case int:
		return int64(x)
	case int32:
		return int64(x)
	default:
		return x
	}
}

func rankValue(k orderKey, v any) any {
	if len(k.rank) == 0 || v == nil {
		return v
	}
	return int64(slices.Index(k.rank, fmt.Sprint(v)) + 1)
}

// compareValues orders normalized values. nil sorts after everything, which
// matches Postgres (NULLS LAST ascending, NULLS FIRST descending).
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y)
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
