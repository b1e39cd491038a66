package main

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

type filterKind int

const (
	filterEnum filterKind = iota
	filterBool
	filterDateRange // startDate/endDate, inclusive calendar days
	filterSearch
)

// filterParam declares one query-string filter of a list endpoint.
type filterParam struct {
	kind    filterKind
	param   string   // query key; unused for filterDateRange
	column  string   // compared column
	columns []string // searched columns (filterSearch)
	values  []string // allowed values (filterEnum)
	code    string   // INVALID_<code> on a bad value
}

func enumFilter(param, column, code string, values []string) filterParam {
	return filterParam{kind: filterEnum, param: param, column: column, code: code, values: values}
}

func boolFilter(param, column string) filterParam {
	return filterParam{kind: filterBool, param: param, column: column, code: strings.ToUpper(param)}
}

func dateRangeFilter(column string) filterParam {
	return filterParam{kind: filterDateRange, column: column}
}

func searchFilter(columns ...string) filterParam {
	return filterParam{kind: filterSearch, param: "search", columns: columns}
}

// parseFilters turns the request's query string into store conditions.
// Empty values are ignored. Parsing is fail-fast like body validation.
func parseFilters(c *gin.Context, filters []filterParam) ([]condition, error) {
	var conds []condition
	for _, f := range filters {
		switch f.kind {
		case filterEnum:
			v := strings.TrimSpace(c.Query(f.param))
			if v == "" {
				continue
			}
			if !slices.Contains(f.values, v) {
				return nil, badRequest("INVALID_"+f.code, "%s must be one of: %s", f.param, strings.Join(f.values, ", "))
			}
			conds = append(conds, condition{column: f.column, op: opEq, value: v})

		case filterBool:
			v := strings.TrimSpace(c.Query(f.param))
			if v == "" {
				continue
			}
			if v != "true" && v != "false" {
				return nil, badRequest("INVALID_"+f.code, "%s must be true or false", f.param)
			}
			conds = append(conds, condition{column: f.column, op: opEq, value: v == "true"})

		case filterSearch:
			v := strings.TrimSpace(c.Query(f.param))
			if v == "" {
				continue
			}
			conds = append(conds, condition{columns: f.columns, op: opSearch, value: v})

		case filterDateRange:
			rangeConds, err := parseDateRange(c, f.column)
			if err != nil {
				return nil, err
			}
			conds = append(conds, rangeConds...)
		}
	}
	return conds, nil
}

// parseDateRange filters column to [startDate, endDate]. endDate covers the
// whole day, so it becomes an exclusive bound on the following midnight.
func parseDateRange(c *gin.Context, column string) ([]condition, error) {
	rawStart := strings.TrimSpace(c.Query("startDate"))
	rawEnd := strings.TrimSpace(c.Query("endDate"))

	var conds []condition
	if rawStart != "" {
		t, err := checkDay("startDate", rawStart)
		if err != nil {
			return nil, err
		}
		conds = append(conds, condition{column: column, op: opGTE, value: t})
	}
	if rawEnd != "" {
		t, err := checkDay("endDate", rawEnd)
		if err != nil {
			return nil, err
		}
		conds = append(conds, condition{column: column, op: opLT, value: t.AddDate(0, 0, 1)})
	}
	if rawStart != "" && rawEnd != "" && rawStart > rawEnd {
		return nil, badRequest("INVALID_DATE_RANGE", "startDate must not be after endDate")
	}
	return conds, nil
}
