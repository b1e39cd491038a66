package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// resource is the authenticated CRUD contract shared by every entity. T is the
// row type, P the request payload type (a struct of pointer fields, see
// models.go). One instance serves GET/POST/PUT/DELETE on a single path; the
// auth middleware has already put the caller's user_id on the context.
type resource[T any, P any] struct {
	path         string
	noun         string // human name used in messages, e.g. "journal entry"
	notFoundCode string
	defaultLimit int
	maxLimit     int
	filters      []filterParam
	// defaults fills columns the client omitted on create.
	defaults func(now time.Time) columnSet
	// summarize, when set, answers GET ?stats=true over the filtered rows.
	summarize func(rows []T) any
	// bulkDelete enables DELETE ?all=true.
	bulkDelete bool

	store rowStore[T]
	log   *zap.Logger
	now   func() time.Time
}

// newResource binds an entity declaration to its store and the handler's
// shared logger and clock.
func newResource[T, P any](h *Handler, store rowStore[T], r resource[T, P]) *resource[T, P] {
	r.store = store
	r.log = h.log
	r.now = h.now
	return &r
}

func (r *resource[T, P]) register(api *gin.RouterGroup) {
	api.GET(r.path, r.read)
	api.POST(r.path, r.create)
	api.PUT(r.path, r.update)
	api.DELETE(r.path, r.remove)
}

// read handles GET: by id when ?id= is present, stats when ?stats=true is
// supported, otherwise a filtered, paginated list.
func (r *resource[T, P]) read(c *gin.Context) {
	userID := c.GetString("user_id")

	if _, ok := c.GetQuery("id"); ok {
		id, err := parseID(c)
		if err != nil {
			r.fail(c, err)
			return
		}
		row, err := r.store.get(c.Request.Context(), userID, id)
		if err != nil {
			r.fail(c, r.storeErr("fetch", err))
			return
		}
		c.JSON(http.StatusOK, row)
		return
	}

	conds, err := parseFilters(c, r.filters)
	if err != nil {
		r.fail(c, err)
		return
	}

	if r.summarize != nil && c.Query("stats") == "true" {
		rows, err := r.store.list(c.Request.Context(), userID, listQuery{conds: conds})
		if err != nil {
			r.fail(c, r.storeErr("fetch", err))
			return
		}
		c.JSON(http.StatusOK, r.summarize(rows))
		return
	}

	q := listQuery{
		conds:  conds,
		limit:  clampLimit(c.Query("limit"), r.defaultLimit, r.maxLimit),
		offset: parseOffset(c.Query("offset")),
	}
	rows, err := r.store.list(c.Request.Context(), userID, q)
	if err != nil {
		r.fail(c, r.storeErr("fetch", err))
		return
	}
	// Ensure empty array (not null) in JSON
	if rows == nil {
		rows = []T{}
	}
	c.JSON(http.StatusOK, rows)
}

// create handles POST. Ownership comes only from the session.
func (r *resource[T, P]) create(c *gin.Context) {
	userID := c.GetString("user_id")

	var body P
	if _, err := r.decode(c, &body, true); err != nil {
		r.fail(c, err)
		return
	}

	set := payloadColumns(&body)
	if r.defaults != nil {
		for _, cv := range r.defaults(r.now()) {
			if !set.has(cv.column) {
				set = append(set, cv)
			}
		}
	}

	row, err := r.store.insert(c.Request.Context(), userID, set)
	if err != nil {
		r.fail(c, r.storeErr("create", err))
		return
	}
	c.JSON(http.StatusCreated, row)
}

// update handles PUT ?id=. Only fields present in the body are written, and
// an explicit null clears a nullable column. An empty update returns the
// stored row untouched.
func (r *resource[T, P]) update(c *gin.Context) {
	userID := c.GetString("user_id")

	id, err := parseID(c)
	if err != nil {
		r.fail(c, err)
		return
	}

	var body P
	raw, err := r.decode(c, &body, false)
	if err != nil {
		r.fail(c, err)
		return
	}

	var row T
	set := append(payloadColumns(&body), clearedColumns(raw, &body)...)
	if len(set) == 0 {
		row, err = r.store.get(c.Request.Context(), userID, id)
	} else {
		row, err = r.store.update(c.Request.Context(), userID, id, set)
	}
	if err != nil {
		r.fail(c, r.storeErr("update", err))
		return
	}
	c.JSON(http.StatusOK, row)
}

// remove handles DELETE ?id=, and DELETE ?all=true where bulk delete is enabled.
func (r *resource[T, P]) remove(c *gin.Context) {
	userID := c.GetString("user_id")

	if r.bulkDelete && c.Query("all") == "true" {
		n, err := r.store.removeAll(c.Request.Context(), userID)
		if err != nil {
			r.fail(c, r.storeErr("delete", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "All " + r.noun + "s deleted", "count": n})
		return
	}

	id, err := parseID(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	row, err := r.store.remove(c.Request.Context(), userID, id)
	if err != nil {
		r.fail(c, r.storeErr("delete", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": capitalize(r.noun) + " deleted", "deleted": row})
}

func (r *resource[T, P]) decode(c *gin.Context, body *P, create bool) ([]byte, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	return raw, decodePayload(raw, body, create)
}

// storeErr maps errNotFound to the entity's 404 and wraps everything else.
func (r *resource[T, P]) storeErr(op string, err error) error {
	if errors.Is(err, errNotFound) {
		return &apiErr{status: http.StatusNotFound, code: r.notFoundCode, message: r.noun + " not found"}
	}
	return &serverErr{message: "failed to " + op + " " + r.noun, err: err}
}

func (r *resource[T, P]) fail(c *gin.Context, err error) {
	respondErr(c, r.log, err)
}

/* ─── Query parsing ──────────────────────────────────────────────────── */

func parseID(c *gin.Context) (int64, error) {
	raw := strings.TrimSpace(c.Query("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errInvalidID()
	}
	return id, nil
}

// clampLimit applies the entity default for missing or unusable values and
// caps the result at max regardless of what was requested.
func clampLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-") {
		return max
	}
	if err != nil || n < 1 {
		n = def
	}
	if n > max {
		n = max
	}
	return n
}

func parseOffset(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
