package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler holds shared dependencies for all route handlers.
type Handler struct {
	auth       authStore
	stores     stores
	responder  responder
	log        *zap.Logger
	now        func() time.Time // overridable for tests
	sessionTTL time.Duration
}

/* ─── Errors ─────────────────────────────────────────────────────────── */

// serverErr is an unexpected failure. The response is a 500 whose message
// has the underlying error appended.
type serverErr struct {
	message string
	err     error
}

func (e *serverErr) Error() string { return e.message + ": " + e.err.Error() }
func (e *serverErr) Unwrap() error { return e.err }

// apiError returns a consistent JSON error response:
// {"error": "message", "code": "CODE"}. code is omitted for 500s.
func apiError(c *gin.Context, status int, code, message string) {
	body := gin.H{"error": message}
	if code != "" {
		body["code"] = code
	}
	c.JSON(status, body)
}

// respondErr writes err as a response. *apiErr values keep their status and
// code; anything else is logged and becomes a 500.
func respondErr(c *gin.Context, log *zap.Logger, err error) {
	var ae *apiErr
	if errors.As(err, &ae) {
		apiError(c, ae.status, ae.code, ae.message)
		return
	}

	log.Error("request failed",
		zap.String("request_id", c.GetString("request_id")),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	var se *serverErr
	if !errors.As(err, &se) {
		se = &serverErr{message: "internal server error", err: err}
	}
	apiError(c, http.StatusInternalServerError, "", se.Error())
}

/* ─── Server setup ────────────────────────────────────────────────────── */

// newRouter builds the gin engine with middleware and all routes.
func (h *Handler) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware(), accessLog(h.log))
	_ = router.SetTrustedProxies(nil)
	h.registerRoutes(router)
	return router
}

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	// Public routes
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.POST("/api/login", h.login)

	// Authenticated routes
	api := router.Group("/api", h.authMiddleware())
	api.POST("/logout", h.logout)
	api.GET("/me", h.me)
	api.GET("/dashboard", h.dashboard)
	api.POST("/chat", h.converse)

	h.journalResource().register(api)
	h.moodResource().register(api)
	h.taskResource().register(api)
	h.goalResource().register(api)
	h.chatResource().register(api)
	h.meditationResource().register(api)
	h.breathingResource().register(api)
	h.sleepResource().register(api)
	h.stressResource().register(api)
	h.activityResource().register(api)
}
