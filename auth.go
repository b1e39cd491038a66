package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a pre-computed bcrypt hash used when a login username isn't found.
// Running bcrypt against it (instead of returning early) keeps response time
// constant, preventing timing-based username enumeration.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy"), bcrypt.DefaultCost)

// authStore persists users and sessions. Lookups return errNotFound when
// nothing matches.
type authStore interface {
	lookupSession(ctx context.Context, token string) (session, error)
	createSession(ctx context.Context, s session) error
	deleteSession(ctx context.Context, token string) error
	userByUsername(ctx context.Context, username string) (user, error)
	userByID(ctx context.Context, id string) (user, error)
}

/* ─── Handlers ───────────────────────────────────────────────────────── */

// authMiddleware validates the Bearer token and sets user_id on the context.
// Unknown and expired tokens get the same response.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			apiError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid authorization header")
			c.Abort()
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		s, err := h.auth.lookupSession(c.Request.Context(), token)
		if err != nil && !errors.Is(err, errNotFound) {
			respondErr(c, h.log, &serverErr{message: "failed to verify session", err: err})
			c.Abort()
			return
		}
		if err != nil || token == "" || !s.ExpiresAt.After(h.now()) {
			apiError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", s.UserID)
		c.Set("token", token)
		c.Next()
	}
}

// login verifies username/password and opens a new session.
// POST /api/login (public, no auth required).
func (h *Handler) login(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	u, lookupErr := h.auth.userByUsername(c.Request.Context(), strings.TrimSpace(body.Username))
	if lookupErr != nil && !errors.Is(lookupErr, errNotFound) {
		respondErr(c, h.log, &serverErr{message: "failed to look up user", err: lookupErr})
		return
	}

	// Always run bcrypt to keep response time constant regardless of whether the
	// username was found. Prevents timing-based username enumeration.
	hashToCheck := string(dummyHash)
	if lookupErr == nil {
		hashToCheck = u.PasswordHash
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(hashToCheck), []byte(body.Password))

	if lookupErr != nil || compareErr != nil {
		apiError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
		return
	}

	now := h.now()
	s := session{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		ExpiresAt: now.Add(h.sessionTTL),
		CreatedAt: now,
	}
	if err := h.auth.createSession(c.Request.Context(), s); err != nil {
		respondErr(c, h.log, &serverErr{message: "failed to create session", err: err})
		return
	}

	h.log.Info("login", zap.String("user_id", u.ID))
	c.JSON(http.StatusOK, gin.H{"token": s.Token, "userId": u.ID, "expiresAt": s.ExpiresAt})
}

// logout revokes the caller's current session.
func (h *Handler) logout(c *gin.Context) {
	if err := h.auth.deleteSession(c.Request.Context(), c.GetString("token")); err != nil && !errors.Is(err, errNotFound) {
		respondErr(c, h.log, &serverErr{message: "failed to revoke session", err: err})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// me returns the authenticated user's profile.
func (h *Handler) me(c *gin.Context) {
	userID := c.GetString("user_id")
	u, err := h.auth.userByID(c.Request.Context(), userID)
	if errors.Is(err, errNotFound) {
		// Sessions can be issued for ids without a users row (demo tokens).
		c.JSON(http.StatusOK, gin.H{"id": userID})
		return
	}
	if err != nil {
		respondErr(c, h.log, &serverErr{message: "failed to fetch user", err: err})
		return
	}
	c.JSON(http.StatusOK, u)
}

/* ─── Postgres ───────────────────────────────────────────────────────── */

type pgAuthStore struct {
	db  querier
	log *zap.Logger
}

func newPGAuthStore(db querier, log *zap.Logger) *pgAuthStore {
	return &pgAuthStore{db: db, log: log.With(zap.String("table", "sessions"))}
}

func (s *pgAuthStore) lookupSession(ctx context.Context, token string) (session, error) {
	return queryOne[session](ctx, s.db, s.log,
		"SELECT * FROM sessions WHERE token = @token",
		pgx.NamedArgs{"token": token})
}

func (s *pgAuthStore) createSession(ctx context.Context, sess session) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO sessions (token, user_id, expires_at, created_at)
		 VALUES (@token, @userID, @expiresAt, @createdAt)`,
		pgx.NamedArgs{"token": sess.Token, "userID": sess.UserID, "expiresAt": sess.ExpiresAt, "createdAt": sess.CreatedAt})
	return err
}

func (s *pgAuthStore) deleteSession(ctx context.Context, token string) error {
	result, err := s.db.Exec(ctx, "DELETE FROM sessions WHERE token = @token", pgx.NamedArgs{"token": token})
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errNotFound
	}
	return nil
}

func (s *pgAuthStore) userByUsername(ctx context.Context, username string) (user, error) {
	return queryOne[user](ctx, s.db, s.log,
		"SELECT * FROM users WHERE username = @username",
		pgx.NamedArgs{"username": username})
}

func (s *pgAuthStore) userByID(ctx context.Context, id string) (user, error) {
	return queryOne[user](ctx, s.db, s.log,
		"SELECT * FROM users WHERE id = @id",
		pgx.NamedArgs{"id": id})
}

/* ─── Memory ─────────────────────────────────────────────────────────── */

type memAuthStore struct {
	mu       sync.Mutex
	users    map[string]user // by id
	sessions map[string]session
}

func newMemAuthStore() *memAuthStore {
	return &memAuthStore{users: make(map[string]user), sessions: make(map[string]session)}
}

func (s *memAuthStore) addUser(u user) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *memAuthStore) lookupSession(_ context.Context, token string) (session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return session{}, errNotFound
	}
	return sess, nil
}

func (s *memAuthStore) createSession(_ context.Context, sess session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
	return nil
}

func (s *memAuthStore) deleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return errNotFound
	}
	delete(s.sessions, token)
	return nil
}

func (s *memAuthStore) userByUsername(_ context.Context, username string) (user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return user{}, errNotFound
}

func (s *memAuthStore) userByID(_ context.Context, id string) (user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return user{}, errNotFound
	}
	return u, nil
}

// seedDemoSession registers a long-lived session for token so the memory
// backend is usable without a login flow.
func seedDemoSession(s *memAuthStore, token string, now time.Time) {
	s.addUser(user{ID: "demo-user", Username: "demo", CreatedAt: now})
	_ = s.createSession(context.Background(), session{
		Token:     token,
		UserID:    "demo-user",
		ExpiresAt: now.AddDate(1, 0, 0),
		CreatedAt: now,
	})
}
