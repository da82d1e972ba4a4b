// Package devserver provides an in-memory implementation of the goal API
// for local development and tests. The production server belongs to another
// codebase; the sync core still needs a faithful counterpart that enforces
// the same validation rules and error envelope, so the client's replay and
// reconciliation paths can be exercised end to end.
//
// Routes (mirroring the real API):
//
//	POST   /goals      -> 201 + created record | 4xx + {"error": …}
//	GET    /goals      -> 200 + records for the authenticated principal
//	PATCH  /goals/:id  -> 200 + updated record | 4xx
//	DELETE /goals/:id  -> 200 + {"message": …} | 4xx
//
// The principal is the bearer token (any non-empty value is accepted);
// storage is a mutex-guarded map.
package devserver

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-goal-sync/internal/api"
	"github.com/tbourn/go-goal-sync/internal/domain"
)

// Server is the in-memory goal API.
type Server struct {
	log zerolog.Logger

	mu    sync.Mutex
	goals map[string]api.GoalRecord

	// now is injectable for deterministic validation tests.
	now func() time.Time
}

// New constructs an empty dev server.
func New(log zerolog.Logger) *Server {
	return &Server{
		log:   log.With().Str("component", "devserver").Logger(),
		goals: make(map[string]api.GoalRecord),
		now:   time.Now,
	}
}

// Router builds the gin engine with CORS and request logging attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(s.requestLog())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	r.POST("/goals", s.createGoal)
	r.GET("/goals", s.listGoals)
	r.PATCH("/goals/:id", s.updateGoal)
	r.DELETE("/goals/:id", s.deleteGoal)
	return r
}

// Seed installs a goal record directly, bypassing validation. Test helper.
func (s *Server) Seed(rec api.GoalRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[rec.ID] = rec
}

// requestLog emits one structured line per request.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// principal resolves the calling user from the bearer token.
func principal(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		if tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); tok != "" {
			return tok
		}
	}
	return "demo"
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func (s *Server) createGoal(c *gin.Context) {
	var req api.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.GameMode.Valid() {
		fail(c, http.StatusBadRequest, "invalid game mode")
		return
	}
	if req.TargetRating <= req.StartRating {
		fail(c, http.StatusBadRequest, "target rating must exceed start rating")
		return
	}
	if !req.TargetDate.After(s.now()) {
		fail(c, http.StatusBadRequest, "target date must be in the future")
		return
	}

	now := s.now().UTC()
	rec := api.GoalRecord{
		ID:           uuid.NewString(),
		UserID:       principal(c),
		GameMode:     req.GameMode,
		StartRating:  req.StartRating,
		TargetRating: req.TargetRating,
		TargetDate:   req.TargetDate,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	s.goals[rec.ID] = rec
	s.mu.Unlock()

	c.JSON(http.StatusCreated, rec)
}

func (s *Server) listGoals(c *gin.Context) {
	user := principal(c)

	s.mu.Lock()
	out := make([]api.GoalRecord, 0)
	for _, rec := range s.goals {
		if rec.UserID == user {
			out = append(out, rec)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	c.JSON(http.StatusOK, out)
}

func (s *Server) updateGoal(c *gin.Context) {
	var req api.UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.goals[c.Param("id")]
	if !ok || rec.UserID != principal(c) {
		fail(c, http.StatusNotFound, "goal not found")
		return
	}

	if req.GameMode != nil {
		if !req.GameMode.Valid() {
			fail(c, http.StatusBadRequest, "invalid game mode")
			return
		}
		rec.GameMode = *req.GameMode
	}
	if req.StartRating != nil {
		rec.StartRating = *req.StartRating
	}
	if req.TargetRating != nil {
		rec.TargetRating = *req.TargetRating
	}
	if req.TargetDate != nil {
		rec.TargetDate = *req.TargetDate
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			fail(c, http.StatusBadRequest, "invalid status")
			return
		}
		rec.Status = *req.Status
	}
	if rec.TargetRating <= rec.StartRating {
		fail(c, http.StatusBadRequest, "target rating must exceed start rating")
		return
	}

	rec.UpdatedAt = s.now().UTC()
	s.goals[rec.ID] = rec
	c.JSON(http.StatusOK, rec)
}

func (s *Server) deleteGoal(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.goals[c.Param("id")]
	if !ok || rec.UserID != principal(c) {
		fail(c, http.StatusNotFound, "goal not found")
		return
	}
	delete(s.goals, rec.ID)
	c.JSON(http.StatusOK, gin.H{"message": "goal deleted"})
}
