// Package devapi is an in-memory implementation of the portfolio backend's
// quiz endpoints, used for local runs and HTTP tests.
package devapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/portfolio-quiz/internal/utils"
	"github.com/SAP-F-2025/portfolio-quiz/internal/validator"
	"github.com/gin-gonic/gin"
	"k8s.io/utils/clock"
)

const (
	studentIDKey       = "student_id"
	studentKey         = "student"
	defaultStudentID   = "student-1"
	sessionExpiredText = "Session expired"
)

type Server struct {
	BaseHandler
	store     *store
	validator *validator.Validator
	clock     clock.PassiveClock

	mu             sync.Mutex
	token          string
	expired        bool
	sessionTTL     time.Duration
	sessionStarted time.Time
}

type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

func WithClock(c clock.PassiveClock) Option {
	return func(s *Server) { s.clock = c }
}

// WithSessionTTL makes /auth/session report the time left in a session of
// the given length, counted from server construction.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) { s.sessionTTL = ttl }
}

// WithStringDocuments returns quiz documents JSON-encoded inside a string.
func WithStringDocuments() Option {
	return func(s *Server) { s.store.stringDocuments = true }
}

func New(logger utils.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}
	s := &Server{
		BaseHandler: NewBaseHandler(logger.With("component", "DevAPI")),
		validator:   validator.New(),
		clock:       clock.RealClock{},
	}
	s.store = newStore(s.clock)
	for _, opt := range opts {
		opt(s)
	}
	s.store.clock = s.clock
	s.sessionStarted = s.clock.Now()
	return s
}

// Expire makes every subsequent request fail with 401.
func (s *Server) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = true
}

// Handler builds the gin engine serving all routes.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), utils.LoggerMiddleware(s.logger))
	s.SetupRoutes(router)
	return router
}

// SetupRoutes sets up all API routes
func (s *Server) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("", s.authenticate)
	api.GET("/auth/session", s.SessionStatus)

	quizzes := api.Group("/quizzes/:class/quizzes")
	{
		quizzes.GET("", s.ListQuizzes)
		quizzes.POST("/create", s.CreateQuiz)
		quizzes.GET("/:quiz", s.GetQuiz)
		quizzes.PUT("/:quiz", s.UpdateQuiz)
		quizzes.POST("/:quiz/attempt", s.StartAttempt)
		quizzes.POST("/:quiz/submit", s.SubmitAttempt)
		quizzes.GET("/:quiz/attempts", s.ListAttempts)
		quizzes.PATCH("/:quiz/attempts/:attempt/grade", s.GradeAttempt)
	}
}

// authenticate rejects expired or unauthenticated sessions and records the
// calling student.
func (s *Server) authenticate(c *gin.Context) {
	s.mu.Lock()
	expired, token := s.expired, s.token
	if s.sessionTTL > 0 && s.clock.Since(s.sessionStarted) >= s.sessionTTL {
		expired = true
	}
	s.mu.Unlock()

	if expired {
		s.RespondWithError(c, http.StatusUnauthorized, sessionExpiredText, nil)
		return
	}
	if token != "" && strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ") != token {
		s.RespondWithError(c, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	student := Student{
		ID:       strings.TrimSpace(c.GetHeader("X-Student-ID")),
		Name:     c.GetHeader("X-Student-Name"),
		Username: c.GetHeader("X-Student-Username"),
	}
	if student.ID == "" {
		student.ID = defaultStudentID
	}
	c.Set(studentIDKey, student.ID)
	c.Set(studentKey, student)
	c.Next()
}

func currentStudent(c *gin.Context) Student {
	if v, ok := c.Get(studentKey); ok {
		if st, ok := v.(Student); ok {
			return st
		}
	}
	return Student{ID: defaultStudentID}
}

func (s *Server) SessionStatus(c *gin.Context) {
	payload := gin.H{}
	if s.sessionTTL > 0 {
		s.mu.Lock()
		left := s.sessionTTL - s.clock.Since(s.sessionStarted)
		s.mu.Unlock()
		payload["expiresInMs"] = left.Milliseconds()
	}
	s.RespondWithSuccess(c, http.StatusOK, payload)
}
