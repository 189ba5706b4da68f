package devapi

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "github.com/SAP-F-2025/portfolio-quiz/internal/errors"
	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/gin-gonic/gin"
)

// bindSaveRequest decodes and validates a create/update payload.
func (s *Server) bindSaveRequest(c *gin.Context) (models.SaveQuizRequest, bool) {
	var req models.SaveQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return req, false
	}
	if err := s.validator.ValidateSaveRequest(&req); err != nil {
		errs := apperrors.ToValidationErrors(err)
		s.RespondWithError(c, http.StatusBadRequest, "Validation failed: "+errs.First(), err, errs)
		return req, false
	}
	return req, true
}

func (s *Server) ListQuizzes(c *gin.Context) {
	quizzes := s.store.listQuizzes(c.Param("class"), c.GetString(studentIDKey))
	s.RespondWithSuccess(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

func (s *Server) CreateQuiz(c *gin.Context) {
	req, ok := s.bindSaveRequest(c)
	if !ok {
		return
	}
	id := s.store.createQuiz(c.Param("class"), req)
	s.LogRequest(c, "Quiz created", "quiz_id", id)
	s.RespondWithSuccess(c, http.StatusCreated, gin.H{
		"message": "Quiz created",
		"quizId":  strconv.Itoa(id),
	})
}

func (s *Server) GetQuiz(c *gin.Context) {
	id, ok := s.parseIDParam(c, "quiz", errQuizNotFound.Error())
	if !ok {
		return
	}
	meta, err := s.store.meta(c.Param("class"), id, c.GetString(studentIDKey))
	if err != nil {
		s.RespondWithError(c, http.StatusNotFound, err.Error(), err)
		return
	}
	s.RespondWithSuccess(c, http.StatusOK, gin.H{"quiz": meta})
}

func (s *Server) UpdateQuiz(c *gin.Context) {
	id, ok := s.parseIDParam(c, "quiz", errQuizNotFound.Error())
	if !ok {
		return
	}
	req, ok := s.bindSaveRequest(c)
	if !ok {
		return
	}
	if err := s.store.updateQuiz(c.Param("class"), id, req); err != nil {
		s.RespondWithError(c, http.StatusNotFound, err.Error(), err)
		return
	}
	s.LogRequest(c, "Quiz updated", "quiz_id", id)
	s.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "Quiz updated"})
}

// statusFor maps store errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errQuizNotFound), errors.Is(err, errAttemptNotFound):
		return http.StatusNotFound
	case errors.Is(err, errNoAttemptsLeft), errors.Is(err, errAttemptNotActive), errors.Is(err, errAttemptNotGradable):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
