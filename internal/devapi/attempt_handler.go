package devapi

import (
	"net/http"
	"strconv"

	apperrors "github.com/SAP-F-2025/portfolio-quiz/internal/errors"
	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/gin-gonic/gin"
)

func (s *Server) StartAttempt(c *gin.Context) {
	quizID, ok := s.parseIDParam(c, "quiz", errQuizNotFound.Error())
	if !ok {
		return
	}
	a, err := s.store.startAttempt(c.Param("class"), quizID, currentStudent(c))
	if err != nil {
		s.RespondWithError(c, statusFor(err), err.Error(), err)
		return
	}

	s.LogRequest(c, "Attempt started", "quiz_id", quizID, "attempt_id", a.id, "attempt_no", a.attemptNo)
	payload := gin.H{
		"attemptId": strconv.Itoa(a.id),
		"attemptNo": a.attemptNo,
	}
	if a.expiresAt != nil {
		payload["expiresAt"] = a.expiresAt.UTC()
	}
	s.RespondWithSuccess(c, http.StatusOK, payload)
}

func (s *Server) SubmitAttempt(c *gin.Context) {
	quizID, ok := s.parseIDParam(c, "quiz", errQuizNotFound.Error())
	if !ok {
		return
	}
	var req models.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}
	attemptID, ok := parseID(req.AttemptID.String())
	if !ok {
		s.RespondWithError(c, http.StatusBadRequest, "attemptId is required", nil)
		return
	}

	a, err := s.store.submitAttempt(c.Param("class"), quizID, attemptID, c.GetString(studentIDKey), req.Answers)
	if err != nil {
		s.RespondWithError(c, statusFor(err), err.Error(), err)
		return
	}
	s.LogRequest(c, "Attempt submitted", "quiz_id", quizID, "attempt_id", a.id, "status", a.status)
	s.RespondWithSuccess(c, http.StatusOK, gin.H{"score": a.score, "status": a.status})
}

func (s *Server) ListAttempts(c *gin.Context) {
	quizID, ok := s.parseIDParam(c, "quiz", errQuizNotFound.Error())
	if !ok {
		return
	}
	filter := models.AttemptFilter(c.DefaultQuery("status", string(models.FilterAll)))
	if err := s.validator.Var("status", string(filter), "attempt_filter"); err != nil {
		errs := apperrors.ToValidationErrors(err)
		s.RespondWithError(c, http.StatusBadRequest, "Invalid status filter", err, errs)
		return
	}

	attempts, err := s.store.listAttempts(c.Param("class"), quizID, filter)
	if err != nil {
		s.RespondWithError(c, statusFor(err), err.Error(), err)
		return
	}
	s.RespondWithSuccess(c, http.StatusOK, gin.H{"attempts": attempts})
}

func (s *Server) GradeAttempt(c *gin.Context) {
	quizID, ok := s.parseIDParam(c, "quiz", errQuizNotFound.Error())
	if !ok {
		return
	}
	attemptID, ok := s.parseIDParam(c, "attempt", errAttemptNotFound.Error())
	if !ok {
		return
	}

	var req models.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		s.RespondWithError(c, http.StatusBadRequest, "Score must be 0-100", err, apperrors.ToValidationErrors(err))
		return
	}

	if err := s.store.gradeAttempt(c.Param("class"), quizID, attemptID, req); err != nil {
		s.RespondWithError(c, statusFor(err), err.Error(), err)
		return
	}
	s.LogRequest(c, "Attempt graded", "quiz_id", quizID, "attempt_id", attemptID, "score", req.Score)
	s.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "Attempt graded"})
}
