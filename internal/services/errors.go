package services

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/portfolio-quiz/internal/client"
	apperrors "github.com/SAP-F-2025/portfolio-quiz/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	ErrNoClassroom      = errors.New("no classroom selected")
	ErrInFlight         = errors.New("request already in flight")
	ErrNotConfirmed     = errors.New("action not confirmed")
	ErrQuizNotLoaded    = errors.New("quiz not loaded")
	ErrNoActiveAttempt  = errors.New("no active attempt")
	ErrAttemptFinished  = errors.New("attempt is no longer editable")
	ErrNotOnLastPage    = errors.New("attempts are submitted from the last page")
	ErrUnknownQuestion  = errors.New("unknown question")
	ErrNoSelection      = errors.New("no attempt selected")
	ErrAttemptNotListed = errors.New("attempt not in the current list")
)

// User-facing texts.
const (
	MsgNoClassroom      = "No classroom selected"
	MsgSessionExpired   = "Session expired. Please sign in again."
	MsgQuizCreated      = "Quiz created"
	MsgQuizUpdated      = "Quiz updated"
	MsgSaveFailed       = "Save failed"
	MsgSaveServerError  = "Server error saving quiz"
	MsgStartFailed      = "Failed to start attempt"
	MsgStartServerError = "Server error while starting attempt"
	MsgTimeExpired      = "Time expired. Submitting attempt."
	MsgNoActiveAttempt  = "No active attempt"
	MsgSubmitFailed     = "Failed to submit attempt"
	MsgSubmitted        = "Attempt submitted"
	MsgSubmitServerErr  = "Server error while submitting attempt"
	MsgLoadFailed       = "Failed to load quiz"
	MsgAttemptsFailed   = "Failed to load attempts"
	MsgScoreRange       = "Score must be 0-100"
	MsgGradeFailed      = "Failed to save grade"
	MsgGraded           = "Attempt graded"
	MsgServerError      = "Server error"
)

// ===== CUSTOM ERROR TYPES =====

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// ===== ERROR HELPERS =====

// IsValidation reports a locally rejected input. These never reach the backend.
func IsValidation(err error) bool {
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

func IsSessionExpired(err error) bool {
	return client.IsSessionExpired(err)
}

// IsBusiness reports a failure the backend answered with a status or
// {"success": false}.
func IsBusiness(err error) bool {
	_, ok := client.AsAPIError(err)
	return ok
}

func IsTransport(err error) bool {
	return client.IsTransport(err)
}

func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// UserMessage picks the text shown for err: the first validation message,
// the backend's message for business failures, the sign-in prompt for an
// expired session and fallback for everything else.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return ve[0].Message
	}
	if IsSessionExpired(err) {
		return MsgSessionExpired
	}
	if errors.Is(err, ErrNoClassroom) {
		return MsgNoClassroom
	}
	if errors.Is(err, ErrNoActiveAttempt) {
		return MsgNoActiveAttempt
	}
	if apiErr, ok := client.AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// describe is UserMessage with a separate text for transport failures.
func describe(err error, failure, serverError string) string {
	if IsTransport(err) {
		return serverError
	}
	return UserMessage(err, failure)
}

func scoreRangeError(value interface{}) ValidationErrors {
	return ValidationErrors{*apperrors.NewValidationErrorWithRule("score", MsgScoreRange, "score_range", value)}
}
