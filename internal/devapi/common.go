package devapi

import (
	"net/http"
	"strings"

	"github.com/SAP-F-2025/portfolio-quiz/internal/utils"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the failure envelope every endpoint returns.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) requestFields(c *gin.Context, extra ...interface{}) []interface{} {
	fields := []interface{}{
		"request_id", c.GetHeader("X-Request-ID"),
		"student_id", c.GetString(studentIDKey),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	return append(fields, extra...)
}

// LogRequest logs an incoming call with its route context.
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	h.logger.Info(message, h.requestFields(c, additionalFields...)...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	h.logger.LogError(err, message, h.requestFields(c, additionalFields...)...)
}

func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	h.logger.Warn(message, h.requestFields(c, additionalFields...)...)
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error, details ...interface{}) {
	resp := ErrorResponse{Success: false, Message: message}
	if len(details) > 0 {
		resp.Details = details[0]
	}

	if err != nil && statusCode >= http.StatusInternalServerError {
		h.LogError(c, err, message, "status_code", statusCode)
	} else {
		h.LogWarn(c, message, "status_code", statusCode)
	}

	c.AbortWithStatusJSON(statusCode, resp)
}

// RespondWithSuccess merges payload into a {"success": true} envelope.
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(statusCode, body)
}

// parseIDParam reads a positive numeric path parameter, responding 404
// when it is malformed.
func (h *BaseHandler) parseIDParam(c *gin.Context, param, notFound string) (int, bool) {
	id, ok := parseID(strings.TrimSpace(c.Param(param)))
	if !ok {
		h.RespondWithError(c, http.StatusNotFound, notFound, nil)
		return 0, false
	}
	return id, true
}
