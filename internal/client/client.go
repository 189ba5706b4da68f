package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/SAP-F-2025/portfolio-quiz/internal/utils"
)

// TokenSource supplies the bearer token for outgoing requests. An empty
// token sends no Authorization header and relies on the cookie jar.
type TokenSource interface {
	Token() string
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the portfolio backend's quiz endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     utils.Logger
}

func New(cfg Config, tokens TokenSource, log utils.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("missing backend base url")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	if log == nil {
		log = utils.NewDefaultLogger()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout, Jar: jar},
		tokens:  tokens,
		log:     log.With("component", "BackendClient"),
	}, nil
}

func quizzesPath(classCode string) string {
	return "/quizzes/" + url.PathEscape(classCode) + "/quizzes"
}

func quizPath(classCode string, quizID models.FlexID) string {
	return quizzesPath(classCode) + "/" + url.PathEscape(quizID.String())
}

func (c *Client) ListQuizzes(ctx context.Context, classCode string) ([]models.QuizMeta, error) {
	var out models.QuizListResponse
	if err := c.do(ctx, http.MethodGet, quizzesPath(classCode), nil, &out); err != nil {
		return nil, err
	}
	return out.Quizzes, nil
}

func (c *Client) GetQuiz(ctx context.Context, classCode string, quizID models.FlexID) (*models.QuizMeta, error) {
	var out models.QuizResponse
	if err := c.do(ctx, http.MethodGet, quizPath(classCode, quizID), nil, &out); err != nil {
		return nil, err
	}
	if out.Quiz == nil {
		return nil, fmt.Errorf("%w: quiz missing from response", ErrTransport)
	}
	return out.Quiz, nil
}

func (c *Client) CreateQuiz(ctx context.Context, classCode string, req *models.SaveQuizRequest) (*models.SaveQuizResponse, error) {
	var out models.SaveQuizResponse
	if err := c.do(ctx, http.MethodPost, quizzesPath(classCode)+"/create", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateQuiz(ctx context.Context, classCode string, quizID models.FlexID, req *models.SaveQuizRequest) (*models.SaveQuizResponse, error) {
	var out models.SaveQuizResponse
	if err := c.do(ctx, http.MethodPut, quizPath(classCode, quizID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartAttempt(ctx context.Context, classCode string, quizID models.FlexID) (*models.StartAttemptResponse, error) {
	var out models.StartAttemptResponse
	if err := c.do(ctx, http.MethodPost, quizPath(classCode, quizID)+"/attempt", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitAttempt(ctx context.Context, classCode string, quizID models.FlexID, req *models.SubmitAttemptRequest) (*models.SubmitAttemptResponse, error) {
	var out models.SubmitAttemptResponse
	if err := c.do(ctx, http.MethodPost, quizPath(classCode, quizID)+"/submit", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListAttempts(ctx context.Context, classCode string, quizID models.FlexID, filter models.AttemptFilter) ([]models.AttemptSummary, error) {
	path := quizPath(classCode, quizID) + "/attempts"
	if filter != "" {
		path += "?" + url.Values{"status": {string(filter)}}.Encode()
	}
	var out models.AttemptListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Attempts, nil
}

func (c *Client) GradeAttempt(ctx context.Context, classCode string, quizID, attemptID models.FlexID, req *models.GradeRequest) error {
	path := quizPath(classCode, quizID) + "/attempts/" + url.PathEscape(attemptID.String()) + "/grade"
	return c.do(ctx, http.MethodPatch, path, req, nil)
}

// SessionStatus asks the backend how long the current session stays valid.
func (c *Client) SessionStatus(ctx context.Context) (*models.SessionStatusResponse, error) {
	var out models.SessionStatusResponse
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one JSON request and decodes the envelope. A 401 maps to
// ErrSessionExpired and a decoded envelope with a non-2xx status or
// success=false maps to *APIError. A body that is not a JSON envelope maps
// to ErrTransport whatever the status, so proxy error pages never read as
// business answers.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WarnContext(ctx, "backend request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	c.log.LogHTTP(ctx, utils.HTTPExchange{
		Direction: utils.Outbound,
		Method:    method,
		Path:      path,
		Status:    resp.StatusCode,
		Duration:  time.Since(start),
	})

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrSessionExpired
	}
	if readErr != nil {
		return fmt.Errorf("%w: read body: %v", ErrTransport, readErr)
	}

	var envelope models.APIResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%w: decode %s %s (status %d): %v", ErrTransport, method, path, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Success {
		return &APIError{Status: resp.StatusCode, Message: envelope.Message}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: decode %s %s: %v", ErrTransport, method, path, err)
		}
	}
	return nil
}
