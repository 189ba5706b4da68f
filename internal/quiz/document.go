package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
)

var ErrInvalidDocument = errors.New("invalid quiz document")

// ParsePages decodes the stored questions document. The backend may hold it
// as {"pages": [...]}, as a bare array of questions (one implicit page), or
// as either of those encoded into a JSON string. An empty or null document
// yields a single empty page.
func ParsePages(raw json.RawMessage) ([]models.Page, error) {
	return parsePages(raw, true)
}

func parsePages(raw json.RawMessage, allowString bool) ([]models.Page, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return []models.Page{emptyPage(0)}, nil
	}

	switch raw[0] {
	case '"':
		if !allowString {
			return nil, fmt.Errorf("%w: doubly encoded document", ErrInvalidDocument)
		}
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		return parsePages(json.RawMessage(inner), false)

	case '{':
		var doc struct {
			Pages []models.Page `json:"pages"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		if len(doc.Pages) == 0 {
			return []models.Page{emptyPage(0)}, nil
		}
		return normalizePages(doc.Pages), nil

	case '[':
		var qs []models.Question
		if err := json.Unmarshal(raw, &qs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		page := emptyPage(0)
		page.Questions = qs
		return normalizePages([]models.Page{page}), nil
	}

	return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidDocument, raw[:1])
}

func emptyPage(idx int) models.Page {
	return models.Page{
		ID:        fmt.Sprintf("page-%d", idx+1),
		Title:     fmt.Sprintf("Page %d", idx+1),
		Questions: []models.Question{},
	}
}

// normalizePages fills missing page ids and titles positionally.
func normalizePages(pages []models.Page) []models.Page {
	for i := range pages {
		def := emptyPage(i)
		if pages[i].ID == "" {
			pages[i].ID = def.ID
		}
		if pages[i].Title == "" {
			pages[i].Title = def.Title
		}
		if pages[i].Questions == nil {
			pages[i].Questions = []models.Question{}
		}
	}
	return pages
}

// QuizFromMeta hydrates an editor draft from the server view.
func QuizFromMeta(meta models.QuizMeta) (models.Quiz, error) {
	pages, err := ParsePages(meta.Questions)
	if err != nil {
		return models.Quiz{}, err
	}
	attempts := meta.AttemptsAllowed
	if attempts < 1 {
		attempts = models.DefaultAttemptsAllowed
	}
	var limit *int
	if meta.TimeLimitSeconds != nil && *meta.TimeLimitSeconds > 0 {
		v := *meta.TimeLimitSeconds
		limit = &v
	}
	return models.Quiz{
		ID:               meta.ID,
		Title:            meta.Title,
		Pages:            pages,
		AttemptsAllowed:  attempts,
		TimeLimitSeconds: limit,
	}, nil
}
