package quiz

import (
	"fmt"

	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
)

// NewPage returns an empty page with the given title.
func NewPage(title string) models.Page {
	return models.Page{ID: NewID("page"), Title: title, Questions: []models.Question{}}
}

// NewQuiz returns the default draft: one empty page, one allowed attempt,
// no time limit.
func NewQuiz() models.Quiz {
	return models.Quiz{
		Title:           models.DefaultQuizTitle,
		Pages:           []models.Page{NewPage("Page 1")},
		AttemptsAllowed: models.DefaultAttemptsAllowed,
	}
}

// clonePages copies the page slice so edits never alias the caller's quiz.
func clonePages(pages []models.Page) []models.Page {
	out := make([]models.Page, len(pages))
	for i, p := range pages {
		out[i] = p.Clone()
	}
	return out
}

func withPages(q models.Quiz, pages []models.Page) models.Quiz {
	q.Pages = pages
	return q
}

// AddPage appends "Page N" where N is the new page count.
func AddPage(q models.Quiz) models.Quiz {
	pages := clonePages(q.Pages)
	pages = append(pages, NewPage(fmt.Sprintf("Page %d", len(pages)+1)))
	return withPages(q, pages)
}

// AddQuestion appends a default question of type t to the page. An unknown
// page id leaves the quiz unchanged.
func AddQuestion(q models.Quiz, pageID string, t models.QuestionType) models.Quiz {
	idx := pageIndex(q.Pages, pageID)
	if idx < 0 {
		return q
	}
	pages := clonePages(q.Pages)
	pages[idx].Questions = append(pages[idx].Questions, NewQuestion(t))
	return withPages(q, pages)
}

func RenameTitle(q models.Quiz, title string) models.Quiz {
	q.Title = title
	return q
}

func RenamePageTitle(q models.Quiz, pageID, title string) models.Quiz {
	idx := pageIndex(q.Pages, pageID)
	if idx < 0 {
		return q
	}
	pages := clonePages(q.Pages)
	pages[idx].Title = title
	return withPages(q, pages)
}

// UpdateQuestion replaces a question with fn's result. Missing page or
// question ids leave the quiz unchanged.
func UpdateQuestion(q models.Quiz, pageID, questionID string, fn func(models.Question) models.Question) models.Quiz {
	pi := pageIndex(q.Pages, pageID)
	if pi < 0 {
		return q
	}
	qi := questionIndex(q.Pages[pi].Questions, questionID)
	if qi < 0 {
		return q
	}
	pages := clonePages(q.Pages)
	updated := fn(pages[pi].Questions[qi].Clone())
	updated.ID = questionID
	pages[pi].Questions[qi] = updated
	return withPages(q, pages)
}

// QuestionCount totals questions across all pages.
func QuestionCount(pages []models.Page) int {
	n := 0
	for _, p := range pages {
		n += len(p.Questions)
	}
	return n
}

func FindPage(pages []models.Page, pageID string) (models.Page, bool) {
	idx := pageIndex(pages, pageID)
	if idx < 0 {
		return models.Page{}, false
	}
	return pages[idx], true
}

// FindQuestion searches every page for the question id.
func FindQuestion(pages []models.Page, questionID string) (models.Question, bool) {
	for _, p := range pages {
		if qi := questionIndex(p.Questions, questionID); qi >= 0 {
			return p.Questions[qi], true
		}
	}
	return models.Question{}, false
}

func pageIndex(pages []models.Page, id string) int {
	for i, p := range pages {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func questionIndex(qs []models.Question, id string) int {
	for i, q := range qs {
		if q.ID == id {
			return i
		}
	}
	return -1
}
