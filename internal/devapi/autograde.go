package devapi

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
)

// autograde scores the answers against the stored document as a percentage
// of auto-gradable questions. Paragraph questions, and short answers without
// a reference answer, need a teacher.
func autograde(pages []models.Page, answers models.Answers) (score float64, needsManual bool) {
	gradable, correct := 0, 0
	for _, page := range pages {
		for _, q := range page.Questions {
			ans, answered := answers[q.ID]
			switch q.Type {
			case models.MultipleChoice:
				if q.Correct == nil {
					continue
				}
				gradable++
				if answered && !ans.Multi && strings.TrimSpace(ans.Text) == strconv.Itoa(*q.Correct) {
					correct++
				}
			case models.Checkboxes:
				gradable++
				if answered && equalIndexSets(ans.Indices(), q.CorrectSet) {
					correct++
				}
			case models.ShortAnswer:
				if strings.TrimSpace(q.ExpectedAnswer) == "" {
					needsManual = true
					continue
				}
				gradable++
				if answered && strings.EqualFold(strings.TrimSpace(ans.Text), strings.TrimSpace(q.ExpectedAnswer)) {
					correct++
				}
			case models.Paragraph:
				needsManual = true
			}
		}
	}
	if gradable == 0 {
		return 0, needsManual
	}
	return math.Round(float64(correct)*10000/float64(gradable)) / 100, needsManual
}

func equalIndexSets(a, b []int) bool {
	a = models.NormalizeIndexSet(a, math.MaxInt)
	b = models.NormalizeIndexSet(b, math.MaxInt)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func encodeDocument(doc models.PagesDocument) (json.RawMessage, error) {
	return json.Marshal(doc)
}

// encodeDocumentAsString wraps the document in a JSON string, the way some
// backends persist it in a text column.
func encodeDocumentAsString(doc models.PagesDocument) (json.RawMessage, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(raw))
}
