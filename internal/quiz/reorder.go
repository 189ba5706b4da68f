package quiz

import (
	"strings"

	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
)

// DragKind classifies a drag by the list it started in.
type DragKind string

const (
	DragPage     DragKind = "PAGE"
	DragQuestion DragKind = "QUESTION"
	DragOption   DragKind = "OPTION"
)

const (
	// PagesContainer is the droppable holding the page list.
	PagesContainer = "pages"
	// TrashContainer deletes whatever is dropped on it.
	TrashContainer = "trash"

	optionsSuffix = "__opts"
	idSeparator   = "__"
)

// OptionsContainer names the droppable holding one question's options.
func OptionsContainer(pageID, questionID string) string {
	return pageID + idSeparator + questionID + optionsSuffix
}

// ParseOptionsContainer splits an options container id back into its page
// and question ids.
func ParseOptionsContainer(container string) (pageID, questionID string, ok bool) {
	if !strings.HasSuffix(container, optionsSuffix) {
		return "", "", false
	}
	body := strings.TrimSuffix(container, optionsSuffix)
	pageID, questionID, ok = strings.Cut(body, idSeparator)
	if !ok || pageID == "" || questionID == "" {
		return "", "", false
	}
	return pageID, questionID, true
}

// KindOf classifies a source container. Any container that is neither the
// page list nor an options list is a page's question list.
func KindOf(container string) DragKind {
	switch {
	case container == PagesContainer:
		return DragPage
	case strings.HasSuffix(container, optionsSuffix):
		return DragOption
	}
	return DragQuestion
}

type Location struct {
	Container string
	Index     int
}

// DragResult describes a finished drag gesture. A nil Destination means the
// drag was cancelled.
type DragResult struct {
	Source      Location
	Destination *Location
}

// Apply returns the page list after the drag. Invalid or cancelled drags
// return the input slice and false. The input is never mutated.
func Apply(pages []models.Page, r DragResult) ([]models.Page, bool) {
	if r.Destination == nil {
		return pages, false
	}
	dst := *r.Destination
	trash := dst.Container == TrashContainer

	switch KindOf(r.Source.Container) {
	case DragPage:
		if trash {
			return deletePage(pages, r.Source.Index)
		}
		if dst.Container != PagesContainer {
			return pages, false
		}
		return movePage(pages, r.Source.Index, dst.Index)

	case DragQuestion:
		if trash {
			return deleteQuestion(pages, r.Source.Container, r.Source.Index)
		}
		return moveQuestion(pages, r.Source, dst)

	case DragOption:
		pageID, questionID, ok := ParseOptionsContainer(r.Source.Container)
		if !ok {
			return pages, false
		}
		if trash {
			return editQuestion(pages, pageID, questionID, func(q models.Question) (models.Question, bool) {
				return DeleteOption(q, r.Source.Index)
			})
		}
		if dst.Container != r.Source.Container {
			return pages, false
		}
		return editQuestion(pages, pageID, questionID, func(q models.Question) (models.Question, bool) {
			return MoveOption(q, r.Source.Index, dst.Index)
		})
	}
	return pages, false
}

func movePage(pages []models.Page, from, to int) ([]models.Page, bool) {
	if !inRange(from, len(pages)) || !inRange(to, len(pages)) {
		return pages, false
	}
	out := clonePages(pages)
	return moveItem(out, from, to), true
}

func deletePage(pages []models.Page, idx int) ([]models.Page, bool) {
	if !inRange(idx, len(pages)) {
		return pages, false
	}
	out := clonePages(pages)
	return append(out[:idx], out[idx+1:]...), true
}

func moveQuestion(pages []models.Page, src, dst Location) ([]models.Page, bool) {
	si := pageIndex(pages, src.Container)
	di := pageIndex(pages, dst.Container)
	if si < 0 || di < 0 || !inRange(src.Index, len(pages[si].Questions)) {
		return pages, false
	}

	if si == di {
		if !inRange(dst.Index, len(pages[si].Questions)) {
			return pages, false
		}
		out := clonePages(pages)
		out[si].Questions = moveItem(out[si].Questions, src.Index, dst.Index)
		return out, true
	}

	if dst.Index < 0 || dst.Index > len(pages[di].Questions) {
		return pages, false
	}
	out := clonePages(pages)
	moved := out[si].Questions[src.Index]
	out[si].Questions = append(out[si].Questions[:src.Index], out[si].Questions[src.Index+1:]...)
	out[di].Questions = insertItem(out[di].Questions, dst.Index, moved)
	return out, true
}

func deleteQuestion(pages []models.Page, pageID string, idx int) ([]models.Page, bool) {
	pi := pageIndex(pages, pageID)
	if pi < 0 || !inRange(idx, len(pages[pi].Questions)) {
		return pages, false
	}
	out := clonePages(pages)
	out[pi].Questions = append(out[pi].Questions[:idx], out[pi].Questions[idx+1:]...)
	return out, true
}

func editQuestion(pages []models.Page, pageID, questionID string, fn func(models.Question) (models.Question, bool)) ([]models.Page, bool) {
	pi := pageIndex(pages, pageID)
	if pi < 0 {
		return pages, false
	}
	qi := questionIndex(pages[pi].Questions, questionID)
	if qi < 0 {
		return pages, false
	}
	updated, ok := fn(pages[pi].Questions[qi])
	if !ok {
		return pages, false
	}
	out := clonePages(pages)
	out[pi].Questions[qi] = updated
	return out, true
}

// RemapIndex gives the new position of index i after the item at from moves
// to to.
func RemapIndex(i, from, to int) int {
	switch {
	case i == from:
		return to
	case from < to && i > from && i <= to:
		return i - 1
	case from > to && i >= to && i < from:
		return i + 1
	}
	return i
}

// MoveOption reorders an option and rewrites the correctness reference so it
// still points at the same option text.
func MoveOption(q models.Question, from, to int) (models.Question, bool) {
	if !q.Type.HasOptions() || !inRange(from, len(q.Options)) || !inRange(to, len(q.Options)) {
		return q, false
	}
	out := q.Clone()
	out.Options = moveItem(out.Options, from, to)

	switch out.Type {
	case models.MultipleChoice:
		if out.Correct != nil {
			c := RemapIndex(*out.Correct, from, to)
			out.Correct = &c
		}
	case models.Checkboxes:
		remapped := make([]int, len(out.CorrectSet))
		for i, c := range out.CorrectSet {
			remapped[i] = RemapIndex(c, from, to)
		}
		out.CorrectSet = models.NormalizeIndexSet(remapped, len(out.Options))
	}
	return out, true
}

// DeleteOption removes an option and shifts or clears the correctness
// reference accordingly.
func DeleteOption(q models.Question, idx int) (models.Question, bool) {
	if !q.Type.HasOptions() || !inRange(idx, len(q.Options)) {
		return q, false
	}
	out := q.Clone()
	out.Options = append(out.Options[:idx], out.Options[idx+1:]...)

	switch out.Type {
	case models.MultipleChoice:
		if out.Correct != nil {
			switch c := *out.Correct; {
			case c == idx:
				out.Correct = nil
			case c > idx:
				c--
				out.Correct = &c
			}
		}
	case models.Checkboxes:
		next := make([]int, 0, len(out.CorrectSet))
		for _, c := range out.CorrectSet {
			switch {
			case c == idx:
				continue
			case c > idx:
				next = append(next, c-1)
			default:
				next = append(next, c)
			}
		}
		out.CorrectSet = models.NormalizeIndexSet(next, len(out.Options))
	}
	return out, true
}

func inRange(i, n int) bool { return i >= 0 && i < n }

// moveItem removes the element at from and reinserts it at to. s must be
// owned by the caller.
func moveItem[T any](s []T, from, to int) []T {
	item := s[from]
	s = append(s[:from], s[from+1:]...)
	return insertItem(s, to, item)
}

func insertItem[T any](s []T, at int, item T) []T {
	var zero T
	s = append(s, zero)
	copy(s[at+1:], s[at:])
	s[at] = item
	return s
}
