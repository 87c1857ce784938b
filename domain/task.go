package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Task is an immutable to-do item. Mutating helpers return copies.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`
}

// NewTask builds an active task with a freshly generated id.
func NewTask(title, description string) Task {
	return Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
	}
}

// IsEmpty reports whether both title and description are blank.
func (t Task) IsEmpty() bool {
	return strings.TrimSpace(t.Title) == "" && strings.TrimSpace(t.Description) == ""
}

// TitleForList falls back to the description when the title is blank.
func (t Task) TitleForList() string {
	if strings.TrimSpace(t.Title) != "" {
		return t.Title
	}
	return t.Description
}

func (t Task) IsActive() bool {
	return !t.Completed
}

// WithCompleted returns a copy of t with the completion flag set.
func (t Task) WithCompleted(completed bool) Task {
	t.Completed = completed
	return t
}

func (t Task) String() string {
	return "Task with title " + t.Title
}
