package domain

import (
	"strings"
	"time"
)

// Task represents a single card on the board.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	CreatedAt   string `json:"createdAt"`
}

// CreatePayload carries the fields of a new task. Empty status means todo.
type CreatePayload struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status,omitempty"`
}

// TaskFields is a partial update. Nil fields keep their current value.
type TaskFields struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

// Merge returns t with every non-nil field of f applied.
func (f TaskFields) Merge(t Task) Task {
	if f.Title != nil {
		t.Title = *f.Title
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.Status != nil {
		t.Status = *f.Status
	}
	return t
}

// Empty reports whether the update changes nothing.
func (f TaskFields) Empty() bool {
	return f.Title == nil && f.Description == nil && f.Status == nil
}

const displayDateLayout = "02/01/2006"

var createdAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	displayDateLayout,
}

// CreatedDate formats the creation timestamp as dd/mm/yyyy. Unparseable or
// missing timestamps yield "".
func (t Task) CreatedDate() string {
	raw := strings.TrimSpace(t.CreatedAt)
	if raw == "" {
		return ""
	}
	for _, layout := range createdAtLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.Format(displayDateLayout)
		}
	}
	return ""
}

// StrPtr is a helper for building TaskFields.
func StrPtr(s string) *string { return &s }

// StatusPtr is a helper for building TaskFields.
func StatusPtr(s Status) *Status { return &s }
