package api

import (
	"context"

	"kanban-board/board"
	"kanban-board/domain"
	"kanban-board/kanban"
)

// Store is the board state the handlers read from and mutate through.
type Store interface {
	Snapshot() kanban.Board
	Task(id string) (domain.Task, bool)
	Load(ctx context.Context) error
	CreateTask(ctx context.Context, p domain.CreatePayload) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, fields domain.TaskFields) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Dragger drives the drag gesture state machine.
type Dragger interface {
	Start(id string) error
	Drop(ctx context.Context, overID string) (board.Outcome, error)
	Cancel()
}

// Subscriber hands out wake-up channels for board changes.
type Subscriber interface {
	Subscribe() chan struct{}
	Unsubscribe(ch chan struct{})
}

// Deduper rejects create requests whose idempotency key was already used.
type Deduper interface {
	Add(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
}

type errorResponse struct {
	Error   string        `json:"error"`
	Outcome board.Outcome `json:"outcome,omitempty"`
}

type createRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Status      string `json:"status" form:"status"`
}

type patchRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

type dragStartRequest struct {
	TaskID string `json:"taskId"`
}

type dragDropRequest struct {
	OverID string `json:"overId"`
}

type dropResponse struct {
	Outcome board.Outcome `json:"outcome"`
	Board   boardView     `json:"board"`
}
