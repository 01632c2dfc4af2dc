package board

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"kanban-board/domain"
	"kanban-board/kanban"
)

// ErrNotDragging is returned by Drop when no drag is in progress.
var ErrNotDragging = errors.New("no drag in progress")

// ErrUnknownTask is returned by Start for ids missing from the board.
var ErrUnknownTask = errors.New("unknown task")

// State of the drag gesture.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Outcome describes what a drop did to the board.
type Outcome string

const (
	// NoOp means the drop changed nothing.
	NoOp Outcome = "noop"
	// Reordered means the task moved within its column, locally only.
	Reordered Outcome = "reordered"
	// Moved means the task changed column and the new status was saved.
	Moved Outcome = "moved"
	// Reverted means saving the move failed and the board was reloaded.
	Reverted Outcome = "reverted"
)

// Store is the part of kanban.Store the drag logic needs.
type Store interface {
	Locate(id string) (domain.Task, domain.Status, int, bool)
	Len(status domain.Status) int
	Reorder(ctx context.Context, status domain.Status, from, to int) error
	MoveLocal(ctx context.Context, id string, to domain.Status, index int) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, fields domain.TaskFields) (domain.Task, error)
	Load(ctx context.Context) error
}

var _ Store = (*kanban.Store)(nil)

// Drag tracks one drag gesture at a time: idle, dragging, then back to idle
// on drop or cancel.
type Drag struct {
	store  Store
	logger *log.Logger

	mu       sync.Mutex
	state    State
	activeID string
}

// NewDrag creates an idle drag tracker over store.
func NewDrag(store Store, logger *log.Logger) *Drag {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Drag{store: store, logger: logger}
}

// Start records the dragged task.
func (d *Drag) Start(id string) error {
	if _, _, _, ok := d.store.Locate(id); !ok {
		d.Cancel()
		return ErrUnknownTask
	}
	d.mu.Lock()
	d.state = Dragging
	d.activeID = id
	d.mu.Unlock()
	return nil
}

// Cancel abandons the current gesture without touching the board.
func (d *Drag) Cancel() {
	d.mu.Lock()
	d.state = Idle
	d.activeID = ""
	d.mu.Unlock()
}

// Active returns the state and the dragged task id, if any.
func (d *Drag) Active() (State, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state, d.activeID
}

// Drop finishes the gesture over overID, which is either a column code
// (append to that column) or the id of another task (take its position).
// An empty or unknown target is a no-op.
func (d *Drag) Drop(ctx context.Context, overID string) (Outcome, error) {
	d.mu.Lock()
	state, activeID := d.state, d.activeID
	d.state = Idle
	d.activeID = ""
	d.mu.Unlock()

	if state != Dragging {
		return NoOp, ErrNotDragging
	}
	if overID == "" {
		return NoOp, nil
	}

	_, srcCol, srcIdx, ok := d.store.Locate(activeID)
	if !ok {
		return NoOp, nil
	}

	dstCol, dstIdx, ok := d.resolveTarget(overID)
	if !ok {
		return NoOp, nil
	}

	if srcCol == dstCol && srcIdx == dstIdx {
		return NoOp, nil
	}

	logger := d.logger.WithFields(log.Fields{
		"task_id": activeID,
		"from":    srcCol,
		"to":      dstCol,
		"index":   dstIdx,
	})

	if srcCol == dstCol {
		if dstIdx >= d.store.Len(srcCol) {
			dstIdx = d.store.Len(srcCol) - 1
		}
		if dstIdx == srcIdx {
			return NoOp, nil
		}
		if err := d.store.Reorder(ctx, srcCol, srcIdx, dstIdx); err != nil {
			return NoOp, err
		}
		logger.Debug("board.drag.reordered")
		return Reordered, nil
	}

	if _, err := d.store.MoveLocal(ctx, activeID, dstCol, dstIdx); err != nil {
		return NoOp, err
	}
	// The optimistic move is already on the shared board, so persisting and
	// recovering must finish even when the caller goes away.
	detached := context.WithoutCancel(ctx)
	if _, err := d.store.UpdateTask(detached, activeID, domain.TaskFields{Status: domain.StatusPtr(dstCol)}); err != nil {
		logger.WithError(err).Warn("board.drag.persist_failed")
		if loadErr := d.store.Load(detached); loadErr != nil {
			logger.WithError(loadErr).Error("board.drag.reload_failed")
		}
		return Reverted, err
	}
	logger.Debug("board.drag.moved")
	return Moved, nil
}

func (d *Drag) resolveTarget(overID string) (domain.Status, int, bool) {
	if st := domain.Status(overID); st.Valid() {
		return st, d.store.Len(st), true
	}
	if _, col, idx, ok := d.store.Locate(overID); ok {
		return col, idx, true
	}
	return "", -1, false
}
