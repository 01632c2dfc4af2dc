package kanban

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"kanban-board/domain"
)

// ErrNotFoundLocally is returned when an operation references a task that is
// not in the current grouping. It means the grouping is stale, not that the
// server rejected anything.
var ErrNotFoundLocally = errors.New("task not found locally")

// ErrInvalidPosition is returned by the local move primitives when an index is out of range.
var ErrInvalidPosition = errors.New("invalid position")

const (
	msgLoadFailed   = "failed to load tasks"
	msgCreateFailed = "failed to create task"
	msgUpdateFailed = "failed to update task"
	msgDeleteFailed = "failed to delete task"
)

// TaskAPI is the remote service the store reconciles against.
type TaskAPI interface {
	List(ctx context.Context) ([]domain.Task, error)
	Create(ctx context.Context, p domain.CreatePayload) (domain.Task, error)
	Update(ctx context.Context, id string, t domain.Task) (domain.Task, error)
	Remove(ctx context.Context, id string) error
}

// ChangeKind names what happened to the grouping.
type ChangeKind string

const (
	ChangeLoaded    ChangeKind = "loaded"
	ChangeCreated   ChangeKind = "created"
	ChangeUpdated   ChangeKind = "updated"
	ChangeDeleted   ChangeKind = "deleted"
	ChangeReordered ChangeKind = "reordered"
	ChangeMoved     ChangeKind = "moved"
	ChangeState     ChangeKind = "state"
)

// Change is passed to the Notifier after the grouping or the status flags change.
type Change struct {
	Kind   ChangeKind
	TaskID string
	// Loading and Error carry the status flags on ChangeState.
	Loading bool
	Error   string
}

// Notifier observes store changes. It is called outside the store lock.
type Notifier interface {
	Notify(ctx context.Context, ch Change)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ch Change)

func (f NotifierFunc) Notify(ctx context.Context, ch Change) { f(ctx, ch) }

// Store owns the board grouping for the lifetime of the process. Network
// calls run without holding the lock; only the application of their results
// is serialized, so concurrent mutations resolve as last write wins.
type Store struct {
	api    TaskAPI
	logger *log.Logger

	mu       sync.RWMutex
	columns  map[domain.Status][]domain.Task
	loading  bool
	err      string
	notifier Notifier
}

// NewStore creates an empty store. Call Load to populate it.
func NewStore(api TaskAPI, logger *log.Logger) *Store {
	if api == nil {
		panic("kanban.NewStore: task api is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{
		api:     api,
		logger:  logger,
		columns: emptyColumns(),
	}
}

// SetNotifier registers the observer for store changes. nil disables notifications.
func (s *Store) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

func emptyColumns() map[domain.Status][]domain.Task {
	cols := make(map[domain.Status][]domain.Task, len(domain.Statuses))
	for _, st := range domain.Statuses {
		cols[st] = []domain.Task{}
	}
	return cols
}

func groupTasks(tasks []domain.Task) map[domain.Status][]domain.Task {
	cols := emptyColumns()
	for _, t := range tasks {
		if !t.Status.Valid() {
			t.Status = domain.StatusTodo
		}
		cols[t.Status] = append(cols[t.Status], t)
	}
	return cols
}

// Load replaces the grouping with the server's task list. On failure the
// previous grouping stays visible and the error message is recorded.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
	s.notifyState(ctx)

	tasks, err := s.api.List(ctx)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = msgLoadFailed
		s.mu.Unlock()
		s.logger.WithError(err).Warn("kanban.load.failed")
		s.notifyState(ctx)
		return err
	}
	s.columns = groupTasks(tasks)
	s.mu.Unlock()

	s.logger.WithField("tasks", len(tasks)).Debug("kanban.load")
	s.notify(ctx, Change{Kind: ChangeLoaded})
	return nil
}

// CreateTask creates a task remotely and shows it first in its column.
func (s *Store) CreateTask(ctx context.Context, p domain.CreatePayload) (domain.Task, error) {
	s.clearError()
	if p.Status == "" {
		p.Status = domain.StatusTodo
	}

	created, err := s.api.Create(ctx, p)
	if err != nil {
		s.fail(ctx, "create", msgCreateFailed, err)
		return domain.Task{}, err
	}

	s.mu.Lock()
	s.removeLocked(created.ID)
	s.prependLocked(created)
	s.mu.Unlock()

	s.logger.WithFields(log.Fields{"task_id": created.ID, "status": created.Status}).Debug("kanban.create")
	s.notify(ctx, Change{Kind: ChangeCreated, TaskID: created.ID})
	return created, nil
}

// UpdateTask merges fields over the locally known record, sends the full
// record and then moves the server's version to the head of its column.
func (s *Store) UpdateTask(ctx context.Context, id string, fields domain.TaskFields) (domain.Task, error) {
	s.clearError()

	current, _, _, ok := s.Locate(id)
	if !ok {
		s.fail(ctx, "update", msgUpdateFailed, ErrNotFoundLocally)
		return domain.Task{}, ErrNotFoundLocally
	}
	merged := fields.Merge(current)

	updated, err := s.api.Update(ctx, id, merged)
	if err != nil {
		s.fail(ctx, "update", msgUpdateFailed, err)
		return domain.Task{}, err
	}
	if updated.ID == "" {
		updated.ID = id
	}

	s.mu.Lock()
	s.removeLocked(id)
	s.prependLocked(updated)
	s.mu.Unlock()

	s.logger.WithFields(log.Fields{"task_id": id, "status": updated.Status}).Debug("kanban.update")
	s.notify(ctx, Change{Kind: ChangeUpdated, TaskID: id})
	return updated, nil
}

// DeleteTask removes a task remotely and then from whichever column holds it.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.clearError()

	if err := s.api.Remove(ctx, id); err != nil {
		s.fail(ctx, "delete", msgDeleteFailed, err)
		return err
	}

	s.mu.Lock()
	s.removeLocked(id)
	s.mu.Unlock()

	s.logger.WithField("task_id", id).Debug("kanban.delete")
	s.notify(ctx, Change{Kind: ChangeDeleted, TaskID: id})
	return nil
}

// Reorder moves the task at index from to index to within one column. It is
// local only: position is not part of the task record.
func (s *Store) Reorder(ctx context.Context, status domain.Status, from, to int) error {
	s.mu.Lock()
	items, ok := s.columns[status]
	if !ok || from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		s.mu.Unlock()
		return ErrInvalidPosition
	}
	if from == to {
		s.mu.Unlock()
		return nil
	}
	moved := items[from]
	s.columns[status] = arrayMove(items, from, to)
	s.mu.Unlock()

	s.notify(ctx, Change{Kind: ChangeReordered, TaskID: moved.ID})
	return nil
}

// MoveLocal moves a task into another column at index, without contacting
// the server. The moved task carries the new status. An index equal to the
// destination length appends.
func (s *Store) MoveLocal(ctx context.Context, id string, to domain.Status, index int) (domain.Task, error) {
	if !to.Valid() {
		return domain.Task{}, ErrInvalidPosition
	}
	s.mu.Lock()
	from, fromIdx := s.locateLocked(id)
	if fromIdx < 0 {
		s.mu.Unlock()
		return domain.Task{}, ErrNotFoundLocally
	}
	src := s.columns[from]
	task := src[fromIdx]

	rest := make([]domain.Task, 0, len(src)-1)
	rest = append(rest, src[:fromIdx]...)
	rest = append(rest, src[fromIdx+1:]...)
	s.columns[from] = rest

	dst := s.columns[to]
	if index < 0 || index > len(dst) {
		index = len(dst)
	}
	task.Status = to
	s.columns[to] = insertAt(dst, index, task)
	s.mu.Unlock()

	s.notify(ctx, Change{Kind: ChangeMoved, TaskID: id})
	return task, nil
}

// Task returns the locally known record for id.
func (s *Store) Task(id string) (domain.Task, bool) {
	t, _, _, ok := s.Locate(id)
	return t, ok
}

// Locate returns the task, its column and its index within that column.
func (s *Store) Locate(id string) (domain.Task, domain.Status, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, idx := s.locateLocked(id)
	if idx < 0 {
		return domain.Task{}, "", -1, false
	}
	return s.columns[st][idx], st, idx, true
}

// Len returns the number of tasks in a column.
func (s *Store) Len(status domain.Status) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.columns[status])
}

func (s *Store) locateLocked(id string) (domain.Status, int) {
	for _, st := range domain.Statuses {
		for i, t := range s.columns[st] {
			if t.ID == id {
				return st, i
			}
		}
	}
	return "", -1
}

func (s *Store) removeLocked(id string) {
	for _, st := range domain.Statuses {
		items := s.columns[st]
		for i, t := range items {
			if t.ID != id {
				continue
			}
			rest := make([]domain.Task, 0, len(items)-1)
			rest = append(rest, items[:i]...)
			rest = append(rest, items[i+1:]...)
			s.columns[st] = rest
			break
		}
	}
}

func (s *Store) prependLocked(t domain.Task) {
	if !t.Status.Valid() {
		t.Status = domain.StatusTodo
	}
	s.columns[t.Status] = insertAt(s.columns[t.Status], 0, t)
}

func (s *Store) clearError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

func (s *Store) fail(ctx context.Context, op, msg string, err error) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
	s.logger.WithError(err).Warn("kanban." + op + ".failed")
	s.notifyState(ctx)
}

func (s *Store) notifyState(ctx context.Context) {
	s.mu.RLock()
	ch := Change{Kind: ChangeState, Loading: s.loading, Error: s.err}
	s.mu.RUnlock()
	s.notify(ctx, ch)
}

func (s *Store) notify(ctx context.Context, ch Change) {
	s.mu.RLock()
	n := s.notifier
	s.mu.RUnlock()
	if n != nil {
		n.Notify(ctx, ch)
	}
}

func insertAt(items []domain.Task, index int, t domain.Task) []domain.Task {
	out := make([]domain.Task, 0, len(items)+1)
	out = append(out, items[:index]...)
	out = append(out, t)
	out = append(out, items[index:]...)
	return out
}

func arrayMove(items []domain.Task, from, to int) []domain.Task {
	out := make([]domain.Task, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	return insertAt(out, to, items[from])
}
