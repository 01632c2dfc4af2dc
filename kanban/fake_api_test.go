package kanban

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"kanban-board/domain"
)

var errRemote = errors.New("remote failure")

// fakeAPI behaves like the remote task service, keeping tasks in insertion order.
type fakeAPI struct {
	mu      sync.Mutex
	tasks   []domain.Task
	nextID  int
	calls   []string
	updates []domain.Task

	listErr   error
	createErr error
	updateErr error
	removeErr error
}

func newFakeAPI(tasks ...domain.Task) *fakeAPI {
	return &fakeAPI{tasks: append([]domain.Task(nil), tasks...), nextID: 100}
}

func (f *fakeAPI) List(ctx context.Context) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Task(nil), f.tasks...), nil
}

func (f *fakeAPI) Create(ctx context.Context, p domain.CreatePayload) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return domain.Task{}, f.createErr
	}
	f.nextID++
	t := domain.Task{
		ID:          fmt.Sprint(f.nextID),
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
		CreatedAt:   "2024-01-01T00:00:00Z",
	}
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *fakeAPI) Update(ctx context.Context, id string, t domain.Task) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update")
	f.updates = append(f.updates, t)
	if f.updateErr != nil {
		return domain.Task{}, f.updateErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			t.ID = id
			t.CreatedAt = f.tasks[i].CreatedAt
			f.tasks[i] = t
			return t, nil
		}
	}
	return domain.Task{}, errors.New("task not found")
}

func (f *fakeAPI) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "remove")
	if f.removeErr != nil {
		return f.removeErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return errors.New("task not found")
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
