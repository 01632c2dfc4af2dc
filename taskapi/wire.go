package taskapi

import (
	"bytes"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"kanban-board/domain"
)

// wireTask is a task record as the remote API returns it. Revisions of the
// API disagree on the timestamp key and on how statuses are spelled.
type wireTask struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    *string `json:"description"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
	CreatedAtCamel string  `json:"createdAt"`
}

type wireTaskBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type wireError struct {
	Error string `json:"error"`
}

var errEmptyBody = errors.New("empty response body")

// now is replaced in tests.
var now = time.Now

func (w wireTask) toDomain() domain.Task {
	t := domain.Task{
		ID:     w.ID,
		Title:  w.Title,
		Status: domain.StatusFromWire(w.Status),
	}
	if w.Description != nil {
		t.Description = *w.Description
	}
	switch {
	case w.CreatedAt != "":
		t.CreatedAt = w.CreatedAt
	case w.CreatedAtCamel != "":
		t.CreatedAt = w.CreatedAtCamel
	default:
		t.CreatedAt = now().UTC().Format(time.RFC3339)
	}
	return t
}

func decodeTask(data []byte) (domain.Task, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.Task{}, errEmptyBody
	}
	var w wireTask
	if err := sonic.ConfigStd.Unmarshal(data, &w); err != nil {
		return domain.Task{}, err
	}
	return w.toDomain(), nil
}

// decodeTaskList accepts either a JSON array of tasks or an object keyed by
// task id. Object entries have no inherent order, so they are sorted by
// creation time and then id.
func decodeTaskList(data []byte) ([]domain.Task, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []domain.Task{}, nil
	}

	if trimmed[0] == '{' {
		var byID map[string]wireTask
		if err := sonic.ConfigStd.Unmarshal(trimmed, &byID); err != nil {
			return nil, err
		}
		tasks := make([]domain.Task, 0, len(byID))
		for key, w := range byID {
			if w.ID == "" {
				w.ID = key
			}
			tasks = append(tasks, w.toDomain())
		}
		sort.SliceStable(tasks, func(i, j int) bool {
			if tasks[i].CreatedAt != tasks[j].CreatedAt {
				return tasks[i].CreatedAt < tasks[j].CreatedAt
			}
			return tasks[i].ID < tasks[j].ID
		})
		return tasks, nil
	}

	var list []wireTask
	if err := sonic.ConfigStd.Unmarshal(trimmed, &list); err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(list))
	for _, w := range list {
		tasks = append(tasks, w.toDomain())
	}
	return tasks, nil
}

// errorMessage extracts the `error` field of the API's error envelope.
// Bodies that are not an envelope are returned as trimmed text.
func errorMessage(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}
	var env wireError
	if err := sonic.ConfigStd.Unmarshal(trimmed, &env); err == nil && env.Error != "" {
		return env.Error
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return ""
	}
	return strings.TrimSpace(string(trimmed))
}
