package domain

import "strings"

// Status is the column a task belongs to.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses lists the board columns in display order.
var Statuses = [...]Status{StatusTodo, StatusInProgress, StatusDone}

var statusLabels = map[Status]string{
	StatusTodo:       "A Fazer",
	StatusInProgress: "Em Progresso",
	StatusDone:       "Concluído",
}

var labelStatuses = func() map[string]Status {
	m := make(map[string]Status, len(statusLabels))
	for s, l := range statusLabels {
		m[l] = s
	}
	return m
}()

// Valid reports whether s is one of the three board columns.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the localized label used by the task API and as the column name.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return statusLabels[StatusTodo]
}

func (s Status) String() string { return string(s) }

// ParseStatus accepts a status code or its label. The second return value is
// false when the input matched neither.
func ParseStatus(raw string) (Status, bool) {
	raw = strings.TrimSpace(raw)
	if s := Status(raw); s.Valid() {
		return s, true
	}
	if s, ok := labelStatuses[raw]; ok {
		return s, true
	}
	return "", false
}

// StatusFromWire normalizes whatever the task API sent. Unknown values fall back to todo.
func StatusFromWire(raw string) Status {
	if s, ok := ParseStatus(raw); ok {
		return s
	}
	return StatusTodo
}
