package kanban

import "kanban-board/domain"

// Column is one board column as handed to views.
type Column struct {
	Status domain.Status `json:"id"`
	Name   string        `json:"name"`
	Items  []domain.Task `json:"items"`
}

// Board is a copy of the grouping plus the status flags.
type Board struct {
	Columns []Column `json:"columns"`
	Loading bool     `json:"loading"`
	Error   string   `json:"error,omitempty"`
}

// Column returns the column for status, or an empty column if there is none.
func (b Board) Column(status domain.Status) Column {
	for _, c := range b.Columns {
		if c.Status == status {
			return c
		}
	}
	return Column{Status: status, Name: status.Label(), Items: []domain.Task{}}
}

// Tasks returns every task on the board in column order.
func (b Board) Tasks() []domain.Task {
	var out []domain.Task
	for _, c := range b.Columns {
		out = append(out, c.Items...)
	}
	return out
}

// Snapshot copies the current board. Callers may keep and modify the result.
func (s *Store) Snapshot() Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := Board{
		Columns: make([]Column, 0, len(domain.Statuses)),
		Loading: s.loading,
		Error:   s.err,
	}
	for _, st := range domain.Statuses {
		items := make([]domain.Task, len(s.columns[st]))
		copy(items, s.columns[st])
		b.Columns = append(b.Columns, Column{Status: st, Name: st.Label(), Items: items})
	}
	return b
}

// Loading reports whether a Load is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last recorded error message, or "".
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
