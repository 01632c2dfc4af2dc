package api

import (
	"kanban-board/domain"
	"kanban-board/kanban"
)

const noDescription = "No description"

// cardView is a task as shown on a card and in the detail dialog.
type cardView struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	DisplayText    string `json:"displayText"`
	HasDescription bool   `json:"hasDescription"`
	Status         string `json:"status"`
	StatusLabel    string `json:"statusLabel"`
	CreatedAt      string `json:"createdAt"`
	Created        string `json:"created"`
}

type columnView struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Count int        `json:"count"`
	Cards []cardView `json:"cards"`
}

type boardView struct {
	Columns []columnView `json:"columns"`
	Loading bool         `json:"loading"`
	Error   string       `json:"error,omitempty"`
}

type statusOption struct {
	Code  string
	Label string
}

type pageView struct {
	Board    boardView
	Statuses []statusOption
}

func newCardView(t domain.Task) cardView {
	v := cardView{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		DisplayText:    t.Description,
		HasDescription: t.Description != "",
		Status:         string(t.Status),
		StatusLabel:    t.Status.Label(),
		CreatedAt:      t.CreatedAt,
		Created:        t.CreatedDate(),
	}
	if !v.HasDescription {
		v.DisplayText = noDescription
	}
	return v
}

func newBoardView(b kanban.Board) boardView {
	v := boardView{
		Columns: make([]columnView, 0, len(b.Columns)),
		Loading: b.Loading,
		Error:   b.Error,
	}
	for _, col := range b.Columns {
		cv := columnView{
			ID:    string(col.Status),
			Name:  col.Name,
			Count: len(col.Items),
			Cards: make([]cardView, 0, len(col.Items)),
		}
		for _, t := range col.Items {
			cv.Cards = append(cv.Cards, newCardView(t))
		}
		v.Columns = append(v.Columns, cv)
	}
	return v
}

func statusOptions() []statusOption {
	out := make([]statusOption, 0, len(domain.Statuses))
	for _, s := range domain.Statuses {
		out = append(out, statusOption{Code: string(s), Label: s.Label()})
	}
	return out
}
