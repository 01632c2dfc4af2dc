package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-board/board"
	"kanban-board/domain"
	"kanban-board/kanban"
	"kanban-board/taskapi"
)

// Register wires up the board page and all API routes on the provided Echo
// instance. dedup may be nil, in which case Idempotency-Key headers are ignored.
func Register(e *echo.Echo, store Store, drag Dragger, subs Subscriber, dedup Deduper, logger *log.Logger) {
	if e.Renderer == nil {
		e.Renderer = newRenderer()
	}
	e.GET("/", boardPage(store))
	e.GET("/healthz", healthz())

	g := e.Group("/api", RequestMetrics(logger))
	g.GET("/board", getBoard(store))
	g.POST("/board/reload", reloadBoard(store))
	g.GET("/tasks/:id", getTask(store))
	g.POST("/tasks", createTask(store, dedup))
	g.PATCH("/tasks/:id", patchTask(store))
	g.DELETE("/tasks/:id", deleteTask(store))
	g.POST("/drag/start", dragStart(drag))
	g.POST("/drag/drop", dragDrop(store, drag))
	g.POST("/drag/cancel", dragCancel(drag))
	e.GET("/api/stream", streamBoard(store, subs))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func boardPage(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.Render(http.StatusOK, boardTemplate, pageView{
			Board:    newBoardView(store.Snapshot()),
			Statuses: statusOptions(),
		})
	}
}

func getBoard(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, newBoardView(store.Snapshot()))
	}
}

func reloadBoard(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.Load(c.Request().Context()); err != nil {
			setErrorStage(c, "load", err)
			return c.JSON(errorStatus(err), errorResponse{Error: errorText(err)})
		}
		return c.JSON(http.StatusOK, newBoardView(store.Snapshot()))
	}
}

func getTask(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		task, ok := store.Task(c.Param("id"))
		if !ok {
			return c.JSON(http.StatusNotFound, errorResponse{Error: kanban.ErrNotFoundLocally.Error()})
		}
		return c.JSON(http.StatusOK, newCardView(task))
	}
}

func createTask(store Store, dedup Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		title := strings.TrimSpace(req.Title)
		if title == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "title is required"})
		}
		status := domain.StatusTodo
		if strings.TrimSpace(req.Status) != "" {
			s, ok := domain.ParseStatus(req.Status)
			if !ok {
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid status"})
			}
			status = s
		}

		ctx := c.Request().Context()
		key := strings.TrimSpace(c.Request().Header.Get(idempotencyHeader))
		if dedup != nil && key != "" {
			added, err := dedup.Add(ctx, key)
			if err != nil {
				setErrorStage(c, "dedupe", err)
				return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "idempotency check failed"})
			}
			if !added {
				return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
			}
		}

		task, err := store.CreateTask(ctx, domain.CreatePayload{
			Title:       title,
			Description: strings.TrimSpace(req.Description),
			Status:      status,
		})
		if err != nil {
			if dedup != nil && key != "" {
				if rerr := dedup.Remove(context.WithoutCancel(ctx), key); rerr != nil {
					c.Logger().Error(rerr)
				}
			}
			setErrorStage(c, "create", err)
			return c.JSON(errorStatus(err), errorResponse{Error: errorText(err)})
		}
		return c.JSON(http.StatusCreated, newCardView(task))
	}
}

func patchTask(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req patchRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		var fields domain.TaskFields
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "title is required"})
			}
			fields.Title = &title
		}
		if req.Description != nil {
			fields.Description = req.Description
		}
		if req.Status != nil {
			s, ok := domain.ParseStatus(*req.Status)
			if !ok {
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid status"})
			}
			fields.Status = &s
		}

		task, err := store.UpdateTask(c.Request().Context(), c.Param("id"), fields)
		if err != nil {
			setErrorStage(c, "update", err)
			return c.JSON(errorStatus(err), errorResponse{Error: errorText(err)})
		}
		return c.JSON(http.StatusOK, newCardView(task))
	}
}

func deleteTask(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
			setErrorStage(c, "delete", err)
			return c.JSON(errorStatus(err), errorResponse{Error: errorText(err)})
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func dragStart(drag Dragger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req dragStartRequest
		if err := c.Bind(&req); err != nil || req.TaskID == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "taskId is required"})
		}
		if err := drag.Start(req.TaskID); err != nil {
			return c.JSON(errorStatus(err), errorResponse{Error: errorText(err)})
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func dragDrop(store Store, drag Dragger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req dragDropRequest
		if err := c.Bind(&req); err != nil {
			drag.Cancel()
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		outcome, err := drag.Drop(c.Request().Context(), req.OverID)
		if err != nil {
			setErrorStage(c, "drop", err)
			return c.JSON(errorStatus(err), errorResponse{Error: errorText(err), Outcome: outcome})
		}
		return c.JSON(http.StatusOK, dropResponse{Outcome: outcome, Board: newBoardView(store.Snapshot())})
	}
}

func dragCancel(drag Dragger) echo.HandlerFunc {
	return func(c echo.Context) error {
		drag.Cancel()
		return c.NoContent(http.StatusNoContent)
	}
}

// errorStatus maps store, drag and task API errors onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, kanban.ErrNotFoundLocally), errors.Is(err, board.ErrUnknownTask):
		return http.StatusNotFound
	case errors.Is(err, board.ErrNotDragging), errors.Is(err, kanban.ErrInvalidPosition):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	var remote taskapi.RemoteError
	if errors.As(err, &remote) {
		switch remote.HTTPStatus() {
		case http.StatusBadRequest, http.StatusNotFound:
			return remote.HTTPStatus()
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorText(err error) string {
	var remote taskapi.RemoteError
	if errors.As(err, &remote) {
		return remote.RemoteMessage()
	}
	return err.Error()
}
