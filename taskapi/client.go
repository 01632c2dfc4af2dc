package taskapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kanban-board/domain"
)

const (
	tracerName      = "kanban-board/taskapi"
	maxResponseSize = 4 << 20
	headerRequestID = "X-Request-ID"
)

// StatusFormat selects how statuses are written to the task API.
type StatusFormat string

const (
	// StatusFormatLabel sends the localized label, e.g. "Em Progresso".
	StatusFormatLabel StatusFormat = "label"
	// StatusFormatCode sends the column code, e.g. "in-progress".
	StatusFormatCode StatusFormat = "code"
)

// Config configures a Client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	StatusFormat StatusFormat
	HTTPClient   *http.Client
	Logger       *log.Logger
}

// Client talks to the remote task API. It keeps no state between calls.
type Client struct {
	baseURL      string
	timeout      time.Duration
	statusFormat StatusFormat
	http         *http.Client
	logger       *log.Logger
	tracer       trace.Tracer
}

// New creates a Client. A missing HTTP client or logger is replaced by a default one.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	format := cfg.StatusFormat
	if format != StatusFormatCode {
		format = StatusFormatLabel
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		timeout:      cfg.Timeout,
		statusFormat: format,
		http:         hc,
		logger:       logger,
		tracer:       otel.Tracer(tracerName),
	}
}

// List fetches every task known to the remote service.
func (c *Client) List(ctx context.Context) ([]domain.Task, error) {
	body, rerr := c.do(ctx, "List", http.MethodGet, "/tasks", nil)
	if rerr != nil {
		return nil, &FetchError{*rerr}
	}
	tasks, err := decodeTaskList(body)
	if err != nil {
		return nil, &FetchError{requestError{StatusCode: http.StatusOK, Err: err}}
	}
	return tasks, nil
}

// Create adds a task. Empty status becomes todo.
func (c *Client) Create(ctx context.Context, p domain.CreatePayload) (domain.Task, error) {
	status := p.Status
	if status == "" {
		status = domain.StatusTodo
	}
	in := c.encodeTask(p.Title, p.Description, status)
	body, rerr := c.do(ctx, "Create", http.MethodPost, "/tasks", in)
	if rerr != nil {
		return domain.Task{}, &CreateError{*rerr}
	}
	task, err := decodeTask(body)
	if err != nil {
		return domain.Task{}, &CreateError{requestError{StatusCode: http.StatusOK, Err: err}}
	}
	return task, nil
}

// Update replaces the task record identified by id. The remote API has no
// partial updates, so t must be complete.
func (c *Client) Update(ctx context.Context, id string, t domain.Task) (domain.Task, error) {
	in := c.encodeTask(t.Title, t.Description, t.Status)
	body, rerr := c.do(ctx, "Update", http.MethodPut, "/tasks/"+url.PathEscape(id), in)
	if rerr != nil {
		return domain.Task{}, &UpdateError{*rerr}
	}
	task, err := decodeTask(body)
	if err != nil {
		return domain.Task{}, &UpdateError{requestError{StatusCode: http.StatusOK, Err: err}}
	}
	return task, nil
}

// Remove deletes the task identified by id.
func (c *Client) Remove(ctx context.Context, id string) error {
	if _, rerr := c.do(ctx, "Remove", http.MethodDelete, "/tasks/"+url.PathEscape(id), nil); rerr != nil {
		return &DeleteError{*rerr}
	}
	return nil
}

func (c *Client) encodeTask(title, description string, status domain.Status) wireTaskBody {
	s := status.Label()
	if c.statusFormat == StatusFormatCode {
		if !status.Valid() {
			status = domain.StatusTodo
		}
		s = string(status)
	}
	return wireTaskBody{Title: title, Description: description, Status: s}
}

func (c *Client) do(ctx context.Context, op, method, path string, in any) (_ []byte, rerr *requestError) {
	requestID := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "taskapi."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
			attribute.String("request.id", requestID),
		))
	start := time.Now()
	status := 0
	defer func() {
		span.SetAttributes(attribute.Int("http.status_code", status))
		fields := log.Fields{
			"op":          op,
			"method":      method,
			"path":        path,
			"status":      status,
			"request_id":  requestID,
			"duration_ms": float64(time.Since(start)) / float64(time.Millisecond),
		}
		if rerr != nil {
			cause := rerr.Err
			if cause == nil {
				cause = errors.New(rerr.RemoteMessage())
			}
			span.RecordError(cause)
			span.SetStatus(codes.Error, rerr.RemoteMessage())
			fields["error"] = rerr.RemoteMessage()
		}
		c.logger.WithFields(fields).Debug("taskapi.request")
		span.End()
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if in != nil {
		data, err := sonic.Marshal(in)
		if err != nil {
			return nil, &requestError{Err: err}
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &requestError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &requestError{Err: err}
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &requestError{StatusCode: status, Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &requestError{
			StatusCode: status,
			Message:    errorMessage(data),
			Err:        fmt.Errorf("%w: %d", ErrUnexpectedStatus, status),
		}
	}
	return data, nil
}
