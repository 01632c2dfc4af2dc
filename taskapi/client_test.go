package taskapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"kanban-board/domain"
)

type recordedRequest struct {
	method    string
	path      string
	body      string
	requestID string
}

type fakeAPI struct {
	t      *testing.T
	status int
	body   string

	mu   sync.Mutex
	reqs []recordedRequest
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		f.t.Fatalf("read body: %v", err)
	}
	f.mu.Lock()
	f.reqs = append(f.reqs, recordedRequest{
		method:    r.Method,
		path:      r.URL.Path,
		body:      string(data),
		requestID: r.Header.Get(headerRequestID),
	})
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(f.body))
}

func (f *fakeAPI) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reqs) == 0 {
		f.t.Fatal("no request recorded")
	}
	return f.reqs[len(f.reqs)-1]
}

func newTestClient(t *testing.T, status int, body string, format StatusFormat) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{t: t, status: status, body: body}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	logger := log.New()
	logger.SetOutput(io.Discard)
	return New(Config{BaseURL: srv.URL + "/", StatusFormat: format, Logger: logger}), api
}

func TestListArray(t *testing.T) {
	body := `[
		{"id":"1","title":"a","description":null,"status":"A Fazer","created_at":"2024-01-01T00:00:00Z"},
		{"id":"2","title":"b","description":"x","status":"in-progress","createdAt":"2024-01-02T00:00:00Z"},
		{"id":"3","title":"c","status":"Concluído","created_at":"2024-01-03T00:00:00Z"},
		{"id":"4","title":"d","status":"weird","created_at":"2024-01-04T00:00:00Z"}
	]`
	c, api := newTestClient(t, http.StatusOK, body, StatusFormatLabel)

	tasks, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []domain.Task{
		{ID: "1", Title: "a", Description: "", Status: domain.StatusTodo, CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "2", Title: "b", Description: "x", Status: domain.StatusInProgress, CreatedAt: "2024-01-02T00:00:00Z"},
		{ID: "3", Title: "c", Description: "", Status: domain.StatusDone, CreatedAt: "2024-01-03T00:00:00Z"},
		{ID: "4", Title: "d", Description: "", Status: domain.StatusTodo, CreatedAt: "2024-01-04T00:00:00Z"},
	}
	if len(tasks) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(tasks))
	}
	for i := range want {
		if tasks[i] != want[i] {
			t.Fatalf("task %d: got %#v, want %#v", i, tasks[i], want[i])
		}
	}
	req := api.last()
	if req.method != http.MethodGet || req.path != "/tasks" {
		t.Fatalf("unexpected request %s %s", req.method, req.path)
	}
	if req.requestID == "" {
		t.Fatal("expected request id header")
	}
}

func TestListObjectSortedByCreation(t *testing.T) {
	body := `{
		"b":{"id":"b","title":"second","status":"todo","created_at":"2024-02-01T00:00:00Z"},
		"a":{"id":"a","title":"first","status":"done","created_at":"2024-01-01T00:00:00Z"},
		"c":{"title":"keyed","status":"Em Progresso","created_at":"2024-03-01T00:00:00Z"}
	}`
	c, _ := newTestClient(t, http.StatusOK, body, StatusFormatLabel)

	tasks, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "a" || tasks[1].ID != "b" || tasks[2].ID != "c" {
		t.Fatalf("unexpected order: %s %s %s", tasks[0].ID, tasks[1].ID, tasks[2].ID)
	}
	if tasks[2].Status != domain.StatusInProgress {
		t.Fatalf("expected label to map to in-progress, got %q", tasks[2].Status)
	}
}

func TestListMissingTimestampUsesNow(t *testing.T) {
	prev := now
	now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	t.Cleanup(func() { now = prev })

	c, _ := newTestClient(t, http.StatusOK, `[{"id":"1","title":"a","status":"todo"}]`, StatusFormatLabel)
	tasks, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if tasks[0].CreatedAt != "2024-05-06T07:08:09Z" {
		t.Fatalf("unexpected timestamp %q", tasks[0].CreatedAt)
	}
}

func TestListErrorEnvelope(t *testing.T) {
	c, _ := newTestClient(t, http.StatusInternalServerError, `{"error":"failed to retrieve tasks"}`, StatusFormatLabel)

	_, err := c.List(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T %v", err, err)
	}
	if fe.HTTPStatus() != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", fe.HTTPStatus())
	}
	if fe.RemoteMessage() != "failed to retrieve tasks" {
		t.Fatalf("unexpected message %q", fe.RemoteMessage())
	}
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatal("expected error to wrap ErrUnexpectedStatus")
	}
	if !strings.Contains(err.Error(), "fetch tasks") {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}

func TestListTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(Config{BaseURL: srv.URL})

	_, err := c.List(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fe.HTTPStatus() != 0 {
		t.Fatalf("expected no status for transport failure, got %d", fe.HTTPStatus())
	}
	if fe.Unwrap() == nil {
		t.Fatal("expected wrapped transport error")
	}
}

func TestCreateDefaults(t *testing.T) {
	c, api := newTestClient(t, http.StatusCreated,
		`{"id":"n1","title":"write","description":"","status":"A Fazer","created_at":"2024-01-01T00:00:00Z"}`,
		StatusFormatLabel)

	task, err := c.Create(context.Background(), domain.CreatePayload{Title: "write"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID != "n1" || task.Status != domain.StatusTodo {
		t.Fatalf("unexpected task %#v", task)
	}
	var sent wireTaskBody
	if err := sonic.UnmarshalString(api.last().body, &sent); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if sent != (wireTaskBody{Title: "write", Description: "", Status: "A Fazer"}) {
		t.Fatalf("unexpected body %#v", sent)
	}
	if api.last().method != http.MethodPost {
		t.Fatalf("unexpected method %s", api.last().method)
	}
}

func TestCreateValidationError(t *testing.T) {
	c, _ := newTestClient(t, http.StatusBadRequest, `{"error":"title is required"}`, StatusFormatLabel)

	_, err := c.Create(context.Background(), domain.CreatePayload{})
	var ce *CreateError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CreateError, got %T", err)
	}
	if ce.RemoteMessage() != "title is required" {
		t.Fatalf("unexpected message %q", ce.RemoteMessage())
	}
}

func TestUpdateSendsFullRecordAsCodes(t *testing.T) {
	c, api := newTestClient(t, http.StatusOK,
		`{"id":"7","title":"t","description":"d","status":"done","created_at":"2024-01-01T00:00:00Z"}`,
		StatusFormatCode)

	task, err := c.Update(context.Background(), "7", domain.Task{ID: "7", Title: "t", Description: "d", Status: domain.StatusDone})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if task.Status != domain.StatusDone {
		t.Fatalf("unexpected status %q", task.Status)
	}
	req := api.last()
	if req.method != http.MethodPut || req.path != "/tasks/7" {
		t.Fatalf("unexpected request %s %s", req.method, req.path)
	}
	var sent wireTaskBody
	if err := sonic.UnmarshalString(req.body, &sent); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if sent != (wireTaskBody{Title: "t", Description: "d", Status: "done"}) {
		t.Fatalf("unexpected body %#v", sent)
	}
}

func TestUpdateNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.StatusNotFound, `{"error":"task not found"}`, StatusFormatLabel)

	_, err := c.Update(context.Background(), "x", domain.Task{Title: "t", Status: domain.StatusTodo})
	var ue *UpdateError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpdateError, got %T", err)
	}
	if ue.HTTPStatus() != http.StatusNotFound {
		t.Fatalf("unexpected status %d", ue.HTTPStatus())
	}
}

func TestRemove(t *testing.T) {
	c, api := newTestClient(t, http.StatusNoContent, "", StatusFormatLabel)

	if err := c.Remove(context.Background(), "a/b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if api.last().method != http.MethodDelete {
		t.Fatalf("unexpected method %s", api.last().method)
	}
}

func TestRemoveFailure(t *testing.T) {
	c, _ := newTestClient(t, http.StatusNotFound, "task not found", StatusFormatLabel)

	err := c.Remove(context.Background(), "x")
	var de *DeleteError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeleteError, got %T", err)
	}
	if de.RemoteMessage() != "task not found" {
		t.Fatalf("unexpected message %q", de.RemoteMessage())
	}
}

func TestRequestSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	c, _ := newTestClient(t, http.StatusBadGateway, `{"error":"upstream down"}`, StatusFormatLabel)
	if _, err := c.List(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "taskapi.List" {
		t.Fatalf("unexpected span name %q", span.Name)
	}
	if span.Status.Code != codes.Error {
		t.Fatalf("expected error status, got %v", span.Status.Code)
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes {
		attrs[kv.Key] = kv.Value
	}
	if attrs["http.status_code"].AsInt64() != http.StatusBadGateway {
		t.Fatalf("unexpected status attribute %v", attrs["http.status_code"])
	}
	if attrs["http.method"].AsString() != http.MethodGet {
		t.Fatalf("unexpected method attribute %v", attrs["http.method"])
	}
}
