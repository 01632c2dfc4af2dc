package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"kanban-board/config"
)

type recordedCall struct {
	Method string
	Path   string
	Body   map[string]any
}

type cliRemote struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *cliRemote) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	data, _ := io.ReadAll(req.Body)
	call := recordedCall{Method: req.Method, Path: req.URL.Path}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &call.Body)
	}
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch req.Method {
	case http.MethodGet:
		_, _ = w.Write([]byte(`[
			{"id":"1","title":"Write docs","description":null,"status":"A Fazer","created_at":"2024-03-05T10:00:00Z"},
			{"id":"2","title":"Ship v1","description":"tag it","status":"Em Progresso","created_at":"2024-03-07T10:00:00Z"}
		]`))
	case http.MethodPost:
		call.Body["id"] = "9"
		call.Body["created_at"] = "2024-04-01T09:00:00Z"
		_ = json.NewEncoder(w).Encode(call.Body)
	case http.MethodPut:
		call.Body["id"] = strings.TrimPrefix(req.URL.Path, "/tasks/")
		_ = json.NewEncoder(w).Encode(call.Body)
	case http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (r *cliRemote) recorded() []recordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedCall(nil), r.calls...)
}

func runCLI(t *testing.T, args ...string) (string, *cliRemote, error) {
	t.Helper()
	for _, key := range []string{"TASK_API_URL", "LISTEN_ADDR", "REQUEST_TIMEOUT", "STATUS_FORMAT",
		"REDIS_CONNECTION_STRING", "UPDATES_CHANNEL", "IDEMPOTENCY_TTL", "LOG_LEVEL", "LOG_FORMAT", "DEBUG"} {
		t.Setenv(key, "")
	}
	remote := &cliRemote{}
	srv := httptest.NewServer(remote)
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "kanban.yaml")
	if err := os.WriteFile(path, []byte("task_api_url: "+srv.URL+"\nrequest_timeout: 2s\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", path}, args...))
	err := cmd.Execute()
	return out.String(), remote, err
}

func TestListPrintsColumns(t *testing.T) {
	out, _, err := runCLI(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"A Fazer (1)", "Em Progresso (1)", "Concluído (0)", "1  Write docs  05/03/2024"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAddSendsLabelStatus(t *testing.T) {
	out, remote, err := runCLI(t, "add", "Plan sprint", "-s", "in-progress")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	calls := remote.recorded()
	if len(calls) != 1 || calls[0].Method != http.MethodPost {
		t.Fatalf("expected one POST, got %+v", calls)
	}
	if calls[0].Body["status"] != "Em Progresso" || calls[0].Body["title"] != "Plan sprint" {
		t.Fatalf("unexpected payload %v", calls[0].Body)
	}
	if !strings.Contains(out, "[Em Progresso]") || !strings.Contains(out, "No description") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestMoveSendsFullRecord(t *testing.T) {
	_, remote, err := runCLI(t, "move", "2", "done")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	calls := remote.recorded()
	if len(calls) != 2 || calls[1].Method != http.MethodPut || calls[1].Path != "/tasks/2" {
		t.Fatalf("expected list then PUT, got %+v", calls)
	}
	body := calls[1].Body
	if body["status"] != "Concluído" || body["title"] != "Ship v1" || body["description"] != "tag it" {
		t.Fatalf("unexpected update payload %v", body)
	}
}

func TestCommandValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"move bad status", []string{"move", "1", "later"}},
		{"edit without flags", []string{"edit", "1"}},
		{"edit blank title", []string{"edit", "1", "--title", " "}},
		{"add blank title", []string{"add", "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, remote, err := runCLI(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if n := len(remote.recorded()); n != 0 {
				t.Fatalf("expected no remote calls, got %d", n)
			}
		})
	}
}

func TestRmUnknownLocallyStillDeletes(t *testing.T) {
	out, remote, err := runCLI(t, "rm", "42")
	if err != nil {
		t.Fatalf("rm: %v", err)
	}
	calls := remote.recorded()
	if len(calls) != 1 || calls[0].Method != http.MethodDelete || calls[0].Path != "/tasks/42" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	if !strings.Contains(out, "deleted 42") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNewLoggerJSONCarriesService(t *testing.T) {
	cfg := config.Default()
	cfg.LogFormat = "json"
	var buf bytes.Buffer
	logger, err := newLogger(cfg, &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.WithField("task_id", "1").Info("kanban.load")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["service"] != serviceName || entry["message"] != "kanban.load" || entry["task_id"] != "1" {
		t.Fatalf("unexpected entry %v", entry)
	}

	cfg.LogLevel = "loud"
	if _, err := newLogger(cfg, &buf); err == nil {
		t.Fatal("expected error for invalid level")
	}
}
