package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// newTestClient points a client with a short poll interval at srv and
// captures diagnostics into the returned buffer.
func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) (*Client, *bytes.Buffer) {
	t.Helper()

	var logs bytes.Buffer
	base := []Option{
		WithBaseURL(srv.URL),
		WithPollInterval(5 * time.Millisecond),
		WithLogger(zerolog.New(&logs)),
	}
	return New("test-key", append(base, opts...)...), &logs
}

func jsonHandler(t *testing.T, wantPath string, body string, calls *int) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		if r.URL.Path != wantPath {
			t.Errorf("path = %q, want %q", r.URL.Path, wantPath)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}
}

func TestCreateTask_Success(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"errorId":0,"taskId":"T1"}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	taskID, err := c.CreateTask(context.Background(), "https://example.com/login", "site-key")
	if err != nil {
		t.Fatalf("CreateTask err = %v, want nil", err)
	}
	if taskID != "T1" {
		t.Fatalf("taskID = %q, want %q", taskID, "T1")
	}

	var req createTaskRequest
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if req.ClientKey != "test-key" {
		t.Errorf("clientKey = %q, want %q", req.ClientKey, "test-key")
	}
	if req.Task.Type != TaskTypeRecaptchaV2 {
		t.Errorf("task type = %q, want %q", req.Task.Type, TaskTypeRecaptchaV2)
	}
	if req.Task.WebsiteURL != "https://example.com/login" || req.Task.WebsiteKey != "site-key" {
		t.Errorf("task payload = %+v", req.Task)
	}
}

func TestCreateTask_RemoteError(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, "/createTask", `{"errorId":1,"errorCode":"ERROR_KEY_DENIED"}`, nil))
	defer srv.Close()

	c, logs := newTestClient(t, srv)
	taskID, err := c.CreateTask(context.Background(), "https://example.com", "k")
	if taskID != "" {
		t.Fatalf("taskID = %q, want empty", taskID)
	}

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err = %T(%v), want *RemoteError", err, err)
	}
	if remote.Code != CodeKeyDenied {
		t.Errorf("code = %q, want %q", remote.Code, CodeKeyDenied)
	}
	if !strings.Contains(logs.String(), "ERROR_KEY_DENIED") {
		t.Errorf("diagnostics %q do not mention the error code", logs.String())
	}
}

func TestCreateTask_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, "/createTask", `not json at all`, nil))
	defer srv.Close()

	c, logs := newTestClient(t, srv)
	taskID, err := c.CreateTask(context.Background(), "https://example.com", "k")
	if taskID != "" {
		t.Fatalf("taskID = %q, want empty", taskID)
	}

	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %T(%v), want *MalformedResponseError", err, err)
	}
	if logs.Len() == 0 {
		t.Error("expected a diagnostic for the malformed response")
	}
}

func TestCreateTask_EmptyTaskID(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, "/createTask", `{"errorId":0,"taskId":""}`, nil))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	_, err := c.CreateTask(context.Background(), "https://example.com", "k")

	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %T(%v), want *MalformedResponseError", err, err)
	}
}

func TestCreateTask_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c, _ := newTestClient(t, srv)
	_, err := c.CreateTask(context.Background(), "https://example.com", "k")

	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("err = %T(%v), want *TransportError", err, err)
	}
}

func TestResultQuery_DeterministicEncoding(t *testing.T) {
	q1, err := json.Marshal(resultQuery{ClientKey: "key", TaskID: "T42"})
	if err != nil {
		t.Fatalf("marshal err = %v", err)
	}
	q2, err := json.Marshal(resultQuery{ClientKey: "key", TaskID: "T42"})
	if err != nil {
		t.Fatalf("marshal err = %v", err)
	}
	if !bytes.Equal(q1, q2) {
		t.Fatalf("same query serialized differently: %s vs %s", q1, q2)
	}
}

func TestGetBalance(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, "/getBalance", `{"errorId":0,"balance":123.45}`, nil))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	balance, err := c.GetBalance(context.Background())
	if err != nil {
		t.Fatalf("GetBalance err = %v", err)
	}
	if balance != 123.45 {
		t.Fatalf("balance = %v, want 123.45", balance)
	}
}

func TestGetBalance_KeyDenied(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, "/getBalance", `{"errorId":1,"errorCode":"ERROR_KEY_DENIED"}`, nil))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	_, err := c.GetBalance(context.Background())

	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Code != CodeKeyDenied {
		t.Fatalf("err = %v, want RemoteError(%s)", err, CodeKeyDenied)
	}
}

func TestReportIncorrect(t *testing.T) {
	var calls int
	srv := httptest.NewServer(jsonHandler(t, "/reportIncorrect", `{"errorId":0}`, &calls))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	if err := c.ReportIncorrect(context.Background(), "T1"); err != nil {
		t.Fatalf("ReportIncorrect err = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	if err := c.ReportIncorrect(context.Background(), ""); !errors.Is(err, ErrEmptyTaskID) {
		t.Fatalf("err = %v, want ErrEmptyTaskID", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New("k")
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
	if c.pollInterval != DefaultPollInterval {
		t.Errorf("pollInterval = %v, want %v", c.pollInterval, DefaultPollInterval)
	}
	if c.maxAttempts != 0 {
		t.Errorf("maxAttempts = %d, want 0 (no cap)", c.maxAttempts)
	}
}

func TestWithBaseURL_TrimsTrailingSlash(t *testing.T) {
	c := New("k", WithBaseURL("http://solver.local:8080/"))
	if c.baseURL != "http://solver.local:8080" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
}
