package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// resultSequence answers /getTaskResult with each body in order, repeating
// the last one once the sequence is exhausted.
func resultSequence(calls *int32, bodies ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		i := int(n) - 1
		if i >= len(bodies) {
			i = len(bodies) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, bodies[i])
	}
}

func TestPollResult_ProcessingThenReady(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(resultSequence(&calls,
		`{"status":"processing"}`,
		`{"status":"ready","solution":{"gRecaptchaResponse":"XYZ"}}`,
	))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	start := time.Now()
	token, err := c.PollResult(context.Background(), "T1")
	if err != nil {
		t.Fatalf("PollResult err = %v", err)
	}
	if token != "XYZ" {
		t.Fatalf("token = %q, want %q", token, "XYZ")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("network calls = %d, want 2", got)
	}
	if elapsed := time.Since(start); elapsed < c.pollInterval {
		t.Fatalf("returned after %v, want at least one %v delay", elapsed, c.pollInterval)
	}
}

func TestPollResult_TerminalFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(resultSequence(&calls,
		`{"status":"failed","errorCode":"ERROR_CAPTCHA_UNSOLVABLE"}`,
	))
	defer srv.Close()

	c, logs := newTestClient(t, srv, WithPollInterval(200*time.Millisecond))
	start := time.Now()
	token, err := c.PollResult(context.Background(), "T1")
	if token != "" {
		t.Fatalf("token = %q, want empty", token)
	}

	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Code != CodeCaptchaUnsolvable {
		t.Fatalf("err = %v, want RemoteError(%s)", err, CodeCaptchaUnsolvable)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("network calls = %d, want 1", got)
	}
	// A terminal error must not pay the poll delay.
	if elapsed := time.Since(start); elapsed >= c.pollInterval {
		t.Fatalf("returned after %v, should not have slept", elapsed)
	}
	if logs.Len() == 0 {
		t.Error("expected a diagnostic for the failed task")
	}
}

func TestPollResult_MalformedBody(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(resultSequence(&calls, `<html>oops</html>`))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	token, err := c.PollResult(context.Background(), "T1")
	if token != "" {
		t.Fatalf("token = %q, want empty", token)
	}

	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %T(%v), want *MalformedResponseError", err, err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("network calls = %d, want 1", got)
	}
}

func TestPollResult_ReadyWithoutSolution(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(resultSequence(&calls, `{"status":"ready"}`))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	_, err := c.PollResult(context.Background(), "T1")

	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %T(%v), want *MalformedResponseError", err, err)
	}
}

func TestPollResult_EmptyTaskID(t *testing.T) {
	c := New("k")
	if _, err := c.PollResult(context.Background(), ""); !errors.Is(err, ErrEmptyTaskID) {
		t.Fatalf("err = %v, want ErrEmptyTaskID", err)
	}
}

func TestPollResult_AttemptCap(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(resultSequence(&calls, `{"status":"processing"}`))
	defer srv.Close()

	c, _ := newTestClient(t, srv, WithMaxAttempts(3))
	_, err := c.PollResult(context.Background(), "T1")
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("err = %v, want ErrPollTimeout", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("network calls = %d, want 3", got)
	}
}

func TestPollResult_ContextCancelledDuringSleep(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(resultSequence(&calls, `{"status":"processing"}`))
	defer srv.Close()

	c, _ := newTestClient(t, srv, WithPollInterval(time.Minute))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.PollResult(ctx, "T1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("network calls = %d, want 1", got)
	}
}

func TestSolveRecaptchaV2_EndToEnd(t *testing.T) {
	var results int32
	mux := http.NewServeMux()
	mux.HandleFunc("/createTask", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"errorId":0,"taskId":"T7"}`)
	})
	mux.HandleFunc("/getTaskResult", resultSequence(&results,
		`{"status":"processing"}`,
		`{"status":"ready","solution":{"gRecaptchaResponse":"TOKEN"}}`,
	))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	token, err := c.SolveRecaptchaV2(context.Background(), "https://example.com", "site-key")
	if err != nil {
		t.Fatalf("SolveRecaptchaV2 err = %v", err)
	}
	if token != "TOKEN" {
		t.Fatalf("token = %q, want %q", token, "TOKEN")
	}
}

func TestSolveRecaptchaV2_CreateFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"errorId":1,"errorCode":"ERROR_KEY_DENIED"}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	_, err := c.SolveRecaptchaV2(context.Background(), "https://example.com", "k")

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err = %T(%v), want *RemoteError", err, err)
	}
}
