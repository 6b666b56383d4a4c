package repetier

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func waitCompletion(t *testing.T, events <-chan Message) Completion {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-events:
			if comp, ok := msg.(Completion); ok {
				return comp
			}
		case <-deadline:
			t.Fatal("timed out waiting for completion")
		}
	}
}

func TestTransport_DeliversExactlyOneCompletion(t *testing.T) {
	t.Parallel()

	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(server.Close)

	events := make(chan Message, 64)
	tr := newTransport(events)
	id := uuid.New()
	tr.Do(context.Background(), Request{ID: id, Kind: KindStatusPoll, Method: http.MethodGet, URL: server.URL, APIKey: "secret"})

	comp := waitCompletion(t, events)
	if comp.ID != id {
		t.Errorf("completion id = %s, want %s", comp.ID, id)
	}
	if comp.Err != nil {
		t.Errorf("completion err = %v, want nil", comp.Err)
	}
	if comp.Status != http.StatusOK {
		t.Errorf("completion status = %d, want 200", comp.Status)
	}
	if string(comp.Body) != `{"ok":true}` {
		t.Errorf("completion body = %q", comp.Body)
	}
	if gotKey != "secret" {
		t.Errorf("X-Api-Key = %q, want secret", gotKey)
	}

	select {
	case msg := <-events:
		t.Fatalf("unexpected second message: %#v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTransport_FailureStillCompletes(t *testing.T) {
	t.Parallel()

	events := make(chan Message, 64)
	tr := newTransport(events)
	id := uuid.New()
	// Port 1 is essentially guaranteed to refuse connections.
	tr.Do(context.Background(), Request{ID: id, Kind: KindJobPoll, Method: http.MethodGet, URL: "http://127.0.0.1:1/"})

	comp := waitCompletion(t, events)
	if comp.ID != id {
		t.Errorf("completion id = %s, want %s", comp.ID, id)
	}
	if comp.Err == nil {
		t.Error("completion err = nil, want transport error")
	}
	if comp.Status != 0 {
		t.Errorf("completion status = %d, want 0 on transport failure", comp.Status)
	}
}

func TestTransport_UploadProgressEvents(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("G1 X10 Y10\n"), 20000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)

	events := make(chan Message, 256)
	tr := newTransport(events)
	id := uuid.New()
	tr.Do(context.Background(), Request{
		ID:            id,
		Kind:          KindUpload,
		Method:        http.MethodPost,
		URL:           server.URL,
		Body:          payload,
		ContentType:   "application/octet-stream",
		TrackProgress: true,
	})

	var sawProgress bool
	var lastSent int64
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-events:
			switch m := msg.(type) {
			case UploadProgress:
				if m.ID != id {
					t.Fatalf("progress id = %s, want %s", m.ID, id)
				}
				if m.Total != int64(len(payload)) {
					t.Fatalf("progress total = %d, want %d", m.Total, len(payload))
				}
				if m.Sent < lastSent {
					t.Fatalf("progress went backwards: %d after %d", m.Sent, lastSent)
				}
				lastSent = m.Sent
				sawProgress = true
			case Completion:
				if m.Status != http.StatusCreated {
					t.Fatalf("completion status = %d, want 201", m.Status)
				}
				if !sawProgress {
					t.Fatal("no progress events before completion")
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for upload completion")
		}
	}
}

func TestIsTimeoutErr(t *testing.T) {
	if !isTimeoutErr(context.DeadlineExceeded) {
		t.Error("context.DeadlineExceeded not classified as timeout")
	}
	if isTimeoutErr(nil) {
		t.Error("nil classified as timeout")
	}
	if isTimeoutErr(errors.New("boom")) {
		t.Error("generic error classified as timeout")
	}
}

func TestTransport_ContextTimeoutIsTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	events := make(chan Message, 8)
	tr := newTransport(events)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	t.Cleanup(cancel)
	tr.Do(ctx, Request{ID: uuid.New(), Kind: KindStatusPoll, Method: http.MethodGet, URL: server.URL})

	comp := waitCompletion(t, events)
	if !isTimeoutErr(comp.Err) {
		t.Errorf("completion err = %v, want a timeout", comp.Err)
	}
}
