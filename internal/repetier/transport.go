package repetier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestKind tags a request with its logical purpose when it is created, so
// responses are routed without inspecting URLs.
type RequestKind int

const (
	KindStatusPoll RequestKind = iota
	KindJobPoll
	KindSnapshot
	KindUpload
	KindModelCopy
	KindCommand
)

func (k RequestKind) String() string {
	switch k {
	case KindStatusPoll:
		return "status-poll"
	case KindJobPoll:
		return "job-poll"
	case KindSnapshot:
		return "snapshot"
	case KindUpload:
		return "upload"
	case KindModelCopy:
		return "model-copy"
	case KindCommand:
		return "command"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is delivered by the transport on the connection's event channel.
type Message interface {
	transportMessage()
}

// Completion reports the outcome of one request. Exactly one Completion is
// delivered per request, even on transport-level failure; Err is set and
// Status is zero when the request never produced an HTTP response.
type Completion struct {
	ID     uuid.UUID
	Status int
	Header http.Header
	Body   []byte
	Err    error
}

func (Completion) transportMessage() {}

// UploadProgress reports request-body bytes written so far. Total is zero
// while the size is unknown.
type UploadProgress struct {
	ID    uuid.UUID
	Sent  int64
	Total int64
}

func (UploadProgress) transportMessage() {}

// Request describes one HTTP call to dispatch.
type Request struct {
	ID            uuid.UUID
	Kind          RequestKind
	Method        string
	URL           string
	APIKey        string // X-Api-Key header when non-empty
	ContentType   string
	Body          []byte
	TrackProgress bool // emit UploadProgress messages while the body is sent
}

// sender dispatches requests without blocking the caller. Implemented by
// Transport; swapped for a recorder in tests.
type sender interface {
	Do(ctx context.Context, req Request)
	Close()
}

// Transport performs HTTP requests asynchronously and delivers completions
// on a shared message channel. It holds the one long-lived mutable resource,
// the underlying http.Client, so a suspected dead-but-connected client can be
// discarded and recreated wholesale.
type Transport struct {
	client *http.Client
	events chan<- Message
}

func newTransport(events chan<- Message) *Transport {
	return &Transport{
		// No client-level timeout: uploads may legitimately run for minutes.
		// Liveness is enforced by the connection's timeout window instead.
		client: &http.Client{},
		events: events,
	}
}

// Do issues the request in the background. The completion, success or
// failure, arrives on the event channel.
func (t *Transport) Do(ctx context.Context, req Request) {
	go func() {
		t.events <- t.roundTrip(ctx, req)
	}()
}

// Close releases pooled connections. In-flight requests keep running until
// they complete; their completions are dropped by the consumer once the
// request identity is no longer known.
func (t *Transport) Close() {
	t.client.CloseIdleConnections()
}

func (t *Transport) roundTrip(ctx context.Context, req Request) Completion {
	comp := Completion{ID: req.ID}

	var body io.Reader
	if len(req.Body) > 0 {
		if req.TrackProgress {
			body = &progressReader{
				reader: bytes.NewReader(req.Body),
				total:  int64(len(req.Body)),
				id:     req.ID,
				events: t.events,
			}
		} else {
			body = bytes.NewReader(req.Body)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		comp.Err = fmt.Errorf("create request: %w", err)
		return comp
	}
	if len(req.Body) > 0 {
		httpReq.ContentLength = int64(len(req.Body))
	}
	if req.APIKey != "" {
		httpReq.Header.Set(apiKeyHeader, req.APIKey)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		comp.Err = fmt.Errorf("execute request: %w", err)
		return comp
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		comp.Err = fmt.Errorf("read response: %w", err)
		return comp
	}

	comp.Status = resp.StatusCode
	comp.Header = resp.Header
	comp.Body = data
	return comp
}

// progressReader emits UploadProgress messages as the HTTP client drains the
// request body. Sends are non-blocking: a dropped progress tick is harmless,
// a stalled upload goroutine is not.
type progressReader struct {
	reader *bytes.Reader
	total  int64
	sent   int64
	id     uuid.UUID
	events chan<- Message
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		select {
		case p.events <- UploadProgress{ID: p.id, Sent: p.sent, Total: p.total}:
		default:
		}
	}
	return n, err
}

// isTimeoutErr reports whether a completion error represents a
// transport-level timeout rather than some other failure.
func isTimeoutErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// netAvailable reports whether the host has any usable network path at all:
// an interface that is up, not loopback, and carries an address. It stands in
// for the platform network-accessibility signal the poll tick consults before
// issuing requests.
func netAvailable() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}

// pendingRequest tracks one dispatched request until its completion arrives
// or the transport is recreated. Completions whose id is no longer present
// are orphans and get dropped.
type pendingRequest struct {
	kind     RequestKind
	issuedAt time.Time
}
