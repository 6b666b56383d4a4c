package repetier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultPollInterval   = 2 * time.Second
	defaultCameraInterval = 500 * time.Millisecond
	defaultTimeoutWindow  = 5 * time.Second
)

var (
	// ErrJobBusy is returned by StartPrint while a job is printing or paused,
	// or while another upload is in flight. No request is sent in that case.
	ErrJobBusy = errors.New("printer is busy with another job")

	// ErrNotConnected is returned by command methods while the connection is
	// closed.
	ErrNotConnected = errors.New("not connected")

	// ErrNotAcceptingCommands is returned after the server answered a status
	// poll with 401; the connection stays up read-only.
	ErrNotAcceptingCommands = errors.New("server does not accept commands")
)

// Config configures a Connection. Zero-valued durations fall back to the
// defaults above.
type Config struct {
	Endpoint       Endpoint
	Publisher      Publisher
	PollInterval   time.Duration
	CameraInterval time.Duration
	TimeoutWindow  time.Duration
	CameraEnabled  bool
	AutoPrint      bool
}

// Connection drives one Repetier-Server instance: it owns the transport,
// polls status/job/camera endpoints, tracks liveness, sequences uploads, and
// publishes everything observable to its Publisher.
//
// All mutable state below the "loop-owned" marker is touched only by the
// event-loop goroutine; public methods hand work to the loop through the cmds
// channel, so no locking is needed for it.
type Connection struct {
	endpoint    Endpoint
	publisher   Publisher
	pollEvery   time.Duration
	cameraEvery time.Duration
	window      time.Duration
	cameraOn    bool
	autoPrint   bool

	events chan Message
	cmds   chan func()

	mu      sync.Mutex
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// loop-owned state
	transport       sender
	pending         map[uuid.UUID]pendingRequest
	state           ConnectionState
	acceptsCommands bool
	lastRequestAt   time.Time
	lastResponseAt  time.Time
	preTimeout      ConnectionState
	hasPreTimeout   bool
	missCount       int
	job             JobStatus
	upload          *uploadSession

	// seams for tests
	newSender func(events chan<- Message) sender
	reachable func() bool
	now       func() time.Time
}

// NewConnection builds a Connection; Connect starts it.
func NewConnection(cfg Config) *Connection {
	c := &Connection{
		endpoint:    cfg.Endpoint,
		publisher:   cfg.Publisher,
		pollEvery:   cfg.PollInterval,
		cameraEvery: cfg.CameraInterval,
		window:      cfg.TimeoutWindow,
		cameraOn:    cfg.CameraEnabled,
		autoPrint:   cfg.AutoPrint,
		events:      make(chan Message, 64),
		cmds:        make(chan func(), 16),
		state:       StateClosed,
		missCount:   1,
		newSender:   func(events chan<- Message) sender { return newTransport(events) },
		reachable:   netAvailable,
		now:         time.Now,
	}
	if c.pollEvery <= 0 {
		c.pollEvery = defaultPollInterval
	}
	if c.cameraEvery <= 0 {
		c.cameraEvery = defaultCameraInterval
	}
	if c.window <= 0 {
		c.window = defaultTimeoutWindow
	}
	return c
}

// Connect starts the event loop: transition to Connecting, poll immediately
// so the caller observes progress before the first tick, then poll on the
// configured intervals. Calling Connect on a running connection is a no-op.
func (c *Connection) Connect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.runCtx, c.cancel = context.WithCancel(ctx)
	c.running = true
	c.wg.Add(1)
	go c.run(c.runCtx)
}

// Disconnect stops polling, aborts any in-flight upload, and transitions to
// Closed. It blocks until the loop has exited and is safe to call twice.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
}

func (c *Connection) run(ctx context.Context) {
	defer c.wg.Done()

	c.transport = c.newSender(c.events)
	c.pending = make(map[uuid.UUID]pendingRequest)
	c.lastRequestAt = time.Time{}
	c.lastResponseAt = time.Time{}
	c.hasPreTimeout = false
	c.missCount = 1
	c.acceptsCommands = false
	c.job = JobStatus{}

	c.setState(StateConnecting)
	c.publisher.AcceptsCommandsChanged(false)
	c.publisher.StatusTextChanged(fmt.Sprintf("connecting to Repetier-Server on %s", c.endpoint.Host))
	log.Printf("repetier: connecting to %s:%d (slug %s)", c.endpoint.Host, c.endpoint.Port, c.endpoint.Slug)

	poll := time.NewTicker(c.pollEvery)
	defer poll.Stop()
	camera := time.NewTicker(c.cameraEvery)
	defer camera.Stop()
	if !c.cameraOn {
		camera.Stop()
	}

	c.tick(c.now())
	if c.cameraOn {
		c.snapshotTick()
	}

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case <-poll.C:
			c.tick(c.now())
		case <-camera.C:
			c.snapshotTick()
		case msg := <-c.events:
			c.handleMessage(msg)
		case fn := <-c.cmds:
			fn()
		}
	}
}

func (c *Connection) shutdown() {
	c.abortUpload("connection closed")
	c.transport.Close()
	c.pending = nil
	c.acceptsCommands = false
	c.publisher.AcceptsCommandsChanged(false)
	c.publisher.JobUpdated(JobStatus{})
	c.setState(StateClosed)
	log.Printf("repetier: connection to %s closed", c.endpoint.Host)
}

// tick evaluates the liveness policy and, when the connection looks healthy,
// issues the periodic status and job polls. Exercised once immediately on
// connect and then once per poll interval.
func (c *Connection) tick(now time.Time) {
	var sinceResponse time.Duration
	if !c.lastResponseAt.IsZero() {
		sinceResponse = now.Sub(c.lastResponseAt)
	}
	sinceRequest := time.Duration(math.MaxInt64)
	if !c.lastRequestAt.IsZero() {
		sinceRequest = now.Sub(c.lastRequestAt)
	}

	// No network path at all: park in Error and stop issuing requests until
	// the probe recovers and a real response arrives.
	if !c.reachable() {
		if !c.hasPreTimeout {
			log.Printf("repetier: network unavailable, entering error state")
			c.recordStall()
			c.publisher.StatusTextChanged("the network connection was lost")
			c.abortUpload("connection lost")
		}
		return
	}
	if !c.hasPreTimeout {
		c.missCount = 1
	}

	// A stall outlasting window × missCount means the transport itself may be
	// wedged while claiming to be connected: rebuild it. The counter jumps
	// past multiples that already elapsed so one long stall produces one
	// recreation, not one per tick.
	if c.hasPreTimeout && !c.lastResponseAt.IsZero() &&
		sinceResponse > c.window*time.Duration(c.missCount) {
		c.missCount++
		for sinceResponse-c.window*time.Duration(c.missCount) > c.window {
			c.missCount++
		}
		log.Printf("repetier: stall lasted %.1fs, recreating transport", sinceResponse.Seconds())
		c.recreateTransport()
		return
	}

	// A request is outstanding and the window elapsed with no response: the
	// server stopped answering. Enter Error once per stall episode.
	if !c.hasPreTimeout && !c.lastResponseAt.IsZero() && !c.lastRequestAt.IsZero() &&
		sinceResponse > c.window && sinceRequest <= c.window {
		log.Printf("repetier: no response for %.1fs, connection timed out", sinceResponse.Seconds())
		c.recordStall()
		c.publisher.StatusTextChanged("the connection to Repetier-Server was lost")
		return
	}

	c.issuePoll(KindStatusPoll, c.endpoint.StateListURL())
	c.issuePoll(KindJobPoll, c.endpoint.JobListURL())
}

// snapshotTick requests a camera frame on its own cadence. The snapshot
// service is unauthenticated; its responses still count toward liveness.
func (c *Connection) snapshotTick() {
	if c.kindOutstanding(KindSnapshot) {
		return
	}
	c.issue(Request{Kind: KindSnapshot, Method: http.MethodGet, URL: c.endpoint.SnapshotURL()})
}

func (c *Connection) recordStall() {
	if !c.hasPreTimeout {
		c.preTimeout = c.state
		c.hasPreTimeout = true
	}
	c.setState(StateError)
}

func (c *Connection) recreateTransport() {
	c.transport.Close()
	c.transport = c.newSender(c.events)
	// Requests in flight against the old transport are orphaned on purpose:
	// their completions no longer match a pending id.
	c.pending = make(map[uuid.UUID]pendingRequest)
}

func (c *Connection) issuePoll(kind RequestKind, url string) {
	// Overlapping ticks are skipped, never queued.
	if c.kindOutstanding(kind) {
		return
	}
	c.issue(Request{Kind: kind, Method: http.MethodGet, URL: url, APIKey: c.endpoint.APIKey})
}

func (c *Connection) kindOutstanding(kind RequestKind) bool {
	for _, p := range c.pending {
		if p.kind == kind {
			return true
		}
	}
	return false
}

func (c *Connection) issue(req Request) uuid.UUID {
	return c.issueWith(c.runCtx, req)
}

func (c *Connection) issueWith(ctx context.Context, req Request) uuid.UUID {
	req.ID = uuid.New()
	c.pending[req.ID] = pendingRequest{kind: req.Kind, issuedAt: c.now()}
	c.lastRequestAt = c.now()
	c.transport.Do(ctx, req)
	return req.ID
}

func (c *Connection) handleMessage(msg Message) {
	switch m := msg.(type) {
	case Completion:
		c.handleCompletion(m)
	case UploadProgress:
		c.handleUploadProgress(m)
	default:
		log.Printf("repetier: unhandled transport message %T", msg)
	}
}

func (c *Connection) handleCompletion(comp Completion) {
	req, ok := c.pending[comp.ID]
	if !ok {
		log.Printf("repetier: dropping orphaned response %s", comp.ID)
		return
	}
	delete(c.pending, comp.ID)

	if isTimeoutErr(comp.Err) {
		log.Printf("repetier: %s request timed out", req.kind)
		c.recordStall()
		if req.kind == KindUpload || req.kind == KindModelCopy {
			c.failUpload("request timed out")
		}
		return
	}

	if comp.Err != nil {
		log.Printf("repetier: %s request failed: %v", req.kind, comp.Err)
		if req.kind == KindUpload || req.kind == KindModelCopy {
			c.failUpload("transfer failed")
		}
		return
	}

	if c.hasPreTimeout {
		// The server answers again after a stall: restore the state we were
		// in before the timeout.
		if !c.lastResponseAt.IsZero() {
			log.Printf("repetier: response received after %.1fs of silence", c.now().Sub(c.lastResponseAt).Seconds())
		}
		c.setState(c.preTimeout)
		c.hasPreTimeout = false
		c.missCount = 1
	}
	c.lastResponseAt = c.now()

	c.route(req.kind, comp)
}

func (c *Connection) route(kind RequestKind, comp Completion) {
	switch kind {
	case KindStatusPoll:
		c.handleStatusPoll(comp)
	case KindJobPoll:
		c.handleJobPoll(comp)
	case KindSnapshot:
		c.handleSnapshot(comp)
	case KindUpload:
		c.handleUploadResponse(comp)
	case KindModelCopy:
		c.handleModelCopyResponse(comp)
	case KindCommand:
		c.handleCommandAck(comp)
	default:
		log.Printf("repetier: dropping response of unknown kind %s", kind)
	}
}

func (c *Connection) handleStatusPoll(comp Completion) {
	switch comp.Status {
	case http.StatusOK:
		temps, err := ParseStateList(comp.Body, c.endpoint.Slug)
		if err != nil {
			log.Printf("repetier: %v", err)
			return
		}
		if !c.acceptsCommands {
			c.acceptsCommands = true
			c.publisher.AcceptsCommandsChanged(true)
			c.publisher.StatusTextChanged(fmt.Sprintf("connected to Repetier-Server on %s", c.endpoint.Slug))
		}
		if c.state == StateConnecting {
			c.setState(StateConnected)
		}
		c.publisher.TemperaturesUpdated(temps)
	case http.StatusUnauthorized:
		if c.acceptsCommands {
			c.acceptsCommands = false
			c.publisher.AcceptsCommandsChanged(false)
		}
		c.publisher.StatusTextChanged("Repetier-Server does not allow access to print")
	default:
		// TODO: surface repeated 5xx responses once the server's failure
		// modes are better understood.
		log.Printf("repetier: status poll returned %d", comp.Status)
	}
}

func (c *Connection) handleJobPoll(comp Completion) {
	if comp.Status != http.StatusOK {
		log.Printf("repetier: job poll returned %d", comp.Status)
		return
	}
	job, err := ParseJobList(comp.Body, c.endpoint.Slug)
	if err != nil {
		log.Printf("repetier: %v", err)
		return
	}
	c.job = job
	c.publisher.JobUpdated(job)
}

func (c *Connection) handleSnapshot(comp Completion) {
	if comp.Status != http.StatusOK {
		log.Printf("repetier: snapshot returned %d", comp.Status)
		return
	}
	c.publisher.FrameUpdated(comp.Body)
}

func (c *Connection) handleCommandAck(comp Completion) {
	if comp.Status >= 400 {
		log.Printf("repetier: command rejected with status %d", comp.Status)
		return
	}
	log.Printf("repetier: command accepted (%d)", comp.Status)
}

func (c *Connection) setState(next ConnectionState) {
	if c.state == next {
		return
	}
	log.Printf("repetier: connection state %s -> %s", c.state, next)
	c.state = next
	c.publisher.ConnectionStateChanged(next)
}

// post hands fn to the event loop. It fails once the connection is closed.
func (c *Connection) post(fn func()) error {
	c.mu.Lock()
	running, ctx := c.running, c.runCtx
	c.mu.Unlock()
	if !running {
		return ErrNotConnected
	}
	select {
	case c.cmds <- fn:
		return nil
	case <-ctx.Done():
		return ErrNotConnected
	}
}

// call runs fn on the event loop and waits for its result.
func (c *Connection) call(fn func() error) error {
	result := make(chan error, 1)
	if err := c.post(func() { result <- fn() }); err != nil {
		return err
	}
	c.mu.Lock()
	ctx := c.runCtx
	c.mu.Unlock()
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ErrNotConnected
	}
}
