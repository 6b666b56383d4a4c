package state

import (
	"sync"
	"time"

	"github.com/kdore/gantry/internal/repetier"
)

// maxNotices bounds the notice ring; older notices fall off the front.
const maxNotices = 5

// Snapshot represents the latest printer data available to the UI.
type Snapshot struct {
	Connection      repetier.ConnectionState
	StatusText      string
	AcceptsCommands bool

	Temperatures repetier.Temperatures
	HasTemps     bool

	Job    repetier.JobStatus
	HasJob bool

	Upload repetier.UploadStatus

	// Frame is the most recent camera snapshot (JPEG bytes). FrameSeq
	// increments per frame so the UI can tell a fresh frame from a rerender.
	Frame    []byte
	FrameAt  time.Time
	FrameSeq uint64

	Notices     []repetier.Notice
	LastUpdated time.Time
}

// IsOffline reports whether the connection is in a state where no printer
// data can be trusted.
func (s Snapshot) IsOffline() bool {
	return s.Connection == repetier.StateClosed || s.Connection == repetier.StateError
}

// Store coordinates concurrent updates to the snapshot. It implements
// repetier.Publisher: the connection's event loop writes, the UI refresh loop
// reads. The zero value is ready to use.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

var _ repetier.Publisher = (*Store)(nil)

// ConnectionStateChanged records the new connection state. Leaving Connected
// invalidates temperatures and job data so the UI stops showing stale values.
func (s *Store) ConnectionStateChanged(state repetier.ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Connection = state
	if state != repetier.StateConnected {
		s.snapshot.HasTemps = false
		s.snapshot.HasJob = false
	}
	s.snapshot.LastUpdated = time.Now()
}

// StatusTextChanged records the human-readable connection status line.
func (s *Store) StatusTextChanged(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.StatusText = text
	s.snapshot.LastUpdated = time.Now()
}

// AcceptsCommandsChanged records whether the server honors control requests.
func (s *Store) AcceptsCommandsChanged(accepts bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.AcceptsCommands = accepts
	s.snapshot.LastUpdated = time.Now()
}

// TemperaturesUpdated records the latest hotend and bed readings.
func (s *Store) TemperaturesUpdated(t repetier.Temperatures) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Temperatures = t
	s.snapshot.HasTemps = true
	s.snapshot.LastUpdated = time.Now()
}

// JobUpdated records the latest job status.
func (s *Store) JobUpdated(j repetier.JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Job = j
	s.snapshot.HasJob = true
	s.snapshot.LastUpdated = time.Now()
}

// UploadUpdated records upload progress.
func (s *Store) UploadUpdated(u repetier.UploadStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Upload = u
	s.snapshot.LastUpdated = time.Now()
}

// FrameUpdated stores a camera frame. The bytes are copied; the caller may
// reuse its buffer.
func (s *Store) FrameUpdated(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Frame = cloneBytes(frame)
	s.snapshot.FrameAt = time.Now()
	s.snapshot.FrameSeq++
	s.snapshot.LastUpdated = time.Now()
}

// Notice appends to the notice ring, dropping the oldest entry past
// maxNotices.
func (s *Store) Notice(n repetier.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Notices = append(s.snapshot.Notices, n)
	if len(s.snapshot.Notices) > maxNotices {
		s.snapshot.Notices = s.snapshot.Notices[len(s.snapshot.Notices)-maxNotices:]
	}
	s.snapshot.LastUpdated = time.Now()
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Frame = cloneBytes(s.snapshot.Frame)
	snap.Notices = cloneNotices(s.snapshot.Notices)
	return snap
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	dup := make([]byte, len(b))
	copy(dup, b)
	return dup
}

func cloneNotices(notices []repetier.Notice) []repetier.Notice {
	if len(notices) == 0 {
		return nil
	}
	dup := make([]repetier.Notice, len(notices))
	copy(dup, notices)
	return dup
}
