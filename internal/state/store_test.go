package state

import (
	"testing"
	"time"

	"github.com/kdore/gantry/internal/repetier"
)

func TestStore_PublisherUpdatesSnapshot(t *testing.T) {
	var s Store

	before := time.Now()
	s.ConnectionStateChanged(repetier.StateConnecting)
	s.StatusTextChanged("connecting to Repetier-Server on printer.local")
	s.ConnectionStateChanged(repetier.StateConnected)
	s.AcceptsCommandsChanged(true)
	s.TemperaturesUpdated(repetier.Temperatures{Hotend: 205, Bed: 60})
	s.JobUpdated(repetier.JobStatus{Name: "benchy", State: repetier.JobPrinting, Progress: 42.5})

	snap := s.Snapshot()
	if snap.Connection != repetier.StateConnected {
		t.Errorf("Connection = %s, want connected", snap.Connection)
	}
	if !snap.AcceptsCommands {
		t.Error("AcceptsCommands = false, want true")
	}
	if !snap.HasTemps || snap.Temperatures != (repetier.Temperatures{Hotend: 205, Bed: 60}) {
		t.Errorf("temps = %+v (has=%v), want 205/60", snap.Temperatures, snap.HasTemps)
	}
	if !snap.HasJob || snap.Job.Name != "benchy" {
		t.Errorf("job = %+v (has=%v), want benchy", snap.Job, snap.HasJob)
	}
	if snap.LastUpdated.Before(before) {
		t.Errorf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
}

func TestStore_DisconnectInvalidatesReadings(t *testing.T) {
	var s Store

	s.ConnectionStateChanged(repetier.StateConnected)
	s.TemperaturesUpdated(repetier.Temperatures{Hotend: 205, Bed: 60})
	s.JobUpdated(repetier.JobStatus{State: repetier.JobReady})

	s.ConnectionStateChanged(repetier.StateError)

	snap := s.Snapshot()
	if snap.HasTemps {
		t.Error("HasTemps = true after leaving connected, want false")
	}
	if snap.HasJob {
		t.Error("HasJob = true after leaving connected, want false")
	}
	if !snap.IsOffline() {
		t.Error("IsOffline() = false in error state, want true")
	}
}

func TestStore_FrameIsCopied(t *testing.T) {
	var s Store

	frame := []byte{0xff, 0xd8, 0x01}
	s.FrameUpdated(frame)
	frame[2] = 0x99 // caller reuses its buffer

	snap := s.Snapshot()
	if snap.Frame[2] != 0x01 {
		t.Error("stored frame aliases the caller's buffer")
	}
	if snap.FrameSeq != 1 {
		t.Errorf("FrameSeq = %d, want 1", snap.FrameSeq)
	}

	// Mutating the snapshot must not reach the store either.
	snap.Frame[0] = 0x00
	if s.Snapshot().Frame[0] != 0xff {
		t.Error("Snapshot returned an aliased frame")
	}

	s.FrameUpdated([]byte{0xff, 0xd8, 0x02})
	if got := s.Snapshot().FrameSeq; got != 2 {
		t.Errorf("FrameSeq = %d, want 2", got)
	}
}

func TestStore_NoticeRingIsBounded(t *testing.T) {
	var s Store

	texts := []string{"one", "two", "three", "four", "five", "six", "seven"}
	for _, text := range texts {
		s.Notice(repetier.Notice{Text: text})
	}

	snap := s.Snapshot()
	if len(snap.Notices) != maxNotices {
		t.Fatalf("notices = %d, want capped at %d", len(snap.Notices), maxNotices)
	}
	if snap.Notices[0].Text != "three" || snap.Notices[maxNotices-1].Text != "seven" {
		t.Errorf("notice window = %+v, want three..seven", snap.Notices)
	}

	// Snapshot's notice slice is independent of the store's.
	snap.Notices[0].Text = "mutated"
	if s.Snapshot().Notices[0].Text != "three" {
		t.Error("Snapshot returned an aliased notice slice")
	}
}

func TestStore_ZeroValueSnapshot(t *testing.T) {
	var s Store

	snap := s.Snapshot()
	if snap.Connection != repetier.StateClosed {
		t.Errorf("zero Connection = %s, want closed", snap.Connection)
	}
	if !snap.IsOffline() {
		t.Error("IsOffline() = false for zero snapshot, want true")
	}
	if snap.HasTemps || snap.HasJob || snap.Upload.Active {
		t.Error("zero snapshot claims data")
	}
}
