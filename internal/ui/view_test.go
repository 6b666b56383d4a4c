package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/kdore/gantry/internal/repetier"
	"github.com/kdore/gantry/internal/state"
)

func TestTempSummary(t *testing.T) {
	var snap state.Snapshot
	if got := tempSummary(snap); !strings.Contains(got, "waiting") {
		t.Errorf("tempSummary(empty) = %q, want waiting text", got)
	}

	snap.HasTemps = true
	snap.Temperatures = repetier.Temperatures{Hotend: 205, Bed: 60}
	if got := tempSummary(snap); got != "hotend 205.0°  bed 60.0°" {
		t.Errorf("tempSummary = %q", got)
	}
}

func TestJobTitle(t *testing.T) {
	tests := []struct {
		name string
		job  repetier.JobStatus
		want string
	}{
		{"placeholder name", repetier.JobStatus{Name: "none"}, "(idle)"},
		{"empty name", repetier.JobStatus{}, "(idle)"},
		{"real job", repetier.JobStatus{Name: "benchy"}, "benchy"},
	}
	for _, tt := range tests {
		if got := jobTitle(tt.job); got != tt.want {
			t.Errorf("%s: jobTitle = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFrameSummary(t *testing.T) {
	var snap state.Snapshot
	if got := frameSummary(snap); got != "" {
		t.Errorf("frameSummary(no frames) = %q, want empty", got)
	}

	snap.Frame = make([]byte, 2048)
	snap.FrameSeq = 3
	snap.FrameAt = time.Date(2026, 8, 23, 14, 32, 5, 0, time.UTC)
	got := frameSummary(snap)
	if !strings.Contains(got, "frame 3") || !strings.Contains(got, "2.0 KB") || !strings.Contains(got, "14:32:05") {
		t.Errorf("frameSummary = %q", got)
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.n); got != tt.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestThemeCycle(t *testing.T) {
	first := ThemeNames()[0]
	seen := map[string]bool{first: true}
	name := first
	for i := 0; i < len(ThemeNames()); i++ {
		name = NextTheme(name)
		seen[name] = true
	}
	if name != first {
		t.Errorf("cycle did not return to %q, got %q", first, name)
	}
	for _, want := range ThemeNames() {
		if !seen[want] {
			t.Errorf("theme %q never visited", want)
		}
	}

	if got := GetTheme("does-not-exist").Name; got != "Dracula" {
		t.Errorf("GetTheme(unknown) = %q, want Dracula fallback", got)
	}
}

func TestStatusStyleKnowsAllStates(t *testing.T) {
	styles := GetTheme("Dracula").Styles()
	states := []string{"connecting", "connected", "error", "closed", "ready", "printing", "paused", "offline"}
	for _, name := range states {
		if styles.statusColors[name] == "" {
			t.Errorf("no status color for %q", name)
		}
	}
}
