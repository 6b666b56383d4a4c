package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kdore/gantry/internal/repetier"
	"github.com/kdore/gantry/internal/state"
)

// renderMain renders the full dashboard.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	b.WriteString(m.renderTemps())
	b.WriteString("\n")
	b.WriteString(m.renderJob())
	b.WriteString("\n")

	if m.snapshot.Upload.Active {
		b.WriteString(m.renderUpload())
		b.WriteString("\n")
	}

	if notices := m.renderNotices(); notices != "" {
		b.WriteString("\n")
		b.WriteString(notices)
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

// renderHeader shows the logo, a connection badge, and the status line.
func (m Model) renderHeader() string {
	parts := []string{
		m.styles.Logo.Render(" GANTRY "),
		m.styles.StatusStyle(m.snapshot.Connection.String()).Render(m.snapshot.Connection.String()),
	}
	if m.snapshot.Connection == repetier.StateConnecting {
		parts = append(parts, m.spin.View())
	}
	if m.snapshot.StatusText != "" {
		parts = append(parts, m.styles.MutedText.Render(m.snapshot.StatusText))
	}
	if !m.snapshot.AcceptsCommands && m.snapshot.Connection == repetier.StateConnected {
		parts = append(parts, m.styles.WarningText.Render("read-only"))
	}
	return m.styles.Header.Render(lipgloss.JoinHorizontal(lipgloss.Center, strings.Join(parts, "  ")))
}

func (m Model) renderTemps() string {
	text := tempSummary(m.snapshot)
	if !m.snapshot.HasTemps {
		return m.styles.MutedText.Render(text)
	}
	line := m.styles.Text.Render(text)
	if frame := frameSummary(m.snapshot); frame != "" {
		line += "  " + m.styles.MutedText.Render(frame)
	}
	return line
}

func (m Model) renderJob() string {
	if !m.snapshot.HasJob {
		return m.styles.MutedText.Render("job: waiting for printer...")
	}
	job := m.snapshot.Job
	line := m.styles.Text.Render("job: "+jobTitle(job)) + "  " +
		m.styles.StatusStyle(string(job.State)).Render(string(job.State))
	if job.State == repetier.JobPrinting {
		line += "\n" + m.jobBar.ViewAs(job.Progress/100) + m.styles.MutedText.Render(fmt.Sprintf(" %.1f%%", job.Progress))
	}
	return line
}

func (m Model) renderUpload() string {
	u := m.snapshot.Upload
	label := "sending " + u.FileName
	if u.Storing {
		label = "storing " + u.FileName
	}
	return m.styles.AccentText.Render(label) + "\n" +
		m.sendBar.ViewAs(u.Percent/100) + m.styles.MutedText.Render(fmt.Sprintf(" %.0f%%", u.Percent))
}

func (m Model) renderNotices() string {
	var b strings.Builder
	for _, n := range m.snapshot.Notices {
		style := m.styles.InfoText
		if n.Err {
			style = m.styles.DangerText
		}
		b.WriteString(style.Render("• " + n.Text))
		if n.Link != "" {
			b.WriteString(m.styles.MutedText.Render("  " + n.Link))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderFooter() string {
	if m.actionErr != nil {
		return m.styles.Footer.Render(m.styles.DangerText.Render(
			fmt.Sprintf("%s: %v", m.lastAction, m.actionErr)))
	}
	return m.styles.Footer.Render(m.help.View(m.keys))
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.styles.Logo.Render(" GANTRY "))
	b.WriteString(m.styles.MutedText.Render("  key bindings"))
	b.WriteString("\n\n")
	b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	b.WriteString("\n\n")
	b.WriteString(m.styles.MutedText.Render("press any key to close"))
	return b.String()
}

// Pure formatting helpers below; kept free of styles so they can be tested.

func tempSummary(s state.Snapshot) string {
	if !s.HasTemps {
		return "temperatures: waiting for printer..."
	}
	return fmt.Sprintf("hotend %.1f°  bed %.1f°", s.Temperatures.Hotend, s.Temperatures.Bed)
}

// jobTitle hides the server's "none" placeholder from the dashboard.
func jobTitle(j repetier.JobStatus) string {
	if j.Name == "" || j.Name == "none" {
		return "(idle)"
	}
	return j.Name
}

func frameSummary(s state.Snapshot) string {
	if s.FrameSeq == 0 {
		return ""
	}
	return fmt.Sprintf("camera: frame %d (%s, %s)",
		s.FrameSeq, humanBytes(len(s.Frame)), s.FrameAt.Format("15:04:05"))
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
