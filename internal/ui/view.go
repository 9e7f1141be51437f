package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"openclaw-setup/internal/pipeline"
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("OpenClaw Setup"))
	b.WriteString("\n")

	switch m.screen {
	case screenWelcome:
		m.viewWelcome(&b)
	case screenProgress:
		m.viewProgress(&b)
	case screenSuccess:
		m.viewSuccess(&b)
	case screenError:
		m.viewError(&b)
	}

	if m.notice != "" {
		b.WriteString("\n" + noticeStyle.Render(m.notice) + "\n")
	}
	return b.String()
}

func (m Model) viewWelcome(b *strings.Builder) {
	b.WriteString("This will install OpenClaw and set up its background service.\n\n")
	b.WriteString(subtleStyle.Render(fmt.Sprintf("Detected: %s/%s", m.opts.Host.OS, m.opts.Host.Arch)))
	b.WriteString("\n")
	if m.opts.Host.RecommendWSL() {
		b.WriteString(noticeStyle.Render("Running on Windows. OpenClaw works best under WSL2; consider installing from a WSL2 shell."))
		b.WriteString("\n")
	}
	if m.opts.Host.Elevated {
		b.WriteString(noticeStyle.Render("Already running with administrator rights."))
		b.WriteString("\n")
	}
	b.WriteString("\nSteps:\n")
	for _, step := range m.opts.Steps {
		b.WriteString("  " + subtleStyle.Render("○") + " " + step.Label + "\n")
	}
	b.WriteString("\n" + keyHint("enter", "install") + "  " + keyHint("q", "quit") + "\n")
}

func (m Model) viewProgress(b *strings.Builder) {
	m.viewSteps(b)
	b.WriteString("\n" + m.bar.ViewAs(m.Percent()) + "\n\n")
	if tail := m.logTail(); len(tail) > 0 {
		b.WriteString(logStyle.Render(strings.Join(tail, "\n")))
		b.WriteString("\n")
	}
	b.WriteString("\n" + keyHint("ctrl+c", "abort") + "\n")
}

func (m Model) viewSuccess(b *strings.Builder) {
	m.viewSteps(b)
	b.WriteString("\n")
	if m.outcome.State == pipeline.StateCompletedWithWarnings {
		b.WriteString(warningStyle.Render("OpenClaw is installed, with warnings:"))
		b.WriteString("\n")
		for _, w := range m.outcome.Warnings {
			b.WriteString(indent(w) + "\n")
		}
	} else {
		b.WriteString(doneStyle.Render("OpenClaw is installed!"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.opts.Launch != nil {
		b.WriteString(keyHint("l", fmt.Sprintf("launch the gateway on port %d", m.gatewayPort())) + "  ")
	}
	b.WriteString(keyHint("q", "quit") + "\n")
}

func (m Model) viewError(b *strings.Builder) {
	m.viewSteps(b)
	b.WriteString("\n" + failedStyle.Render("Installation failed") + "\n")
	if m.outcome.Err != nil {
		b.WriteString(errorBoxStyle.Render(strings.TrimRight(m.outcome.Err.Error(), "\n")))
		b.WriteString("\n")
	}
	if m.opts.LogPath != "" {
		b.WriteString(subtleStyle.Render("Full log: "+m.opts.LogPath) + "\n")
	}
	b.WriteString("\n" + keyHint("r", "retry") + "  " + keyHint("q", "quit") + "\n")
}

func (m Model) viewSteps(b *strings.Builder) {
	for _, step := range m.opts.Steps {
		b.WriteString("  " + m.icon(step.Key) + " " + step.Label + "\n")
	}
}

func (m Model) icon(key pipeline.Key) string {
	switch status := m.statuses[key]; {
	case status == pipeline.StatusRunning:
		return m.spinner.View()
	case status == pipeline.StatusWarning, status == pipeline.StatusDone && m.warned[key]:
		return warningStyle.Render("!")
	case status == pipeline.StatusDone:
		return doneStyle.Render("✓")
	case status == pipeline.StatusFailed:
		return failedStyle.Render("✗")
	default:
		return subtleStyle.Render("○")
	}
}

func indent(s string) string {
	return lipgloss.NewStyle().PaddingLeft(2).Render(strings.TrimRight(s, "\n"))
}
