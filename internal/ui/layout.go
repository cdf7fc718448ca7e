package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/gh-notifier/internal/theme"
)

// Layout manages the terminal frame: header, optional banner, content and
// status bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height left for the main content area. A
// visible banner takes one more line.
func (l Layout) ContentHeight(banner bool) int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight
	if banner {
		h--
	}
	return max(h, 0)
}

// RenderHeader renders the title on the left and the poll status on the
// right.
func (l Layout) RenderHeader(title string, pollStatus string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(pollStatus)

	return l.fill(theme.HeaderStyle, titleRendered, statusRendered)
}

// RenderBanner renders a full-width warning line.
func (l Layout) RenderBanner(text string) string {
	return l.fill(theme.BannerStyle, theme.BannerStyle.Render(text), "")
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return l.fill(theme.StatusBarStyle, theme.StatusBarStyle.Render(hints), "")
}

// fill pads the gap between left and right with the style's background so
// the bar spans the terminal width.
func (l Layout) fill(style lipgloss.Style, left, right string) string {
	gap := max(l.Width-lipgloss.Width(left)-lipgloss.Width(right), 0)

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame stacks the header, banner (if any), content and status
// bar.
func (l Layout) RenderWithFrame(
	header string,
	banner string,
	content string,
	statusBar string,
) string {
	parts := []string{header}
	if banner != "" {
		parts = append(parts, banner)
	}
	parts = append(parts, content, statusBar)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
