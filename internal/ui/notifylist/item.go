package notifylist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/gh-notifier/internal/model"
	"github.com/nhle/gh-notifier/internal/theme"
)

// Item wraps a model.Notification so it can be used in a bubbles/list.
type Item struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string {
	return i.Notification.Subject.Title + " " + i.Notification.Repository.FullName
}

// Title returns the subject title.
func (i Item) Title() string { return i.Notification.Subject.Title }

// Description returns a short summary line for the list.
func (i Item) Description() string {
	n := i.Notification
	return strings.Join([]string{
		n.Repository.FullName,
		n.Reason,
		relativeTime(n.UpdatedAt, time.Now()),
	}, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering notifications.
type ItemDelegate struct {
	// now overrides the clock used for relative times; nil means time.Now.
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single notification line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	fmt.Fprint(w, d.renderLine(it.Notification, index == m.Index()))
}

func (d ItemDelegate) renderLine(n model.Notification, selected bool) string {
	now := time.Now
	if d.now != nil {
		now = d.now
	}

	marker := "●"
	if !n.Unread {
		marker = " "
	}

	typeBadge := theme.SubjectTypeStyle(n.Subject.Type).Render(subjectLabel(n.Subject.Type))
	reasonBadge := theme.ReasonStyle(n.Reason).Render(n.Reason)

	repo := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(n.Repository.FullName)

	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(n.UpdatedAt, now()))

	line := fmt.Sprintf(
		"%s %s %s %s%s  %s",
		marker, typeBadge, n.Subject.Title, repo, reasonBadge, timeStr,
	)

	if !n.Unread {
		line = theme.DimmedStyle.Render(line)
	}

	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// subjectLabel returns a short badge for the subject type.
func subjectLabel(t string) string {
	switch t {
	case model.SubjectPullRequest:
		return "PR"
	case model.SubjectIssue:
		return "IS"
	case "Release":
		return "RL"
	case "Discussion":
		return "DS"
	case "CheckSuite":
		return "CI"
	default:
		return "--"
	}
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
