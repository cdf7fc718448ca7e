package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/gh-notifier/internal/keys"
	"github.com/nhle/gh-notifier/internal/model"
	"github.com/nhle/gh-notifier/internal/source/github"
	"github.com/nhle/gh-notifier/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// PullRequestLoadedMsg carries the pull request behind a notification.
type PullRequestLoadedMsg struct {
	NotificationID string
	PullRequest    *github.PullRequest
	Err            error
}

// Model is the notification detail view.
type Model struct {
	notification *model.Notification
	pr           *github.PullRequest
	prErr        error
	prLoading    bool
	viewport     viewport.Model
	keys         *keys.KeyMap
	width        int
	height       int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PullRequestLoadedMsg:
		if m.notification == nil || m.notification.ID != msg.NotificationID {
			return m, nil
		}
		m.pr = msg.PullRequest
		m.prErr = msg.Err
		m.prLoading = false
		m.viewport.SetContent(m.renderContent())
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }
		case key.Matches(msg, m.keys.Up):
			m.viewport.ScrollUp(1)
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.viewport.ScrollDown(1)
			return m, nil
		}
	}

	// Paging (pgup/pgdn, ctrl+u/ctrl+d).
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.notification == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No notification selected")
	}
	return m.viewport.View()
}

// SetNotification shows n. loadingPR marks the pull request section as
// pending.
func (m *Model) SetNotification(n model.Notification, loadingPR bool) {
	m.notification = &n
	m.pr = nil
	m.prErr = nil
	m.prLoading = loadingPR
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Current returns the displayed notification.
func (m Model) Current() (model.Notification, bool) {
	if m.notification == nil {
		return model.Notification{}, false
	}
	return *m.notification, true
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
}

// renderContent builds the detail content for the viewport.
func (m Model) renderContent() string {
	if m.notification == nil {
		return ""
	}
	n := m.notification

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	row := func(label, value string) string {
		return fmt.Sprintf("%s %s", metaStyle.Render(fmt.Sprintf("%-12s", label+":")), valStyle.Render(value))
	}

	state := "read"
	if n.Unread {
		state = "unread"
	}

	sections := []string{
		titleStyle.Render(n.Subject.Title),
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			theme.SubjectTypeStyle(n.Subject.Type).Render(n.Subject.Type),
			"  ",
			theme.ReasonStyle(n.Reason).Render(n.Reason),
		),
		"",
		row("Repository", n.Repository.FullName),
		row("Updated", n.UpdatedAt.Local().Format("2006-01-02 15:04")),
		row("State", state),
	}
	if n.Repository.HTMLURL != "" {
		sections = append(sections, row("Repo URL", n.Repository.HTMLURL))
	}

	if n.Subject.Type == model.SubjectPullRequest {
		sep := lipgloss.NewStyle().
			Foreground(theme.ColorSubtle).
			Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
		sections = append(sections, "", sep, "", titleStyle.Render("Pull request"))
		sections = append(sections, m.renderPullRequest(row)...)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderPullRequest(row func(string, string) string) []string {
	muted := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)

	switch {
	case m.prLoading:
		return []string{muted.Render("Loading...")}
	case m.prErr != nil:
		return []string{muted.Render("Unavailable: " + m.prErr.Error())}
	case m.pr == nil:
		return []string{muted.Render("No details")}
	}

	pr := m.pr
	lines := []string{
		row("Number", fmt.Sprintf("#%d", pr.Number)),
		row("Status", pullRequestState(pr)),
		row("Author", pr.User.Login),
	}
	if len(pr.RequestedReviewers) > 0 {
		names := make([]string, len(pr.RequestedReviewers))
		for i, u := range pr.RequestedReviewers {
			names[i] = u.Login
		}
		lines = append(lines, row("Reviewers", strings.Join(names, ", ")))
	}
	if pr.HTMLURL != "" {
		lines = append(lines, row("URL", pr.HTMLURL))
	}
	return lines
}

// pullRequestState folds draft and merged into the open/closed state.
func pullRequestState(pr *github.PullRequest) string {
	switch {
	case pr.Merged:
		return "merged"
	case pr.Draft && pr.State == "open":
		return "draft"
	default:
		return pr.State
	}
}
