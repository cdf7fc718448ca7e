package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/gh-notifier/internal/keys"
	"github.com/nhle/gh-notifier/internal/model"
	"github.com/nhle/gh-notifier/internal/source"
	"github.com/nhle/gh-notifier/internal/source/github"
	"github.com/nhle/gh-notifier/internal/sync"
	"github.com/nhle/gh-notifier/internal/ui"
	"github.com/nhle/gh-notifier/internal/ui/command"
	"github.com/nhle/gh-notifier/internal/ui/detail"
	helpview "github.com/nhle/gh-notifier/internal/ui/help"
	"github.com/nhle/gh-notifier/internal/ui/notifylist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
)

// PollController is the part of the poller the UI drives.
type PollController interface {
	Refresh() bool
	Snapshot() sync.SyncStatus
}

// NotificationStore is the store surface the UI reads and updates.
type NotificationStore interface {
	notifylist.Loader
	MarkRead(ctx context.Context, id string) error
}

// PullRequestFetcher loads pull request details for the detail view.
type PullRequestFetcher interface {
	PullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
}

// tickMsg re-renders the header countdown.
type tickMsg time.Time

// markedReadMsg reports the outcome of a MarkRead call.
type markedReadMsg struct {
	id  string
	err error
}

const (
	prTimeout  = 15 * time.Second
	flashAfter = 4 * time.Second
)

// Model is the root Bubble Tea model. It routes between views and turns
// poll loop events into UI state.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	list        notifylist.Model
	detail      detail.Model
	helpView    helpview.Model
	commandView command.Model

	poller PollController
	store  NotificationStore
	prs    PullRequestFetcher

	ready     bool
	authError string
	lastError string
	flash     string
	flashAt   time.Time
	now       func() time.Time
}

// NewModel creates the root model. st and prs may be nil.
func NewModel(p PollController, st NotificationStore, prs PullRequestFetcher) Model {
	k := keys.DefaultKeyMap()

	var loader notifylist.Loader
	if st != nil {
		loader = st
	}

	m := Model{
		currentView: ViewList,
		keys:        k,
		list:        notifylist.New(loader, k, 80, 22),
		detail:      detail.New(k, 80, 22),
		helpView:    helpview.New(k, 80, 22),
		commandView: command.New(80, 22),
		poller:      p,
		store:       st,
		prs:         prs,
		now:         time.Now,
	}

	snap := p.Snapshot()
	m.helpView.SetPolling(snap.Cadence.Base, snap.Cadence.Max)
	return m
}

// Init loads stored notifications and starts the header clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.list.Init(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.resize()
		return m, nil

	case tickMsg:
		if m.flash != "" && m.now().Sub(m.flashAt) > flashAfter {
			m.flash = ""
		}
		return m, tick()

	case ui.BatchMsg:
		m.setFlash(newActivity(len(msg.Batch.Items)))
		if m.list.HasLoader() {
			// The store sink runs before the UI sink, so the rows are there.
			return m, m.list.Load()
		}
		return m, m.list.Merge(msg.Batch.Items)

	case ui.CadenceMsg:
		if msg.Change.Trigger != sync.TriggerFailure {
			m.setAuthError("")
			m.lastError = ""
		}
		return m, nil

	case ui.FetchFailedMsg:
		if msg.Err.Kind == source.KindAuth {
			m.setAuthError("GitHub rejected the token. Run `gh-notifier login`, then restart.")
		} else {
			m.lastError = msg.Err.Error()
		}
		return m, nil

	case ui.DeliveryErrorMsg:
		m.setFlash("saving batch failed: " + msg.Err.Error())
		return m, nil

	case notifylist.SelectedMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		cmd := m.loadPullRequest(msg.Notification)
		m.detail.SetNotification(msg.Notification, cmd != nil)
		return m, cmd

	case notifylist.MarkReadMsg:
		return m, m.markRead(msg.ID)

	case markedReadMsg:
		if msg.err != nil {
			m.setFlash("mark read failed: " + msg.err.Error())
			return m, nil
		}
		return m, m.list.SetRead(msg.id)

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that work across views. The model is
// updated in place; handled reports whether the key was consumed.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return tea.Quit, true
	}
	// The palette owns the keyboard while open.
	if m.currentView == ViewCommand {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit) && m.currentView == ViewList:
		return tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case key.Matches(msg, m.keys.Back) && m.currentView == ViewHelp:
		m.currentView = m.previousView
		return nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Refresh) && m.currentView != ViewHelp:
		m.refresh()
		return nil, true
	}
	return nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.list, cmd = m.list.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "refresh", "poll":
		m.refresh()
		return nil
	case "unread":
		return m.list.SetUnreadOnly(true)
	case "all":
		return m.list.SetUnreadOnly(false)
	case "read":
		if n, ok := m.list.Selected(); ok && n.Unread {
			return m.markRead(n.ID)
		}
		return nil
	case "quit", "q":
		return tea.Quit
	default:
		m.setFlash(fmt.Sprintf("unknown command %q", cmd))
		return nil
	}
}

// newActivity is the alert shown when a batch arrives.
func newActivity(n int) string {
	if n == 1 {
		return "new GitHub activity: 1 new notification"
	}
	return fmt.Sprintf("new GitHub activity: %d new notifications", n)
}

func (m *Model) refresh() {
	if m.poller.Refresh() {
		m.setFlash("polling now")
	} else {
		m.setFlash("refresh limited; try again shortly")
	}
}

func (m *Model) setFlash(s string) {
	m.flash = s
	m.flashAt = m.now()
}

func (m *Model) setAuthError(s string) {
	if (m.authError == "") != (s == "") {
		m.authError = s
		m.resize()
		return
	}
	m.authError = s
}

func (m *Model) resize() {
	if !m.ready {
		return
	}
	w := m.layout.ContentWidth()
	h := m.layout.ContentHeight(m.authError != "")
	m.list.SetSize(w, h)
	m.detail.SetSize(w, h)
	m.helpView.SetSize(w, h)
	m.commandView.SetSize(w, h)
}

// markRead returns a command that marks a notification read in the store,
// or locally when running without one.
func (m Model) markRead(id string) tea.Cmd {
	st := m.store
	return func() tea.Msg {
		if st == nil {
			return markedReadMsg{id: id}
		}
		return markedReadMsg{id: id, err: st.MarkRead(context.Background(), id)}
	}
}

// loadPullRequest returns a command fetching PR details, or nil when the
// notification is not about a pull request.
func (m Model) loadPullRequest(n model.Notification) tea.Cmd {
	if m.prs == nil || n.Subject.Type != model.SubjectPullRequest {
		return nil
	}
	owner, repo, ok := strings.Cut(n.Repository.FullName, "/")
	if !ok {
		return nil
	}
	number, err := github.PullRequestNumber(n.Subject.URL)
	if err != nil {
		return nil
	}

	prs := m.prs
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), prTimeout)
		defer cancel()
		pr, err := prs.PullRequest(ctx, owner, repo, number)
		return detail.PullRequestLoadedMsg{NotificationID: n.ID, PullRequest: pr, Err: err}
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "GitHub Notifications"
	if n := m.list.UnreadCount(); n > 0 {
		title = fmt.Sprintf("GitHub Notifications [%d unread]", n)
	}

	header := m.layout.RenderHeader(title, m.pollStatus())
	banner := ""
	if m.authError != "" {
		banner = m.layout.RenderBanner(m.authError)
	}

	return m.layout.RenderWithFrame(header, banner, m.renderContent(), m.layout.RenderStatusBar(m.keyHints()))
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.list.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// pollStatus summarises the poller for the header.
func (m Model) pollStatus() string {
	snap := m.poller.Snapshot()
	every := formatInterval(snap.Cadence.Current)

	switch snap.State {
	case sync.SyncRunning:
		return "polling..."
	case sync.SyncStopped:
		return "stopped"
	}

	if snap.NextPoll.IsZero() {
		return "starting"
	}

	next := max(snap.NextPoll.Sub(m.now()).Round(time.Second), 0)
	status := fmt.Sprintf("every %s · next in %s", every, next)
	if snap.State == sync.SyncError {
		status = "⚠ " + snap.ErrorKind.String() + " error · " + status
	}
	return status
}

// formatInterval renders durations like 72s or 1m26.4s compactly.
func formatInterval(d time.Duration) string {
	return d.Round(100 * time.Millisecond).String()
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.flash != "" {
		return m.flash
	}
	if m.lastError != "" && m.currentView == ViewList {
		return "last poll failed: " + m.lastError
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc cancel"
	case ViewDetail:
		return "esc back | j/k scroll | r poll now"
	default:
		filter := "u unread only"
		if m.list.UnreadOnly() {
			filter = "u show all"
		}
		return "q quit | ? help | enter open | x mark read | r poll now | tab group | " + filter
	}
}
