package notifylist

import (
	"context"
	"sort"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/gh-notifier/internal/keys"
	"github.com/nhle/gh-notifier/internal/model"
	"github.com/nhle/gh-notifier/internal/store"
	"github.com/nhle/gh-notifier/internal/theme"
)

// Loader reads stored notifications.
type Loader interface {
	GetNotifications(ctx context.Context, filter store.NotificationFilter) ([]store.StoredNotification, error)
}

// LoadedMsg is sent when notifications have been loaded from the store.
type LoadedMsg struct {
	Notifications []model.Notification
	Err           error
}

// SelectedMsg is sent when the user opens a notification.
type SelectedMsg struct {
	Notification model.Notification
}

// MarkReadMsg asks the parent to mark a notification read.
type MarkReadMsg struct {
	ID string
}

// loadLimit caps how many stored notifications the list shows.
const loadLimit = 500

// Model is the notification list view. With a Loader it mirrors the store;
// without one it accumulates delivered batches in memory.
type Model struct {
	list       list.Model
	loader     Loader
	keys       *keys.KeyMap
	items      []model.Notification
	unreadOnly bool
	group      Group
	width      int
	height     int
}

// New creates a notification list. loader may be nil.
func New(loader Loader, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height)
	l.Title = listTitle(GroupAll)
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		loader: loader,
		keys:   k,
		group:  GroupAll,
		width:  width,
		height: height,
	}
}

// Init loads the stored notifications.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.Err != nil {
			return m, nil
		}
		m.items = msg.Notifications
		return m, m.refreshItems()

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		n, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return SelectedMsg{Notification: n} }

	case key.Matches(msg, m.keys.MarkRead):
		n, ok := m.Selected()
		if !ok || !n.Unread {
			return m, nil
		}
		return m, func() tea.Msg { return MarkReadMsg{ID: n.ID} }

	case key.Matches(msg, m.keys.ToggleUnread):
		return m, m.SetUnreadOnly(!m.unreadOnly)

	case key.Matches(msg, m.keys.NextGroup):
		return m, m.SetGroup(m.group.next())

	case key.Matches(msg, m.keys.Up):
		m.list.CursorUp()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.list.CursorDown()
		return m, nil
	}

	// Paging keys (pgup/pgdn, home/end).
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Merge adds delivered notifications to the in-memory list. Items with a
// known ID replace the older copy.
func (m *Model) Merge(items []model.Notification) tea.Cmd {
	byID := make(map[string]int, len(m.items))
	for i, n := range m.items {
		byID[n.ID] = i
	}
	for _, n := range items {
		if i, ok := byID[n.ID]; ok {
			m.items[i] = n
			continue
		}
		byID[n.ID] = len(m.items)
		m.items = append(m.items, n)
	}
	sort.SliceStable(m.items, func(i, j int) bool {
		return m.items[i].UpdatedAt.After(m.items[j].UpdatedAt)
	})
	return m.refreshItems()
}

// SetRead flags a notification as read without reloading.
func (m *Model) SetRead(id string) tea.Cmd {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Unread = false
		}
	}
	return m.refreshItems()
}

// refreshItems pushes the current items into the bubbles list.
func (m *Model) refreshItems() tea.Cmd {
	visible := make([]list.Item, 0, len(m.items))
	for _, n := range m.items {
		if m.unreadOnly && !n.Unread {
			continue
		}
		if !m.group.Matches(n.Reason) {
			continue
		}
		visible = append(visible, Item{Notification: n})
	}
	return m.list.SetItems(visible)
}

// Selected returns the focused notification.
func (m Model) Selected() (model.Notification, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return model.Notification{}, false
	}
	return it.Notification, true
}

// UnreadCount counts unread notifications currently held.
func (m Model) UnreadCount() int {
	n := 0
	for _, it := range m.items {
		if it.Unread {
			n++
		}
	}
	return n
}

// SetUnreadOnly hides or shows read notifications.
func (m *Model) SetUnreadOnly(on bool) tea.Cmd {
	m.unreadOnly = on
	if m.loader != nil {
		return m.Load()
	}
	return m.refreshItems()
}

// SetGroup switches the reason tab.
func (m *Model) SetGroup(g Group) tea.Cmd {
	m.group = g
	m.list.Title = listTitle(g)
	m.list.ResetSelected()
	return m.refreshItems()
}

// Group returns the active reason tab.
func (m Model) Group() Group {
	return m.group
}

func listTitle(g Group) string {
	if g == GroupAll {
		return "Notifications"
	}
	return "Notifications · " + g.Label()
}

// UnreadOnly reports whether read notifications are hidden.
func (m Model) UnreadOnly() bool {
	return m.unreadOnly
}

// HasLoader reports whether the list is backed by the store.
func (m Model) HasLoader() bool {
	return m.loader != nil
}

// View renders the list view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

// renderEmptyState shows guidance text when the list is empty.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.unreadOnly && len(m.items) > 0 {
		return style.Render("All caught up.\nPress u to show read notifications.")
	}
	if m.group != GroupAll && len(m.items) > 0 {
		return style.Render("Nothing in " + m.group.Label() + ".\nPress tab for the next group.")
	}
	return style.Render("No notifications yet.\n\nPress r to poll now.")
}

// Load returns a tea.Cmd that queries the store. Without a store it is a
// no-op.
func (m Model) Load() tea.Cmd {
	if m.loader == nil {
		return nil
	}
	loader := m.loader
	filter := store.NotificationFilter{UnreadOnly: m.unreadOnly, Limit: loadLimit}
	return func() tea.Msg {
		stored, err := loader.GetNotifications(context.Background(), filter)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		out := make([]model.Notification, len(stored))
		for i, s := range stored {
			out[i] = s.Notification
		}
		return LoadedMsg{Notifications: out}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
