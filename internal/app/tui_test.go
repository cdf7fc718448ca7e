package app

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/gh-notifier/internal/model"
	"github.com/nhle/gh-notifier/internal/source"
	"github.com/nhle/gh-notifier/internal/store"
	"github.com/nhle/gh-notifier/internal/sync"
	"github.com/nhle/gh-notifier/internal/ui"
	"github.com/nhle/gh-notifier/internal/ui/command"
	"github.com/nhle/gh-notifier/internal/ui/notifylist"
)

type fakePoller struct {
	status    sync.SyncStatus
	allow     bool
	refreshes int
}

func (f *fakePoller) Refresh() bool {
	f.refreshes++
	return f.allow
}

func (f *fakePoller) Snapshot() sync.SyncStatus { return f.status }

type fakeStore struct {
	rows   []store.StoredNotification
	marked []string
	err    error
}

func (f *fakeStore) GetNotifications(_ context.Context, filter store.NotificationFilter) ([]store.StoredNotification, error) {
	var out []store.StoredNotification
	for _, r := range f.rows {
		if filter.UnreadOnly && !r.Unread {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) MarkRead(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.marked = append(f.marked, id)
	return nil
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func notification(id, title string, unread bool, age time.Duration) model.Notification {
	return model.Notification{
		ID:         id,
		Reason:     model.ReasonMention,
		Unread:     unread,
		Subject:    model.Subject{Title: title, Type: model.SubjectIssue},
		Repository: model.Repository{Name: "repo", FullName: "octo/repo"},
		UpdatedAt:  baseTime.Add(-age),
	}
}

func newTestModel(t *testing.T, p *fakePoller, st NotificationStore) Model {
	t.Helper()
	if p.status.Cadence.Base == 0 {
		p.status.Cadence = sync.CadenceState{Current: time.Minute, Base: time.Minute, Max: 200 * time.Second}
	}
	m := NewModel(p, st, nil)
	m.now = func() time.Time { return baseTime }
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_BatchMergesWithoutStore(t *testing.T) {
	m := newTestModel(t, &fakePoller{}, nil)

	m = update(t, m, ui.BatchMsg{Batch: sync.Batch{ID: "b1", Items: []model.Notification{
		notification("1", "First", true, time.Hour),
		notification("2", "Second", true, time.Minute),
	}}})
	assert.Equal(t, 2, m.list.UnreadCount())

	// A newer copy of a known thread replaces the old one.
	m = update(t, m, ui.BatchMsg{Batch: sync.Batch{ID: "b2", Items: []model.Notification{
		notification("1", "First", false, 0),
	}}})
	assert.Equal(t, 1, m.list.UnreadCount())

	n, ok := m.list.Selected()
	require.True(t, ok)
	assert.Equal(t, "1", n.ID)
	assert.Contains(t, m.View(), "GitHub Notifications [1 unread]")
}

func TestModel_BatchReloadsFromStore(t *testing.T) {
	st := &fakeStore{rows: []store.StoredNotification{
		{Notification: notification("7", "Stored", true, time.Minute)},
	}}
	m := newTestModel(t, &fakePoller{}, st)

	_, cmd := m.Update(ui.BatchMsg{Batch: sync.Batch{ID: "b1"}})
	require.NotNil(t, cmd)

	loaded, ok := cmd().(notifylist.LoadedMsg)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	require.Len(t, loaded.Notifications, 1)

	m = update(t, m, loaded)
	assert.Equal(t, 1, m.list.UnreadCount())
}

func TestModel_AuthFailureShowsBannerUntilSuccess(t *testing.T) {
	m := newTestModel(t, &fakePoller{}, nil)

	m = update(t, m, ui.FetchFailedMsg{Err: &source.FetchError{Kind: source.KindAuth, Status: 401, Message: "Bad credentials"}})
	require.NotEmpty(t, m.authError)
	assert.Contains(t, m.View(), "gh-notifier login")

	// A failure-triggered cadence change keeps the banner.
	m = update(t, m, ui.CadenceMsg{Change: sync.CadenceChange{Trigger: sync.TriggerFailure}})
	assert.NotEmpty(t, m.authError)

	// So does a failure that lands on the check-in reset.
	m = update(t, m, ui.CadenceMsg{Change: sync.CadenceChange{
		From: 200 * time.Second, To: time.Minute, Trigger: sync.TriggerFailure, Reset: true,
	}})
	assert.NotEmpty(t, m.authError)

	m = update(t, m, ui.CadenceMsg{Change: sync.CadenceChange{Trigger: sync.TriggerEmpty}})
	assert.Empty(t, m.authError)
	assert.NotContains(t, m.View(), "gh-notifier login")
}

func withReason(n model.Notification, reason string) model.Notification {
	n.Reason = reason
	return n
}

func TestModel_BatchShowsNewActivity(t *testing.T) {
	m := newTestModel(t, &fakePoller{}, nil)

	m = update(t, m, ui.BatchMsg{Batch: sync.Batch{Items: []model.Notification{
		notification("1", "First", true, time.Minute),
		notification("2", "Second", true, time.Hour),
	}}})
	assert.Equal(t, "new GitHub activity: 2 new notifications", m.flash)
	assert.Contains(t, m.View(), "2 new notifications")

	m = update(t, m, ui.BatchMsg{Batch: sync.Batch{Items: []model.Notification{
		notification("3", "Third", true, 0),
	}}})
	assert.Equal(t, "new GitHub activity: 1 new notification", m.flash)
}

func TestModel_ReasonGroupsCycle(t *testing.T) {
	m := newTestModel(t, &fakePoller{}, nil)
	m = update(t, m, ui.BatchMsg{Batch: sync.Batch{Items: []model.Notification{
		withReason(notification("ci", "Build failed", true, time.Minute), model.ReasonCIActivity),
		withReason(notification("rr", "Review me", true, 2*time.Minute), model.ReasonReviewRequested),
		withReason(notification("mn", "You were mentioned", true, 3*time.Minute), model.ReasonMention),
	}}})
	require.Equal(t, notifylist.GroupAll, m.list.Group())

	tab := tea.KeyMsg{Type: tea.KeyTab}
	steps := []struct {
		group notifylist.Group
		want  string
	}{
		{notifylist.GroupCIActivity, "ci"},
		{notifylist.GroupParticipating, ""},
		{notifylist.GroupReviewRequested, "rr"},
		{notifylist.GroupRest, "mn"},
		{notifylist.GroupAll, "ci"},
	}
	for _, step := range steps {
		m = update(t, m, tab)
		require.Equal(t, step.group, m.list.Group())

		n, ok := m.list.Selected()
		if step.want == "" {
			assert.False(t, ok, "group %s should be empty", step.group)
			assert.Contains(t, m.View(), "Nothing in PARTICIPATING")
			continue
		}
		require.True(t, ok, "group %s", step.group)
		assert.Equal(t, step.want, n.ID)
	}

	// The title counts every unread notification, not just the tab.
	assert.Equal(t, 3, m.list.UnreadCount())
}

func TestModel_ListNavigationUsesKeyMap(t *testing.T) {
	m := newTestModel(t, &fakePoller{}, nil)
	m = update(t, m, ui.BatchMsg{Batch: sync.Batch{Items: []model.Notification{
		notification("1", "Newest", true, 0),
		notification("2", "Older", true, time.Hour),
	}}})

	n, ok := m.list.Selected()
	require.True(t, ok)
	assert.Equal(t, "1", n.ID)

	m = update(t, m, keyMsg("j"))
	n, _ = m.list.Selected()
	assert.Equal(t, "2", n.ID)

	m = update(t, m, keyMsg("k"))
	n, _ = m.list.Selected()
	assert.Equal(t, "1", n.ID)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	n, _ = m.list.Selected()
	assert.Equal(t, "2", n.ID)
}

func TestModel_TransientFailureInStatusBar(t *testing.T) {
	m := newTestModel(t, &fakePoller{}, nil)

	m = update(t, m, ui.FetchFailedMsg{Err: &source.FetchError{Kind: source.KindTransient, Message: "connection refused"}})
	assert.Empty(t, m.authError)
	assert.Contains(t, m.keyHints(), "last poll failed")
	assert.Contains(t, m.keyHints(), "connection refused")

	m = update(t, m, ui.CadenceMsg{Change: sync.CadenceChange{Trigger: sync.TriggerResults}})
	assert.NotContains(t, m.keyHints(), "last poll failed")
}

func TestModel_RefreshKey(t *testing.T) {
	p := &fakePoller{allow: true}
	m := newTestModel(t, p, nil)

	m = update(t, m, keyMsg("r"))
	assert.Equal(t, 1, p.refreshes)
	assert.Equal(t, "polling now", m.flash)

	p.allow = false
	m = update(t, m, keyMsg("r"))
	assert.Equal(t, 2, p.refreshes)
	assert.Contains(t, m.flash, "refresh limited")
}

func TestModel_FlashExpires(t *testing.T) {
	m := newTestModel(t, &fakePoller{}, nil)
	m.setFlash("hello")

	m = update(t, m, tickMsg(baseTime))
	assert.Equal(t, "hello", m.flash)

	m.now = func() time.Time { return baseTime.Add(flashAfter + time.Second) }
	m = update(t, m, tickMsg(baseTime))
	assert.Empty(t, m.flash)
}

func TestModel_MarkRead(t *testing.T) {
	st := &fakeStore{}
	m := newTestModel(t, &fakePoller{}, st)
	m = update(t, m, notifylist.LoadedMsg{Notifications: []model.Notification{
		notification("1", "First", true, time.Minute),
	}})
	require.Equal(t, 1, m.list.UnreadCount())

	_, cmd := m.Update(notifylist.MarkReadMsg{ID: "1"})
	require.NotNil(t, cmd)
	res := cmd()
	assert.Equal(t, markedReadMsg{id: "1"}, res)
	assert.Equal(t, []string{"1"}, st.marked)

	m = update(t, m, res)
	assert.Equal(t, 0, m.list.UnreadCount())
}

func TestModel_MarkReadFailureFlashes(t *testing.T) {
	st := &fakeStore{err: errors.New("disk full")}
	m := newTestModel(t, &fakePoller{}, st)
	m = update(t, m, notifylist.LoadedMsg{Notifications: []model.Notification{
		notification("1", "First", true, time.Minute),
	}})

	_, cmd := m.Update(notifylist.MarkReadMsg{ID: "1"})
	require.NotNil(t, cmd)
	m = update(t, m, cmd())

	assert.Equal(t, 1, m.list.UnreadCount())
	assert.Contains(t, m.flash, "disk full")
}

func TestModel_ExecuteCommand(t *testing.T) {
	p := &fakePoller{allow: true}
	m := newTestModel(t, p, nil)
	m = update(t, m, ui.BatchMsg{Batch: sync.Batch{Items: []model.Notification{
		notification("1", "Unread", true, time.Minute),
		notification("2", "Read", false, time.Hour),
	}}})

	m = update(t, m, keyMsg(":"))
	assert.Equal(t, ViewCommand, m.currentView)

	next, _ := m.Update(command.CommandMsg("unread"))
	m = next.(Model)
	assert.Equal(t, ViewList, m.currentView)
	assert.True(t, m.list.UnreadOnly())

	next, _ = m.Update(command.CommandMsg("poll"))
	m = next.(Model)
	assert.Equal(t, 1, p.refreshes)

	next, _ = m.Update(command.CommandMsg("bogus"))
	m = next.(Model)
	assert.Contains(t, m.flash, `unknown command "bogus"`)

	_, cmd := m.Update(command.CommandMsg("quit"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_HelpToggle(t *testing.T) {
	m := newTestModel(t, &fakePoller{}, nil)

	m = update(t, m, keyMsg("?"))
	assert.Equal(t, ViewHelp, m.currentView)

	m = update(t, m, keyMsg("?"))
	assert.Equal(t, ViewList, m.currentView)
}

func TestModel_PollStatus(t *testing.T) {
	tests := []struct {
		name   string
		status sync.SyncStatus
		want   string
	}{
		{
			name:   "starting",
			status: sync.SyncStatus{State: sync.SyncIdle},
			want:   "starting",
		},
		{
			name:   "running",
			status: sync.SyncStatus{State: sync.SyncRunning},
			want:   "polling...",
		},
		{
			name:   "stopped",
			status: sync.SyncStatus{State: sync.SyncStopped},
			want:   "stopped",
		},
		{
			name: "waiting",
			status: sync.SyncStatus{
				State:    sync.SyncIdle,
				NextPoll: baseTime.Add(72 * time.Second),
				Cadence:  sync.CadenceState{Current: 72 * time.Second, Base: time.Minute, Max: 200 * time.Second},
			},
			want: "every 1m12s · next in 1m12s",
		},
		{
			name: "error",
			status: sync.SyncStatus{
				State:     sync.SyncError,
				ErrorKind: source.KindTransient,
				NextPoll:  baseTime.Add(time.Minute),
				Cadence:   sync.CadenceState{Current: time.Minute, Base: time.Minute, Max: 200 * time.Second},
			},
			want: "⚠ transient error · every 1m0s · next in 1m0s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, &fakePoller{status: tt.status}, nil)
			assert.Equal(t, tt.want, m.pollStatus())
		})
	}
}

func TestFormatInterval(t *testing.T) {
	assert.Equal(t, "1m0s", formatInterval(time.Minute))
	assert.Equal(t, "1m26.4s", formatInterval(86400*time.Millisecond+30*time.Millisecond))
}
