package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/gh-notifier/internal/model"
	"github.com/nhle/gh-notifier/internal/store"
)

// writeConfig writes a config using a store under dir and returns its path.
func writeConfig(t *testing.T, dir string, storeEnabled bool) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`github:
  account: test
store:
  enabled: %t
  path: %s
log:
  level: error
  format: json
`, storeEnabled, filepath.Join(dir, "notifications.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func seedStore(t *testing.T, dir string, items ...model.Notification) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(dir, "notifications.db"))
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.UpsertNotifications(context.Background(), "seed", items))
}

func TestCLI_List(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, true)
	seedStore(t, dir,
		notification("1", "Fix flaky test", true, time.Hour),
		notification("2", "Bump deps", false, time.Minute),
	)

	var out, errOut bytes.Buffer
	err := Main(context.Background(), []string{"-c", cfg, "list"}, &out, &errOut)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Fix flaky test")
	assert.Contains(t, out.String(), "Bump deps")
	assert.Contains(t, out.String(), "octo/repo")

	out.Reset()
	err = Main(context.Background(), []string{"-c", cfg, "list", "--unread"}, &out, &errOut)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Fix flaky test")
	assert.NotContains(t, out.String(), "Bump deps")
}

func TestCLI_ListEmpty(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, true)

	var out, errOut bytes.Buffer
	require.NoError(t, Main(context.Background(), []string{"-c", cfg, "list"}, &out, &errOut))
	assert.Contains(t, out.String(), "No notifications stored.")
}

func TestCLI_ListStoreDisabled(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, false)

	var out, errOut bytes.Buffer
	err := Main(context.Background(), []string{"-c", cfg, "list"}, &out, &errOut)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store is disabled")
}

func TestCLI_UnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	err := Main(context.Background(), []string{"frobnicate"}, &out, &errOut)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frobnicate")
}

func TestListCommand_Filter(t *testing.T) {
	l := &listCommand{Unread: true, Reason: " mention ", Repository: "octo/repo", Limit: 5}
	f := l.filter()

	assert.True(t, f.UnreadOnly)
	assert.Equal(t, 5, f.Limit)
	require.NotNil(t, f.Reason)
	assert.Equal(t, "mention", *f.Reason)
	require.NotNil(t, f.Repository)
	assert.Equal(t, "octo/repo", *f.Repository)

	f = (&listCommand{Limit: 20}).filter()
	assert.Nil(t, f.Reason)
	assert.Nil(t, f.Repository)
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]model.Notification{
		notification("1", "Review me", true, 0),
	})
	assert.Contains(t, out, "REPOSITORY")
	assert.Contains(t, out, "Review me")
	assert.Contains(t, out, "●")
	assert.Contains(t, out, model.ReasonMention)
}
