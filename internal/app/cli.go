package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jessevdk/go-flags"

	"github.com/nhle/gh-notifier/internal/credential"
	"github.com/nhle/gh-notifier/internal/model"
	"github.com/nhle/gh-notifier/internal/sink"
	"github.com/nhle/gh-notifier/internal/source/github"
	"github.com/nhle/gh-notifier/internal/status"
	"github.com/nhle/gh-notifier/internal/store"
	"github.com/nhle/gh-notifier/internal/sync"
	"github.com/nhle/gh-notifier/internal/theme"
	"github.com/nhle/gh-notifier/internal/ui"
	"github.com/nhle/gh-notifier/internal/ui/login"
)

// GlobalOptions are accepted by every command.
type GlobalOptions struct {
	Config   string `short:"c" long:"config" env:"GH_NOTIFIER_CONFIG" description:"Path to the YAML config file"`
	LogLevel string `long:"log-level" description:"Override the configured log level (trace, debug, info, warn, error)"`
}

func (o *GlobalOptions) configPath() string {
	if o.Config != "" {
		return o.Config
	}
	return model.DefaultConfigPath()
}

// CLI is the command line entry point.
type CLI struct {
	GlobalOptions

	ctx    context.Context
	stdout io.Writer
	stderr io.Writer
}

// Main parses args and runs the selected command. Without a command it
// starts the terminal UI.
func Main(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := &CLI{ctx: ctx, stdout: stdout, stderr: stderr}

	parser := flags.NewParser(&c.GlobalOptions, flags.Default)
	parser.Name = "gh-notifier"
	parser.SubcommandsOptional = true

	watch := &watchCommand{cli: c}
	commands := []struct {
		name, short, long string
		data              interface{}
	}{
		{"watch", "Poll and show notifications in the terminal UI", "Default command.", watch},
		{"run", "Poll headless and log delivered notifications", "Stops on SIGINT or SIGTERM.", &runCommand{cli: c}},
		{"once", "Run a single poll cycle and print the result", "Exits non-zero when the fetch fails.", &onceCommand{cli: c}},
		{"login", "Store a GitHub token in the system keyring", "The token is validated before it is saved.", &loginCommand{cli: c}},
		{"logout", "Remove the stored GitHub token", "", &logoutCommand{cli: c}},
		{"check", "Validate the configured credentials", "", &checkCommand{cli: c}},
		{"list", "Print stored notifications", "", &listCommand{cli: c}},
	}
	for _, cmd := range commands {
		if _, err := parser.AddCommand(cmd.name, cmd.short, cmd.long, cmd.data); err != nil {
			return fmt.Errorf("registering command %s: %w", cmd.name, err)
		}
	}

	rest, err := parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}

	if parser.Active == nil {
		if len(rest) > 0 {
			return fmt.Errorf("unknown command %q", rest[0])
		}
		return watch.Execute(nil)
	}
	return nil
}

// senderFunc adapts a function to ui.Sender.
type senderFunc func(tea.Msg)

func (f senderFunc) Send(msg tea.Msg) { f(msg) }

type watchCommand struct {
	cli *CLI
}

func (w *watchCommand) Execute(_ []string) error {
	c := w.cli
	rt, err := newRuntime(&c.GlobalOptions, c.stderr, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	client, err := rt.client()
	if err != nil {
		return err
	}
	st, err := rt.openStore()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.ctx)
	defer cancel()

	// The program needs the poller and the poller needs the program's
	// sink; the relay breaks the cycle.
	var program *tea.Program
	programSink := ui.NewProgramSink(senderFunc(func(msg tea.Msg) { program.Send(msg) }))

	sinks := sink.Fanout{}
	var uiStore NotificationStore
	if st != nil {
		sinks = append(sinks, sink.NewStore(st))
		uiStore = st
	}
	sinks = append(sinks, programSink)

	poller, err := rt.newPoller(client, sinks, sync.Reporters{
		sink.NewLogReporter(rt.log),
		status.Metrics{},
		programSink,
	}, true)
	if err != nil {
		return err
	}

	program = tea.NewProgram(
		NewModel(poller, uiStore, client),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithOutput(c.stdout),
	)

	if err := poller.Start(ctx); err != nil {
		return err
	}
	rt.serveStatus(ctx, poller)

	_, runErr := program.Run()
	cancel()
	poller.Stop()

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("running terminal UI: %w", runErr)
	}
	return nil
}

type runCommand struct {
	cli *CLI
}

func (r *runCommand) Execute(_ []string) error {
	c := r.cli
	rt, err := newRuntime(&c.GlobalOptions, c.stderr, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	client, err := rt.client()
	if err != nil {
		return err
	}
	st, err := rt.openStore()
	if err != nil {
		return err
	}

	sinks := sink.Fanout{sink.NewLog(rt.log)}
	if st != nil {
		sinks = append(sinks, sink.NewStore(st))
	}

	poller, err := rt.newPoller(client, sinks, sync.Reporters{
		sink.NewLogReporter(rt.log),
		status.Metrics{},
	}, true)
	if err != nil {
		return err
	}

	rt.serveStatus(c.ctx, poller)
	poller.Run(c.ctx)
	return nil
}

type onceCommand struct {
	cli *CLI
}

func (o *onceCommand) Execute(_ []string) error {
	c := o.cli
	rt, err := newRuntime(&c.GlobalOptions, c.stderr, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	client, err := rt.client()
	if err != nil {
		return err
	}
	st, err := rt.openStore()
	if err != nil {
		return err
	}

	var sinks sink.Fanout
	if st != nil {
		sinks = append(sinks, sink.NewStore(st))
	}

	poller, err := rt.newPoller(client, sinks, sink.NewLogReporter(rt.log), false)
	if err != nil {
		return err
	}

	res := poller.RunCycle(c.ctx)
	if res.Err != nil {
		return res.Err
	}

	if len(res.Batch.Items) == 0 {
		fmt.Fprintln(c.stdout, "No new notifications.")
		return nil
	}
	fmt.Fprintln(c.stdout, renderTable(res.Batch.Items))
	return nil
}

type loginCommand struct {
	cli *CLI
}

func (l *loginCommand) Execute(_ []string) error {
	c := l.cli
	path := c.configPath()
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return err
	}

	res, err := login.New(cfg.GitHub.BaseURL, cfg.GitHub.Account).Run()
	if err != nil {
		return err
	}

	client := github.NewClient(res.BaseURL, res.Token, cfg.GitHub.RequestTimeout())
	who, err := client.ValidateConnection(c.ctx)
	if err != nil {
		return fmt.Errorf("validating token: %w", err)
	}

	if err := credential.Set(credential.TokenKey(res.Account), res.Token); err != nil {
		return err
	}

	if res.BaseURL != cfg.GitHub.BaseURL || res.Account != cfg.GitHub.Account {
		cfg.GitHub.BaseURL = res.BaseURL
		cfg.GitHub.Account = res.Account
		if err := model.SaveConfig(path, cfg); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.stdout, "Logged in: %s. Token saved for account %q.\n", who, res.Account)
	return nil
}

type logoutCommand struct {
	cli *CLI
}

func (l *logoutCommand) Execute(_ []string) error {
	c := l.cli
	cfg, err := model.LoadConfig(c.configPath())
	if err != nil {
		return err
	}

	if err := credential.Delete(credential.TokenKey(cfg.GitHub.Account)); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Removed the stored token for account %q.\n", cfg.GitHub.Account)
	return nil
}

type checkCommand struct {
	cli *CLI
}

func (ch *checkCommand) Execute(_ []string) error {
	c := ch.cli
	rt, err := newRuntime(&c.GlobalOptions, c.stderr, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	client, err := rt.client()
	if err != nil {
		return err
	}

	who, err := client.ValidateConnection(c.ctx)
	if err != nil {
		return fmt.Errorf("checking %s: %w", rt.cfg.GitHub.BaseURL, err)
	}
	fmt.Fprintf(c.stdout, "OK: %s (%s)\n", who, rt.cfg.GitHub.BaseURL)
	return nil
}

type listCommand struct {
	cli *CLI

	Unread     bool   `long:"unread" description:"Only unread notifications"`
	Reason     string `long:"reason" description:"Only notifications with this reason"`
	Repository string `long:"repo" description:"Only notifications from this owner/name repository"`
	Limit      int    `short:"n" long:"limit" default:"20" description:"Maximum number of rows"`
}

func (l *listCommand) Execute(_ []string) error {
	c := l.cli
	rt, err := newRuntime(&c.GlobalOptions, c.stderr, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	st, err := rt.openStore()
	if err != nil {
		return err
	}
	if st == nil {
		return errors.New("the notification store is disabled (store.enabled: false)")
	}

	stored, err := st.GetNotifications(c.ctx, l.filter())
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		fmt.Fprintln(c.stdout, "No notifications stored.")
		return nil
	}

	items := make([]model.Notification, len(stored))
	for i, s := range stored {
		items[i] = s.Notification
	}
	fmt.Fprintln(c.stdout, renderTable(items))
	return nil
}

func (l *listCommand) filter() store.NotificationFilter {
	f := store.NotificationFilter{UnreadOnly: l.Unread, Limit: l.Limit}
	if r := strings.TrimSpace(l.Reason); r != "" {
		f.Reason = &r
	}
	if r := strings.TrimSpace(l.Repository); r != "" {
		f.Repository = &r
	}
	return f
}

// renderTable formats notifications for the terminal.
func renderTable(items []model.Notification) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("", "UPDATED", "REPOSITORY", "REASON", "TITLE").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, n := range items {
		marker := " "
		if n.Unread {
			marker = "●"
		}
		t.Row(
			marker,
			n.UpdatedAt.Local().Format("2006-01-02 15:04"),
			n.Repository.FullName,
			n.Reason,
			n.Subject.Title,
		)
	}
	return t.Render()
}
