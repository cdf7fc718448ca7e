// Package login collects GitHub credentials interactively.
package login

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"
)

// Result holds the values entered in the login form.
type Result struct {
	BaseURL string
	Account string
	Token   string
}

// Form asks for the API base URL, account label and token.
type Form struct {
	result Result
	form   *huh.Form
}

// New builds the form, pre-filled with the current base URL and account.
func New(baseURL, account string) *Form {
	f := &Form{result: Result{BaseURL: baseURL, Account: account}}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API base URL").
				Description("https://api.github.com, or https://<host>/api/v3 for GitHub Enterprise").
				Placeholder("https://api.github.com").
				Value(&f.result.BaseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Account").
				Description("A label for this account; the token is stored under it").
				Placeholder("default").
				Value(&f.result.Account).
				Validate(validateRequired("Account")),
			huh.NewInput().
				Title("Personal access token").
				Description("Needs the notifications scope (and repo for private repositories)").
				EchoMode(huh.EchoModePassword).
				Value(&f.result.Token).
				Validate(validateToken),
		),
	).WithWidth(72)
	return f
}

// ErrAborted is returned when the user cancels the form.
var ErrAborted = errors.New("login aborted")

// Run shows the form in the terminal and returns the trimmed values.
func (f *Form) Run() (Result, error) {
	if err := f.form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return Result{}, ErrAborted
		}
		return Result{}, fmt.Errorf("running login form: %w", err)
	}
	return f.Result(), nil
}

// Result returns the trimmed form values.
func (f *Form) Result() Result {
	return Result{
		BaseURL: strings.TrimRight(strings.TrimSpace(f.result.BaseURL), "/"),
		Account: strings.TrimSpace(f.result.Account),
		Token:   strings.TrimSpace(f.result.Token),
	}
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("URL must start with https://")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

func validateToken(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("token is required")
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return fmt.Errorf("token must not contain whitespace")
	}
	return nil
}
