package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TokenFileName is the legacy token file in the user's home directory.
const TokenFileName = ".githubapi"

// Provider resolves an API token.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// Token returns the token, or an error wrapping ErrNotFound when this
	// provider has none.
	Token() (string, error)
}

// KeyringProvider reads the token for an account from the system keyring.
type KeyringProvider struct {
	Account string
}

func (p KeyringProvider) Name() string { return "keyring" }

func (p KeyringProvider) Token() (string, error) {
	return Get(TokenKey(p.Account))
}

// EnvProvider reads the token from the first non-empty environment variable.
type EnvProvider struct {
	Vars []string

	// lookup overrides os.LookupEnv in tests.
	lookup func(string) (string, bool)
}

// DefaultEnvVars are checked by NewEnvProvider.
var DefaultEnvVars = []string{"GITHUB_TOKEN", "GH_TOKEN"}

// NewEnvProvider returns an EnvProvider for vars, or DefaultEnvVars when
// none are given.
func NewEnvProvider(vars ...string) EnvProvider {
	if len(vars) == 0 {
		vars = DefaultEnvVars
	}
	return EnvProvider{Vars: vars}
}

func (p EnvProvider) Name() string { return "env" }

func (p EnvProvider) Token() (string, error) {
	lookup := p.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, v := range p.Vars {
		if val, ok := lookup(v); ok {
			if tok := strings.TrimSpace(val); tok != "" {
				return tok, nil
			}
		}
	}
	return "", fmt.Errorf("env %s: %w", strings.Join(p.Vars, ","), ErrNotFound)
}

// FileProvider reads the token from a plain text file.
type FileProvider struct {
	Path string
}

// DefaultFileProvider reads ~/.githubapi.
func DefaultFileProvider() FileProvider {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return FileProvider{Path: filepath.Join(home, TokenFileName)}
}

func (p FileProvider) Name() string { return "file" }

func (p FileProvider) Token() (string, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("token file %s: %w", p.Path, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("reading token file %s: %w", p.Path, err)
	}

	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", fmt.Errorf("token file %s is empty: %w", p.Path, ErrNotFound)
	}
	return tok, nil
}

// Chain tries providers in order and returns the first token found.
type Chain []Provider

// DefaultChain checks the keyring, then the environment, then ~/.githubapi.
func DefaultChain(account string) Chain {
	return Chain{
		KeyringProvider{Account: account},
		NewEnvProvider(),
		DefaultFileProvider(),
	}
}

func (c Chain) Name() string { return "chain" }

// Token returns the first token found. Errors other than ErrNotFound are
// collected and only returned when no provider has a token.
func (c Chain) Token() (string, error) {
	tok, _, err := c.Resolve()
	return tok, err
}

// Resolve is like Token but also names the provider that supplied it.
func (c Chain) Resolve() (string, string, error) {
	var errs []error
	for _, p := range c {
		tok, err := p.Token()
		if err == nil {
			return tok, p.Name(), nil
		}
		if !errors.Is(err, ErrNotFound) {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}

	if len(errs) > 0 {
		return "", "", fmt.Errorf("no API token available: %w", errors.Join(errs...))
	}
	return "", "", fmt.Errorf("no API token available: %w", ErrNotFound)
}
