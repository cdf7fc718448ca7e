package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nhle/gh-notifier/internal/model"
	"github.com/nhle/gh-notifier/internal/source"
)

const (
	// DefaultBaseURL is the public GitHub REST API root.
	DefaultBaseURL = "https://api.github.com"

	userAgent  = "gh-notifier"
	apiVersion = "2022-11-28"

	// maxErrorBody caps how much of an error response ends up in messages.
	maxErrorBody = 512
)

// Client is a thin HTTP client for the GitHub REST API. It performs exactly
// one request per call; retries are left to the caller's poll cycle. The
// client holds no mutable state and is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ source.Source = (*Client)(nil)

// NewClient creates a new GitHub HTTP client. The baseURL should be the API
// root (https://api.github.com, or https://ghe.example.com/api/v3 for GHES).
// The token is sent as a Bearer credential. A non-positive timeout falls
// back to 30 seconds.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchNotifications lists the authenticated user's notification threads.
// When since is non-nil only threads updated after it are returned.
func (c *Client) FetchNotifications(
	ctx context.Context,
	since *time.Time,
) ([]model.Notification, error) {
	query := url.Values{}
	if since != nil {
		query.Set("since", since.UTC().Format(time.RFC3339))
	}

	var threads []notificationThread
	if err := c.get(ctx, "/notifications", query, &threads); err != nil {
		return nil, err
	}

	notifications := make([]model.Notification, 0, len(threads))
	for _, t := range threads {
		notifications = append(notifications, t.toModel())
	}
	return notifications, nil
}

// ValidateConnection checks the token by fetching the authenticated user.
func (c *Client) ValidateConnection(ctx context.Context) (string, error) {
	var user User
	if err := c.get(ctx, "/user", nil, &user); err != nil {
		return "", err
	}
	return fmt.Sprintf("authenticated as %s", user.Login), nil
}

// PullRequest fetches a single pull request.
func (c *Client) PullRequest(
	ctx context.Context,
	owner, repo string,
	number int,
) (*PullRequest, error) {
	path := fmt.Sprintf(
		"/repos/%s/%s/pulls/%d",
		url.PathEscape(owner), url.PathEscape(repo), number,
	)

	var pr PullRequest
	if err := c.get(ctx, path, nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// get performs a single GET request and decodes the JSON response into
// result. Every failure is returned as a *source.FetchError.
func (c *Client) get(
	ctx context.Context,
	path string,
	query url.Values,
	result interface{},
) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &source.FetchError{
			Kind:    source.KindTransient,
			Message: fmt.Sprintf("creating request: %v", err),
			Err:     err,
		}
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &source.FetchError{
			Kind:    source.KindTransient,
			Message: fmt.Sprintf("executing request GET %s: %v", path, err),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &source.FetchError{
			Kind:    source.KindTransient,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("reading response body: %v", err),
			Err:     err,
		}
	}

	if resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden {
		return &source.FetchError{
			Kind:   source.KindAuth,
			Status: resp.StatusCode,
			Message: fmt.Sprintf(
				"authentication failed on GET %s: %s", path, errorMessage(body),
			),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &source.FetchError{
			Kind:   source.KindTransient,
			Status: resp.StatusCode,
			Message: fmt.Sprintf(
				"unexpected status on GET %s: %s", path, errorMessage(body),
			),
		}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return &source.FetchError{
			Kind:    source.KindProtocol,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("decoding response from GET %s: %v", path, err),
			Err:     err,
		}
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
}

// errorMessage extracts the API error message from body, falling back to
// the (truncated) raw body.
func errorMessage(body []byte) string {
	var apiErr errorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	if text == "" {
		return "empty response body"
	}
	return text
}

func (t notificationThread) toModel() model.Notification {
	return model.Notification{
		ID: t.ID,
		Repository: model.Repository{
			Name:     t.Repository.Name,
			FullName: t.Repository.FullName,
			HTMLURL:  t.Repository.HTMLURL,
		},
		Subject: model.Subject{
			Title: t.Subject.Title,
			Type:  t.Subject.Type,
			URL:   t.Subject.URL,
		},
		Reason:    t.Reason,
		Unread:    t.Unread,
		UpdatedAt: t.UpdatedAt,
	}
}

// PullRequestNumber extracts the pull request number from a notification
// subject API URL (…/repos/{owner}/{repo}/pulls/{number}).
func PullRequestNumber(subjectURL string) (int, error) {
	idx := strings.LastIndex(subjectURL, "/pulls/")
	if idx < 0 {
		return 0, errors.New("not a pull request URL")
	}
	var n int
	if _, err := fmt.Sscanf(subjectURL[idx+len("/pulls/"):], "%d", &n); err != nil {
		return 0, fmt.Errorf("parsing pull request number from %q: %w", subjectURL, err)
	}
	return n, nil
}
