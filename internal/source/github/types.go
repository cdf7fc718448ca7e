package github

import "time"

// notificationThread is a notification as returned by GET /notifications.
type notificationThread struct {
	ID         string     `json:"id"`
	Repository Repository `json:"repository"`
	Subject    Subject    `json:"subject"`
	Reason     string     `json:"reason"`
	Unread     bool       `json:"unread"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LastReadAt *time.Time `json:"last_read_at"`
	URL        string     `json:"url"`
}

// Repository is the subset of repository fields we use.
type Repository struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
	Private  bool   `json:"private"`
}

// Subject is the thread a notification refers to.
type Subject struct {
	Title            string `json:"title"`
	URL              string `json:"url"`
	LatestCommentURL string `json:"latest_comment_url"`
	Type             string `json:"type"` // PullRequest, Issue, Release, ...
}

// User represents a GitHub account.
type User struct {
	Login   string `json:"login"`
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

// PullRequest is the subset of pull request fields shown in the UI.
type PullRequest struct {
	Number             int    `json:"number"`
	State              string `json:"state"` // open, closed
	Title              string `json:"title"`
	Draft              bool   `json:"draft"`
	Merged             bool   `json:"merged"`
	HTMLURL            string `json:"html_url"`
	User               User   `json:"user"`
	RequestedReviewers []User `json:"requested_reviewers"`
}

// errorResponse is the GitHub REST error body.
type errorResponse struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}
