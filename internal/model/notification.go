package model

import "time"

// Reason values reported by the notifications API. The list is not
// exhaustive; unknown reasons are passed through unchanged.
const (
	ReasonAuthor          = "author"
	ReasonAssign          = "assign"
	ReasonComment         = "comment"
	ReasonMention         = "mention"
	ReasonReviewRequested = "review_requested"
	ReasonStateChange     = "state_change"
	ReasonSubscribed      = "subscribed"
	ReasonTeamMention     = "team_mention"
	ReasonCIActivity      = "ci_activity"
	ReasonParticipating   = "participating"
)

// Subject types that get special treatment in the UI.
const (
	SubjectPullRequest = "PullRequest"
	SubjectIssue       = "Issue"
)

// Repository identifies the repository a notification belongs to.
type Repository struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

// Subject is the thread a notification is about.
type Subject struct {
	// Title is the issue or pull request title.
	Title string `json:"title"`

	// Type is the subject kind (e.g., "PullRequest", "Issue", "Release").
	Type string `json:"type,omitempty"`

	// URL is the API URL of the subject, when the API provides one.
	URL string `json:"url,omitempty"`
}

// Notification is a single entry from the notifications feed.
type Notification struct {
	// ID is the opaque thread identifier assigned by the API.
	ID string `json:"id"`

	// Repository is the repository the thread lives in.
	Repository Repository `json:"repository"`

	// Subject describes the thread.
	Subject Subject `json:"subject"`

	// Reason is why the user received the notification (see Reason*).
	Reason string `json:"reason"`

	// Unread reports whether the thread is unread on the server.
	Unread bool `json:"unread"`

	// UpdatedAt is the last time the thread was updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// SelfAuthored reports whether the notification was triggered by the
// user's own activity.
func (n Notification) SelfAuthored() bool {
	return n.Reason == ReasonAuthor
}
