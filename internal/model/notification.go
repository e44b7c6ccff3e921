package model

import (
	"strings"
	"time"
)

// Notification is a remote notification thread. It is read-only to the
// synchronizer apart from marking it as read.
type Notification struct {
	// ID is stable and unique within its source.
	ID int64 `json:"id"`

	// Title is the subject title of the thread.
	Title string `json:"title"`

	Unread bool `json:"unread"`

	// UpdatedAt is always in UTC.
	UpdatedAt time.Time `json:"updated_at"`

	// Reason explains why the user was notified (e.g. "mention").
	Reason string `json:"reason"`

	Subject    Subject    `json:"subject"`
	Repository Repository `json:"repository"`
}

// Subject describes what the notification is about.
type Subject struct {
	Title string `json:"title"`

	// URL is the optional API URL used to fetch the subject's details.
	URL string `json:"url,omitempty"`

	// Type is the subject kind (Issue, PullRequest, Release, ...).
	Type string `json:"type"`
}

// Repository describes the origin of a notification.
type Repository struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
}

// Detail is the decoded body of an auxiliary detail fetch.
type Detail map[string]any

// String returns the trimmed, non-empty string value stored under key.
func (d Detail) String(key string) (string, bool) {
	v, ok := d[key].(string)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
