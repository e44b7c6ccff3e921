package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/todosync/internal/model"
)

// AuthError indicates that authentication has failed or expired for a source.
// It is returned by source clients when a 401 response is received.
type AuthError struct {
	SourceType SourceType
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.SourceType, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// SourceType identifies the kind of notification source.
type SourceType string

const (
	SourceTypeGitHub SourceType = "github"
)

// NotificationSource is the contract every remote notification feed implements.
type NotificationSource interface {
	// Type returns the source type identifier.
	Type() SourceType

	// ValidateConnection verifies credentials and connectivity.
	// Returns a human-readable status message on success.
	ValidateConnection(ctx context.Context) (string, error)

	// ListNotifications returns every notification, read or unread,
	// updated at or after since, in source order.
	ListNotifications(ctx context.Context, since time.Time) ([]model.Notification, error)

	// MarkRead marks the notification as read on the remote side.
	MarkRead(ctx context.Context, n model.Notification) error

	// FetchDetail retrieves the record behind a subject URL.
	FetchDetail(ctx context.Context, url string) (model.Detail, error)
}
