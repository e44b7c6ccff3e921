// Package github implements source.NotificationSource for GitHub
// notification threads.
package github

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gh "github.com/google/go-github/v66/github"

	"github.com/nhle/todosync/internal/model"
	"github.com/nhle/todosync/internal/source"
)

// perPage is the page size requested when listing notifications.
const perPage = 50

// Adapter implements source.NotificationSource for GitHub.
type Adapter struct {
	client *gh.Client
}

// NewAdapter creates a GitHub notifications adapter authenticated with token.
func NewAdapter(token string, opts ...Option) (*Adapter, error) {
	client, err := newClient(token, opts...)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: client}, nil
}

// Type returns the source type identifier for GitHub.
func (a *Adapter) Type() source.SourceType {
	return source.SourceTypeGitHub
}

// ValidateConnection fetches the authenticated user and returns its login.
func (a *Adapter) ValidateConnection(ctx context.Context) (string, error) {
	user, _, err := a.client.Users.Get(ctx, "")
	if err != nil {
		return "", translateError("validating GitHub connection", err)
	}
	return user.GetLogin(), nil
}

// ListNotifications returns all notification threads, read and unread,
// updated since the given time. Every page is fetched.
func (a *Adapter) ListNotifications(
	ctx context.Context,
	since time.Time,
) ([]model.Notification, error) {
	opts := &gh.NotificationListOptions{
		All:   true,
		Since: since,
		ListOptions: gh.ListOptions{
			PerPage: perPage,
		},
	}

	var all []model.Notification
	for {
		page, resp, err := a.client.Activity.ListNotifications(ctx, opts)
		if err != nil {
			return nil, translateError("listing notifications", err)
		}

		for _, n := range page {
			converted, err := toNotification(n)
			if err != nil {
				return nil, err
			}
			all = append(all, converted)
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// MarkRead marks the notification thread as read.
func (a *Adapter) MarkRead(ctx context.Context, n model.Notification) error {
	id := strconv.FormatInt(n.ID, 10)
	if _, err := a.client.Activity.MarkThreadRead(ctx, id); err != nil {
		return translateError(fmt.Sprintf("marking thread %s read", id), err)
	}
	return nil
}

// FetchDetail GETs an API URL (such as a subject URL) and decodes the
// JSON object it returns.
func (a *Adapter) FetchDetail(ctx context.Context, url string) (model.Detail, error) {
	req, err := a.client.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating detail request: %w", err)
	}

	var detail model.Detail
	if _, err := a.client.Do(ctx, req, &detail); err != nil {
		return nil, translateError("fetching "+url, err)
	}
	return detail, nil
}

// toNotification maps a GitHub thread onto the model.
func toNotification(n *gh.Notification) (model.Notification, error) {
	id, err := strconv.ParseInt(n.GetID(), 10, 64)
	if err != nil {
		return model.Notification{}, fmt.Errorf(
			"parsing notification id %q: %w", n.GetID(), err,
		)
	}

	subject := n.GetSubject()
	repo := n.GetRepository()

	return model.Notification{
		ID:        id,
		Title:     subject.GetTitle(),
		Unread:    n.GetUnread(),
		UpdatedAt: n.GetUpdatedAt().Time.UTC(),
		Reason:    n.GetReason(),
		Subject: model.Subject{
			Title: subject.GetTitle(),
			URL:   subject.GetURL(),
			Type:  subject.GetType(),
		},
		Repository: model.Repository{
			FullName:    repo.GetFullName(),
			Description: repo.GetDescription(),
		},
	}, nil
}
