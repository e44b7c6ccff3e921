package github

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"

	"github.com/nhle/todosync/internal/source"
)

// Option customizes the underlying API client.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL points the client at a different REST root, such as a
// GitHub Enterprise API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = baseURL }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// newClient builds a token-authenticated go-github client.
func newClient(token string, opts ...Option) (*gh.Client, error) {
	o := options{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	client := gh.NewClient(o.httpClient).WithAuthToken(token)

	if o.baseURL != "" {
		u, err := url.Parse(strings.TrimRight(o.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing base URL %q: %w", o.baseURL, err)
		}
		client.BaseURL = u
	}

	return client, nil
}

// translateError maps 401 responses onto source.AuthError and wraps
// everything else with the failed operation.
func translateError(op string, err error) error {
	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) &&
		respErr.Response != nil &&
		respErr.Response.StatusCode == http.StatusUnauthorized {
		return &source.AuthError{
			SourceType: source.SourceTypeGitHub,
			Message: fmt.Sprintf(
				"authentication failed (401) while %s: check your notifications token",
				op,
			),
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
