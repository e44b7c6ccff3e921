package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nhle/todosync/internal/config"
	"github.com/nhle/todosync/internal/credential"
	"github.com/nhle/todosync/internal/crossref"
	"github.com/nhle/todosync/internal/reconcile"
	"github.com/nhle/todosync/internal/source"
	"github.com/nhle/todosync/internal/source/github"
	"github.com/nhle/todosync/internal/sync"
)

// Synchronizer is one enabled notification source wired to its engine.
type Synchronizer struct {
	Name     string
	Source   source.NotificationSource
	Engine   *reconcile.Engine
	Interval time.Duration
}

// Entry registers the synchronizer with a supervisor.
func (s Synchronizer) Entry() sync.Entry {
	return sync.Entry{Name: s.Name, Synchronizer: s.Engine, Interval: s.Interval}
}

// definition describes a known synchronizer under its config key prefix.
type definition struct {
	prefix string
	build  func(p *config.Provider, prefix string) (sourceSetup, error)
}

// sourceSetup is what a definition contributes to the engine.
type sourceSetup struct {
	source  source.NotificationSource
	matcher crossref.Matcher
	reasons map[string]string
	tag     string
}

// registry lists every synchronizer this build knows about.
var registry = []definition{
	{prefix: "github.notifications", build: buildGitHubNotifications},
}

// LoadSynchronizers builds every enabled synchronizer. An absent
// "<prefix>.enabled" key counts as enabled.
func LoadSynchronizers(p *config.Provider, logger *slog.Logger) ([]Synchronizer, error) {
	var out []Synchronizer
	for _, def := range registry {
		enabled, err := optionalBool(p, def.prefix+".enabled", true)
		if err != nil {
			return nil, err
		}
		if !enabled {
			logger.Info("synchronizer disabled", "synchronizer", def.prefix)
			continue
		}

		interval, err := p.Seconds(def.prefix + ".interval")
		if err != nil {
			return nil, err
		}
		if interval <= 0 {
			return nil, fmt.Errorf("%w: %s.interval must be positive", config.ErrInvalid, def.prefix)
		}
		window, err := p.Days(def.prefix + ".last")
		if err != nil {
			return nil, err
		}

		setup, err := def.build(p, def.prefix)
		if err != nil {
			return nil, fmt.Errorf("setting up %s: %w", def.prefix, err)
		}

		out = append(out, Synchronizer{
			Name:     def.prefix,
			Source:   setup.source,
			Interval: interval,
			Engine: reconcile.New(reconcile.Config{
				Name:       def.prefix,
				Source:     setup.source,
				Matcher:    setup.matcher,
				Reasons:    setup.reasons,
				SummaryTag: setup.tag,
				Window:     window,
				Logger:     logger,
			}),
		})
	}
	return out, nil
}

func buildGitHubNotifications(p *config.Provider, prefix string) (sourceSetup, error) {
	token, err := p.Secret(prefix+".token", credential.KeyGitHubToken)
	if err != nil {
		return sourceSetup{}, err
	}

	var opts []github.Option
	baseURL, err := optionalString(p, prefix+".base_url")
	if err != nil {
		return sourceSetup{}, err
	}
	if baseURL != "" {
		opts = append(opts, github.WithBaseURL(baseURL))
	}

	adapter, err := github.NewAdapter(token, opts...)
	if err != nil {
		return sourceSetup{}, err
	}

	return sourceSetup{
		source:  adapter,
		matcher: crossref.NewMatcher(crossref.GitHubPrefix),
		reasons: github.Reasons,
		tag:     "[GH] ",
	}, nil
}
