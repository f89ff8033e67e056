// Package app wires stores and services into a runnable application.
package app

import (
	"context"
	"fmt"

	feedsvc "github.com/vibeshare/feedservice/internal/app/services/feed"
	"github.com/vibeshare/feedservice/internal/app/storage"
	"github.com/vibeshare/feedservice/internal/app/storage/memory"
	"github.com/vibeshare/feedservice/internal/app/system"
	"github.com/vibeshare/feedservice/internal/config"
	"github.com/vibeshare/feedservice/pkg/logger"
)

// Stores aggregates the persistence backends. Nil fields default to a shared
// in-memory store so tests and local runs need no external services.
type Stores struct {
	Profiles storage.ProfileStore
	Signals  storage.SignalStore
	Follows  storage.FollowStore
	Posts    storage.PostStore
	Ads      storage.AdStore
	Seen     storage.SeenStore
}

func (s Stores) withDefaults() Stores {
	mem := memory.New()
	if s.Profiles == nil {
		s.Profiles = mem
	}
	if s.Signals == nil {
		s.Signals = mem
	}
	if s.Follows == nil {
		s.Follows = mem
	}
	if s.Posts == nil {
		s.Posts = mem
	}
	if s.Ads == nil {
		s.Ads = mem
	}
	if s.Seen == nil {
		s.Seen = mem
	}
	return s
}

// Options configures Application construction.
type Options struct {
	Stores Stores
	Config *config.Config
	Logger *logger.Logger
}

// Application bundles the feed service, its stores and the lifecycle manager.
type Application struct {
	Feed   *feedsvc.Service
	Stores Stores

	cfg     *config.Config
	log     *logger.Logger
	manager *system.Manager
}

// New assembles the application from the given options.
func New(opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewDefault("app")
	}

	stores := opts.Stores.withDefaults()

	feedService := feedsvc.New(feedsvc.Stores{
		Profiles: stores.Profiles,
		Signals:  stores.Signals,
		Follows:  stores.Follows,
		Posts:    stores.Posts,
		Ads:      stores.Ads,
		Seen:     stores.Seen,
	}, cfg.Feed, log.WithField("component", "feed"))

	manager := system.NewManager()
	pruner := feedsvc.NewPruner(stores.Seen, cfg.Feed.SeenWindow, cfg.Feed.PruneInterval,
		log.WithField("component", "seen-pruner"))
	if err := manager.Register(pruner); err != nil {
		return nil, err
	}

	return &Application{
		Feed:    feedService,
		Stores:  stores,
		cfg:     cfg,
		log:     log,
		manager: manager,
	}, nil
}

// Config exposes the resolved configuration.
func (a *Application) Config() *config.Config { return a.cfg }

// Start launches the background services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop shuts the background services down.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
