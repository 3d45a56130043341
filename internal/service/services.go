package service

import (
	"github.com/vegnbio/restobook/internal/clock"
	"github.com/vegnbio/restobook/internal/identity"
	"github.com/vegnbio/restobook/internal/notify"
	redisx "github.com/vegnbio/restobook/internal/redis"
	postgres "github.com/vegnbio/restobook/internal/repository/postgres"
	redis "github.com/vegnbio/restobook/internal/repository/redis"
	"github.com/vegnbio/restobook/internal/service/directory"
	"github.com/vegnbio/restobook/internal/service/events"
	"github.com/vegnbio/restobook/internal/service/invites"
	"github.com/vegnbio/restobook/internal/service/query"
	"github.com/vegnbio/restobook/internal/service/scheduler"
)

type Services struct {
	Directory *directory.Service
	Scheduler *scheduler.Service
	Events    *events.Service
	Invites   *invites.Service
	Query     *query.Service
}

type Config struct {
	Invites invites.Config
	Query   query.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redisx.RestaurantsPubSub,
	limiter *redis.SlidingWindowLimiter,
	clk clock.Clock,
	accounts identity.Provider,
	notifier notify.Notifier,
	cfg Config,
) *Services {
	return &Services{
		Directory: directory.New(store, cache, pubsub),
		Scheduler: scheduler.New(store, cache, pubsub, limiter, clk, accounts, notifier),
		Events:    events.New(store, cache, pubsub, clk, accounts, notifier),
		Invites:   invites.New(store, cache, pubsub, clk, accounts, notifier, cfg.Invites),
		Query:     query.New(store, cache, cfg.Query),
	}
}
