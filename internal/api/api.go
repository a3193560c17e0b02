package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/victornm/showdown/internal/domain"
	"github.com/victornm/showdown/internal/errors"
	"github.com/victornm/showdown/internal/event"
	"github.com/victornm/showdown/internal/leaderboard"
)

type Config struct {
	GRPC         *grpc.Server
	Router       gin.IRouter
	EventBus     *event.Bus
	Session      Session
	Leaderboard  *leaderboard.Service
	Feed         *Feed
	Redis        Redis
	PubsubPrefix string
}

type Session interface {
	State() domain.State
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// API exposes the session to spectators and operators. The leaderboard and the Redis
// notifications are optional.
type API struct {
	ss   Session
	ls   *leaderboard.Service
	feed *Feed

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		ss:     c.Session,
		ls:     c.Leaderboard,
		feed:   c.Feed,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	// gRPC APIs
	if c.GRPC != nil {
		RegisterShowdownServiceServer(c.GRPC, a)
	}

	// HTTP APIs
	if c.Router != nil {
		a.registerHTTP(c.Router)
	}

	// Register event handlers
	if a.redis != nil {
		c.EventBus.Subscribe(func(ctx context.Context, e event.Event) error {
			return a.PublishLeaderboardUpdated(ctx, e.(domain.EventLeaderboardUpdated))
		}, domain.EventNameLeaderboardUpdated)
	}

	return a
}

func (a *API) getLeaderboard(ctx context.Context) (*domain.Leaderboard, error) {
	if a.ls == nil {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessage("Leaderboard is disabled."))
	}

	l, err := a.ls.GetLeaderboard(ctx)
	if err != nil && leaderboard.IsUnavailable(err) {
		return nil, errors.New(errors.CodeUnavailable, errors.WithCause(err))
	}

	return l, err
}
