package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/showdown/internal/domain"
)

const (
	maxConcurrent  = 100
	relayQueueSize = 1024
	drainTimeout   = 2 * time.Second
)

type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// PublishLeaderboardUpdated notifies every ranked player of the new leaderboard.
func (a *API) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	l := e.Leaderboard

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, entry := range l.Entries {
		entry := entry
		eg.Go(func() error {
			return publishNotification(ctx, a.redis, playerChannel(a.prefix, entry.PlayerID), e.Name(), l)
		})
	}

	return eg.Wait()
}

// Relay publishes the broadcasts of the session to Redis: public ones on <prefix>:session,
// private ones on <prefix>:player:<id>. Broadcasts are queued and published in order by Run.
type Relay struct {
	redis  Redis
	prefix string
	queue  chan []domain.Broadcast
}

func NewRelay(r Redis, prefix string) *Relay {
	return &Relay{
		redis:  r,
		prefix: prefix,
		queue:  make(chan []domain.Broadcast, relayQueueSize),
	}
}

func (r *Relay) Dispatch(bs []domain.Broadcast) {
	select {
	case r.queue <- bs:
	default:
		slog.Warn("pubsub: relay queue full, broadcasts dropped", "count", len(bs))
	}
}

// Run publishes queued broadcasts until ctx is done, then publishes what is still queued.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.drain(context.WithoutCancel(ctx))
			return nil
		case bs := <-r.queue:
			r.publish(ctx, bs)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()

	for {
		select {
		case bs := <-r.queue:
			r.publish(ctx, bs)
		default:
			return
		}
	}
}

func (r *Relay) publish(ctx context.Context, bs []domain.Broadcast) {
	for _, b := range bs {
		channel := sessionChannel(r.prefix)
		if b.Private() {
			channel = playerChannel(r.prefix, b.To)
		}

		if err := publishNotification(ctx, r.redis, channel, string(b.Kind), b.Data); err != nil {
			slog.ErrorContext(ctx, "pubsub: publish failed",
				"channel", channel,
				"event", b.Kind,
				"error", err,
			)
		}
	}
}

func publishNotification(ctx context.Context, r Redis, channel, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return r.Publish(ctx, channel, b).Err()
}

func sessionChannel(prefix string) string {
	return fmt.Sprintf("%s:session", prefix)
}

func playerChannel(prefix, playerID string) string {
	return fmt.Sprintf("%s:player:%s", prefix, playerID)
}
