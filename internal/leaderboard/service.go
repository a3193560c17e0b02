package leaderboard

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/showdown/internal/domain"
	"github.com/victornm/showdown/internal/errors"
	"github.com/victornm/showdown/internal/event"
)

const (
	publishInterval = 200 * time.Millisecond
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

// Service mirrors the live scores of the session into a Redis sorted set. Nothing survives the
// session: the keys are dropped when the roster empties.
type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	s.eb.Subscribe(func(ctx context.Context, e event.Event) error {
		return s.UpdateLeaderboard(ctx, e.(domain.EventScoreUpdated))
	}, domain.EventNameScoreUpdated)

	s.eb.Subscribe(func(ctx context.Context, e event.Event) error {
		return s.RemovePlayer(ctx, e.(domain.EventPlayerLeft).Player.ID)
	}, domain.EventNamePlayerLeft)

	s.eb.Subscribe(func(ctx context.Context, _ event.Event) error {
		return s.Reset(ctx)
	}, domain.EventNameSessionReset)

	return s
}

// GetLeaderboard returns the players who scored, sorted by score in descending order.
func (s *Service) GetLeaderboard(ctx context.Context) (*domain.Leaderboard, error) {
	res, err := s.redis.ZRevRangeWithScores(ctx, s.leaderboardKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	if len(res) == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessage("Nobody has scored yet."))
	}

	ids := make([]string, 0, len(res))
	for _, z := range res {
		ids = append(ids, z.Member.(string))
	}

	names, err := s.redis.HMGet(ctx, s.namesKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("get names: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res))
	for i, z := range res {
		name, _ := names[i].(string)
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID: ids[i],
			Name:     name,
			Score:    int(z.Score),
		})
	}

	return &domain.Leaderboard{Entries: entries}, nil
}

// UpdateLeaderboard overwrites the player's score in the leaderboard.
func (s *Service) UpdateLeaderboard(ctx context.Context, e domain.EventScoreUpdated) error {
	_, err := s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, s.leaderboardKey(), redis.Z{
			Score:  float64(e.Score),
			Member: e.PlayerID,
		})
		p.HSet(ctx, s.namesKey(), e.PlayerID, e.PlayerName)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}

	return s.schedulePublishLeaderboard(ctx, e.UpdatedAt)
}

// RemovePlayer drops a departed player from the leaderboard.
func (s *Service) RemovePlayer(ctx context.Context, playerID string) error {
	removed, err := s.redis.ZRem(ctx, s.leaderboardKey(), playerID).Result()
	if err != nil {
		return fmt.Errorf("remove player: %w", err)
	}

	if err := s.redis.HDel(ctx, s.namesKey(), playerID).Err(); err != nil {
		return fmt.Errorf("remove name: %w", err)
	}

	if removed == 0 {
		return nil
	}

	return s.schedulePublishLeaderboard(ctx, time.Now())
}

// Reset deletes every key of the leaderboard.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.leaderboardKey(), s.namesKey(), s.leaderboardTimeKey()).Err(); err != nil {
		return fmt.Errorf("reset leaderboard: %w", err)
	}

	return nil
}

// schedulePublishLeaderboard publishes the leaderboard changes at most once per interval, so a burst of
// updates results in a single published event.
func (s *Service) schedulePublishLeaderboard(ctx context.Context, at time.Time) error {
	ok, err := s.redis.SetNX(ctx, s.leaderboardTimeKey(), at.UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	return s.publishLeaderboard(ctx)
}

func (s *Service) publishLeaderboard(ctx context.Context) error {
	l, err := s.GetLeaderboard(ctx)
	if errors.Is(err, errors.CodeNotFound) {
		l = &domain.Leaderboard{Entries: []domain.LeaderboardEntry{}}
	} else if err != nil {
		return fmt.Errorf("get leaderboard failed: %w", err)
	}

	s.eb.Publish(ctx, domain.EventLeaderboardUpdated{
		Leaderboard: *l,
	})

	return nil
}

func (s *Service) leaderboardKey() string {
	return fmt.Sprintf("%s:leaderboard", s.prefix)
}

func (s *Service) namesKey() string {
	return fmt.Sprintf("%s:leaderboard:names", s.prefix)
}

func (s *Service) leaderboardTimeKey() string {
	return fmt.Sprintf("%s:leaderboard:time", s.prefix)
}

// IsUnavailable reports whether err comes from an unreachable Redis.
func IsUnavailable(err error) bool {
	return stderrors.Is(err, redis.ErrClosed) || stderrors.Is(err, context.DeadlineExceeded)
}
