package event_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/victornm/showdown/internal/event"
)

func TestBus_PublishSubscribe(t *testing.T) {
	type (
		inputs struct {
			opts        []event.Option
			subscribers map[string][]string
			published   []string
			hold        time.Duration
		}

		outputs struct {
			received      map[string][]string
			maxConcurrent int32
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"one handler subscribed to several names receives each of them": {
			arrange: func() inputs {
				return inputs{
					subscribers: map[string][]string{
						"metrics": {"round.started", "round.ended"},
					},
					published: []string{"round.started", "player.joined", "round.ended"},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []string{"round.started", "round.ended"}, out.received["metrics"])
			},
		},

		"every subscriber of a name receives it once": {
			arrange: func() inputs {
				return inputs{
					subscribers: map[string][]string{
						"leaderboard": {"player.left"},
						"metrics":     {"player.left", "player.joined"},
					},
					published: []string{"player.joined", "player.left"},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []string{"player.left"}, out.received["leaderboard"])
				assert.ElementsMatch(t, []string{"player.joined", "player.left"}, out.received["metrics"])
			},
		},

		"a name listed twice is delivered twice": {
			arrange: func() inputs {
				return inputs{
					subscribers: map[string][]string{
						"s1": {"score.updated", "score.updated"},
					},
					published: []string{"score.updated"},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Len(t, out.received["s1"], 2)
			},
		},

		"pool size 1 runs handlers one at a time": {
			arrange: func() inputs {
				return inputs{
					opts: []event.Option{event.WithPoolSize(1)},
					subscribers: map[string][]string{
						"s1": {"e1"},
						"s2": {"e1"},
					},
					published: []string{"e1", "e1", "e1"},
					hold:      5 * time.Millisecond,
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, int32(1), out.maxConcurrent)
				assert.Len(t, out.received["s1"], 3)
				assert.Len(t, out.received["s2"], 3)
			},
		},

		"pool size bounds concurrent handlers": {
			arrange: func() inputs {
				return inputs{
					opts: []event.Option{event.WithPoolSize(2)},
					subscribers: map[string][]string{
						"s1": {"e1"},
						"s2": {"e1"},
						"s3": {"e1"},
					},
					published: []string{"e1", "e1"},
					hold:      5 * time.Millisecond,
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.LessOrEqual(t, out.maxConcurrent, int32(2))
				assert.Len(t, out.received["s3"], 2)
			},
		},

		"non-positive pool size keeps the default pool": {
			arrange: func() inputs {
				return inputs{
					opts:        []event.Option{event.WithPoolSize(0), event.WithTimeout(-time.Second)},
					subscribers: map[string][]string{"s1": {"e1"}},
					published:   []string{"e1", "e1"},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Len(t, out.received["s1"], 2)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()

			var (
				mu      sync.Mutex
				running atomic.Int32
				out     = outputs{received: make(map[string][]string)}
			)

			b := event.NewBus(in.opts...)
			for sub, names := range in.subscribers {
				sub := sub
				b.Subscribe(func(ctx context.Context, e event.Event) error {
					n := running.Add(1)
					defer running.Add(-1)

					mu.Lock()
					out.received[sub] = append(out.received[sub], e.Name())
					if n > out.maxConcurrent {
						out.maxConcurrent = n
					}
					mu.Unlock()

					time.Sleep(in.hold)
					return nil
				}, names...)
			}

			for _, name := range in.published {
				b.Publish(context.Background(), eventWithName(name))
			}
			b.Stop()

			tt.assert(t, out)
		})
	}
}

func TestBus_HandlerFailures(t *testing.T) {
	b := event.NewBus(event.WithTimeout(time.Second))

	var calls atomic.Int32
	b.Subscribe(func(ctx context.Context, e event.Event) error {
		calls.Add(1)
		panic("boom")
	}, "e1")
	b.Subscribe(func(ctx context.Context, e event.Event) error {
		calls.Add(1)
		return errors.New("failed")
	}, "e1")
	b.Subscribe(func(ctx context.Context, e event.Event) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok, "handler context should carry the bus timeout")
		calls.Add(1)
		return nil
	}, "e1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a cancelled publisher context must not cancel the handlers
	b.Publish(ctx, eventWithName("e1"))
	b.Stop()

	assert.Equal(t, int32(3), calls.Load())
}

func TestBus_NilIsNoop(t *testing.T) {
	var b *event.Bus
	assert.NotPanics(t, func() {
		b.Publish(context.Background(), eventWithName("e1"))
	})
}

type eventWithName string

func (e eventWithName) Name() string {
	return string(e)
}
