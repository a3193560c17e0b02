package api

import (
	"sync"
	"time"

	"github.com/victornm/showdown/internal/domain"
)

const feedBufferSize = 64

// FeedMessage is the form in which broadcasts are streamed to watchers.
type FeedMessage struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

func NewFeedMessage(b domain.Broadcast) FeedMessage {
	return FeedMessage{
		Type:      string(b.Kind),
		Payload:   b.Data,
		Timestamp: time.Now().UTC(),
	}
}

// Feed fans the public broadcasts of the session out to watchers. A watcher too slow to keep up
// misses broadcasts instead of holding the session back.
type Feed struct {
	mu     sync.Mutex
	subs   map[chan domain.Broadcast]struct{}
	closed bool
}

func NewFeed() *Feed {
	return &Feed{
		subs: make(map[chan domain.Broadcast]struct{}),
	}
}

// Subscribe returns the channel of broadcasts and the function to stop receiving them.
// The channel is closed when the feed is closed.
func (f *Feed) Subscribe() (<-chan domain.Broadcast, func()) {
	ch := make(chan domain.Broadcast, feedBufferSize)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		close(ch)
		return ch, func() {}
	}

	f.subs[ch] = struct{}{}

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		if _, ok := f.subs[ch]; ok {
			delete(f.subs, ch)
			close(ch)
		}
	}
}

func (f *Feed) Dispatch(bs []domain.Broadcast) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, b := range bs {
		if b.Private() {
			continue
		}

		for ch := range f.subs {
			select {
			case ch <- b:
			default:
				// skip watchers with full channels
			}
		}
	}
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.subs)
}

// Close ends every subscription.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
}
