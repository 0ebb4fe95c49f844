package index

import (
	"sync"

	"github.com/kozaktomas/photo-index/internal/constants"
	"github.com/mordilloSan/go-logger/logger"
)

// Observer receives progress updates for an indexing run. A panic in an
// observer is contained and never affects the run.
type Observer func(Progress)

// broadcaster fans progress updates out to channel subscribers and callback
// observers. Slow subscribers lose updates instead of stalling the indexer.
type broadcaster struct {
	mu          sync.Mutex
	subscribers map[chan Progress]struct{}
	observers   []Observer
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		subscribers: map[chan Progress]struct{}{},
	}
}

func (b *broadcaster) subscribe() chan Progress {
	ch := make(chan Progress, constants.EventChannelBuffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *broadcaster) unsubscribe(ch chan Progress) {
	b.mu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *broadcaster) addObserver(fn Observer) {
	b.mu.Lock()
	b.observers = append(b.observers, fn)
	b.mu.Unlock()
}

func (b *broadcaster) publish(p Progress) {
	b.mu.Lock()
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	for ch := range b.subscribers {
		select {
		case ch <- p:
		default: // subscriber is behind, drop the update
		}
	}
	b.mu.Unlock()

	for _, fn := range observers {
		notify(fn, p)
	}
}

func notify(fn Observer, p Progress) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Progress observer panicked: %v", r)
		}
	}()
	fn(p)
}
