package feedhandlers

import (
	"context"
	"sync"

	feeddomain "github.com/Black-And-White-Club/keyquest/app/modules/feed/domain"
)

// FakeSubscriber hands out one channel per topic and records what was requested.
type FakeSubscriber struct {
	mu         sync.Mutex
	topics     []string
	channels   map[string]chan feeddomain.Event
	subscribed chan string
	err        error
}

func NewFakeSubscriber() *FakeSubscriber {
	return &FakeSubscriber{
		channels:   make(map[string]chan feeddomain.Event),
		subscribed: make(chan string, 4),
	}
}

func (f *FakeSubscriber) Subscribe(ctx context.Context, topic string) (<-chan feeddomain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	ch := make(chan feeddomain.Event, 4)
	f.channels[topic] = ch
	f.topics = append(f.topics, topic)
	f.mu.Unlock()
	f.subscribed <- topic
	return ch, nil
}

func (f *FakeSubscriber) Send(topic string, event feeddomain.Event) {
	f.mu.Lock()
	ch := f.channels[topic]
	f.mu.Unlock()
	ch <- event
}
