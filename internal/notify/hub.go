// Package notify delivers task change events to per-user channels and
// schedules and sends due-date reminders.
package notify

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Event is a payload that can be published on a channel.
type Event interface {
	EventName() string
}

// Message is what a subscriber receives.
type Message struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	Data    Event  `json:"data"`
}

// Publisher fans a payload out to every subscriber of topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload Event) error
}

// Subscription is one listener on a topic. C is closed by Unsubscribe.
type Subscription struct {
	C     <-chan Message
	topic string
	ch    chan Message
}

func (s *Subscription) Topic() string {
	return s.topic
}

// Hub is an in-process publish/subscribe broker keyed by topic.
// Every subscriber has its own FIFO buffer; when it is full the message
// is dropped for that subscriber only.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	buffer int
	log    logrus.FieldLogger
}

func NewHub(buffer int, log logrus.FieldLogger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		log:    log.WithField("component", "hub"),
	}
}

func (h *Hub) Subscribe(topic string) *Subscription {
	ch := make(chan Message, h.buffer)
	sub := &Subscription{C: ch, topic: topic, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Subscription]struct{})
	}
	h.topics[topic][sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Calling it twice is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[sub.topic]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.topics, sub.topic)
	}
	close(sub.ch)
}

// Subscribers returns the number of listeners on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) Publish(ctx context.Context, topic string, payload Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := Message{Event: payload.EventName(), Channel: topic, Data: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.topics[topic] {
		select {
		case sub.ch <- msg:
		default:
			h.log.WithField("channel", topic).Warn("subscriber queue full, message dropped")
		}
	}
	return nil
}
