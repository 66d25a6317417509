// Package feed moves real-time order updates over a Pub/Sub topic. The
// publisher side is exercised after order submission; the subscriber side
// feeds the staff order list.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"

	domain "github.com/caphehouse/api/internal/domain"
)

// Handler consumes one decoded order update.
type Handler func(ctx context.Context, update domain.OrderUpdate)

// Publisher publishes order updates to a Pub/Sub topic.
type Publisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPublisher constructs a Pub/Sub backed order update publisher.
func NewPublisher(topic *pubsub.Topic) (*Publisher, error) {
	if topic == nil {
		return nil, errors.New("order feed publisher: topic is required")
	}
	return &Publisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishOrderUpdate enqueues an order update on the configured topic.
func (p *Publisher) PublishOrderUpdate(ctx context.Context, update domain.OrderUpdate) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("order feed publisher: not initialised")
	}
	if strings.TrimSpace(update.OrderID) == "" {
		return "", errors.New("order feed publisher: order id is required")
	}

	data, err := p.marshal(update)
	if err != nil {
		return "", fmt.Errorf("marshal order update: %w", err)
	}

	attrs := map[string]string{"orderId": update.OrderID}
	if status := strings.TrimSpace(update.Status); status != "" {
		attrs["status"] = status
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish order update: %w", err)
	}
	return id, nil
}

// SubscriberDeps lists the collaborators required by NewSubscriber.
type SubscriberDeps struct {
	Subscription *pubsub.Subscription
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

// Subscriber delivers decoded order updates to a handler until Unsubscribe.
type Subscriber struct {
	sub    *pubsub.Subscription
	logger func(ctx context.Context, event string, fields map[string]any)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSubscriber constructs a subscriber over an existing subscription.
func NewSubscriber(deps SubscriberDeps) (*Subscriber, error) {
	if deps.Subscription == nil {
		return nil, errors.New("order feed subscriber: subscription is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Subscriber{sub: deps.Subscription, logger: logger}, nil
}

// Subscribe starts receiving in the background and returns immediately. A
// malformed message is acked and logged rather than redelivered forever.
func (s *Subscriber) Subscribe(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("order feed subscriber: handler is required")
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return errors.New("order feed subscriber: already subscribed")
	}
	receiveCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		err := s.sub.Receive(receiveCtx, func(msgCtx context.Context, msg *pubsub.Message) {
			var update domain.OrderUpdate
			if err := json.Unmarshal(msg.Data, &update); err != nil {
				s.logger(msgCtx, "feed.decode_failed", map[string]any{
					"error": err.Error(),
				})
				msg.Ack()
				return
			}
			handler(msgCtx, update)
			msg.Ack()
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger(context.Background(), "feed.receive_stopped", map[string]any{
				"error": err.Error(),
			})
		}
	}()
	return nil
}

// Unsubscribe stops receiving and waits for the receive loop to drain.
func (s *Subscriber) Unsubscribe() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
