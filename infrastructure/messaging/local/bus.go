// Package local provides an in-process event bus for development and tests.
package local

import (
	"context"
	"sync"

	"neuronote/domain/events"

	"go.uber.org/zap"
)

// Handler reacts to a published event.
type Handler func(ctx context.Context, event events.DomainEvent) error

// Bus logs every event and fans it out to subscribers synchronously.
// Handler errors are logged, never returned.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{handlers: make(map[string][]Handler), logger: logger}
}

// Subscribe registers h for eventType.
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

func (b *Bus) Publish(ctx context.Context, event events.DomainEvent) error {
	b.logger.Info("Domain event",
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
	)

	b.mu.RLock()
	handlers := b.handlers[event.GetEventType()]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			b.logger.Warn("Event handler failed",
				zap.String("eventType", event.GetEventType()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (b *Bus) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	for _, e := range evts {
		if err := b.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
