package review

import (
	"context"
	"log"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

// EventSink receives review lifecycle events. Publish is called outside the
// queue lock, one event at a time in mutation order, and must not call back
// into the workflow synchronously.
type EventSink interface {
	Publish(ctx context.Context, event entity.ReviewEvent) error
}

// LogSink writes one log line per event.
type LogSink struct{}

func (LogSink) Publish(_ context.Context, event entity.ReviewEvent) error {
	item := event.Item
	claimedBy := ""
	if item.ClaimedBy != nil {
		claimedBy = *item.ClaimedBy
	}
	log.Printf("component=review event=%s review_id=%s status=%s priority=%s score=%.3f value=%.0f reviewer=%q",
		event.Type, item.ID, item.Status, item.Priority, item.Score, item.EstimatedValue, claimedBy)
	return nil
}

// FanOut publishes to every sink and returns the first error.
type FanOut []EventSink

func (f FanOut) Publish(ctx context.Context, event entity.ReviewEvent) error {
	var first error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
