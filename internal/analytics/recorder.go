package analytics

import (
	"context"
	"errors"

	"github.com/serroba/shortkit/internal/shortener"
	"go.uber.org/zap"
)

// ClickStore persists click events. Implemented by the URL repository.
type ClickStore interface {
	RecordClick(ctx context.Context, code shortener.Code, click shortener.Click) error
}

// Recorder applies click events to the durable store. It is the handler
// behind the click consumer.
type Recorder struct {
	store  ClickStore
	logger *zap.Logger
}

// NewRecorder creates a new click recorder.
func NewRecorder(store ClickStore, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Handle records a single click. Clicks on records that have been deleted in
// the meantime are dropped silently; that is expected churn, not a failure
// worth redelivering.
func (r *Recorder) Handle(ctx context.Context, event *ClickEvent) error {
	click := shortener.Click{
		Timestamp: event.Timestamp,
		IP:        event.IP,
		UserAgent: event.UserAgent,
		Referrer:  event.Referrer,
	}

	err := r.store.RecordClick(ctx, shortener.Code(event.Code), click)
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			r.logger.Debug("dropping click for deleted short url",
				zap.String("code", event.Code),
			)

			return nil
		}

		return err
	}

	return nil
}
