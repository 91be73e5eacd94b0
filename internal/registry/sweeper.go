package registry

import (
	"context"
	"time"

	"github.com/serroba/shortkit/internal/shortener"
	"go.uber.org/zap"
)

const (
	// DefaultSweepInterval is how often expired records are reclaimed from
	// the durable store.
	DefaultSweepInterval = 5 * time.Minute

	sweepTimeout = 30 * time.Second
)

// ExpiredDeleter is the store surface the sweeper needs.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Sweeper periodically deletes expired records from the durable store. It is
// purely a storage-reclamation optimization; the resolver's lazy expiry check
// is what keeps expired links from being served. Store errors are logged and
// retried on the next tick.
type Sweeper struct {
	store    ExpiredDeleter
	clock    shortener.Clock
	interval time.Duration
	logger   *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewSweeper creates a Sweeper. A non-positive interval falls back to the
// default.
func NewSweeper(store ExpiredDeleter, clock shortener.Clock, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &Sweeper{
		store:    store,
		clock:    clock,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the periodic sweep.
func (s *Sweeper) Start() {
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop()
}

func (s *Sweeper) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep runs one reclamation pass. Exported through SweepOnce for tests.
func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	deleted, err := s.store.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("expiry sweep failed, will retry next tick", zap.Error(err))

		return
	}

	if deleted > 0 {
		s.logger.Info("expiry sweep reclaimed records", zap.Int64("deleted", deleted))
	}
}

// SweepOnce runs a single synchronous sweep pass.
func (s *Sweeper) SweepOnce() {
	s.sweep()
}

// Shutdown stops the sweep. Safe to call even if Start was never invoked.
func (s *Sweeper) Shutdown() error {
	if s.stop != nil {
		close(s.stop)
		<-s.done
		s.stop = nil
	}

	return nil
}
