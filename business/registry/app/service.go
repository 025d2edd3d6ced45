package app

import (
	"context"

	"github.com/fd1az/flashbot/business/registry/domain"
	"github.com/fd1az/flashbot/internal/logger"
)

// Service is the C1 Chain/Pool Registry: the validated ChainRegistry plus
// a live head-block cache, resolved once at startup and read by every
// downstream context for the lifetime of the process.
type Service struct {
	Registry *domain.ChainRegistry
	tracker  HeadTracker
	logger   logger.LoggerInterface
}

// NewService assembles the registry service around an already-validated
// ChainRegistry and an unstarted HeadTracker.
func NewService(registry *domain.ChainRegistry, tracker HeadTracker, log logger.LoggerInterface) *Service {
	return &Service{Registry: registry, tracker: tracker, logger: log}
}

// Start begins the head tracker's subscription in the background and
// returns immediately; a failed initial connection is logged, not fatal,
// since the tracker's own reconnect loop keeps retrying.
func (s *Service) Start(ctx context.Context) {
	go func() {
		ch, err := s.tracker.Subscribe(ctx)
		if err != nil {
			s.logger.Warn(ctx, "registry: head tracker subscribe failed, relying on polling fallback", "error", err)
			return
		}
		for range ch {
			// Subscribe's side effect (updating the tracker's internal
			// head-block cache) is all the orchestrator needs; nothing to
			// do with individual heads here.
		}
	}()
}

// HeadBlock returns the most recently observed chain head, falling back to
// a live fetch if the tracker hasn't received a push yet.
func (s *Service) HeadBlock(ctx context.Context) (uint64, error) {
	if n := s.tracker.BlockNumber(); n > 0 {
		return n, nil
	}
	block, err := s.tracker.LatestBlock(ctx)
	if err != nil {
		return 0, err
	}
	return block.Number, nil
}

// Close releases the head tracker's connections.
func (s *Service) Close() error {
	return s.tracker.Close()
}
