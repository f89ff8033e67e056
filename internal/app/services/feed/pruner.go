package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vibeshare/feedservice/internal/app/metrics"
	"github.com/vibeshare/feedservice/internal/app/storage"
	"github.com/vibeshare/feedservice/pkg/logger"
)

// Pruner periodically removes expired seen records so the dedup tables do
// not grow without bound. Stores that expire records themselves (Redis TTLs)
// simply report zero removals.
type Pruner struct {
	seen     storage.SeenStore
	window   time.Duration
	interval time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPruner creates a pruner sweeping at the given interval.
func NewPruner(seen storage.SeenStore, window, interval time.Duration, log *logger.Logger) *Pruner {
	if log == nil {
		log = logger.NewDefault("seen-pruner")
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Pruner{
		seen:     seen,
		window:   window,
		interval: interval,
		log:      log,
	}
}

// Name implements system.Service.
func (p *Pruner) Name() string { return "seen-pruner" }

// Start launches the background sweep loop.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("seen pruner already running")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.running = true

	p.wg.Add(1)
	go p.loop(runCtx)

	p.log.WithField("interval", p.interval.String()).Info("seen pruner started")
	return nil
}

// Stop terminates the sweep loop and waits for it to drain.
func (p *Pruner) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pruner) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Pruner) sweep(ctx context.Context) {
	removed, err := p.seen.DeleteExpiredSeen(ctx, p.window)
	if err != nil {
		p.log.WithError(err).Warn("seen prune sweep failed")
		return
	}
	metrics.RecordSeenPruned(removed)
	if removed > 0 {
		p.log.WithField("removed", removed).Debug("pruned expired seen records")
	}
}
