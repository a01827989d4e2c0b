package dashboard

import (
	"context"
	"sync"
	"time"

	"dca-grid-console/internal/models"

	"go.uber.org/zap"
)

// Fetcher supplies the two polled views for the observed bot.
type Fetcher interface {
	Stats(ctx context.Context) (*models.DashboardSnapshot, error)
	Trailing(ctx context.Context) (*models.TrailingStats, error)
}

// Poller drives periodic reconciliation. It is an owned instance, not
// shared module state: each dashboard view creates its own and stops it
// when the view goes away.
type Poller struct {
	interval time.Duration
	fetcher  Fetcher
	rec      *Reconciler
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	seq     uint64 // next tick number
	applied uint64 // highest tick that reached the reconciler
}

// NewPoller creates a stopped poller around the reconciler.
func NewPoller(interval time.Duration, fetcher Fetcher, rec *Reconciler, logger *zap.Logger) *Poller {
	return &Poller{
		interval: interval,
		fetcher:  fetcher,
		rec:      rec,
		logger:   logger,
	}
}

// Start begins polling: one immediate pass, then a fixed-period pass
// until Stop or the parent context ends. Calling Start while running
// has no effect.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(runCtx, p.done)
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs one reconciliation pass. The stats fetch and its apply
// complete before the trailing fetch begins. A pass that outlives the
// interval is cut off so it cannot pile onto the next one, and its
// results are discarded once a newer pass has applied.
func (p *Poller) tick(ctx context.Context) {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	tctx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	snap, err := p.fetcher.Stats(tctx)
	if err != nil {
		p.logger.Warn("Stats poll failed", zap.Error(err))
	} else if !p.commit(ctx, seq, func() { p.rec.ApplyStats(snap) }) {
		return
	}

	trailing, err := p.fetcher.Trailing(tctx)
	if err != nil {
		p.logger.Warn("Trailing stats poll failed", zap.Error(err))
		return
	}
	p.commit(ctx, seq, func() { p.rec.ApplyTrailing(trailing) })
}

// commit applies a tick's result unless the poller was stopped or a
// newer tick already applied.
func (p *Poller) commit(ctx context.Context, seq uint64, apply func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ctx.Err() != nil || seq < p.applied {
		return false
	}
	p.applied = seq
	apply()
	return true
}

// Stop cancels polling and waits for the running pass to wind down.
// Once Stop returns, no reconciliation from earlier ticks can mutate
// dashboard state. Safe to call when not running; Start may be called
// again afterwards.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
