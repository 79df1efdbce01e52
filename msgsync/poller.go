package msgsync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"chat-client/models"
)

// FetchFunc loads the full message list of a conversation, normally backed
// by the REST client.
type FetchFunc func(ctx context.Context, conversationID int64) ([]models.Message, error)

// Poller re-fetches the open conversation on a fixed cadence and merges the
// result into a Store. It is the correctness backstop for realtime delivery:
// anything a dropped socket missed is picked up by the next poll.
type Poller struct {
	conversationID int64
	interval       time.Duration
	fetch          FetchFunc
	store          *Store
	onError        func(error)

	busy     atomic.Bool
	stopped  atomic.Bool
	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

type PollerConfig struct {
	ConversationID int64
	Interval       time.Duration
	Fetch          FetchFunc
	Store          *Store
	// OnError receives fetch failures; they are transient and never clear
	// the store. Optional.
	OnError func(error)
}

func NewPoller(cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	onError := cfg.OnError
	if onError == nil {
		onError = func(error) {}
	}
	return &Poller{
		conversationID: cfg.ConversationID,
		interval:       cfg.Interval,
		fetch:          cfg.Fetch,
		store:          cfg.Store,
		onError:        onError,
		wake:           make(chan struct{}, 1),
		stop:           make(chan struct{}),
	}
}

// Run polls until the context is cancelled or Stop is called. The first
// fetch fires immediately so the view is populated without waiting a full
// interval. Ticks that land while a fetch is still in flight are skipped,
// never queued.
func (p *Poller) Run(ctx context.Context) {
	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			go p.tick(ctx)
		case <-p.wake:
			go p.tick(ctx)
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Wake forces an out-of-cadence fetch, used when the client regains focus
// or connectivity and wants to correct staleness right away.
func (p *Poller) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Stop halts the poll loop. An in-flight fetch is allowed to finish but its
// result is discarded.
func (p *Poller) Stop() {
	p.stopped.Store(true)
	p.stopOnce.Do(func() { close(p.stop) })
}

// tick runs one fetch-and-merge round. Returns false when skipped because
// another fetch is still in flight or the poller was stopped.
func (p *Poller) tick(ctx context.Context) bool {
	if p.stopped.Load() {
		return false
	}
	if !p.busy.CompareAndSwap(false, true) {
		return false
	}
	defer p.busy.Store(false)

	msgs, err := p.fetch(ctx, p.conversationID)
	if err != nil {
		if !p.stopped.Load() && ctx.Err() == nil {
			p.onError(err)
		}
		return true
	}
	// liveness gate: a result arriving after Stop must not touch the store
	if p.stopped.Load() || ctx.Err() != nil {
		return true
	}
	p.store.Merge(p.conversationID, msgs)
	return true
}
