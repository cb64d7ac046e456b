package publisher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/mqtt4dsmr/internal/pkg/model"
	"github.com/anicoll/mqtt4dsmr/internal/pkg/schema"
)

// RateLimited publishes at most one telegram per interval. Slots are aligned to
// epoch + interval*published, and the telegram published in a slot is the latest
// one received; anything received in between is dropped.
type RateLimited struct {
	schema   *schema.Schema
	client   client
	interval time.Duration
	epoch    time.Time
	errChan  chan error
	logger   *zap.Logger

	mu        sync.Mutex
	pending   *model.Telegram
	published int64
	rateOK    bool

	msg  chan struct{} // wakes the dispatcher
	tick chan struct{} // asks the ticker to time the next slot
}

// NewRateLimited starts the ticker and dispatcher and returns once both are
// waiting for work. Publish errors are sent to errChan; the telegram stays
// pending and is retried in the next open slot. Both goroutines stop when ctx is done.
func NewRateLimited(ctx context.Context, s *schema.Schema, c client, interval time.Duration, errChan chan error) *RateLimited {
	r := &RateLimited{
		schema:   s,
		client:   c,
		interval: interval,
		epoch:    time.Now(),
		errChan:  errChan,
		logger:   zap.L(),
		rateOK:   true,
		msg:      make(chan struct{}, 1),
		tick:     make(chan struct{}, 1),
	}
	r.logger.Debug("rate limiter epoch", zap.Time("epoch", r.epoch), zap.Duration("interval", interval))

	var started sync.WaitGroup
	started.Add(2)
	go r.ticker(ctx, &started)
	go r.loop(ctx, &started)
	started.Wait()

	return r
}

// Publish replaces the pending telegram and never blocks on the broker.
func (r *RateLimited) Publish(telegram *model.Telegram) error {
	r.mu.Lock()
	r.pending = telegram
	r.mu.Unlock()
	notify(r.msg)
	return nil
}

// Published returns the number of telegrams published so far.
func (r *RateLimited) Published() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.published
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (r *RateLimited) nextSlot() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch.Add(r.interval * time.Duration(r.published))
}

func (r *RateLimited) ticker(ctx context.Context, started *sync.WaitGroup) {
	started.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.tick:
		}

		if wait := time.Until(r.nextSlot()); wait > 0 {
			r.logger.Debug("rate limiter delay", zap.Duration("delay", wait))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		} else {
			r.logger.Debug("no rate limiter delay")
		}

		r.mu.Lock()
		r.rateOK = true
		r.mu.Unlock()
		notify(r.msg)
	}
}

func (r *RateLimited) loop(ctx context.Context, started *sync.WaitGroup) {
	started.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.msg:
		}
		r.dispatch(ctx)
	}
}

func (r *RateLimited) dispatch(ctx context.Context) {
	r.mu.Lock()
	if !r.rateOK {
		r.mu.Unlock()
		r.logger.Debug("got telegram, but not ready to publish yet")
		return
	}
	telegram := r.pending
	r.mu.Unlock()

	if telegram == nil {
		r.logger.Debug("ready to publish, but no telegram queued")
		return
	}

	if err := publishValues(r.schema, r.client, telegram); err != nil {
		r.logger.Error("failed to publish telegram", zap.Error(err))
		select {
		case r.errChan <- err:
		case <-ctx.Done():
		}
		return
	}

	r.mu.Lock()
	r.published++
	if r.pending == telegram {
		r.pending = nil
	}
	r.rateOK = false
	r.mu.Unlock()
	notify(r.tick)
}
