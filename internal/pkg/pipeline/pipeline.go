package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/mqtt4dsmr/internal/pkg/model"
	"github.com/anicoll/mqtt4dsmr/internal/pkg/publisher"
	"github.com/anicoll/mqtt4dsmr/internal/pkg/schema"
)

var ErrSourceClosed = errors.New("telegram source closed")

type client interface {
	Publish(topic string, payload []byte, retain bool) error
}

type strategy interface {
	Publish(telegram *model.Telegram) error
}

type Options struct {
	TopicPrefix       string
	AvailabilityTopic string
	Discovery         bool
	DiscoveryPrefix   string
	DeviceID          string
	// Interval between published telegrams, zero publishes every telegram.
	Interval time.Duration
}

type Pipeline struct {
	opts     Options
	client   client
	errChan  chan error
	logger   *zap.Logger
	schema   *schema.Schema
	strategy strategy
}

// New creates a pipeline. Errors of the rate limited publisher are sent to errChan.
func New(opts Options, c client, errChan chan error) *Pipeline {
	return &Pipeline{
		opts:    opts,
		client:  c,
		errChan: errChan,
		logger:  zap.L(),
	}
}

// Run publishes telegrams until the sequence fails or ctx is done.
func (p *Pipeline) Run(ctx context.Context, telegrams iter.Seq2[*model.Telegram, error]) error {
	for telegram, err := range telegrams {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return fmt.Errorf("read telegram: %w", err)
		}
		if err := p.Handle(ctx, telegram); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrSourceClosed
}

// Handle publishes a single telegram. The first telegram fixes the schema and
// triggers discovery; when discovery fails nothing is kept and the next telegram
// starts over.
func (p *Pipeline) Handle(ctx context.Context, telegram *model.Telegram) error {
	if p.strategy == nil {
		s := schema.Build(telegram, p.opts.TopicPrefix)
		p.logger.Info("schema built", zap.Int("sensors", s.Len()), zap.Int("mbus_devices", len(s.Devices)))

		if p.opts.Discovery {
			if err := p.publishDiscovery(s); err != nil {
				return err
			}
		}
		p.schema = s
		p.strategy = p.newStrategy(ctx)
	}
	return p.strategy.Publish(telegram)
}

func (p *Pipeline) publishDiscovery(s *schema.Schema) error {
	msgs, err := s.Discovery(p.opts.DiscoveryPrefix, p.opts.DeviceID, p.opts.AvailabilityTopic)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if err := p.client.Publish(msg.Topic, msg.Payload, msg.Retain); err != nil {
			return fmt.Errorf("publish discovery %s: %w", msg.Topic, err)
		}
	}
	p.logger.Info("published home assistant discovery", zap.Int("count", len(msgs)), zap.String("device_id", p.opts.DeviceID))
	return nil
}

func (p *Pipeline) newStrategy(ctx context.Context) strategy {
	if p.opts.Interval <= 0 {
		p.logger.Info("publishing every telegram")
		return publisher.NewDirect(p.schema, p.client)
	}
	p.logger.Info("rate limiting telegrams", zap.Duration("interval", p.opts.Interval))
	return publisher.NewRateLimited(ctx, p.schema, p.client, p.opts.Interval, p.errChan)
}
