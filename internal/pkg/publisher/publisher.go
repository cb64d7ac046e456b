package publisher

import (
	"go.uber.org/zap"

	"github.com/anicoll/mqtt4dsmr/internal/pkg/model"
	"github.com/anicoll/mqtt4dsmr/internal/pkg/schema"
)

type client interface {
	Publish(topic string, payload []byte, retain bool) error
}

func publishValues(s *schema.Schema, c client, telegram *model.Telegram) error {
	msgs := s.Values(telegram)
	for _, msg := range msgs {
		if err := c.Publish(msg.Topic, msg.Payload, msg.Retain); err != nil {
			return err
		}
	}
	zap.L().Debug("published telegram", zap.Int("count", len(msgs)))
	return nil
}

// Direct publishes every telegram as soon as it is received.
type Direct struct {
	schema *schema.Schema
	client client
}

func NewDirect(s *schema.Schema, c client) *Direct {
	return &Direct{
		schema: s,
		client: c,
	}
}

func (d *Direct) Publish(telegram *model.Telegram) error {
	return publishValues(d.schema, d.client, telegram)
}
