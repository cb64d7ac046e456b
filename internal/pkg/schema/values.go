package schema

import (
	"github.com/anicoll/mqtt4dsmr/internal/pkg/model"
)

// Values returns the state messages for a telegram. Attributes or channels of the
// schema that are missing from the telegram are skipped for this cycle.
func (s *Schema) Values(telegram *model.Telegram) []model.Message {
	msgs := make([]model.Message, 0, s.Len())
	for _, e := range s.Entries {
		if attr, ok := telegram.Get(e.Key); ok {
			msgs = append(msgs, model.Message{Topic: e.Topic, Payload: []byte(attr.Value)})
		}
	}

	for _, d := range s.Devices {
		dev, ok := telegram.Device(d.Channel)
		if !ok {
			continue
		}
		for _, e := range d.Entries {
			if attr, ok := dev.Get(e.Key); ok {
				msgs = append(msgs, model.Message{Topic: e.Topic, Payload: []byte(attr.Value)})
			}
		}
	}
	return msgs
}
