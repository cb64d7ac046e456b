package schema

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/anicoll/mqtt4dsmr/internal/pkg/model"
)

// Entry maps one attribute of the meter onto its state topic.
type Entry struct {
	Key   string
	Topic string
	Kind  SensorKind
}

// DeviceSchema holds the entries of a single M-Bus channel.
type DeviceSchema struct {
	Channel int
	Entries []Entry
}

// Schema is derived once from the first telegram and never changes afterwards.
// Keys are unique within Entries and within each DeviceSchema.
type Schema struct {
	Entries []Entry
	Devices []DeviceSchema
}

// Build derives the schema from a telegram. Attributes that are not recognised are
// left out of the schema for good.
func Build(telegram *model.Telegram, topicPrefix string) *Schema {
	logger := zap.L()
	s := &Schema{
		Entries: collect(telegram.Attributes, topicPrefix, logger),
	}

	for _, dev := range telegram.Devices {
		prefix := fmt.Sprintf("%s/mbus%d", topicPrefix, dev.Channel)
		entries := collect(dev.Attributes, prefix, logger.With(zap.Int("channel", dev.Channel)))
		if len(entries) == 0 {
			continue
		}
		s.mergeDevice(dev.Channel, entries)
	}
	return s
}

func collect(attrs []model.Attribute, prefix string, logger *zap.Logger) []Entry {
	var entries []Entry
	for _, attr := range attrs {
		kind, ok := classify(attr)
		if !ok {
			continue
		}
		logger.Debug("attribute will be part of schema", zap.String("attribute", attr.Name))
		entries = put(entries, Entry{Key: attr.Name, Topic: kind.topic(prefix, attr.Name), Kind: kind})
	}
	return entries
}

func (s *Schema) mergeDevice(channel int, entries []Entry) {
	for i := range s.Devices {
		if s.Devices[i].Channel != channel {
			continue
		}
		for _, e := range entries {
			s.Devices[i].Entries = put(s.Devices[i].Entries, e)
		}
		return
	}
	s.Devices = append(s.Devices, DeviceSchema{Channel: channel, Entries: entries})
}

// put keeps the first position of a key and the latest entry for it.
func put(entries []Entry, e Entry) []Entry {
	for i := range entries {
		if entries[i].Key == e.Key {
			entries[i] = e
			return entries
		}
	}
	return append(entries, e)
}

// Len returns the number of published attributes across all devices.
func (s *Schema) Len() int {
	n := len(s.Entries)
	for _, d := range s.Devices {
		n += len(d.Entries)
	}
	return n
}
