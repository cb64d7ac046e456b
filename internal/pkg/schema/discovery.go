package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/samber/lo"

	"github.com/anicoll/mqtt4dsmr/internal/pkg/model"
)

const ProductName = "DSMR Smart Meter"

var phaseLabels = strings.NewReplacer("l1", "L1", "l2", "L2", "l3", "L3")

// Sensor is a schema entry as it is announced to Home Assistant.
type Sensor struct {
	Entry
	// Disambiguator is set when the key is reported by more than one device.
	Disambiguator string
}

func (s Sensor) Name() string {
	name := displayName(s.Key)
	if s.Disambiguator != "" {
		name += " " + s.Disambiguator
	}
	return name
}

func (s Sensor) UniqueID(deviceID string) string {
	uid := deviceID + "_" + s.Key
	if s.Disambiguator != "" {
		uid += "_" + token(s.Disambiguator)
	}
	return strings.ToLower(uid)
}

func displayName(key string) string {
	if key == "" {
		return ""
	}
	name := key[:1] + strings.ReplaceAll(strings.ToLower(key[1:]), "_", " ")
	return phaseLabels.Replace(name)
}

func token(s string) string {
	return strings.ReplaceAll(slug.Make(s), "-", "_")
}

type flatEntry struct {
	Entry
	channel int
	mbus    bool
}

// Sensors flattens the schema and attaches a channel disambiguator to every
// sub-device entry whose key occurs more than once.
func (s *Schema) Sensors() []Sensor {
	flat := lo.Map(s.Entries, func(e Entry, _ int) flatEntry {
		return flatEntry{Entry: e}
	})
	for _, d := range s.Devices {
		for _, e := range d.Entries {
			flat = append(flat, flatEntry{Entry: e, channel: d.Channel, mbus: true})
		}
	}

	freq := lo.CountValuesBy(flat, func(f flatEntry) string {
		return f.Key
	})

	return lo.Map(flat, func(f flatEntry, _ int) Sensor {
		sensor := Sensor{Entry: f.Entry}
		if f.mbus && freq[f.Key] > 1 {
			sensor.Disambiguator = fmt.Sprintf("(channel %d)", f.channel)
		}
		return sensor
	})
}

// Discovery renders the retained Home Assistant discovery messages. Only the first
// message carries the device name, the rest refer to the device by identifier.
func (s *Schema) Discovery(discoveryPrefix, deviceID, availabilityTopic string) ([]model.Message, error) {
	sensors := s.Sensors()
	msgs := make([]model.Message, 0, len(sensors))
	device := model.RegisterDevice{
		Identifiers: []string{deviceID},
		Name:        ProductName,
	}

	for _, sensor := range sensors {
		uid := sensor.UniqueID(deviceID)
		registerMessage := model.RegisterMessage{
			Name:              sensor.Name(),
			StateTopic:        sensor.Topic,
			ID:                uid,
			Device:            device,
			AvailabilityTopic: availabilityTopic,
		}
		sensor.Kind.amend(&registerMessage)

		payload, err := json.Marshal(registerMessage)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, model.Message{
			Topic:   fmt.Sprintf("%s/sensor/%s/config", discoveryPrefix, uid),
			Payload: payload,
			Retain:  true,
		})

		// see https://www.home-assistant.io/integrations/mqtt/#sensors
		device = model.RegisterDevice{Identifiers: []string{deviceID}}
	}
	return msgs, nil
}
