package publisher

import (
	"sync"
	"time"

	"github.com/anicoll/mqtt4dsmr/internal/pkg/model"
	"github.com/anicoll/mqtt4dsmr/internal/pkg/schema"
)

type publication struct {
	topic   string
	payload string
	retain  bool
	at      time.Time
}

// MockClient records every publication. PublishFunc, when set, decides the result.
type MockClient struct {
	PublishFunc func(topic string, payload []byte, retain bool) error

	mu           sync.Mutex
	publications []publication
}

func (m *MockClient) Publish(topic string, payload []byte, retain bool) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(topic, payload, retain); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publications = append(m.publications, publication{
		topic:   topic,
		payload: string(payload),
		retain:  retain,
		at:      time.Now(),
	})
	return nil
}

func (m *MockClient) Publications() []publication {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publication(nil), m.publications...)
}

func (m *MockClient) Payloads() []string {
	var out []string
	for _, p := range m.Publications() {
		out = append(out, p.payload)
	}
	return out
}

func usage(value string) *model.Telegram {
	return &model.Telegram{
		Attributes: []model.Attribute{
			{Name: "CURRENT_ELECTRICITY_USAGE", Value: value, Unit: "kW"},
			{Name: "EQUIPMENT_IDENTIFIER", Value: "ignored"},
		},
	}
}

func testSchema() *schema.Schema {
	return schema.Build(usage("0"), "dsmr")
}
