package cmd

import (
	"sync"

	"github.com/anicoll/mqtt4dsmr/internal/pkg/model"
)

// MockBroker records publications. PublishFunc and AnnounceFunc, when set, decide the result.
type MockBroker struct {
	PublishFunc  func(topic string, payload []byte, retain bool) error
	AnnounceFunc func() error

	mu        sync.Mutex
	messages  []model.Message
	announced int
}

func (m *MockBroker) Publish(topic string, payload []byte, retain bool) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(topic, payload, retain); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, model.Message{Topic: topic, Payload: payload, Retain: retain})
	return nil
}

func (m *MockBroker) Announce() error {
	m.mu.Lock()
	m.announced++
	m.mu.Unlock()
	if m.AnnounceFunc != nil {
		return m.AnnounceFunc()
	}
	return nil
}

func (m *MockBroker) Messages() []model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Message(nil), m.messages...)
}

func (m *MockBroker) Announced() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.announced
}
