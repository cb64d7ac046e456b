package model

// RegisterDevice groups sensors under one device in Home Assistant. Name is only
// sent with the first discovery message of a device.
type RegisterDevice struct {
	Identifiers []string `json:"identifiers"`
	Name        string   `json:"name,omitempty"`
}

type RegisterMessage struct {
	Name              string         `json:"name"`
	StateTopic        string         `json:"state_topic"`
	ID                string         `json:"unique_id"`
	Device            RegisterDevice `json:"device"`
	AvailabilityTopic string         `json:"availability_topic"`
	DeviceClass       string         `json:"device_class,omitempty"`
	Icon              string         `json:"icon,omitempty"`
	UnitOfMeasurement string         `json:"unit_of_measurement,omitempty"`
	StateClass        string         `json:"state_class,omitempty"`
}

// Message is a single MQTT publication.
type Message struct {
	Topic   string
	Payload []byte
	Retain  bool
}
