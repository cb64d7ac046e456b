package cmd

// Broker is the MQTT connection the bridge publishes through.
type Broker interface {
	Publish(topic string, payload []byte, retain bool) error
	// Announce republishes the retained online status.
	Announce() error
}
