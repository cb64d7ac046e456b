package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anicoll/mqtt4dsmr/internal/pkg/config"
)

var (
	ErrConnectTimeout = errors.New("unable to connect in time")
	ErrNotConnected   = errors.New("mqtt client is not connected")
)

const (
	Online  = "online"
	Offline = "offline"

	connectTimeout    = 5 * time.Second
	disconnectQuiesce = 250
)

type service struct {
	client            paho_mqtt.Client
	availabilityTopic string
	timeout           time.Duration
	logger            *zap.Logger
}

func New(client paho_mqtt.Client, availabilityTopic string) *service {
	return &service{
		client:            client,
		availabilityTopic: availabilityTopic,
		timeout:           connectTimeout,
		logger:            zap.L(),
	}
}

// NewClientOptions builds the paho options for the broker. The availability topic
// is registered as will so it flips to offline when the connection drops.
func NewClientOptions(cfg *config.MQTTConfig, availabilityTopic string) (*paho_mqtt.ClientOptions, error) {
	logger := zap.L()

	opts := paho_mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL())
	opts.SetClientID("mqtt4dsmr-" + uuid.NewString())

	if cfg.UseTLS() {
		tlsCfg, err := tlsConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
		logger.Info("using MQTT over TLS")
	} else {
		logger.Warn("not using MQTT over TLS; set MQTT_PORT=8883 or MQTT_TLS=true to enable TLS")
	}

	if cfg.Username != "" {
		logger.Info("using MQTT username/password authentication")
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	} else {
		logger.Info("no MQTT username/password provided")
	}

	opts.SetWill(availabilityTopic, Offline, 1, true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetCleanSession(true)

	opts.SetConnectionLostHandler(func(_ paho_mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	})
	opts.SetReconnectingHandler(func(_ paho_mqtt.Client, _ *paho_mqtt.ClientOptions) {
		logger.Info("mqtt reconnecting")
	})
	return opts, nil
}

func tlsConfig(cfg *config.MQTTConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.TLSInsecure,
	}
	if cfg.CACerts != "" {
		pem, err := os.ReadFile(cfg.CACerts)
		if err != nil {
			return nil, fmt.Errorf("read MQTT_CA_CERTS: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CACerts)
		}
		tlsCfg.RootCAs = pool
	}
	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

// Connect connects to the broker and announces the bridge as online.
func (s *service) Connect() error {
	token := s.client.Connect()
	if !token.WaitTimeout(s.timeout) {
		return ErrConnectTimeout
	}
	if err := token.Error(); err != nil {
		return err
	}
	s.logger.Info("connected to broker", zap.String("availability_topic", s.availabilityTopic))
	return s.Announce()
}

// Announce publishes the retained online status.
func (s *service) Announce() error {
	return s.Publish(s.availabilityTopic, []byte(Online), true)
}

// Publish hands the message to paho without waiting for the broker. Errors that
// paho reports immediately, such as a closed connection, are returned.
func (s *service) Publish(topic string, payload []byte, retain bool) error {
	if !s.client.IsConnected() {
		return ErrNotConnected
	}
	var qos byte
	if retain {
		qos = 1
	}
	token := s.client.Publish(topic, qos, retain, payload)
	select {
	case <-token.Done():
		return token.Error()
	default:
		return nil
	}
}

// Disconnect marks the bridge offline and closes the connection.
func (s *service) Disconnect() {
	if s.client.IsConnected() {
		token := s.client.Publish(s.availabilityTopic, 1, true, []byte(Offline))
		if !token.WaitTimeout(s.timeout) || token.Error() != nil {
			s.logger.Warn("failed to publish offline status", zap.Error(token.Error()))
		}
	}
	s.client.Disconnect(disconnectQuiesce)
	s.logger.Info("disconnected from broker")
}
