package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

var (
	SerialSettings = []string{"V2_2", "V4", "V5"}
	DSMRVersions   = []string{"V2_2", "V3", "V4", "V5"}
)

type Config struct {
	LogLevel            string `env:"LOG_LEVEL" envDefault:"INFO"`
	MessageInterval     int    `env:"MESSAGE_INTERVAL" envDefault:"0"`
	AvailabilityRefresh string `env:"AVAILABILITY_REFRESH" envDefault:"@every 5m"`

	Serial SerialConfig
	MQTT   MQTTConfig
	HA     HAConfig
}

type SerialConfig struct {
	Settings string `env:"SERIAL_SETTINGS" envDefault:"V4"`
	Version  string `env:"DSMR_VERSION" envDefault:"V4"`
	Device   string `env:"SERIAL_DEVICE" envDefault:"/dev/ttyDSMR"`
	TCP      bool   `env:"DMSR_TCP" envDefault:"false"`
	TCPHost  string `env:"DMSR_TCP_HOST"`
	TCPPort  int    `env:"DMSR_TCP_PORT" envDefault:"23"`
}

type MQTTConfig struct {
	Host        string `env:"MQTT_HOST,required"`
	Port        int    `env:"MQTT_PORT"`
	TLS         *bool  `env:"MQTT_TLS"`
	TLSInsecure bool   `env:"MQTT_TLS_INSECURE" envDefault:"false"`
	CACerts     string `env:"MQTT_CA_CERTS"`
	CertFile    string `env:"MQTT_CERTFILE"`
	KeyFile     string `env:"MQTT_KEYFILE"`
	Username    string `env:"MQTT_USERNAME"`
	Password    string `env:"MQTT_PASSWORD"`
	TopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"dsmr"`
}

type HAConfig struct {
	Enabled         bool   `env:"HA_ENABLED" envDefault:"true"`
	DeviceID        string `env:"HA_DEVICE_ID" envDefault:"dsmr"`
	DiscoveryPrefix string `env:"HA_DISCOVERY_PREFIX" envDefault:"homeassistant"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	// a username that is set but empty still asks for a password
	if _, ok := os.LookupEnv("MQTT_USERNAME"); ok && cfg.MQTT.Password == "" {
		return nil, invalid("MQTT_PASSWORD not set in environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings and fills in the MQTT port and TLS defaults.
func (c *Config) Validate() error {
	if !slices.Contains(SerialSettings, c.Serial.Settings) {
		return invalid("SERIAL_SETTINGS must be one of %s", strings.Join(SerialSettings, ", "))
	}
	if !slices.Contains(DSMRVersions, c.Serial.Version) {
		return invalid("DSMR_VERSION must be one of %s", strings.Join(DSMRVersions, ", "))
	}
	if c.Serial.TCP && c.Serial.TCPHost == "" {
		return invalid("DMSR_TCP_HOST not set in environment")
	}
	if c.MQTT.Host == "" {
		return invalid("MQTT_HOST not set in environment")
	}
	if c.MQTT.Username != "" && c.MQTT.Password == "" {
		return invalid("MQTT_PASSWORD not set in environment")
	}
	if c.MessageInterval < 0 {
		return invalid("MESSAGE_INTERVAL must not be negative")
	}
	if _, err := cron.ParseStandard(c.AvailabilityRefresh); err != nil {
		return invalid("AVAILABILITY_REFRESH: %v", err)
	}

	if c.MQTT.Port == 0 {
		if c.MQTT.TLS != nil && *c.MQTT.TLS {
			c.MQTT.Port = 8883
		} else {
			c.MQTT.Port = 1883
		}
	}
	if c.MQTT.TLS == nil {
		useTLS := c.MQTT.Port == 8883
		c.MQTT.TLS = &useTLS
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Interval is the minimum time between two published telegrams, zero disables rate limiting.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.MessageInterval) * time.Second
}

func (c *Config) AvailabilityTopic() string {
	return c.MQTT.TopicPrefix + "/status"
}

func (c *MQTTConfig) UseTLS() bool {
	return c.TLS != nil && *c.TLS
}

func (c *MQTTConfig) BrokerURL() string {
	scheme := "tcp"
	if c.UseTLS() {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}
