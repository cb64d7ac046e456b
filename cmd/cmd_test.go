package cmd

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/anicoll/mqtt4dsmr/internal/pkg/config"
)

const telegram = "/XMX5LGBBFFB231215493\r\n" +
	"\r\n" +
	"1-0:1.8.1(000004.426*kWh)\r\n" +
	"1-0:1.7.0(00.244*kW)\r\n" +
	"0-1:24.1.0(003)\r\n" +
	"0-1:24.2.1(170102161005W)(00000.107*m3)\r\n" +
	"!\r\n"

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:            "DEBUG",
		AvailabilityRefresh: "@every 1h",
		Serial: config.SerialConfig{
			Settings: "V2_2",
			Version:  "V3",
		},
		MQTT: config.MQTTConfig{
			Host:        "localhost",
			Port:        1883,
			TopicPrefix: "dsmr",
		},
		HA: config.HAConfig{
			Enabled:         true,
			DeviceID:        "dsmr",
			DiscoveryPrefix: "homeassistant",
		},
	}
}

func useTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	logger := zaptest.NewLogger(t)
	restore := zap.ReplaceGlobals(logger)
	t.Cleanup(restore)
	return logger
}

func TestRun_PublishesTelegrams(t *testing.T) {
	logger := useTestLogger(t)
	broker := &MockBroker{}
	src := io.NopCloser(strings.NewReader("noise\r\n" + telegram + telegram))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, testConfig(), broker, src, make(chan error, 1), logger)
	assert.ErrorIs(t, err, io.EOF, "the source ending is fatal")

	msgs := broker.Messages()
	require.Len(t, msgs, 3+3+3)
	for _, m := range msgs[:3] {
		assert.True(t, strings.HasPrefix(m.Topic, "homeassistant/sensor/"), m.Topic)
		assert.True(t, m.Retain)
	}
	assert.Equal(t, "dsmr/elec/current_electricity_usage", msgs[4].Topic)
	assert.Equal(t, "0.244", string(msgs[4].Payload))
}

func TestRun_PublishErrorIsFatal(t *testing.T) {
	logger := useTestLogger(t)
	errBroker := errors.New("broker unreachable")
	broker := &MockBroker{
		PublishFunc: func(topic string, payload []byte, retain bool) error {
			if retain {
				return nil
			}
			return errBroker
		},
	}
	cfg := testConfig()
	cfg.MessageInterval = 60

	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte(telegram))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, cfg, broker, pr, make(chan error, 1), logger)
	assert.ErrorIs(t, err, errBroker)
}

func TestRun_ContextCancellation(t *testing.T) {
	logger := useTestLogger(t)
	pr, _ := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, testConfig(), &MockBroker{}, pr, make(chan error, 1), logger)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestRefreshAvailability(t *testing.T) {
	useTestLogger(t)
	broker := &MockBroker{AnnounceFunc: func() error { return errors.New("not connected") }}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- refreshAvailability(ctx, "@every 1s", broker)
	}()

	require.Eventually(t, func() bool {
		return broker.Announced() >= 1
	}, 3*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done, "announce failures are not fatal")
}

func TestRefreshAvailability_InvalidSchedule(t *testing.T) {
	useTestLogger(t)
	err := refreshAvailability(context.Background(), "every five minutes", &MockBroker{})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	tests := map[string]struct {
		level   string
		wantErr bool
	}{
		"info":    {level: "INFO"},
		"debug":   {level: "debug"},
		"invalid": {level: "LOUD", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			logger, err := newLogger(tc.level)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}
