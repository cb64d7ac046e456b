package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/mqtt4dsmr/internal/pkg/model"
)

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"ELECTRICITY_USED_TARIFF_1":              "Electricity used tariff 1",
		"INSTANTANEOUS_VOLTAGE_L1":               "Instantaneous voltage L1",
		"INSTANTANEOUS_ACTIVE_POWER_L3_NEGATIVE": "Instantaneous active power L3 negative",
		"VOLTAGE_SAG_L2_COUNT":                   "Voltage sag L2 count",
		"X":                                      "X",
		"":                                       "",
	}
	for key, want := range tests {
		t.Run(key, func(t *testing.T) {
			assert.Equal(t, want, displayName(key))
		})
	}
}

func TestSensors_Disambiguation(t *testing.T) {
	s := Build(testTelegram(), "dsmr")

	sensors := s.Sensors()
	require.Len(t, sensors, 7)

	for _, sensor := range sensors[:5] {
		assert.Empty(t, sensor.Disambiguator, sensor.Key)
	}

	assert.Equal(t, "(channel 1)", sensors[5].Disambiguator)
	assert.Equal(t, "Mbus meter reading (channel 1)", sensors[5].Name())
	assert.Equal(t, "dsmr_mbus_meter_reading_channel_1", sensors[5].UniqueID("dsmr"))

	assert.Equal(t, "(channel 2)", sensors[6].Disambiguator)
	assert.Equal(t, "Mbus meter reading (channel 2)", sensors[6].Name())
	assert.Equal(t, "dsmr_mbus_meter_reading_channel_2", sensors[6].UniqueID("dsmr"))
}

func TestSensors_SingleDeviceNotDisambiguated(t *testing.T) {
	telegram := testTelegram()
	telegram.Devices = telegram.Devices[:1]

	sensors := Build(telegram, "dsmr").Sensors()
	last := sensors[len(sensors)-1]
	assert.Equal(t, "MBUS_METER_READING", last.Key)
	assert.Empty(t, last.Disambiguator)
	assert.Equal(t, "Mbus meter reading", last.Name())
	assert.Equal(t, "dsmr_mbus_meter_reading", last.UniqueID("dsmr"))
}

func TestSensors_PrimaryCollision(t *testing.T) {
	telegram := &model.Telegram{
		Attributes: []model.Attribute{{Name: "MBUS_METER_READING", Value: "1", Unit: "m3"}},
		Devices: []model.Device{
			{Channel: 4, Attributes: []model.Attribute{{Name: "MBUS_METER_READING", Value: "2", Unit: "m3"}}},
		},
	}

	sensors := Build(telegram, "dsmr").Sensors()
	require.Len(t, sensors, 2)
	assert.Empty(t, sensors[0].Disambiguator)
	assert.Equal(t, "(channel 4)", sensors[1].Disambiguator)
	assert.NotEqual(t, sensors[0].UniqueID("Meter"), sensors[1].UniqueID("Meter"))
	assert.Equal(t, "meter_mbus_meter_reading_channel_4", sensors[1].UniqueID("Meter"))
}

func TestDiscovery(t *testing.T) {
	s := Build(testTelegram(), "dsmr")

	msgs, err := s.Discovery("homeassistant", "dsmr", "dsmr/status")
	require.NoError(t, err)
	require.Len(t, msgs, 7)

	for i, msg := range msgs {
		assert.True(t, msg.Retain)

		doc := map[string]any{}
		require.NoError(t, json.Unmarshal(msg.Payload, &doc))
		assert.Equal(t, "dsmr/status", doc["availability_topic"])

		device := doc["device"].(map[string]any)
		assert.Equal(t, []any{"dsmr"}, device["identifiers"])
		if i == 0 {
			assert.Equal(t, ProductName, device["name"])
		} else {
			assert.NotContains(t, device, "name")
		}
	}

	assert.Equal(t, "homeassistant/sensor/dsmr_electricity_used_tariff_1/config", msgs[0].Topic)
	assert.JSONEq(t, `{
		"name": "Electricity used tariff 1",
		"state_topic": "dsmr/elec/electricity_used_tariff_1",
		"unique_id": "dsmr_electricity_used_tariff_1",
		"device": {"identifiers": ["dsmr"], "name": "DSMR Smart Meter"},
		"availability_topic": "dsmr/status",
		"device_class": "energy",
		"icon": "mdi:lightning-bolt",
		"unit_of_measurement": "kWh",
		"state_class": "total"
	}`, string(msgs[0].Payload))

	assert.Equal(t, "homeassistant/sensor/dsmr_electricity_active_tariff/config", msgs[1].Topic)
	assert.JSONEq(t, `{
		"name": "Electricity active tariff",
		"state_topic": "dsmr/diag/electricity_active_tariff",
		"unique_id": "dsmr_electricity_active_tariff",
		"device": {"identifiers": ["dsmr"]},
		"availability_topic": "dsmr/status",
		"icon": "mdi:counter"
	}`, string(msgs[1].Payload))

	assert.Equal(t, "homeassistant/sensor/dsmr_mbus_meter_reading_channel_2/config", msgs[6].Topic)
}

func TestDiscovery_Deterministic(t *testing.T) {
	first, err := Build(testTelegram(), "dsmr").Discovery("ha", "meter", "dsmr/status")
	require.NoError(t, err)
	second, err := Build(testTelegram(), "dsmr").Discovery("ha", "meter", "dsmr/status")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
