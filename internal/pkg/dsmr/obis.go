package dsmr

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindDecimal
	kindTimestamp
	kindMBus
	kindLegacyGas
)

type field struct {
	name string
	kind valueKind
}

// References of the electricity meter itself, named after the P1 companion standard.
var fields = map[string]field{
	"1-3:0.2.8":   {"P1_MESSAGE_HEADER", kindString},
	"0-0:1.0.0":   {"P1_MESSAGE_TIMESTAMP", kindTimestamp},
	"0-0:96.1.1":  {"EQUIPMENT_IDENTIFIER", kindString},
	"1-0:1.8.1":   {"ELECTRICITY_USED_TARIFF_1", kindDecimal},
	"1-0:1.8.2":   {"ELECTRICITY_USED_TARIFF_2", kindDecimal},
	"1-0:2.8.1":   {"ELECTRICITY_DELIVERED_TARIFF_1", kindDecimal},
	"1-0:2.8.2":   {"ELECTRICITY_DELIVERED_TARIFF_2", kindDecimal},
	"0-0:96.14.0": {"ELECTRICITY_ACTIVE_TARIFF", kindString},
	"1-0:1.7.0":   {"CURRENT_ELECTRICITY_USAGE", kindDecimal},
	"1-0:2.7.0":   {"CURRENT_ELECTRICITY_DELIVERY", kindDecimal},
	"0-0:17.0.0":  {"ACTUAL_TRESHOLD_ELECTRICITY", kindDecimal},
	"0-0:96.3.10": {"ACTUAL_SWITCH_POSITION", kindString},
	"0-0:96.7.21": {"SHORT_POWER_FAILURE_COUNT", kindInt},
	"0-0:96.7.9":  {"LONG_POWER_FAILURE_COUNT", kindInt},
	"1-0:32.32.0": {"VOLTAGE_SAG_L1_COUNT", kindInt},
	"1-0:52.32.0": {"VOLTAGE_SAG_L2_COUNT", kindInt},
	"1-0:72.32.0": {"VOLTAGE_SAG_L3_COUNT", kindInt},
	"1-0:32.36.0": {"VOLTAGE_SWELL_L1_COUNT", kindInt},
	"1-0:52.36.0": {"VOLTAGE_SWELL_L2_COUNT", kindInt},
	"1-0:72.36.0": {"VOLTAGE_SWELL_L3_COUNT", kindInt},
	"0-0:96.13.1": {"TEXT_MESSAGE_CODE", kindString},
	"0-0:96.13.0": {"TEXT_MESSAGE", kindString},
	"1-0:32.7.0":  {"INSTANTANEOUS_VOLTAGE_L1", kindDecimal},
	"1-0:52.7.0":  {"INSTANTANEOUS_VOLTAGE_L2", kindDecimal},
	"1-0:72.7.0":  {"INSTANTANEOUS_VOLTAGE_L3", kindDecimal},
	"1-0:31.7.0":  {"INSTANTANEOUS_CURRENT_L1", kindDecimal},
	"1-0:51.7.0":  {"INSTANTANEOUS_CURRENT_L2", kindDecimal},
	"1-0:71.7.0":  {"INSTANTANEOUS_CURRENT_L3", kindDecimal},
	"1-0:21.7.0":  {"INSTANTANEOUS_ACTIVE_POWER_L1_POSITIVE", kindDecimal},
	"1-0:41.7.0":  {"INSTANTANEOUS_ACTIVE_POWER_L2_POSITIVE", kindDecimal},
	"1-0:61.7.0":  {"INSTANTANEOUS_ACTIVE_POWER_L3_POSITIVE", kindDecimal},
	"1-0:22.7.0":  {"INSTANTANEOUS_ACTIVE_POWER_L1_NEGATIVE", kindDecimal},
	"1-0:42.7.0":  {"INSTANTANEOUS_ACTIVE_POWER_L2_NEGATIVE", kindDecimal},
	"1-0:62.7.0":  {"INSTANTANEOUS_ACTIVE_POWER_L3_NEGATIVE", kindDecimal},
}

// M-Bus references, 0-n:C.D.E where n is the channel, keyed by C.D.E.
var mbusFields = map[string]field{
	"24.1.0": {"MBUS_DEVICE_TYPE", kindInt},
	"96.1.0": {"MBUS_EQUIPMENT_IDENTIFIER", kindString},
	"24.2.1": {"MBUS_METER_READING", kindMBus},
	"24.3.0": {"MBUS_METER_READING", kindLegacyGas},
}
