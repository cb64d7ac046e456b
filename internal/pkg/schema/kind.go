package schema

import (
	"fmt"
	"strings"

	"github.com/anicoll/mqtt4dsmr/internal/pkg/model"
)

type StateClass string

const (
	StateClassMeasurement StateClass = "measurement"
	StateClassTotal       StateClass = "total"
)

// SensorKind is the presentation metadata shared by every reading with the same unit.
type SensorKind struct {
	Category    string
	DeviceClass string
	Unit        string
	Icon        string
	StateClass  StateClass
}

func (k SensorKind) topic(prefix, name string) string {
	return fmt.Sprintf("%s/%s/%s", prefix, k.Category, strings.ToLower(name))
}

func (k SensorKind) amend(msg *model.RegisterMessage) {
	msg.DeviceClass = k.DeviceClass
	msg.Icon = k.Icon
	msg.UnitOfMeasurement = k.Unit
	msg.StateClass = string(k.StateClass)
}

var unitKinds = map[string]SensorKind{
	"W":   {Category: "elec", DeviceClass: "power", Unit: "W", Icon: "mdi:lightning-bolt", StateClass: StateClassMeasurement},
	"kW":  {Category: "elec", DeviceClass: "power", Unit: "kW", Icon: "mdi:lightning-bolt", StateClass: StateClassMeasurement},
	"Wh":  {Category: "elec", DeviceClass: "energy", Unit: "Wh", Icon: "mdi:lightning-bolt", StateClass: StateClassTotal},
	"kWh": {Category: "elec", DeviceClass: "energy", Unit: "kWh", Icon: "mdi:lightning-bolt", StateClass: StateClassTotal},
	"V":   {Category: "elec", DeviceClass: "voltage", Unit: "V", Icon: "mdi:lightning-bolt", StateClass: StateClassMeasurement},
	"m3":  {Category: "gas", DeviceClass: "gas", Unit: "m³", Icon: "mdi:meter-gas", StateClass: StateClassTotal},
}

// Diagnostic is used for unit-less counters and the tariff indicator.
var Diagnostic = SensorKind{Category: "diag", Icon: "mdi:counter"}

const (
	CounterSuffix = "_COUNT"
	ActiveTariff  = "ELECTRICITY_ACTIVE_TARIFF"
)

// KindForUnit returns the catalog entry for a unit as reported by the meter.
func KindForUnit(unit string) (SensorKind, bool) {
	k, ok := unitKinds[unit]
	return k, ok
}

func classify(attr model.Attribute) (SensorKind, bool) {
	if attr.HasUnit() {
		if kind, ok := KindForUnit(attr.Unit); ok {
			return kind, true
		}
	}
	if strings.HasSuffix(attr.Name, CounterSuffix) || attr.Name == ActiveTariff {
		return Diagnostic, true
	}
	return SensorKind{}, false
}
