package model

// Attribute is a single named reading of a telegram. Unit is empty for
// readings that carry no unit (counters, identifiers, tariff indicators).
type Attribute struct {
	Name  string
	Value string
	Unit  string
}

// HasUnit reports whether the reading was reported with a unit.
func (a Attribute) HasUnit() bool {
	return a.Unit != ""
}

// Device is an M-Bus sub-device nested in a telegram, e.g. a gas or water meter.
type Device struct {
	Channel    int
	Attributes []Attribute
}

// Get returns the attribute with the given name.
func (d *Device) Get(name string) (Attribute, bool) {
	return lookup(d.Attributes, name)
}

// Telegram is one complete reading cycle of the meter.
type Telegram struct {
	Header     string
	Attributes []Attribute
	Devices    []Device
}

func (t *Telegram) Get(name string) (Attribute, bool) {
	return lookup(t.Attributes, name)
}

// Device returns the sub-device on the given channel.
func (t *Telegram) Device(channel int) (*Device, bool) {
	for i := range t.Devices {
		if t.Devices[i].Channel == channel {
			return &t.Devices[i], true
		}
	}
	return nil, false
}

func lookup(attrs []Attribute, name string) (Attribute, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}
