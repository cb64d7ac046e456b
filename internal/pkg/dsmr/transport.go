package dsmr

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"

	"go.bug.st/serial"
)

var serialModes = map[string]*serial.Mode{
	"V2_2": {BaudRate: 9600, DataBits: 7, Parity: serial.EvenParity, StopBits: serial.OneStopBit},
	"V4":   {BaudRate: 115200, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit},
	"V5":   {BaudRate: 115200, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit},
}

// OpenSerial opens the P1 port with the line settings of the given protocol version.
func OpenSerial(device, settings string) (io.ReadCloser, error) {
	mode, ok := serialModes[settings]
	if !ok {
		return nil, fmt.Errorf("unknown serial settings %q", settings)
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	return port, nil
}

// DialTCP connects to a serial-to-network bridge exposing the P1 port.
func DialTCP(ctx context.Context, host string, port int) (io.ReadCloser, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	return conn, nil
}
