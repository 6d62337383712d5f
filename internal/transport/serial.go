// Package transport opens and reads the UART connecting the controller to
// the motor/display bus.
package transport

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// pollInterval bounds how long a single underlying Read blocks before the
// engine gets a chance to re-check its own deadline, the same "poll in
// short slices so the caller can still notice a timeout" shape as the
// original firmware's uart_read_bytes(..., 1000/portTICK_PERIOD_MS) loop.
const pollInterval = 50 * time.Millisecond

// Port is a byte-oriented UART connection.
type Port struct {
	port *serial.Port
}

// Open configures and opens the serial device at the given baud rate
// (9600 in the default config), 8N1, matching spec.md §6's bus wire format.
func Open(devicePath string, baud int) (*Port, error) {
	config := &serial.Config{
		Name:        devicePath,
		Baud:        baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: pollInterval,
	}
	p, err := serial.OpenPort(config)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", devicePath, err)
	}
	return &Port{port: p}, nil
}

// ReadByte blocks for at most pollInterval. ok is false (with a nil error)
// when no byte arrived in that window, letting the caller re-check its own
// overall deadline without blocking forever on a single Read.
func (p *Port) ReadByte() (b byte, ok bool, err error) {
	buf := make([]byte, 1)
	n, err := p.port.Read(buf)
	if err != nil {
		if err == io.EOF {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read serial port: %w", err)
	}
	if n == 0 {
		return 0, false, nil
	}
	return buf[0], true, nil
}

// Write sends data on the bus.
func (p *Port) Write(data []byte) error {
	if _, err := p.port.Write(data); err != nil {
		return fmt.Errorf("write serial port: %w", err)
	}
	return nil
}

// Close releases the underlying port.
func (p *Port) Close() error {
	return p.port.Close()
}
