package wifi

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=wifi

// Transport represents an established, bidirectional byte stream to the
// WiFi modem.
//
// A Transport is assumed to be already connected and ready for use. It
// provides the low-level I/O primitives required to send AT commands and
// receive responses. Typical implementations include serial ports, TCP
// connections to emulators, or in-memory fakes used for testing.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to the WiFi modem.
//
// Dialer abstracts how the modem connection is created (for example, via a
// serial port, TCP-based emulator, or test double) and is intended to be used
// during session construction only. Once a Transport is obtained, the Dialer
// is no longer needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may perform
	// blocking operations and should respect cancellation and deadlines
	// provided by the context. Dial returns an error if the transport
	// cannot be established.
	Dial(ctx context.Context) (Transport, error)
}

// SerialDialer opens the modem UART through go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, for example "/dev/ttyUSB0".
	PortName string
	// Mode overrides the line settings. Nil selects 115200 8N1, the
	// ESP-AT factory default.
	Mode *serial.Mode
}

// Dial opens the configured serial port.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("wifi: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("wifi: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		mode = &serial.Mode{
			BaudRate: 115200,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("wifi: open %s: %w", d.PortName, err)
	}

	// Drop whatever the modem emitted while nobody was listening, stale
	// URCs and boot banners only confuse the first transaction.
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("wifi: reset input on %s: %w", d.PortName, err)
	}

	return port, nil
}
