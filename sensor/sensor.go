// Package sensor samples the node's measurement input.
package sensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Reader yields one sample per call. The duty cycle reads once per wake.
type Reader interface {
	Read() (int, error)
}

// Fixed always reports the same value. It stands in for the measurement
// input on nodes that only report link health.
type Fixed int

func (f Fixed) Read() (int, error) {
	return int(f), nil
}

// ModbusConfig describes the RTU line to the attached sensor.
type ModbusConfig struct {
	// Port is the serial device of the sensor bus, distinct from the
	// modem UART.
	Port     string
	BaudRate int
	SlaveID  byte
	// Register is the input register holding the measurement.
	Register uint16
	Timeout  time.Duration
}

// ModbusReader samples one input register over Modbus RTU. It serializes
// reads because the handler owns a single serial line.
type ModbusReader struct {
	mu       sync.Mutex
	handler  *modbus.RTUClientHandler
	client   modbus.Client
	register uint16
}

func NewModbusReader(cfg ModbusConfig) (*ModbusReader, error) {
	if cfg.Port == "" {
		return nil, errors.New("sensor: modbus port required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600
	}
	if cfg.SlaveID == 0 {
		cfg.SlaveID = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	h := modbus.NewRTUClientHandler(cfg.Port)
	h.BaudRate = cfg.BaudRate
	h.DataBits = 8
	h.Parity = "N"
	h.StopBits = 1
	h.SlaveId = cfg.SlaveID
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("sensor: connect: %w", err)
	}

	return &ModbusReader{
		handler:  h,
		client:   modbus.NewClient(h),
		register: cfg.Register,
	}, nil
}

func (r *ModbusReader) Read() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := r.client.ReadInputRegisters(r.register, 1)
	if err != nil {
		return 0, fmt.Errorf("sensor: read register %d: %w", r.register, err)
	}
	if len(raw) < 2 {
		return 0, fmt.Errorf("sensor: short register read, %d bytes", len(raw))
	}
	return int(binary.BigEndian.Uint16(raw)), nil
}

func (r *ModbusReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handler.Close()
}
