// Package rxbuf implements the fixed-capacity receive buffer that sits
// between the serial receive path and the command engine. The receive
// goroutine appends one byte at a time through a Producer view; the engine
// clears and scans the contents through a Consumer view. The two views are
// distinct types so a component can be handed only the half of the contract
// it is allowed to use.
package rxbuf

import (
	"bytes"
	"sync"
)

// DefaultCapacity matches the largest single response the command set
// produces, with headroom. A response longer than the capacity wraps and is
// seen by scans as two disjoint fragments, so undersizing the buffer breaks
// terminal-token detection.
const DefaultCapacity = 1024

// Buffer is a fixed-size byte store with a write cursor that wraps at
// capacity. Writes never block and never grow the buffer; once it wraps the
// oldest bytes are silently overwritten.
type Buffer struct {
	mu      sync.Mutex
	data    []byte
	cursor  int
	written int
}

// New creates a buffer with the given capacity. Non-positive capacities fall
// back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Cap reports the fixed capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Producer returns the write-side view handed to the receive path.
func (b *Buffer) Producer() Producer {
	return Producer{b: b}
}

// Consumer returns the scan-side view owned by the command engine.
func (b *Buffer) Consumer() Consumer {
	return Consumer{b: b}
}

// window is the linear region a scan observes. Before the cursor wraps this
// is exactly the bytes written since the last reset; after wrapping it is the
// whole backing array in physical order, newest bytes before the cursor and
// the surviving older bytes after it.
func (b *Buffer) window() []byte {
	if b.written < len(b.data) {
		return b.data[:b.written]
	}
	return b.data
}

// Producer is the interrupt-side capability: append only.
type Producer struct {
	b *Buffer
}

// PushByte appends one byte at the cursor and advances it modulo capacity.
// It never blocks and never reports back-pressure; overwriting the oldest
// byte is the accepted failure mode under overflow.
func (p Producer) PushByte(c byte) {
	b := p.b
	b.mu.Lock()
	b.data[b.cursor] = c
	b.cursor = (b.cursor + 1) % len(b.data)
	b.written++
	b.mu.Unlock()
}

// Consumer is the engine-side capability: clear and scan.
type Consumer struct {
	b *Buffer
}

// Reset zeroes the contents and rewinds the cursor. It is called at the
// start of every transaction. Bytes pushed between Reset and the first scan
// are retained; a clear-while-receiving race therefore loses nothing, it only
// means the next scan already sees them.
func (c Consumer) Reset() {
	b := c.b
	b.mu.Lock()
	clear(b.data)
	b.cursor = 0
	b.written = 0
	b.mu.Unlock()
}

// Contains scans for needle and, on a hit, returns a copy of the scanned
// window. The scan is linear, not ring-aware: a sequence that wrapped past
// the physical end of the buffer is seen as two disjoint fragments and will
// not match.
func (c Consumer) Contains(needle string) (string, bool) {
	b := c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.window()
	if !bytes.Contains(w, []byte(needle)) {
		return "", false
	}
	return string(w), true
}

// Bytes returns a copy of the scanned window.
func (c Consumer) Bytes() []byte {
	b := c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.window())
}

// Len reports the size of the scanned window.
func (c Consumer) Len() int {
	b := c.b
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.window())
}
