package wifi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nikosgri/sensornode/at"
	"github.com/nikosgri/sensornode/rxbuf"
)

// Session is the AT command channel to the ESP WiFi modem. It owns the
// transport, the receive buffer and the node status snapshot.
//
// The concurrency model mirrors the hardware it drives: Pump is the receive
// interrupt, appending bytes as they arrive; Execute is the main line,
// clearing the buffer, transmitting a command and polling for its terminal
// token. Commands are issued from a single goroutine at a time, there is no
// internal command queue. Unsolicited notifications that arrive between
// transactions are discarded by the next buffer reset; nothing in this
// command set needs them.
type Session struct {
	// transport provides the physical connection to the modem
	transport Transport
	// profile is the AT command set in use
	profile at.Profile
	// clock and pollInterval drive the timeout polling loop
	clock        Clock
	pollInterval time.Duration
	// cmdTimeout applies to transactions that carry no budget of their own
	cmdTimeout time.Duration
	// buf is shared with the pump; cons is the engine-side view of it
	buf  *rxbuf.Buffer
	cons rxbuf.Consumer
	log  *slog.Logger

	// mu guards status, closed and pumpRunning
	mu          sync.Mutex
	status      Status
	closed      bool
	pumpRunning bool
}

// New dials the transport and constructs a session. No commands are issued;
// modem bring-up belongs to the workflow so a dead radio surfaces as a
// handler failure, not a constructor error.
func New(ctx context.Context, config Config) (*Session, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}

	buf := rxbuf.New(config.BufferSize)
	return &Session{
		transport:    transport,
		profile:      config.Profile,
		clock:        config.Clock,
		pollInterval: config.PollInterval,
		cmdTimeout:   config.CommandTimeout,
		buf:          buf,
		cons:         buf.Consumer(),
		log:          config.Logger.With("component", "wifi"),
	}, nil
}

// Profile returns the command set the session was built with.
func (s *Session) Profile() at.Profile {
	return s.profile
}

// Pump drains the transport into the receive buffer, standing in for the
// serial receive interrupt. It must be running before Execute is called and
// it is the only reader of the transport.
//
// Pump returns when the transport yields EOF, a read fails, or the context
// is cancelled. A cancelled context is only noticed at the next byte or when
// Close unblocks the pending read.
//
// Usage:
//
//	session, err := New(ctx, config)
//	if err != nil { return err }
//	go session.Pump(ctx)
func (s *Session) Pump(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrAlreadyClosed
	}
	if s.pumpRunning {
		s.mu.Unlock()
		return ErrPumpRunning
	}
	s.pumpRunning = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.pumpRunning = false
		s.mu.Unlock()
	}()

	prod := s.buf.Producer()
	chunk := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := s.transport.Read(chunk)
		for _, b := range chunk[:n] {
			prod.PushByte(b)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("wifi: pump read: %w", err)
		}
	}
}

// Execute runs one transaction: clear the receive buffer, transmit the
// command, poll for the terminal token under the timeout, then extract the
// typed fields. The result always reports the outcome; the error collapses
// everything a caller normally treats as "this exchange did not deliver":
// timeouts, error tokens and partially filled slots.
//
// There is no cancellation mid-transaction. Once the command is on the wire
// the only exits are a token or the timeout.
func (s *Session) Execute(tx Transaction) (Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Result{}, ErrAlreadyClosed
	}
	if s.transport == nil {
		s.mu.Unlock()
		return Result{}, ErrNotInitialized
	}
	s.mu.Unlock()

	label := tx.Label
	if label == "" {
		label = tx.Command
	}
	timeout := tx.Timeout
	if timeout == 0 {
		timeout = s.cmdTimeout
	}

	s.cons.Reset()
	if _, err := s.transport.Write([]byte(tx.Command + at.CRLF)); err != nil {
		return Result{}, fmt.Errorf("wifi: %s: write: %w", label, err)
	}

	deadline := s.clock.Now().Add(timeout)
	var captured, failTok string
	found := pollUntil(s.clock, deadline, s.pollInterval, func() bool {
		if text, ok := s.cons.Contains(tx.Terminal); ok {
			captured = text
			return true
		}
		for _, tok := range s.profile.ErrorTokens {
			if tok == "" {
				continue
			}
			if text, ok := s.cons.Contains(tok); ok {
				captured = text
				failTok = tok
				return true
			}
		}
		return false
	})

	if !found {
		s.log.Warn("transaction timed out", "label", label, "timeout", timeout)
		return Result{Outcome: OutcomeTimeout}, fmt.Errorf("wifi: %s: %w", label, ErrTimeout)
	}
	if failTok != "" {
		s.log.Warn("modem rejected command", "label", label, "token", failTok)
		return Result{Outcome: OutcomeFail, Text: captured}, fmt.Errorf("wifi: %s: %w", label, ErrFailed)
	}

	res := Result{Outcome: OutcomeOK, Text: captured}
	n, err := extract(captured, tx.Ack, tx.Slots)
	res.Filled = n
	if err != nil {
		s.log.Warn("partial response", "label", label, "filled", n, "want", len(tx.Slots))
		return res, fmt.Errorf("wifi: %s: %w", label, err)
	}

	s.logResponse(label, captured)
	return res, nil
}

// logResponse emits the captured response line by line at debug level.
func (s *Session) logResponse(label, text string) {
	if !s.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, line := range at.Lines(text) {
		s.log.Debug("response", "label", label, "class", at.Classify(line), "line", line)
	}
}

// Status returns a copy of the node status snapshot.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetHardwareID seeds the node identifier before the modem MAC query has
// run, typically from the host machine id.
func (s *Session) SetHardwareID(id string) {
	s.updateStatus(func(st *Status) { st.HardwareID = id })
}

// SetSensorValue records the latest sensor sample in the status snapshot.
func (s *Session) SetSensorValue(v int) {
	s.updateStatus(func(st *Status) { st.SensorValue = v })
}

func (s *Session) updateStatus(f func(*Status)) {
	s.mu.Lock()
	f(&s.status)
	s.mu.Unlock()
}

// Close shuts down the session and releases the transport. Closing also
// unblocks a Pump stuck in a read. After Close the session cannot be reused.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrAlreadyClosed
	}
	s.closed = true
	if s.transport != nil {
		return s.transport.Close()
	}
	return nil
}
