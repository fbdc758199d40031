package wifi_test

import (
	"context"
	"io"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/nikosgri/sensornode/wifi"
)

// Script choreographs a command/response exchange sequence against a
// TestTransport. Each step waits for the expected command on the wire before
// queueing its reply, which enforces the same ordering a real modem would:
// responses never exist before their command.
type Script struct {
	transport *wifi.TestTransport
	steps     []exchange
}

type exchange struct {
	command string
	reply   string
}

func NewScript(transport *wifi.TestTransport) *Script {
	return &Script{transport: transport}
}

// Expect adds one exchange. The command is matched without the trailing
// CRLF; an empty reply means the modem stays silent for this step.
func (s *Script) Expect(command, reply string) *Script {
	s.steps = append(s.steps, exchange{command: command, reply: reply})
	return s
}

// Start runs the script in the background. The returned function blocks
// until every step has been consumed and must be called before the test
// returns.
func (s *Script) Start(t *testing.T) func() {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, step := range s.steps {
			select {
			case got := <-s.transport.Writes():
				want := step.command + "\r\n"
				if string(got) != want {
					t.Errorf("write %d: got %q, want %q", i, got, want)
					return
				}
			case <-time.After(2 * time.Second):
				t.Errorf("write %d: timed out waiting for %q", i, step.command)
				return
			}
			if step.reply != "" {
				s.transport.SendData(step.reply)
			}
		}
	}()
	return func() {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("script did not finish")
		}
	}
}

// newTestSession builds a session over a TestTransport with the pump already
// running. Cleanup closes the session, which also stops the pump.
func newTestSession(t *testing.T) (*wifi.Session, *wifi.TestTransport) {
	t.Helper()
	ctrl := gomock.NewController(t)

	transport := wifi.NewTestTransport()
	dialer := wifi.NewMockDialer(ctrl)
	dialer.EXPECT().Dial(gomock.Any()).Return(transport, nil)

	config, err := wifi.NewConfigBuilder().
		WithDialer(dialer).
		WithPollInterval(100 * time.Microsecond).
		Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	session, err := wifi.New(ctx, config)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	go func() {
		if err := session.Pump(ctx); err != nil && err != context.Canceled && err != io.EOF {
			t.Errorf("pump error: %v", err)
		}
	}()

	t.Cleanup(func() {
		session.Close()
		cancel()
	})
	return session, transport
}
