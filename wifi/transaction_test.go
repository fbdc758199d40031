package wifi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nikosgri/sensornode/at"
)

// fakeClock advances only when someone sleeps, so timeout paths run at full
// speed while still observing the budget arithmetic.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time        { return c.now }
func (c *fakeClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

type stubDialer struct {
	transport Transport
}

func (d stubDialer) Dial(ctx context.Context) (Transport, error) {
	return d.transport, nil
}

func TestExtract(t *testing.T) {
	t.Run("Join info fills nine fields with signal strength fourth", func(t *testing.T) {
		text := "+CWJAP:\"AP_ssid\",\"c8:d7:78:3c:9a:01\",6,-42,0,1,3,0,1\r\n\r\nOK\r\n"

		var (
			ssid, bssid                            string
			channel, rssi                          int
			pci, reconnIv, listenIv, scanMode, pmf int
		)
		slots := []Slot{
			Quoted(&ssid), Quoted(&bssid),
			Int(&channel), Int(&rssi),
			Int(&pci), Int(&reconnIv), Int(&listenIv), Int(&scanMode), Int(&pmf),
		}

		n, err := extract(text, "+CWJAP:", slots)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 9 {
			t.Errorf("expected 9 filled slots, got %d", n)
		}
		if rssi != -42 {
			t.Errorf("expected -42 in the fourth field, got %d", rssi)
		}
		if ssid != "AP_ssid" || bssid != "c8:d7:78:3c:9a:01" {
			t.Errorf("unexpected identifiers: %q %q", ssid, bssid)
		}
		if channel != 6 {
			t.Errorf("expected channel 6, got %d", channel)
		}
	})

	t.Run("Network time splits on spaces and colons", func(t *testing.T) {
		text := "+CIPSNTPTIME:Thu Aug 21 14:06:30 2025\r\n\r\nOK\r\n"

		var (
			weekday, month                 string
			day, hour, minute, second, yr  int
		)
		slots := []Slot{
			Word(&weekday), Word(&month),
			Int(&day), Int(&hour), Int(&minute), Int(&second), Int(&yr),
		}

		n, err := extract(text, "+CIPSNTPTIME:", slots)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 7 {
			t.Errorf("expected 7 filled slots, got %d", n)
		}
		if weekday != "Thu" || month != "Aug" {
			t.Errorf("unexpected names: %q %q", weekday, month)
		}
		if day != 21 || hour != 14 || minute != 6 || second != 30 || yr != 2025 {
			t.Errorf("unexpected clock fields: %d %d:%d:%d %d", day, hour, minute, second, yr)
		}
	})

	t.Run("Quoted strips the quotes", func(t *testing.T) {
		var ip string
		n, err := extract("+CIPSTA:ip:\"192.168.4.2\"\r\n\r\nOK\r\n", "+CIPSTA:ip:", []Slot{Quoted(&ip)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 1 || ip != "192.168.4.2" {
			t.Errorf("expected bare address, got %q (filled %d)", ip, n)
		}
	})

	t.Run("Line captures everything up to the line ending", func(t *testing.T) {
		var (
			count int
			body  string
		)
		text := "+CIPRECVDATA:12,hello, world\r\n\r\nOK\r\n"
		n, err := extract(text, "+CIPRECVDATA:", []Slot{Int(&count), Line(&body)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 2 || count != 12 {
			t.Errorf("expected count 12, got %d (filled %d)", count, n)
		}
		if body != "hello, world" {
			t.Errorf("expected full line, got %q", body)
		}
	})

	t.Run("Missing anchor is a partial parse", func(t *testing.T) {
		var mux int
		n, err := extract("\r\nOK\r\n", "+CIPMUX:", []Slot{Int(&mux)})
		if !errors.Is(err, ErrPartialParse) {
			t.Errorf("expected ErrPartialParse, got: %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0 filled slots, got %d", n)
		}
	})

	t.Run("Short response stops at the failing slot", func(t *testing.T) {
		var (
			state int
			ssid  string
		)
		n, err := extract("+CWSTATE:4\r\n\r\nOK\r\n", "+CWSTATE:", []Slot{Int(&state), Quoted(&ssid)})
		if !errors.Is(err, ErrPartialParse) {
			t.Errorf("expected ErrPartialParse, got: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 filled slot, got %d", n)
		}
		if state != 4 {
			t.Errorf("expected the filled slot to keep its value, got %d", state)
		}
	})

	t.Run("No slots always succeeds", func(t *testing.T) {
		n, err := extract("\r\nOK\r\n", "+TIME_UPDATED", nil)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0 filled slots, got %d", n)
		}
	})
}

func TestPollUntil(t *testing.T) {
	t.Run("Stops as soon as the check passes", func(t *testing.T) {
		clk := &fakeClock{now: time.Unix(0, 0)}
		calls := 0
		ok := pollUntil(clk, clk.now.Add(time.Second), 10*time.Millisecond, func() bool {
			calls++
			return calls == 3
		})
		if !ok {
			t.Error("expected pollUntil to report success")
		}
		if calls != 3 {
			t.Errorf("expected 3 checks, got %d", calls)
		}
		if slept := clk.now.Sub(time.Unix(0, 0)); slept != 20*time.Millisecond {
			t.Errorf("expected two sleeps, got %v", slept)
		}
	})

	t.Run("Gives up within one interval past the deadline", func(t *testing.T) {
		start := time.Unix(0, 0)
		clk := &fakeClock{now: start}
		deadline := start.Add(time.Second)
		interval := 7 * time.Millisecond

		ok := pollUntil(clk, deadline, interval, func() bool { return false })
		if ok {
			t.Error("expected pollUntil to give up")
		}
		elapsed := clk.now.Sub(start)
		if elapsed < time.Second {
			t.Errorf("gave up before the deadline: %v", elapsed)
		}
		if elapsed > time.Second+interval {
			t.Errorf("overshot the deadline by more than one interval: %v", elapsed)
		}
	})

	t.Run("Check runs once even when the deadline already passed", func(t *testing.T) {
		clk := &fakeClock{now: time.Unix(100, 0)}
		calls := 0
		ok := pollUntil(clk, clk.now, time.Millisecond, func() bool {
			calls++
			return true
		})
		if !ok {
			t.Error("expected the final check to count")
		}
		if calls != 1 {
			t.Errorf("expected exactly one check, got %d", calls)
		}
	})
}

func TestExecuteTimeout(t *testing.T) {
	// A silent modem: the transport accepts the command and never answers.
	clk := &fakeClock{now: time.Unix(0, 0)}
	start := clk.now

	config := Config{
		Dialer:       stubDialer{transport: NewTestTransport()},
		Clock:        clk,
		PollInterval: 10 * time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	s, err := New(context.Background(), config)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	defer s.Close()

	res, err := s.Execute(Transaction{
		Label:    "ping",
		Command:  "AT",
		Terminal: at.OK,
		Timeout:  time.Second,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got: %v", err)
	}
	if !strings.Contains(err.Error(), "ping") {
		t.Errorf("expected the label in the error, got: %v", err)
	}
	if res.Outcome != OutcomeTimeout {
		t.Errorf("expected OutcomeTimeout, got %v", res.Outcome)
	}

	elapsed := clk.now.Sub(start)
	if elapsed < time.Second {
		t.Errorf("gave up before the budget: %v", elapsed)
	}
	if elapsed > time.Second+10*time.Millisecond {
		t.Errorf("overshot the budget by more than one poll interval: %v", elapsed)
	}
}
