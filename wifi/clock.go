package wifi

import "time"

// Clock is the time source the transaction engine polls against. Abstracting
// it keeps the timeout path testable without burning wall-clock time.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// pollUntil runs check, then sleeps interval, until check reports true or the
// deadline passes. check runs before each deadline comparison, so one final
// look happens even when the deadline expired during the sleep.
func pollUntil(clk Clock, deadline time.Time, interval time.Duration, check func() bool) bool {
	for {
		if check() {
			return true
		}
		if !clk.Now().Before(deadline) {
			return false
		}
		clk.Sleep(interval)
	}
}
