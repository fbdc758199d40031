package rtc

import (
	"fmt"
	"sync"
	"time"
)

// Simulator is an in-memory Device for host runs and tests. It keeps the
// node clock as an offset against a wall clock source and delivers armed
// alarms on a channel instead of a hardware interrupt line.
type Simulator struct {
	mu     sync.Mutex
	now    func() time.Time
	offset time.Duration
	timer  *time.Timer
	alarms chan TimeOfDay
}

func NewSimulator() *Simulator {
	return &Simulator{
		now:    time.Now,
		alarms: make(chan TimeOfDay, 1),
	}
}

// ReadTime reports the simulated clock.
func (s *Simulator) ReadTime() (TimeOfDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NewTimeOfDay(s.now().Add(s.offset).Clock()), nil
}

// SetClock moves the simulated clock to the given calendar value.
func (s *Simulator) SetClock(c Calendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := time.Date(
		2000+FromBCD(c.Year), time.Month(FromBCD(c.Month)), FromBCD(c.Day),
		FromBCD(c.Hour), FromBCD(c.Minute), FromBCD(c.Second), 0, time.Local,
	)
	s.offset = target.Sub(s.now())
	return nil
}

// ArmAlarm schedules delivery on the alarm channel at the next occurrence
// of the target time of day. Re-arming replaces a pending alarm.
func (s *Simulator) ArmAlarm(target TimeOfDay) error {
	hour, minute, second := target.Clock()
	if hour > 23 || minute > 59 || second > 59 {
		return fmt.Errorf("rtc: alarm %s out of range", target)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Add(s.offset)
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, second, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(next.Sub(now), func() {
		select {
		case s.alarms <- target:
		default:
		}
	})
	return nil
}

// Alarm exposes fired alarms. The channel holds one pending delivery.
func (s *Simulator) Alarm() <-chan TimeOfDay {
	return s.alarms
}

// Stop cancels a pending alarm without firing it.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
