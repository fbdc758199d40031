// Package rtc models the node's clock and alarm service: packed BCD time
// values, the next-alarm arithmetic, and the device interface the report
// cycle commits network time to.
package rtc

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// ToBCD packs a binary value in 0..99 into binary-coded decimal.
func ToBCD(v int) byte {
	return byte((v/10)<<4 | v%10)
}

// FromBCD unpacks a binary-coded decimal byte.
func FromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0f)
}

// TimeOfDay is a wall-clock time in the alarm hardware's packed BCD
// encoding. The zero value is midnight.
type TimeOfDay struct {
	Hour   byte
	Minute byte
	Second byte
}

// NewTimeOfDay encodes an hour, minute and second.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay{Hour: ToBCD(hour), Minute: ToBCD(minute), Second: ToBCD(second)}
}

// Clock returns the decoded hour, minute and second.
func (t TimeOfDay) Clock() (hour, minute, second int) {
	return FromBCD(t.Hour), FromBCD(t.Minute), FromBCD(t.Second)
}

func (t TimeOfDay) String() string {
	hour, minute, second := t.Clock()
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, second)
}

// Calendar is a full clock-set value in the device encoding: two-digit BCD
// year, BCD month, day and time, and a 1..7 weekday with Monday first.
type Calendar struct {
	Year    byte
	Month   byte
	Day     byte
	Weekday byte
	Hour    byte
	Minute  byte
	Second  byte
}

// NewCalendar encodes a calendar value. The year keeps its last two digits;
// the weekday is re-based so Monday is 1 and Sunday is 7.
func NewCalendar(year int, month time.Month, day int, weekday time.Weekday, hour, minute, second int) Calendar {
	iso := int(weekday)
	if iso == 0 {
		iso = 7
	}
	return Calendar{
		Year:    ToBCD(year % 100),
		Month:   ToBCD(int(month)),
		Day:     ToBCD(day),
		Weekday: byte(iso),
		Hour:    ToBCD(hour),
		Minute:  ToBCD(minute),
		Second:  ToBCD(second),
	}
}

// TimeOfDay returns the calendar's clock portion.
func (c Calendar) TimeOfDay() TimeOfDay {
	return TimeOfDay{Hour: c.Hour, Minute: c.Minute, Second: c.Second}
}

func (c Calendar) String() string {
	return fmt.Sprintf("20%02d-%02d-%02d %s",
		FromBCD(c.Year), FromBCD(c.Month), FromBCD(c.Day), c.TimeOfDay())
}

// NextAlarm computes the alarm time delay seconds after current. The carry
// propagates seconds to minutes to hours; the hour wraps into 0..23 without
// advancing the date, so a delay that crosses midnight lands on the same
// nominal day. Delays are expected below 86400 seconds.
func NextAlarm(current TimeOfDay, delay int) TimeOfDay {
	hour, minute, second := current.Clock()

	second += delay % 60
	minute += (delay % 3600) / 60
	hour += delay / 3600

	if second >= 60 {
		second -= 60
		minute++
	}
	if minute >= 60 {
		minute -= 60
		hour++
	}
	if hour >= 24 {
		hour -= 24
	}
	return NewTimeOfDay(hour, minute, second)
}

// Device is the clock and alarm service the node wakes by. ArmAlarm waits
// for a writable register window on real hardware and can time out doing
// so; that surfaces as an error, never an internal retry.
type Device interface {
	ReadTime() (TimeOfDay, error)
	SetClock(Calendar) error
	ArmAlarm(TimeOfDay) error
}

// Scheduler is the device facade the report cycle uses: it commits synced
// network time and arms the next wake alarm.
type Scheduler struct {
	device Device
	log    *slog.Logger
}

func NewScheduler(device Device, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{device: device, log: log.With("component", "rtc")}
}

// Commit writes a calendar value to the device clock.
func (s *Scheduler) Commit(c Calendar) error {
	if err := s.device.SetClock(c); err != nil {
		return fmt.Errorf("rtc: set clock: %w", err)
	}
	s.log.Info("clock committed", "time", c)
	return nil
}

// Schedule arms the alarm delay after the device's current time and returns
// the armed target. Sub-second precision is dropped; the alarm hardware
// counts whole seconds.
func (s *Scheduler) Schedule(delay time.Duration) (TimeOfDay, error) {
	now, err := s.device.ReadTime()
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("rtc: read time: %w", err)
	}
	target := NextAlarm(now, int(delay/time.Second))
	if err := s.device.ArmAlarm(target); err != nil {
		return TimeOfDay{}, fmt.Errorf("rtc: arm alarm: %w", err)
	}
	s.log.Info("alarm armed", "now", now, "target", target, "delay", delay)
	return target, nil
}
