package rtc_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikosgri/sensornode/rtc"
)

func TestBCD(t *testing.T) {
	cases := []struct {
		bin int
		bcd byte
	}{
		{0, 0x00},
		{5, 0x05},
		{9, 0x09},
		{10, 0x10},
		{24, 0x24},
		{45, 0x45},
		{59, 0x59},
		{99, 0x99},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.bcd, rtc.ToBCD(tc.bin), "encode %d", tc.bin)
		assert.Equal(t, tc.bin, rtc.FromBCD(tc.bcd), "decode %#x", tc.bcd)
	}
}

func TestNextAlarm(t *testing.T) {
	t.Run("Zero delay is the current time", func(t *testing.T) {
		for _, current := range []rtc.TimeOfDay{
			rtc.NewTimeOfDay(0, 0, 0),
			rtc.NewTimeOfDay(12, 34, 56),
			rtc.NewTimeOfDay(23, 59, 59),
		} {
			assert.Equal(t, current, rtc.NextAlarm(current, 0), "from %s", current)
		}
	})

	t.Run("Components stay in range for every delay below a day", func(t *testing.T) {
		current := rtc.NewTimeOfDay(20, 45, 0)
		delays := []int{0, 1, 59, 60, 61, 3599, 3600, 3661, 43200, 86399}
		for d := 0; d < 86400; d += 97 {
			delays = append(delays, d)
		}
		for _, d := range delays {
			hour, minute, second := rtc.NextAlarm(current, d).Clock()
			if hour > 23 || minute > 59 || second > 59 {
				t.Fatalf("delay %d: %02d:%02d:%02d out of range", d, hour, minute, second)
			}
		}
	})

	t.Run("Additivity modulo a day", func(t *testing.T) {
		times := []rtc.TimeOfDay{
			rtc.NewTimeOfDay(0, 0, 0),
			rtc.NewTimeOfDay(8, 20, 45),
			rtc.NewTimeOfDay(23, 59, 59),
		}
		pairs := [][2]int{
			{1, 1}, {59, 1}, {1800, 1800}, {3599, 3661},
			{43200, 43200}, {86399, 86399}, {86399, 1},
		}
		for _, current := range times {
			for _, p := range pairs {
				chained := rtc.NextAlarm(rtc.NextAlarm(current, p[0]), p[1])
				direct := rtc.NextAlarm(current, (p[0]+p[1])%86400)
				assert.Equal(t, direct, chained, "from %s, delays %d then %d", current, p[0], p[1])
			}
		}
	})

	t.Run("Midnight wraps the hour without advancing the date", func(t *testing.T) {
		got := rtc.NextAlarm(rtc.NewTimeOfDay(23, 59, 59), 2)
		assert.Equal(t, rtc.NewTimeOfDay(0, 0, 1), got)
	})

	t.Run("Half hour report interval", func(t *testing.T) {
		got := rtc.NextAlarm(rtc.NewTimeOfDay(20, 45, 0), 1800)
		assert.Equal(t, rtc.NewTimeOfDay(21, 15, 0), got)
	})
}

func TestNewCalendar(t *testing.T) {
	c := rtc.NewCalendar(2025, time.August, 21, time.Thursday, 14, 6, 30)

	assert.Equal(t, byte(0x25), c.Year)
	assert.Equal(t, byte(0x08), c.Month)
	assert.Equal(t, byte(0x21), c.Day)
	assert.Equal(t, byte(4), c.Weekday)
	assert.Equal(t, byte(0x14), c.Hour)
	assert.Equal(t, byte(0x06), c.Minute)
	assert.Equal(t, byte(0x30), c.Second)

	t.Run("Weekday is Monday-first", func(t *testing.T) {
		monday := rtc.NewCalendar(2025, time.August, 25, time.Monday, 0, 0, 0)
		assert.Equal(t, byte(1), monday.Weekday)

		sunday := rtc.NewCalendar(2025, time.August, 24, time.Sunday, 0, 0, 0)
		assert.Equal(t, byte(7), sunday.Weekday)
	})
}

type stubDevice struct {
	now     rtc.TimeOfDay
	armed   []rtc.TimeOfDay
	set     []rtc.Calendar
	readErr error
	armErr  error
	setErr  error
}

func (d *stubDevice) ReadTime() (rtc.TimeOfDay, error) {
	return d.now, d.readErr
}

func (d *stubDevice) SetClock(c rtc.Calendar) error {
	if d.setErr != nil {
		return d.setErr
	}
	d.set = append(d.set, c)
	return nil
}

func (d *stubDevice) ArmAlarm(t rtc.TimeOfDay) error {
	if d.armErr != nil {
		return d.armErr
	}
	d.armed = append(d.armed, t)
	return nil
}

func TestScheduler(t *testing.T) {
	t.Run("Arms the computed target", func(t *testing.T) {
		dev := &stubDevice{now: rtc.NewTimeOfDay(10, 0, 0)}
		s := rtc.NewScheduler(dev, nil)

		target, err := s.Schedule(30 * time.Minute)
		require.NoError(t, err)
		assert.Equal(t, rtc.NewTimeOfDay(10, 30, 0), target)
		require.Len(t, dev.armed, 1)
		assert.Equal(t, target, dev.armed[0])
	})

	t.Run("Read failure propagates", func(t *testing.T) {
		readErr := errors.New("clock not ready")
		dev := &stubDevice{readErr: readErr}
		s := rtc.NewScheduler(dev, nil)

		_, err := s.Schedule(time.Minute)
		require.Error(t, err)
		assert.True(t, errors.Is(err, readErr))
		assert.Empty(t, dev.armed)
	})

	t.Run("Arm failure propagates", func(t *testing.T) {
		armErr := errors.New("no writable window")
		dev := &stubDevice{now: rtc.NewTimeOfDay(10, 0, 0), armErr: armErr}
		s := rtc.NewScheduler(dev, nil)

		_, err := s.Schedule(time.Minute)
		require.Error(t, err)
		assert.True(t, errors.Is(err, armErr))
	})

	t.Run("Commit writes the device clock", func(t *testing.T) {
		dev := &stubDevice{}
		s := rtc.NewScheduler(dev, nil)

		c := rtc.NewCalendar(2025, time.August, 21, time.Thursday, 14, 6, 30)
		require.NoError(t, s.Commit(c))
		require.Len(t, dev.set, 1)
		assert.Equal(t, c, dev.set[0])
	})

	t.Run("Commit failure propagates", func(t *testing.T) {
		setErr := errors.New("bus stuck")
		dev := &stubDevice{setErr: setErr}
		s := rtc.NewScheduler(dev, nil)

		err := s.Commit(rtc.Calendar{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, setErr))
	})
}
