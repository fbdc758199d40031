// Package power models the node's low-power path between report cycles:
// quiesce, suspend until the wake signal, restore. Physical sleep entry
// belongs to the platform; this package owns the sequencing.
package power

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nikosgri/sensornode/rtc"
)

// ErrNoAlarmSource is returned by Sleep when the sleeper was built without
// a wake signal. Suspending with no way back is never what the caller
// wants.
var ErrNoAlarmSource = errors.New("no alarm source configured")

// Service is the low-power entry owned by the duty cycle. PrepareSleep
// quiesces whatever must not run while suspended, Sleep blocks until the
// wake signal, Wake restores.
type Service interface {
	PrepareSleep() error
	Sleep(ctx context.Context) error
	Wake() error
}

// Hooks let the cycle hang work off the suspend edges, like flushing the
// sensor bus before sleep or reopening it after.
type Hooks struct {
	OnPrepare func() error
	OnWake    func() error
}

// AlarmSleeper suspends the cycle until the clock device's alarm fires.
type AlarmSleeper struct {
	alarm <-chan rtc.TimeOfDay
	hooks Hooks
	log   *slog.Logger
}

func NewAlarmSleeper(alarm <-chan rtc.TimeOfDay, hooks Hooks, log *slog.Logger) *AlarmSleeper {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &AlarmSleeper{
		alarm: alarm,
		hooks: hooks,
		log:   log.With("component", "power"),
	}
}

func (s *AlarmSleeper) PrepareSleep() error {
	if s.hooks.OnPrepare != nil {
		if err := s.hooks.OnPrepare(); err != nil {
			return err
		}
	}
	s.log.Info("suspending")
	return nil
}

// Sleep blocks until the wake alarm fires or the context ends.
func (s *AlarmSleeper) Sleep(ctx context.Context) error {
	if s.alarm == nil {
		return fmt.Errorf("power: %w", ErrNoAlarmSource)
	}
	select {
	case at := <-s.alarm:
		s.log.Info("alarm fired", "at", at.String())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AlarmSleeper) Wake() error {
	s.log.Info("resuming")
	if s.hooks.OnWake != nil {
		return s.hooks.OnWake()
	}
	return nil
}

// Cycle runs one full suspend: prepare, sleep, wake. The wake step runs
// even when the sleep was cut short, so a cancelled run still restores
// the node before the error surfaces.
func Cycle(ctx context.Context, svc Service) error {
	if err := svc.PrepareSleep(); err != nil {
		return fmt.Errorf("power: prepare sleep: %w", err)
	}
	sleepErr := svc.Sleep(ctx)
	if err := svc.Wake(); err != nil {
		return fmt.Errorf("power: wake: %w", err)
	}
	if sleepErr != nil {
		return fmt.Errorf("power: sleep: %w", sleepErr)
	}
	return nil
}
