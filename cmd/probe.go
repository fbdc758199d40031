package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nikosgri/sensornode/wifi"
)

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check the modem and print what it reports",
	Long: `Probe wakes the modem and walks the bring-up diagnostics: liveness,
sleep mode, station state, hardware address and signal strength. It never
joins an access point or opens a connection, so it is safe to run against
a node in the field.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, shutdown, err := startSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer shutdown()

	var state wifi.ConnState
	checks := []struct {
		name string
		run  func() (string, error)
	}{
		{"wake", func() (string, error) {
			if err := session.Wake(); err != nil {
				return "", err
			}
			return "awake", nil
		}},
		{"echo", func() (string, error) {
			if err := session.EchoOff(); err != nil {
				return "", err
			}
			return "off", nil
		}},
		{"modem", func() (string, error) {
			if err := session.Check(); err != nil {
				return "", err
			}
			return "OK", nil
		}},
		{"sleep mode", func() (string, error) {
			mode, err := session.SleepMode()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d", mode), nil
		}},
		{"state", func() (string, error) {
			s, err := session.QueryState()
			if err != nil {
				return "", err
			}
			state = s
			if ssid := session.Status().SSID; ssid != "" {
				return fmt.Sprintf("%s %q", s, ssid), nil
			}
			return s.String(), nil
		}},
		{"mac", func() (string, error) {
			return session.QueryHardwareID()
		}},
		{"rssi", func() (string, error) {
			if state != wifi.StateConnected {
				return "skipped, not joined", nil
			}
			rssi, err := session.QueryRSSI()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d dBm", rssi), nil
		}},
	}

	failed := 0
	for _, check := range checks {
		detail, err := check.run()
		if err != nil {
			failed++
			fmt.Printf("%-12s FAIL  %v\n", check.name, err)
			continue
		}
		fmt.Printf("%-12s %s\n", check.name, detail)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	return nil
}
