// Package cmd wires the node agent's command line interface.
package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/nikosgri/sensornode/config"
	"github.com/nikosgri/sensornode/wifi"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sensornode",
	Short: "Agent for an ESP-AT wifi sensor node",
	Long: `Sensornode drives a battery powered sensor node whose radio is an
ESP32 running the ESP-AT firmware on a serial line. The run command loops
the report duty cycle: join the access point, sync the clock, push one
report over UDP, power the modem down and suspend until the wake alarm.
The probe command checks the modem and prints what it finds.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	rootCmd.PersistentFlags().Int("baud", 115200, "Baud rate for serial communication")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

// loadConfig layers the configuration sources for a subcommand run.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(
		config.WithDefaults(),
		config.WithFile(path),
		config.WithEnv(),
		config.WithFlags(cmd.Flags()),
	)
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
}

// startSession dials the modem and starts its receive pump. The returned
// shutdown function cancels the pump, closes the session to unblock a
// pending serial read, and waits for the pump to unwind.
func startSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*wifi.Session, func(), error) {
	wifiConfig, err := wifi.NewConfigBuilder().
		WithProfile(cfg.Profile).
		WithLogger(logger).
		WithDialer(wifi.SerialDialer{
			PortName: cfg.Serial.Port,
			Mode: &serial.Mode{
				BaudRate: cfg.Serial.Baud,
				DataBits: 8,
				Parity:   serial.NoParity,
				StopBits: serial.OneStopBit,
			},
		}).
		Build()
	if err != nil {
		return nil, nil, err
	}

	session, err := wifi.New(ctx, wifiConfig)
	if err != nil {
		return nil, nil, err
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := session.Pump(pumpCtx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
			logger.Error("Receive pump stopped", "error", err)
		}
	}()

	shutdown := func() {
		cancel()
		if err := session.Close(); err != nil && !errors.Is(err, wifi.ErrAlreadyClosed) {
			logger.Error("Failed to close modem", "error", err)
		}
		<-done
	}
	return session, shutdown, nil
}
