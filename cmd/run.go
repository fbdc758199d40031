package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/spf13/cobra"

	"github.com/nikosgri/sensornode/config"
	"github.com/nikosgri/sensornode/diag"
	"github.com/nikosgri/sensornode/power"
	"github.com/nikosgri/sensornode/rtc"
	"github.com/nikosgri/sensornode/sensor"
	"github.com/nikosgri/sensornode/wifi"
	"github.com/nikosgri/sensornode/workflow"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the report duty cycle",
	Long: `Run loops the node's duty cycle: sample the sensor, walk the report
state machine, then suspend until the wake alarm fires. It exits on SIGINT
or SIGTERM.`,
	RunE: runNode,
}

func init() {
	runCmd.Flags().Bool("once", false, "Run a single report cycle and exit")
	runCmd.Flags().String("debug-addr", "", "Serve the diagnostics endpoint on this address")
	rootCmd.AddCommand(runCmd)
}

func runNode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
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

	logger.Info("Starting sensor node", "serial", cfg.Serial.Port, "server", cfg.Server.Host)

	// Bring the modem out of light sleep and quiet the command echo. A
	// failure here is not fatal: the first cycle fails and the node
	// retries after the sleep interval like any other bad wake.
	if err := session.Wake(); err != nil {
		logger.Warn("Modem wake failed", "error", err)
	}
	if err := session.EchoOff(); err != nil {
		logger.Warn("Echo off failed", "error", err)
	}

	if err := seedIdentifier(session, cfg, logger); err != nil {
		return err
	}

	if addr, _ := cmd.Flags().GetString("debug-addr"); addr != "" {
		stopDiag := startDiag(addr, session, logger)
		defer stopDiag()
	}

	var reader sensor.Reader = sensor.Fixed(0)
	if cfg.Sensor.Enabled {
		modbusReader, err := sensor.NewModbusReader(sensor.ModbusConfig{
			Port:     cfg.Sensor.Port,
			BaudRate: cfg.Sensor.Baud,
			SlaveID:  cfg.Sensor.SlaveID,
			Register: cfg.Sensor.Register,
		})
		if err != nil {
			return err
		}
		defer modbusReader.Close()
		reader = modbusReader
	}

	sim := rtc.NewSimulator()
	defer sim.Stop()
	scheduler := rtc.NewScheduler(sim, logger)
	sleeper := power.NewAlarmSleeper(sim.Alarm(), power.Hooks{}, logger)

	sleepAfter := time.Duration(cfg.Cycle.SleepSeconds) * time.Second
	node := workflow.NewNode(session, scheduler, workflow.Settings{
		SSID:       cfg.Wifi.SSID,
		Password:   cfg.Wifi.Password,
		ServerHost: cfg.Server.Host,
		ServerPort: cfg.Server.Port,
		Timezone:   cfg.Cycle.Timezone,
		NTPServer:  cfg.Cycle.NTPServer,
		SleepAfter: sleepAfter,
	}, logger)
	engine := workflow.NewEngine(node.Table(), cfg.Cycle.MaxRetries, logger)

	once, err := cmd.Flags().GetBool("once")
	if err != nil {
		return err
	}

	for {
		if value, err := reader.Read(); err != nil {
			logger.Warn("Sensor read failed", "error", err)
		} else {
			session.SetSensorValue(value)
		}

		// Refresh the link state so the connect handler can skip the join
		// when the association survived the sleep.
		if _, err := session.QueryState(); err != nil {
			logger.Warn("State query failed", "error", err)
		}

		runErr := engine.Run(ctx)
		if ctx.Err() != nil {
			logger.Info("Received shutdown signal")
			return nil
		}
		if runErr != nil {
			logger.Error("Report cycle failed", "error", runErr)
		}

		if once {
			return runErr
		}

		// An abandoned run never reached the power-down handler, so no
		// wake alarm is armed. Arm one here or the suspend below would
		// never return.
		if runErr != nil {
			if _, err := scheduler.Schedule(sleepAfter); err != nil {
				return fmt.Errorf("arm recovery alarm: %w", err)
			}
		}

		if err := power.Cycle(ctx, sleeper); err != nil {
			if ctx.Err() != nil {
				logger.Info("Received shutdown signal")
				return nil
			}
			return err
		}

		if err := session.Wake(); err != nil {
			logger.Warn("Modem wake failed", "error", err)
		}
	}
}

// seedIdentifier makes sure the report payload will carry a node id: the
// configured override first, then the modem MAC, then the host machine id.
func seedIdentifier(session *wifi.Session, cfg *config.Config, logger *slog.Logger) error {
	if cfg.NodeID != "" {
		session.SetHardwareID(cfg.NodeID)
		return nil
	}
	if _, err := session.QueryHardwareID(); err != nil {
		logger.Warn("Modem MAC unavailable", "error", err)
		id, idErr := machineid.ID()
		if idErr != nil {
			return fmt.Errorf("no node identifier available: %w", idErr)
		}
		session.SetHardwareID(id)
	}
	return nil
}

func startDiag(addr string, session *wifi.Session, logger *slog.Logger) func() {
	server := &http.Server{
		Addr: addr,
		Handler: &diag.Server{
			Logger: logger.With("component", "diag"),
			Source: session,
		},
	}

	go func() {
		logger.Info("Starting debug endpoint", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Debug endpoint failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Failed to gracefully shutdown debug endpoint", "error", err)
		}
	}
}
