// Command smartcane runs the cane: it reads the mode button and the ranging
// sensor, watches the camera and speaks or vibrates to warn the user.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweeney/smartcane/internal/config"
	"github.com/sweeney/smartcane/internal/log"
)

var (
	flagConfig     string
	flagEnvFile    string
	flagLogLevel   string
	flagDeviceID   string
	flagBroker     string
	flagHTTP       string
	flagModes      string
	flagMinRange   int
	flagVibration  string
	flagNoCamera   bool
	flagPrintState bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "smartcane",
		Short: "Smart cane controller",
		Long: `smartcane drives an assistive cane: a push button cycles the modes,
an ultrasonic sensor measures the distance ahead, a camera detects objects,
and the cane answers with speech and vibration.

Configuration is read from a TOML file, then .env and CANE_* environment
variables, then flags.`,
		SilenceUsage: true,
		RunE:         runCmd,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "TOML configuration file")
	pf.StringVar(&flagEnvFile, "env-file", ".env", "dotenv file with CANE_* overrides (ignored if missing)")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flagDeviceID, "device-id", "", "device id used in MQTT topics")
	pf.StringVar(&flagBroker, "broker", "", "MQTT broker address (empty disables telemetry)")
	pf.StringVar(&flagHTTP, "http", "", `HTTP status address ("off" disables)`)
	pf.StringVar(&flagModes, "modes", "", "comma separated mode cycle, e.g. walk,explore,mixed")
	pf.IntVar(&flagMinRange, "min-range-mm", 0, "discard ranging frames below this distance")
	pf.StringVar(&flagVibration, "vibration", "", "vibration mode (fixed, proportional)")
	pf.BoolVar(&flagNoCamera, "no-camera", false, "run without the camera")

	// Same as the print-state command.
	rootCmd.Flags().BoolVar(&flagPrintState, "print-state", false, "print button and distance, then exit")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the control loop (default)",
			Args:  cobra.NoArgs,
			RunE:  runCmd,
		},
		&cobra.Command{
			Use:   "print-state",
			Short: "Read the button and the ranging sensor once, then exit",
			Args:  cobra.NoArgs,
			RunE:  printStateCmd,
		},
		&cobra.Command{
			Use:   "say <text>",
			Short: "Speak text through the configured speech script",
			Args:  cobra.MinimumNArgs(1),
			RunE:  sayCmd,
		},
	)
	return rootCmd
}

// loadConfig layers flags over the file and environment configuration.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig, flagEnvFile)
	if err != nil {
		return config.Config{}, err
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid flags: %w", err)
	}
	log.Init(cfg.LogLevel)
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if changed("device-id") {
		cfg.DeviceID = flagDeviceID
	}
	if changed("broker") {
		cfg.MQTT.Broker = flagBroker
	}
	if changed("http") {
		cfg.HTTP.Addr = flagHTTP
		if flagHTTP == "off" {
			cfg.HTTP.Addr = ""
		}
	}
	if changed("modes") {
		cfg.Modes = strings.Split(flagModes, ",")
	}
	if changed("min-range-mm") {
		cfg.Sensor.MinRangeMM = flagMinRange
	}
	if changed("vibration") {
		cfg.Vibration.Mode = flagVibration
	}
	if changed("no-camera") && flagNoCamera {
		cfg.Camera.Enabled = false
	}
}

func runCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if flagPrintState {
		return printState(cmd.Context(), cfg, cmd.OutOrStdout())
	}
	return run(cmd.Context(), cfg)
}

func printStateCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return printState(cmd.Context(), cfg, cmd.OutOrStdout())
}

func sayCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return say(cmd.Context(), cfg, strings.Join(args, " "))
}
