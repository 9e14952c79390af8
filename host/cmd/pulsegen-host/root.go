package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pulsegen/host/client"
	"pulsegen/host/config"
	"pulsegen/protocol"
)

var (
	// Profile
	profilePath string

	// Connection flags (override the profile)
	portName      string
	baudRate      int
	backend       string
	clockPeriodNs float64

	// Units
	useNs bool
)

var rootCmd = &cobra.Command{
	Use:   "pulsegen-host",
	Short: "Configure a PIO pulse generator",
	Long: `pulsegen-host reads and writes the timing parameters of a pulse generator
connected over USB CDC or a UART.

Parameters: offset (o), length (l), spacing (s), repeats (r). Values are engine
clock cycles unless --ns is given, which needs the engine clock period from
--clock-period-ns or the profile's clock_period_ns.

Connection settings come from the YAML profile given with --config; flags
override it.`,
	Version:       protocol.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profilePath, "config", "c", "", "YAML profile")
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", config.DefaultBaud, "Baud rate (ignored for USB CDC)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", config.DefaultBackend, "Serial backend: tarm or bugst")
	rootCmd.PersistentFlags().Float64Var(&clockPeriodNs, "clock-period-ns", 0, "Engine clock period for --ns")
	rootCmd.PersistentFlags().BoolVar(&useNs, "ns", false, "Use nanoseconds instead of clock cycles")
}

// loadProfile builds the effective configuration from the profile and flags.
func loadProfile(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{}
	if profilePath != "" {
		loaded, err := config.Load(profilePath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Device.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Device.Baud = baudRate
	}
	if flags.Changed("backend") {
		cfg.Device.Backend = backend
	}
	if flags.Changed("clock-period-ns") {
		cfg.Device.ClockPeriodNs = clockPeriodNs
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	if cfg.Device.Port == "" {
		return nil, fmt.Errorf("no serial port: use --port or set device.port in the profile")
	}
	return cfg, nil
}

// connect opens a client for the effective configuration.
func connect(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := loadProfile(cmd)
	if err != nil {
		return nil, err
	}
	c, err := client.Open(cfg)
	if err != nil {
		return nil, err
	}
	if useNs && c.Units().ClockPeriodNs == 0 {
		c.Close()
		return nil, client.ErrNoClockPeriod
	}
	return c, nil
}
