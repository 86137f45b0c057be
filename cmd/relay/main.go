package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/rwirdemann/modbusrelay"
	"github.com/rwirdemann/modbusrelay/config"
	"github.com/rwirdemann/modbusrelay/console"
	"github.com/rwirdemann/modbusrelay/message"
	"github.com/rwirdemann/modbusrelay/rtu"
)

// channel is a coil channel owning the serial port.
type channel interface {
	modbusrelay.CoilChannel
	Close() error
}

type openFunc func() (channel, error)

// argumentError reports malformed positional arguments.
type argumentError struct {
	arg   string
	value string
	err   error
}

func (e *argumentError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.arg, e.value, e.err)
}

func (e *argumentError) Unwrap() error {
	return e.err
}

func main() {
	configFile := flag.String("config", "", "TOML or YAML configuration file")
	debug := flag.Bool("debug", false, "set log level to debug")
	trace := flag.Bool("trace", false, "print Modbus RTU frames")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: relay [flags] [relay] [seconds]\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Switches relay (default %d) on for seconds (default %d).\n", config.DefaultRelay, config.DefaultHoldSeconds)
		fmt.Fprintf(flag.CommandLine.Output(), "The serial device is read from $%s (default %s).\n\n", config.DeviceEnv, config.DefaultDevice)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	cfg, err := loadConfig(*configFile, os.Getenv)
	if err != nil {
		slog.Error("configuration failed", "err", err)
		os.Exit(2)
	}

	relay, hold, err := parseArgs(flag.Args(), cfg.Relay)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	protocol := console.NewProtocolAdapter()
	if *trace {
		protocol.SetLevel(message.TypeEncoded)
	}

	open := func() (channel, error) {
		ch, err := rtu.Open(cfg.Link, cfg.Link.SlaveID)
		if err != nil {
			return nil, err
		}
		if *trace {
			ch.Trace(protocol.TraceWriter())
		}
		return ch, nil
	}

	os.Exit(exitCode(run(open, protocol, relay, hold)))
}

// loadConfig returns the defaults or the given file, with the environment
// applied on top.
func loadConfig(filename string, getenv func(string) string) (*config.Config, error) {
	cfg := config.Default()
	if filename != "" {
		var err error
		if cfg, err = config.Load(filename); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseArgs reads the relay index and the hold duration in seconds. Missing
// arguments fall back to defaults.
func parseArgs(args []string, defaults config.Relay) (uint8, uint16, error) {
	relay, hold := defaults.Index, defaults.HoldSeconds
	if len(args) > 2 {
		return 0, 0, fmt.Errorf("too many arguments: %d", len(args))
	}
	if len(args) > 0 {
		v, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return 0, 0, &argumentError{arg: "relay", value: args[0], err: err}
		}
		relay = uint8(v)
	}
	if len(args) > 1 {
		v, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			return 0, 0, &argumentError{arg: "duration", value: args[1], err: err}
		}
		hold = uint16(v)
	}
	return relay, hold, nil
}

// run opens the channel and pulses relay. Nothing touches the wire unless
// relay is valid and the channel opened.
func run(open openFunc, protocol modbusrelay.ProtocolPort, relay uint8, hold uint16) error {
	if err := config.ValidateRelay(relay); err != nil {
		return err
	}
	protocol.Info(fmt.Sprintf("Turning on relay %d for %d seconds", relay, hold))

	ch, err := open()
	if err != nil {
		return err
	}
	defer func() {
		if err := ch.Close(); err != nil {
			slog.Error("failed to close channel", "err", err)
		}
	}()

	_, err = modbusrelay.NewSequencer(ch, protocol).Run(relay, hold)
	return err
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var connErr *modbusrelay.ConnectionError
	var txErr *modbusrelay.TransactionError
	switch {
	case errors.Is(err, modbusrelay.ErrRelayOutOfRange):
		slog.Error("invalid relay", "err", err)
		return 2
	case errors.As(err, &connErr):
		slog.Error("connection failed", "device", connErr.Device, "err", connErr.Err)
	case errors.As(err, &txErr):
		slog.Error("transaction failed", "op", txErr.Op, "coil", txErr.Index, "err", txErr.Err)
	default:
		slog.Error("relay actuation failed", "err", err)
	}
	return 1
}
