package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rwirdemann/modbusrelay"
	"github.com/rwirdemann/modbusrelay/board"
	"github.com/rwirdemann/modbusrelay/config"
	"github.com/rwirdemann/modbusrelay/console"
	"github.com/rwirdemann/modbusrelay/message"
	"github.com/rwirdemann/modbusrelay/pkg/modbus"
	"github.com/rwirdemann/modbusrelay/rtu"
	"github.com/rwirdemann/modbusrelay/tcp"
)

func main() {
	configFile := flag.String("config", "", "TOML or YAML configuration file")
	device := flag.String("device", "/tmp/virtualcom1", "serial device or tcp://host:port the simulated board listens on")
	slave := modbus.Hex(config.DefaultSlaveID)
	flag.Var(&slave, "slave", "unit id of the simulated board, decimal or 0x prefixed")
	coils := flag.Int("coils", modbusrelay.BankSize, "number of relays on the board")
	stuck := flag.String("stuck", "", "comma separated relays that acknowledge writes without switching")
	debug := flag.Bool("debug", false, "set log level to debug")
	flag.Parse()

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			slog.Error("configuration failed", "err", err)
			os.Exit(2)
		}
	}
	cfg.Link.Device = *device
	unitID, err := slave.UnitID()
	if err != nil {
		slog.Error("invalid slave", "err", err)
		os.Exit(2)
	}
	stuckRelays, err := parseRelayList(*stuck)
	if err != nil {
		slog.Error("invalid stuck relays", "err", err)
		os.Exit(2)
	}

	protocol := console.NewProtocolAdapter()
	protocol.SetLevel(message.TypeEncoded)

	b := board.New(unitID, *coils, protocol)
	for _, rule := range cfg.Rules {
		b.AddRule(rule)
	}
	for _, r := range stuckRelays {
		b.Stick(r)
	}

	transport, err := newTransport(cfg.Link, protocol)
	if err != nil {
		slog.Error("invalid device", "err", err)
		os.Exit(2)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := transport.Start(ctx, b.Process); err != nil {
		slog.Error("failed to start simulator", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := transport.Stop(); err != nil {
			slog.Error("failed to stop simulator", "err", err)
		}
	}()

	protocol.Println(fmt.Sprintf("relay board %s with %d relays listening on %s", slave.String(), *coils, transport.Description()))
	go console.NewKeyboardAdapter(b, protocol).Start(cancel)

	<-ctx.Done()
}

// newTransport listens on a serial device or, for tcp:// devices, on a TCP
// address like a serial to Ethernet gateway.
func newTransport(link config.Link, protocol modbusrelay.ProtocolPort) (modbusrelay.TransportHandler, error) {
	if _, ok := link.TCPAddress(); ok {
		h, err := tcp.NewHandler(link.Device, protocol)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	return rtu.NewHandler(link, protocol), nil
}

// parseRelayList parses "1,3,5" into relay addresses.
func parseRelayList(s string) ([]uint16, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var relays []uint16
	for _, field := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(field), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("relay %q: %w", field, err)
		}
		relays = append(relays, uint16(v))
	}
	return relays, nil
}
