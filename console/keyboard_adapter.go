package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rwirdemann/modbusrelay"
)

type KeyboardAdapter struct {
	simulator simulatorPort
	protocol  *ProtocolAdapter
}

func NewKeyboardAdapter(simulator simulatorPort, protocol *ProtocolAdapter) *KeyboardAdapter {
	return &KeyboardAdapter{simulator: simulator, protocol: protocol}
}

// Start reads commands until the user quits or stdin is closed; both
// cancel the session.
func (a *KeyboardAdapter) Start(cancel context.CancelFunc) {
	rl, err := readline.New("> ")
	if err != nil {
		slog.Error("failed to open terminal", "err", err)
		return
	}
	defer rl.Close()

	fmt.Fprintln(rl.Stdout(), "Enter 'h' followed by <enter> for help...")
	for {
		input, err := rl.Readline()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, readline.ErrInterrupt) {
				slog.Error("failed to read command", "err", err)
			}
			cancel()
			return
		}
		if a.execute(strings.TrimSpace(input), rl.Stdout()) {
			cancel()
			return
		}
	}
}

// execute runs one command and reports whether the session should end.
func (a *KeyboardAdapter) execute(input string, out io.Writer) bool {
	switch input {
	case "":
	case "quit", "exit", "q":
		fmt.Fprintln(out, "Terminating simulator...")
		return true
	case "status", "s":
		fmt.Fprintln(out, a.simulator.Status())
	case "offline", "off":
		a.simulator.DisconnectSlave()
		fmt.Fprintln(out, "board offline")
	case "online", "on":
		a.simulator.ConnectSlave()
		fmt.Fprintln(out, "board online")
	case "trace", "t":
		a.protocol.Toggle()
	case "help", "h":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  quit/exit/q - Quit simulator")
		fmt.Fprintln(out, "  status/s    - Show relay states")
		fmt.Fprintln(out, "  offline/off - Stop answering requests")
		fmt.Fprintln(out, "  online/on   - Answer requests again")
		fmt.Fprintln(out, "  trace/t     - Toggle wire frame output")
		fmt.Fprintln(out, "  help/h      - Show help")
	default:
		fmt.Fprintf(out, "Unknown command: %s (use 'h' for help)\n", input)
	}
	return false
}

type simulatorPort interface {
	modbusrelay.ControlPort
	Status() string
}
