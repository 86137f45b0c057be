package modbusrelay

import (
	"fmt"
	"log/slog"
	"time"
)

// Step is one stage of an actuation run.
type Step int

const (
	ReadInitial Step = iota
	SetOn
	ReadAfterOn
	Hold
	SetOff
	ReadAfterOff
	Done
)

var stepNames = [...]string{
	ReadInitial:  "read-initial",
	SetOn:        "set-on",
	ReadAfterOn:  "read-after-on",
	Hold:         "hold",
	SetOff:       "set-off",
	ReadAfterOff: "read-after-off",
	Done:         "done",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// Result is what a run observed. The states are reported only; the run never
// branches on them.
type Result struct {
	// Step is the last step entered. Done after a complete run, otherwise
	// the step that failed.
	Step     Step
	Initial  bool
	AfterOn  bool
	AfterOff bool
}

// Sequencer pulses a single relay: read, on, read, hold, off, read.
type Sequencer struct {
	channel      CoilChannel
	protocolPort ProtocolPort
	sleep        func(time.Duration)
}

func NewSequencer(channel CoilChannel, protocolPort ProtocolPort) *Sequencer {
	return &Sequencer{channel: channel, protocolPort: protocolPort, sleep: time.Sleep}
}

// Run drives relay through the fixed step sequence. The hold between the
// on and off writes blocks the caller and cannot be interrupted.
//
// The first failing step aborts the run and its channel error is returned
// as is. Nothing is undone: a relay switched on before a failure stays on.
func (s *Sequencer) Run(relay uint8, holdSeconds uint16) (Result, error) {
	res := Result{Step: ReadInitial}
	if int(relay) >= BankSize {
		return res, fmt.Errorf("%w: relay %d, bank holds relays 0-%d", ErrRelayOutOfRange, relay, BankSize-1)
	}

	steps := []struct {
		step Step
		run  func() error
	}{
		{ReadInitial, func() (err error) {
			res.Initial, err = s.readState(relay)
			return err
		}},
		{SetOn, func() error {
			return s.setState(relay, true)
		}},
		{ReadAfterOn, func() (err error) {
			res.AfterOn, err = s.readState(relay)
			return err
		}},
		{Hold, func() error {
			s.hold(holdSeconds)
			return nil
		}},
		{SetOff, func() error {
			return s.setState(relay, false)
		}},
		{ReadAfterOff, func() (err error) {
			res.AfterOff, err = s.readState(relay)
			return err
		}},
	}

	for _, st := range steps {
		res.Step = st.step
		slog.Debug("actuation step", "relay", relay, "step", st.step)
		if err := st.run(); err != nil {
			slog.Debug("actuation aborted", "relay", relay, "step", st.step, "error", err)
			return res, err
		}
	}

	res.Step = Done
	return res, nil
}

func (s *Sequencer) readState(relay uint8) (bool, error) {
	s.protocolPort.Info(fmt.Sprintf("Reading relay %d state", relay))
	bank, err := s.channel.ReadCoils()
	if err != nil {
		return false, err
	}
	slog.Debug("coil bank read", "bank", bank.String())

	state := bank.State(relay)
	s.protocolPort.Info(fmt.Sprintf("Relay %d state is: %t", relay, state))
	return state, nil
}

func (s *Sequencer) setState(relay uint8, on bool) error {
	label := "OFF"
	if on {
		label = "ON"
	}
	s.protocolPort.Info(fmt.Sprintf("Setting relay %d to %s", relay, label))
	return s.channel.WriteCoil(uint16(relay), on)
}

func (s *Sequencer) hold(seconds uint16) {
	s.protocolPort.Info(fmt.Sprintf("Waiting for %d seconds", seconds))
	if seconds == 0 {
		return
	}
	s.sleep(time.Duration(seconds) * time.Second)
}
