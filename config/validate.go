package config

import (
	"fmt"

	"github.com/rwirdemann/modbusrelay"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	l := c.Link
	if l.Device == "" {
		return fmt.Errorf("link: device is required")
	}
	if l.BaudRate <= 0 {
		return fmt.Errorf("link: invalid baud rate %d", l.BaudRate)
	}
	if addr, ok := l.TCPAddress(); ok && addr == "" {
		return fmt.Errorf("link: tcp device without address")
	}
	if l.DataBits < 5 || l.DataBits > 8 {
		return fmt.Errorf("link: invalid data bits %d, must be between 5 and 8", l.DataBits)
	}
	switch l.Parity {
	case "N", "E", "O":
	default:
		return fmt.Errorf("link: invalid parity %q, must be 'N', 'E' or 'O'", l.Parity)
	}
	if l.StopBits != 1 && l.StopBits != 2 {
		return fmt.Errorf("link: invalid stop bits %d, must be 1 or 2", l.StopBits)
	}
	if l.TimeoutMs <= 0 {
		return fmt.Errorf("link: invalid timeout %dms", l.TimeoutMs)
	}

	for i, r := range c.Rules {
		if err := r.validate(); err != nil {
			return fmt.Errorf("rule[%d]: %w", i, err)
		}
	}

	return ValidateRelay(c.Relay.Index)
}

func (r Rule) validate() error {
	switch r.Trigger {
	case "on_read", "on_write", "on_read_write":
	default:
		return fmt.Errorf("invalid trigger %q, must be 'on_read', 'on_write' or 'on_read_write'", r.Trigger)
	}
	switch r.Action {
	case "stick", "invert":
	case "link":
		if r.Target == nil {
			return fmt.Errorf("action 'link' requires a target relay")
		}
		if *r.Target == r.Relay {
			return fmt.Errorf("relay %d linked to itself", r.Relay)
		}
	default:
		return fmt.Errorf("invalid action %q, must be 'stick', 'invert' or 'link'", r.Action)
	}
	return nil
}

// ValidateRelay checks that index addresses a coil inside the bank.
func ValidateRelay(index uint8) error {
	if int(index) >= modbusrelay.BankSize {
		return fmt.Errorf("%w: relay %d, must be between 0 and %d", modbusrelay.ErrRelayOutOfRange, index, modbusrelay.BankSize-1)
	}
	return nil
}
