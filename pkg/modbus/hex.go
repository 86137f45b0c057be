package modbus

import (
	"fmt"
	"strconv"
	"strings"
)

// Hex is a flag.Value for addresses and unit ids given in decimal or with
// a 0x prefix.
type Hex uint16

func NewHex(value string) (*Hex, error) {
	var h = new(Hex)
	if err := h.Set(value); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Hex) Uint16() uint16 {
	return uint16(*h)
}

// UnitID returns h as a Modbus unit id.
func (h *Hex) UnitID() (uint8, error) {
	if *h > 0xFF {
		return 0, fmt.Errorf("unit id %s exceeds 0xFF", h)
	}
	return uint8(*h), nil
}

func (h *Hex) Set(value string) error {
	value = strings.TrimSpace(value)
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return fmt.Errorf("invalid hex address: %v", err)
	}
	*h = Hex(addr)
	return nil
}

func (h *Hex) String() string {
	return fmt.Sprintf("0x%X", uint64(*h))
}
