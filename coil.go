package modbusrelay

import "strings"

const (
	// BankStart is the first coil address of every bank read.
	BankStart uint16 = 0

	// BankSize is the number of coils returned by one bank read. Relay
	// boards answer coil reads byte-aligned, so a single relay is always
	// read together with its seven neighbours.
	BankSize = 8
)

// CoilBank is one read of the coil bank, indexed by relay.
type CoilBank [BankSize]bool

// State returns the state of relay i. Callers validate i against BankSize.
func (b CoilBank) State(i uint8) bool {
	return b[i]
}

func (b CoilBank) String() string {
	var sb strings.Builder
	for i, on := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if on {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// CoilChannel performs the two coil transactions against one slave.
type CoilChannel interface {
	// ReadCoils reads BankSize coils starting at BankStart.
	ReadCoils() (CoilBank, error)

	// WriteCoil switches the coil at index on or off.
	WriteCoil(index uint16, on bool) error
}
