package message

// Type orders messages by verbosity. A console configured for a given Type
// prints every message up to and including it.
type Type int

const (
	TypePlain Type = iota
	TypeEncoded
)

type Message interface {
	String() string
	Type() Type
}

// Plain is a human-readable progress line.
type Plain struct {
	Value string
}

func NewPlain(value string) Plain {
	return Plain{Value: value}
}

func (m Plain) String() string {
	return m.Value
}

func (m Plain) Type() Type {
	return TypePlain
}

// Encoded carries raw wire data, e.g. an RTU frame dump.
type Encoded struct {
	Value string
}

func NewEncoded(value string) Encoded {
	return Encoded{Value: value}
}

func (m Encoded) String() string {
	return m.Value
}

func (m Encoded) Type() Type {
	return TypeEncoded
}
