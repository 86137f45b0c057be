package modbusrelay

import "github.com/rwirdemann/modbusrelay/message"

// ProtocolPort receives the human-readable protocol of a run.
type ProtocolPort interface {
	InfoX(m message.Message)
	Info(msg string)
	Separator()
}
