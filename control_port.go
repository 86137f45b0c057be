package modbusrelay

// ControlPort switches a simulated slave on and off the bus.
type ControlPort interface {
	ConnectSlave()
	DisconnectSlave()
	Connected() bool
}
