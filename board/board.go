package board

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rwirdemann/modbusrelay"
	"github.com/rwirdemann/modbusrelay/config"
	"github.com/rwirdemann/modbusrelay/encoding"
	"github.com/rwirdemann/modbusrelay/message"
	"github.com/rwirdemann/modbusrelay/rules"
)

// maxReadQuantity is the largest FC1 quantity a request may ask for.
const maxReadQuantity = 2000

// Board simulates a relay board: one slave whose relays are coils.
type Board struct {
	unitID       uint8
	coils        []bool
	rules        *rules.Engine
	connected    bool
	protocolPort modbusrelay.ProtocolPort
	mu           sync.Mutex
}

// New creates a connected board with coilCount relays, all off.
func New(unitID uint8, coilCount int, protocolPort modbusrelay.ProtocolPort) *Board {
	return &Board{
		unitID:       unitID,
		coils:        make([]bool, coilCount),
		rules:        rules.NewEngine(nil),
		connected:    true,
		protocolPort: protocolPort,
	}
}

// AddRule installs a fault rule, see package rules.
func (b *Board) AddRule(rule config.Rule) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rules.Add(rule)
}

// Stick makes relay addr ignore writes. The board still acknowledges them.
func (b *Board) Stick(addr uint16) {
	b.AddRule(config.Rule{Relay: addr, Trigger: string(rules.TriggerOnWrite), Action: rules.ActionStick})
}

// Coil returns the state of relay addr.
func (b *Board) Coil(addr uint16) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(addr) >= len(b.coils) {
		return false
	}
	return b.coils[addr]
}

func (b *Board) ConnectSlave() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	slog.Debug("board connected", "unitID", b.unitID)
}

func (b *Board) DisconnectSlave() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	slog.Debug("board disconnected", "unitID", b.unitID)
}

func (b *Board) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// Process answers a request PDU. Requests for other unit ids and requests
// arriving while the board is disconnected stay unanswered.
func (b *Board) Process(pdu modbusrelay.PDU) *modbusrelay.PDU {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pdu.UnitId != b.unitID {
		slog.Debug("request for other unit", "unitID", pdu.UnitId)
		return nil
	}
	if !b.connected {
		b.protocolPort.Info(fmt.Sprintf("board %d is offline", b.unitID))
		return nil
	}
	if len(pdu.Payload) < 4 {
		return modbusrelay.NewException(pdu, modbusrelay.ExceptionIllegalDataValue)
	}

	switch pdu.FunctionCode {
	case modbusrelay.FC1ReadCoils:
		return b.processFC1(pdu)
	case modbusrelay.FC5WriteSingleCoil:
		return b.processFC5(pdu)
	}
	b.protocolPort.Info(fmt.Sprintf("FC=%d not supported by relay board", pdu.FunctionCode))
	return modbusrelay.NewException(pdu, modbusrelay.ExceptionIllegalFunction)
}

// Response Payload: [Byte Count] [Status Byte 1] [Status Byte 2] ... Each
// status byte contains up to 8 coils.
func (b *Board) processFC1(pdu modbusrelay.PDU) *modbusrelay.PDU {
	startAddr := encoding.BytesToUint16(pdu.Payload[0:2])
	quantity := encoding.BytesToUint16(pdu.Payload[2:4])
	b.protocolPort.InfoX(message.NewPlain(fmt.Sprintf("FC=%d UnitID=%d Address=0x%X Quantity=%d", pdu.FunctionCode, pdu.UnitId, startAddr, quantity)))

	if quantity == 0 || quantity > maxReadQuantity {
		return modbusrelay.NewException(pdu, modbusrelay.ExceptionIllegalDataValue)
	}
	if int(startAddr)+int(quantity) > len(b.coils) {
		return modbusrelay.NewException(pdu, modbusrelay.ExceptionIllegalDataAddress)
	}

	values := make([]bool, quantity)
	for i := range values {
		addr := startAddr + uint16(i)
		values[i] = b.rules.ApplyRead(addr, b.coils[addr])
	}
	res := &modbusrelay.PDU{
		UnitId:       pdu.UnitId,
		FunctionCode: pdu.FunctionCode,
		Payload:      []byte{uint8(encoding.ByteCount(len(values)))},
	}
	res.Payload = append(res.Payload, encoding.EncodeBools(values)...)
	return res
}

// FC5 payload format: [coilAddr(2 bytes)][value(2 bytes)]. Value is 0xFF00
// for ON, 0x0000 for OFF.
func (b *Board) processFC5(pdu modbusrelay.PDU) *modbusrelay.PDU {
	addr := encoding.BytesToUint16(pdu.Payload[0:2])
	value := encoding.BytesToUint16(pdu.Payload[2:4])

	if value != modbusrelay.CoilOn && value != modbusrelay.CoilOff {
		return modbusrelay.NewException(pdu, modbusrelay.ExceptionIllegalDataValue)
	}
	if int(addr) >= len(b.coils) {
		return modbusrelay.NewException(pdu, modbusrelay.ExceptionIllegalDataAddress)
	}

	on := value == modbusrelay.CoilOn
	state := b.rules.ApplyWrite(addr, on, b.coils)
	b.coils[addr] = state
	if state == on {
		b.protocolPort.Info(fmt.Sprintf("relay %d switched %s", addr, onOff(on)))
	} else {
		b.protocolPort.Info(fmt.Sprintf("relay %d commanded %s, is %s (%s)", addr, onOff(on), onOff(state), b.rules.Describe(addr)))
	}

	// FC5 response: echo back the request (coil address + value)
	return &modbusrelay.PDU{
		UnitId:       pdu.UnitId,
		FunctionCode: pdu.FunctionCode,
		Payload:      pdu.Payload[0:4],
	}
}

// Status describes the board for the console.
func (b *Board) Status() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	connectStatus := "disconnected"
	if b.connected {
		connectStatus = "connected"
	}
	status := fmt.Sprintf("Unit %d: %s", b.unitID, connectStatus)
	for addr, on := range b.coils {
		status += fmt.Sprintf("\n  - Relay %d: %s", addr, onOff(on))
		if note := b.rules.Describe(uint16(addr)); note != "" {
			status += " (" + note + ")"
		}
	}
	return status + b.rules.Status()
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
