package board

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rwirdemann/modbusrelay"
	"github.com/rwirdemann/modbusrelay/config"
	"github.com/rwirdemann/modbusrelay/message"
)

type nopPort struct{}

func (nopPort) InfoX(message.Message) {}
func (nopPort) Info(string)           {}
func (nopPort) Separator()            {}

func readReq(unitID uint8, addr, qty uint16) modbusrelay.PDU {
	return modbusrelay.PDU{
		UnitId:       unitID,
		FunctionCode: modbusrelay.FC1ReadCoils,
		Payload:      []byte{byte(addr >> 8), byte(addr), byte(qty >> 8), byte(qty)},
	}
}

func writeReq(unitID uint8, addr, value uint16) modbusrelay.PDU {
	return modbusrelay.PDU{
		UnitId:       unitID,
		FunctionCode: modbusrelay.FC5WriteSingleCoil,
		Payload:      []byte{byte(addr >> 8), byte(addr), byte(value >> 8), byte(value)},
	}
}

func TestProcess_WriteThenRead(t *testing.T) {
	b := New(255, 8, nopPort{})

	res := b.Process(writeReq(255, 3, modbusrelay.CoilOn))
	if res == nil || res.IsException() {
		t.Fatalf("write rejected: %v", res)
	}
	if !bytes.Equal(res.Payload, []byte{0x00, 0x03, 0xFF, 0x00}) {
		t.Fatalf("write response not an echo: % X", res.Payload)
	}

	res = b.Process(writeReq(255, 7, modbusrelay.CoilOn))
	if res == nil || res.IsException() {
		t.Fatalf("write rejected: %v", res)
	}

	res = b.Process(readReq(255, 0, 8))
	if res == nil || res.IsException() {
		t.Fatalf("read rejected: %v", res)
	}
	if !bytes.Equal(res.Payload, []byte{0x01, 0x88}) {
		t.Fatalf("read payload = % X, want 01 88", res.Payload)
	}
}

func TestProcess_Exceptions(t *testing.T) {
	tests := []struct {
		name string
		req  modbusrelay.PDU
		code uint8
	}{
		{"write past last relay", writeReq(1, 8, modbusrelay.CoilOn), modbusrelay.ExceptionIllegalDataAddress},
		{"invalid coil value", writeReq(1, 0, 0x1234), modbusrelay.ExceptionIllegalDataValue},
		{"read past bank", readReq(1, 4, 8), modbusrelay.ExceptionIllegalDataAddress},
		{"read nothing", readReq(1, 0, 0), modbusrelay.ExceptionIllegalDataValue},
		{"unsupported function", modbusrelay.PDU{UnitId: 1, FunctionCode: 0x06, Payload: []byte{0, 0, 0, 1}}, modbusrelay.ExceptionIllegalFunction},
		{"short payload", modbusrelay.PDU{UnitId: 1, FunctionCode: modbusrelay.FC1ReadCoils, Payload: []byte{0}}, modbusrelay.ExceptionIllegalDataValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(1, 8, nopPort{})
			res := b.Process(tt.req)
			if res == nil || !res.IsException() {
				t.Fatalf("expected exception, got %v", res)
			}
			if res.FunctionCode != tt.req.FunctionCode|0x80 {
				t.Fatalf("fc = %#x", res.FunctionCode)
			}
			if res.Payload[0] != tt.code {
				t.Fatalf("exception code = %d, want %d", res.Payload[0], tt.code)
			}
		})
	}
}

func TestProcess_OtherUnitIgnored(t *testing.T) {
	b := New(1, 8, nopPort{})
	if res := b.Process(writeReq(2, 0, modbusrelay.CoilOn)); res != nil {
		t.Fatalf("answered request for unit 2: %v", res)
	}
	if b.Coil(0) {
		t.Fatalf("relay switched by foreign request")
	}
}

func TestProcess_Offline(t *testing.T) {
	b := New(1, 8, nopPort{})
	b.DisconnectSlave()
	if b.Connected() {
		t.Fatalf("still connected")
	}
	if res := b.Process(readReq(1, 0, 8)); res != nil {
		t.Fatalf("offline board answered: %v", res)
	}

	b.ConnectSlave()
	if res := b.Process(readReq(1, 0, 8)); res == nil {
		t.Fatalf("reconnected board did not answer")
	}
}

func TestProcess_StuckRelay(t *testing.T) {
	b := New(1, 8, nopPort{})
	b.Stick(2)

	res := b.Process(writeReq(1, 2, modbusrelay.CoilOn))
	if res == nil || res.IsException() {
		t.Fatalf("stuck relay write not acknowledged: %v", res)
	}
	if b.Coil(2) {
		t.Fatalf("stuck relay changed state")
	}
	if !strings.Contains(b.Status(), "Relay 2: OFF (stuck)") {
		t.Fatalf("status does not show stuck relay:\n%s", b.Status())
	}
}

func TestProcess_Rules(t *testing.T) {
	b := New(1, 8, nopPort{})
	target := uint16(6)
	b.AddRule(config.Rule{Relay: 0, Trigger: "on_write", Action: "link", Target: &target})
	b.AddRule(config.Rule{Relay: 7, Trigger: "on_read", Action: "invert"})

	if res := b.Process(writeReq(1, 0, modbusrelay.CoilOn)); res == nil || res.IsException() {
		t.Fatalf("write rejected: %v", res)
	}
	if !b.Coil(0) || !b.Coil(6) {
		t.Fatalf("linked relay not switched: %s", b.Status())
	}

	// relays 0 and 6 on, relay 7 reads inverted
	res := b.Process(readReq(1, 0, 8))
	if res == nil || res.IsException() {
		t.Fatalf("read rejected: %v", res)
	}
	if res.Payload[1] != 0xC1 {
		t.Fatalf("status byte = %02X, want C1", res.Payload[1])
	}
	if b.Coil(7) {
		t.Fatalf("read changed relay 7")
	}
	if !strings.Contains(b.Status(), "Relay 0: ON (linked to 6)") {
		t.Fatalf("status does not show link:\n%s", b.Status())
	}
}
