package modbusrelay

import (
	"fmt"
)

const (
	FC1ReadCoils       uint8 = 0x01
	FC5WriteSingleCoil uint8 = 0x05

	// exceptionFlag is OR-ed into the function code of an exception response.
	exceptionFlag uint8 = 0x80
)

// Modbus exception codes a relay board answers with.
const (
	ExceptionIllegalFunction    uint8 = 0x01
	ExceptionIllegalDataAddress uint8 = 0x02
	ExceptionIllegalDataValue   uint8 = 0x03
)

// Coil values as carried by FC5.
const (
	CoilOn  uint16 = 0xFF00
	CoilOff uint16 = 0x0000
)

// PDU is a struct to represent a Modbus Protocol Data unit.
type PDU struct {
	UnitId       uint8
	FunctionCode uint8
	Payload      []byte
}

func (p PDU) String() string {
	return fmt.Sprintf("UnitId:%d FC:%d Payload:% X", p.UnitId, p.FunctionCode, p.Payload)
}

// IsException reports whether p is an exception response.
func (p PDU) IsException() bool {
	return p.FunctionCode&exceptionFlag != 0
}

// NewException builds the exception response to req.
func NewException(req PDU, code uint8) *PDU {
	return &PDU{
		UnitId:       req.UnitId,
		FunctionCode: req.FunctionCode | exceptionFlag,
		Payload:      []byte{code},
	}
}

// CoilValue maps a relay state onto its FC5 value.
func CoilValue(on bool) uint16 {
	if on {
		return CoilOn
	}
	return CoilOff
}
