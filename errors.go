package modbusrelay

import (
	"errors"
	"fmt"
)

// ErrRelayOutOfRange is returned for relay indices outside the coil bank.
var ErrRelayOutOfRange = errors.New("relay index out of range")

// ConnectionError reports that the serial link or the Modbus session could
// not be established.
type ConnectionError struct {
	Device string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Device, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TransactionError reports a failed coil read or write.
type TransactionError struct {
	Op    string
	Index uint16
	Err   error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s coil %d failed: %v", e.Op, e.Index, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
