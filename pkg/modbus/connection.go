package modbus

import (
	"io"
	"time"
)

// Connection is one client of a transport handler.
type Connection interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	Name() string
}
