package rtu

import (
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/goburrow/modbus"
	"github.com/rwirdemann/modbusrelay"
	"github.com/rwirdemann/modbusrelay/config"
	"github.com/rwirdemann/modbusrelay/encoding"
)

// coilClient is the part of modbus.Client a Channel uses.
type coilClient interface {
	ReadCoils(address, quantity uint16) (results []byte, err error)
	WriteSingleCoil(address, value uint16) (results []byte, err error)
}

// connection is the serial port or TCP socket a Channel owns.
type connection interface {
	Close() error
	trace(logger *log.Logger)
}

type serialConnection struct {
	*modbus.RTUClientHandler
}

func (s serialConnection) trace(logger *log.Logger) {
	s.Logger = logger
}

// Channel is a Modbus RTU master bound to one slave on one serial line.
type Channel struct {
	conn   connection
	client coilClient
	device string
}

// Open opens the serial device described by link and binds the channel to
// slaveID. A tcp:// device is reached through a serial to Ethernet gateway.
// The connection stays open until Close.
func Open(link config.Link, slaveID uint8) (*Channel, error) {
	if addr, ok := link.TCPAddress(); ok {
		return openTCP(addr, link, slaveID)
	}

	h := modbus.NewRTUClientHandler(link.Device)
	h.BaudRate = link.BaudRate
	h.DataBits = link.DataBits
	h.Parity = link.Parity
	h.StopBits = link.StopBits
	h.Timeout = link.Timeout()
	h.IdleTimeout = 0 // never close the port between transactions
	h.SlaveId = slaveID

	if err := h.Connect(); err != nil {
		return nil, &modbusrelay.ConnectionError{Device: link.Device, Err: err}
	}
	slog.Debug("serial port opened", "device", link.Device, "baud", link.BaudRate, "slave", slaveID)

	c := newChannel(modbus.NewClient(h), link.Device)
	c.conn = serialConnection{h}
	return c, nil
}

func openTCP(addr string, link config.Link, slaveID uint8) (*Channel, error) {
	packager := modbus.NewRTUClientHandler(link.Device)
	packager.SlaveId = slaveID

	t := &tcpTransporter{address: addr, timeout: link.Timeout()}
	if err := t.Connect(); err != nil {
		return nil, &modbusrelay.ConnectionError{Device: link.Device, Err: err}
	}
	slog.Debug("gateway connected", "address", addr, "slave", slaveID)

	c := newChannel(modbus.NewClient2(packager, t), link.Device)
	c.conn = t
	return c, nil
}

func newChannel(client coilClient, device string) *Channel {
	return &Channel{client: client, device: device}
}

// Trace writes every request and response frame to w.
func (c *Channel) Trace(w io.Writer) {
	if c.conn != nil {
		c.conn.trace(log.New(w, "", 0))
	}
}

// Close releases the serial port or socket.
func (c *Channel) Close() error {
	if c.conn == nil {
		return nil
	}
	slog.Debug("closing connection", "device", c.device)
	return c.conn.Close()
}

// ReadCoils implements modbusrelay.CoilChannel.
func (c *Channel) ReadCoils() (modbusrelay.CoilBank, error) {
	var bank modbusrelay.CoilBank

	results, err := c.client.ReadCoils(modbusrelay.BankStart, modbusrelay.BankSize)
	if err != nil {
		return bank, &modbusrelay.TransactionError{Op: "read", Index: modbusrelay.BankStart, Err: err}
	}
	if len(results) < encoding.ByteCount(modbusrelay.BankSize) {
		return bank, &modbusrelay.TransactionError{
			Op:    "read",
			Index: modbusrelay.BankStart,
			Err:   fmt.Errorf("short read-coils payload: % X", results),
		}
	}

	copy(bank[:], encoding.DecodeBools(results, modbusrelay.BankSize))
	return bank, nil
}

// WriteCoil implements modbusrelay.CoilChannel.
func (c *Channel) WriteCoil(index uint16, on bool) error {
	if _, err := c.client.WriteSingleCoil(index, modbusrelay.CoilValue(on)); err != nil {
		return &modbusrelay.TransactionError{Op: "write", Index: index, Err: err}
	}
	return nil
}
