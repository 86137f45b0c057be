package rtu

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"
)

const (
	// rtuMaxSize is the largest RTU frame.
	rtuMaxSize = 256
	// rtuExceptionSize is unit id + function code + exception code + CRC.
	rtuExceptionSize = 5
)

var errNotConnected = errors.New("rtu: not connected")

// tcpTransporter carries RTU frames over TCP, as spoken by serial to
// Ethernet gateways in transparent mode.
type tcpTransporter struct {
	address string
	timeout time.Duration

	mu     sync.Mutex
	conn   net.Conn
	logger *log.Logger
}

func (t *tcpTransporter) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}
	dialer := net.Dialer{Timeout: t.timeout}
	conn, err := dialer.Dial("tcp", t.address)
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

// Send writes one request frame and reads the matching response frame.
func (t *tcpTransporter) Send(aduRequest []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil, errNotConnected
	}
	var deadline time.Time
	if t.timeout > 0 {
		deadline = time.Now().Add(t.timeout)
	}
	if err := t.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	t.logf("modbus: sending % x", aduRequest)
	if _, err := t.conn.Write(aduRequest); err != nil {
		return nil, err
	}

	var data [rtuMaxSize]byte
	if _, err := io.ReadFull(t.conn, data[:rtuExceptionSize]); err != nil {
		return nil, err
	}
	size := responseSize(data[:rtuExceptionSize])
	if size > rtuMaxSize {
		return nil, fmt.Errorf("rtu: response length %d exceeds %d", size, rtuMaxSize)
	}
	if _, err := io.ReadFull(t.conn, data[rtuExceptionSize:size]); err != nil {
		return nil, err
	}

	aduResponse := data[:size]
	t.logf("modbus: received % x", aduResponse)
	return append([]byte(nil), aduResponse...), nil
}

func (t *tcpTransporter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *tcpTransporter) trace(logger *log.Logger) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logger = logger
}

func (t *tcpTransporter) logf(format string, v ...any) {
	if t.logger != nil {
		t.logger.Printf(format, v...)
	}
}

// responseSize returns the length of the response frame starting with
// header, which holds at least rtuExceptionSize bytes.
func responseSize(header []byte) int {
	switch fc := header[1]; {
	case fc&0x80 != 0:
		return rtuExceptionSize
	case fc == 0x05, fc == 0x06, fc == 0x0F, fc == 0x10:
		// addr(2) + value/qty(2)
		return 8
	default:
		// byteCount(1) + data
		return rtuExceptionSize + int(header[2])
	}
}
