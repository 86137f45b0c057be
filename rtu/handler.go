package rtu

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/goburrow/serial"
	"github.com/rwirdemann/modbusrelay"
	"github.com/rwirdemann/modbusrelay/config"
	"github.com/rwirdemann/modbusrelay/message"
)

// minFrameSize is unit id + function code + CRC.
const minFrameSize = 4

var ErrCRC = errors.New("rtu: crc mismatch")

// Handler answers RTU requests arriving on a serial port, e.g. one end of a
// socat pair when simulating a relay board.
type Handler struct {
	serialPort   serial.Port
	link         config.Link
	protocolPort modbusrelay.ProtocolPort
}

// NewHandler creates a new RTU handler.
func NewHandler(link config.Link, protocolPort modbusrelay.ProtocolPort) *Handler {
	return &Handler{link: link, protocolPort: protocolPort}
}

func (h *Handler) Start(ctx context.Context, processPDU modbusrelay.ProcessPDUCallback) (err error) {
	cfg := &serial.Config{
		Address:  h.link.Device,
		BaudRate: h.link.BaudRate,
		DataBits: h.link.DataBits,
		Parity:   h.link.Parity,
		StopBits: h.link.StopBits,
		Timeout:  h.link.Timeout(),
	}

	h.serialPort, err = serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	go h.startRequestCycle(ctx, processPDU)
	slog.Debug("RTU listener started", "device", h.link.Device)
	return nil
}

func (h *Handler) Description() string {
	return h.link.Device
}

func (h *Handler) startRequestCycle(ctx context.Context, processPDU modbusrelay.ProcessPDUCallback) {
	buffer := make([]byte, rtuMaxSize)
	var splitter Splitter
	for {
		select {
		case <-ctx.Done():
			return
		default:
			n, err := h.serialPort.Read(buffer)
			if err != nil {
				if !isIdle(err) {
					slog.Error("Error reading from serial port", "err", err)
				}
				if dropped := splitter.Reset(); len(dropped) > 0 {
					slog.Debug("dropping incomplete frame", "data", fmt.Sprintf("% X", dropped))
				}
				time.Sleep(100 * time.Millisecond)
				continue
			}
			for _, frame := range splitter.Push(buffer[:n]) {
				Respond(h.serialPort, frame, processPDU, h.protocolPort)
			}
		}
	}
}

// Respond answers one request frame on w and logs both directions.
func Respond(w io.Writer, frame []byte, processPDU modbusrelay.ProcessPDUCallback, protocolPort modbusrelay.ProtocolPort) {
	protocolPort.Separator()
	protocolPort.InfoX(message.NewEncoded(fmt.Sprintf("TX % X", frame)))

	response, err := Serve(frame, processPDU)
	if err != nil {
		slog.Error("rejected request", "err", err, "data", fmt.Sprintf("% X", frame))
		return
	}
	if response == nil {
		return
	}

	if _, err := w.Write(response); err != nil {
		slog.Error("failed to write response", "err", err)
		return
	}
	protocolPort.InfoX(message.NewEncoded(fmt.Sprintf("RX % X", response)))
}

// Stop stops the handler.
func (h *Handler) Stop() error {
	slog.Debug("Closing serial port")
	if h.serialPort != nil {
		return h.serialPort.Close()
	}
	return nil
}

// Serve checks one request frame, hands its PDU to processPDU and returns
// the framed response. A nil response without error means the request is
// left unanswered.
func Serve(frame []byte, processPDU modbusrelay.ProcessPDUCallback) ([]byte, error) {
	if len(frame) < minFrameSize {
		return nil, fmt.Errorf("rtu: frame too short: %d bytes", len(frame))
	}

	receivedCRC := binary.LittleEndian.Uint16(frame[len(frame)-2:])
	if calculatedCRC := calculateCRC(frame[:len(frame)-2]); receivedCRC != calculatedCRC {
		return nil, fmt.Errorf("%w: received %04X, calculated %04X", ErrCRC, receivedCRC, calculatedCRC)
	}

	req := modbusrelay.PDU{
		UnitId:       frame[0],
		FunctionCode: frame[1],
		Payload:      frame[2 : len(frame)-2],
	}
	res := processPDU(req)
	if res == nil {
		return nil, nil
	}

	// UnitId + FunctionCode + Payload + CRC
	response := make([]byte, 0, 4+len(res.Payload))
	response = append(response, res.UnitId, res.FunctionCode)
	response = append(response, res.Payload...)
	return appendCRC(response), nil
}

// Splitter cuts a byte stream into request frames.
type Splitter struct {
	pending []byte
}

// Push appends data and returns the request frames completed by it.
func (s *Splitter) Push(data []byte) [][]byte {
	s.pending = append(s.pending, data...)

	var frames [][]byte
	for {
		size := requestSize(s.pending)
		if size == 0 || len(s.pending) < size {
			return frames
		}
		frames = append(frames, s.pending[:size:size])
		s.pending = append([]byte(nil), s.pending[size:]...)
	}
}

// Reset discards and returns an incomplete frame, e.g. after a silent
// interval.
func (s *Splitter) Reset() []byte {
	dropped := s.pending
	s.pending = nil
	return dropped
}

// requestSize returns the length of the request frame at the start of
// buf, or 0 while it cannot be told yet.
func requestSize(buf []byte) int {
	if len(buf) < 2 {
		return 0
	}
	switch buf[1] {
	case 0x01, 0x02, 0x03, 0x04, 0x05, 0x06:
		// addr(2) + qty/value(2)
		return 8
	case 0x0F, 0x10:
		// addr(2) + qty(2) + byteCount(1) + values
		if len(buf) < 7 {
			return 0
		}
		return 9 + int(buf[6])
	default:
		// unknown layout: take what arrived in one go
		return len(buf)
	}
}

func isIdle(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, serial.ErrTimeout)
}
