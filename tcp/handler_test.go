package tcp

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rwirdemann/modbusrelay"
	"github.com/rwirdemann/modbusrelay/board"
	"github.com/rwirdemann/modbusrelay/message"
)

type nopPort struct{}

func (nopPort) InfoX(message.Message) {}
func (nopPort) Info(string)           {}
func (nopPort) Separator()            {}

func TestNewHandler_URL(t *testing.T) {
	for _, url := range []string{"localhost:5020", "udp://localhost:5020", "tcp://"} {
		if _, err := NewHandler(url, nopPort{}); err == nil {
			t.Errorf("NewHandler(%q) accepted", url)
		}
	}
}

func TestHandler_ServesRTUFrames(t *testing.T) {
	b := board.New(1, 8, nopPort{})
	h, err := NewHandler("tcp://127.0.0.1:0", nopPort{})
	if err != nil {
		t.Fatalf("NewHandler() err=%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var transport modbusrelay.TransportHandler = h
	if err := transport.Start(ctx, b.Process); err != nil {
		t.Fatalf("Start() err=%v", err)
	}
	defer transport.Stop()

	conn, err := net.Dial("tcp", h.listener.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	// write relay 2 on, frame with CRC
	req := []byte{0x01, 0x05, 0x00, 0x02, 0xFF, 0x00, 0x2D, 0xFA}
	if _, err := conn.Write(req); err != nil {
		t.Fatalf("write: %v", err)
	}
	res := make([]byte, len(req))
	if _, err := io.ReadFull(conn, res); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(res, req) {
		t.Fatalf("response = % X, want echo", res)
	}
	if !b.Coil(2) {
		t.Fatalf("relay 2 not switched")
	}
}
