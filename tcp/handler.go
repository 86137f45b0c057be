package tcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/rwirdemann/modbusrelay"
	"github.com/rwirdemann/modbusrelay/pkg/modbus"
	"github.com/rwirdemann/modbusrelay/rtu"
)

// frameGap is the silence after which an incomplete frame is dropped.
const frameGap = 500 * time.Millisecond

type Connection struct {
	conn net.Conn
}

func NewConnection(c net.Conn) *Connection {
	return &Connection{conn: c}
}

func (r Connection) Read(p []byte) (n int, err error) {
	return r.conn.Read(p)
}

func (r Connection) Write(b []byte) (n int, err error) {
	return r.conn.Write(b)
}

func (r Connection) SetReadDeadline(t time.Time) error {
	return r.conn.SetReadDeadline(t)
}

func (r Connection) Close() error {
	return r.conn.Close()
}

func (r Connection) Name() string {
	return r.conn.RemoteAddr().String()
}

// Handler plays a serial to Ethernet gateway: it accepts TCP clients and
// answers the RTU frames they send.
type Handler struct {
	url          string
	listener     net.Listener
	protocolPort modbusrelay.ProtocolPort
}

func NewHandler(url string, protocolPort modbusrelay.ProtocolPort) (*Handler, error) {
	splitURL := strings.SplitN(url, "://", 2)
	if len(splitURL) == 2 && splitURL[0] == "tcp" && splitURL[1] != "" {
		return &Handler{url: splitURL[1], protocolPort: protocolPort}, nil
	}
	return nil, fmt.Errorf("invalid url format %s", url)
}

func (h *Handler) Start(ctx context.Context, processPDU modbusrelay.ProcessPDUCallback) (err error) {
	h.listener, err = net.Listen("tcp", h.url)
	if err != nil {
		return fmt.Errorf("failed to start TCP listener: %w", err)
	}
	go h.acceptClients(ctx, processPDU)
	slog.Info("TCP listener started", "url", h.listener.Addr())
	return nil
}

func (h *Handler) Stop() error {
	if h.listener != nil {
		slog.Info("Stopping TCP listener", "url", h.url)
		return h.listener.Close()
	}
	return nil
}

// Description returns the listen address, e.g. "tcp://127.0.0.1:5020".
func (h *Handler) Description() string {
	if h.listener != nil {
		return "tcp://" + h.listener.Addr().String()
	}
	return "tcp://" + h.url
}

func (h *Handler) acceptClients(ctx context.Context, processPDU modbusrelay.ProcessPDUCallback) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := h.listener.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				continue
			}
			slog.Info("client connected", "remote addr", conn.RemoteAddr())
			go h.serve(ctx, NewConnection(conn), processPDU)
		}
	}
}

func (h *Handler) serve(ctx context.Context, conn modbus.Connection, processPDU modbusrelay.ProcessPDUCallback) {
	defer func() {
		conn.Close()
		slog.Info("client disconnected", "remote addr", conn.Name())
	}()

	buffer := make([]byte, 256)
	var splitter rtu.Splitter
	for ctx.Err() == nil {
		if err := conn.SetReadDeadline(time.Now().Add(frameGap)); err != nil {
			return
		}
		n, err := conn.Read(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if dropped := splitter.Reset(); len(dropped) > 0 {
					slog.Debug("dropping incomplete frame", "client", conn.Name(), "data", fmt.Sprintf("% X", dropped))
				}
				continue
			}
			return
		}
		for _, frame := range splitter.Push(buffer[:n]) {
			rtu.Respond(conn, frame, processPDU, h.protocolPort)
		}
	}
}
