package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rwirdemann/modbusrelay/message"
	"golang.org/x/term"
)

// ProtocolAdapter prints the protocol of a run or a simulation session.
// Messages up to the configured level are printed, so TypeEncoded adds the
// raw wire frames to the plain progress lines.
type ProtocolAdapter struct {
	mu       sync.Mutex
	lastLine string
	muted    bool
	loglevel message.Type
	writer   io.Writer
}

func NewProtocolAdapter() *ProtocolAdapter {
	return &ProtocolAdapter{
		loglevel: message.TypePlain,
		writer:   os.Stdout, // Default to stdout
	}
}

func (p *ProtocolAdapter) SetWriter(w io.Writer) {
	p.writer = w
}

func (p *ProtocolAdapter) SetLevel(t message.Type) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loglevel = t
}

func (p *ProtocolAdapter) InfoX(m message.Message) {
	p.mu.Lock()
	show := m.Type() <= p.loglevel
	p.mu.Unlock()
	if show {
		p.Info(m.String())
	}
}

func (p *ProtocolAdapter) Toggle() {
	p.mu.Lock()
	next, label := message.TypeEncoded, "Encoded"
	if p.loglevel == message.TypeEncoded {
		next, label = message.TypePlain, "Plain"
	}
	p.loglevel = next
	p.mu.Unlock()
	p.Println(fmt.Sprintf("loglevel set to '%s'", label))
}

func (p *ProtocolAdapter) Info(msg string) {
	ts := time.Now().Format(time.DateTime)
	p.print(fmt.Sprintf("%s %s", ts, msg), false)
}

func (p *ProtocolAdapter) Separator() {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width = w
	}
	p.print(strings.Repeat("─", width), false)
}

// Println logs the output even when it's muted
func (p *ProtocolAdapter) Println(msg string) {
	p.print(msg, true)
}

func (p *ProtocolAdapter) Mute() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = true
}

func (p *ProtocolAdapter) Unmute() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = false
}

// TraceWriter returns a writer that turns every written line into an
// encoded message. It is meant for the frame log of the Modbus client.
func (p *ProtocolAdapter) TraceWriter() io.Writer {
	return traceWriter{p}
}

type traceWriter struct {
	p *ProtocolAdapter
}

func (w traceWriter) Write(b []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(b), "\n"), "\n") {
		if line != "" {
			w.p.InfoX(message.NewEncoded(line))
		}
	}
	return len(b), nil
}

func (p *ProtocolAdapter) print(s string, force bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !force && p.muted {
		return
	}

	if p.lastLine == s {
		return
	}
	fmt.Fprintln(p.writer, s)
	p.lastLine = s
}
