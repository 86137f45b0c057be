package modbus

import (
	"flag"
	"testing"
)

func TestHex(t *testing.T) {
	for in, want := range map[string]uint16{"255": 255, "0xFF": 255, " 0x10 ": 16, "0": 0} {
		h, err := NewHex(in)
		if err != nil {
			t.Fatalf("NewHex(%q) err=%v", in, err)
		}
		if h.Uint16() != want {
			t.Errorf("NewHex(%q) = %d, want %d", in, h.Uint16(), want)
		}
	}
	for _, in := range []string{"", "x1", "0x10000", "-1"} {
		if _, err := NewHex(in); err == nil {
			t.Errorf("NewHex(%q) accepted", in)
		}
	}
}

func TestHex_UnitID(t *testing.T) {
	h := Hex(0xFF)
	if id, err := h.UnitID(); err != nil || id != 0xFF {
		t.Fatalf("UnitID() = %d, %v", id, err)
	}
	h = Hex(0x100)
	if _, err := h.UnitID(); err == nil {
		t.Fatalf("0x100 accepted as unit id")
	}
	if h.String() != "0x100" {
		t.Fatalf("String() = %q", h.String())
	}
}

func TestHex_Flag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	slave := Hex(1)
	fs.Var(&slave, "slave", "unit id")
	if err := fs.Parse([]string{"-slave", "0x20"}); err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	if slave.Uint16() != 0x20 {
		t.Fatalf("slave = %s", slave.String())
	}
}
