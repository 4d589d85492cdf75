//go:build linux

package i2c

import (
	"os"
	"strings"
	"testing"
)

func TestTransfer_RejectsInvalidAddr(t *testing.T) {
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	defer f.Close()

	b := &Bus{f: f, path: "/dev/null"}
	for _, addr := range []uint16{0, 0x80} {
		d := b.Dev(addr)
		if err := d.WriteReg16(0x01, 0x1234); err == nil || !strings.Contains(err.Error(), "invalid addr") {
			t.Fatalf("addr=0x%X err=%v want invalid addr", addr, err)
		}
	}
}

func TestTransfer_ClosedBus(t *testing.T) {
	b := &Bus{path: "/dev/i2c-9"}
	if _, err := b.Dev(0x48).ReadReg16(0x00); err == nil || !strings.Contains(err.Error(), "not open") {
		t.Fatalf("err=%v want not open", err)
	}
}

func TestNilBus(t *testing.T) {
	var b *Bus
	if b.Dev(0x48) != nil {
		t.Fatalf("expected nil dev")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
