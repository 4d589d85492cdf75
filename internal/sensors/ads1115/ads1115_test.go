package ads1115

import (
	"errors"
	"testing"
	"time"
)

type fakeI2C struct {
	regs   map[byte]uint16
	busy   int // config reads reporting a conversion in progress
	writes []uint16
	err    error
}

func (f *fakeI2C) ReadReg16(reg byte) (uint16, error) {
	if f.err != nil {
		return 0, f.err
	}
	if reg == regConfig && f.busy > 0 {
		f.busy--
		return 0, nil
	}
	v, ok := f.regs[reg]
	if !ok {
		return 0, errors.New("no reg")
	}
	return v, nil
}

func (f *fakeI2C) WriteReg16(reg byte, v uint16) error {
	if reg == regConfig {
		f.writes = append(f.writes, v)
	}
	return nil
}

func noSleep(t *testing.T) {
	old := sleep
	sleep = func(time.Duration) {}
	t.Cleanup(func() { sleep = old })
}

func TestNew_ValidatesChannelAndProbe(t *testing.T) {
	if _, err := newWithIO(&fakeI2C{regs: map[byte]uint16{regConfig: 0x8583}}, 4); err == nil {
		t.Fatalf("expected channel error")
	}
	if _, err := newWithIO(&fakeI2C{err: errors.New("nack")}, 0); err == nil {
		t.Fatalf("expected probe error")
	}
}

func TestRead_ScalesToTenBits(t *testing.T) {
	noSleep(t)
	cases := []struct {
		raw  uint16
		want int
	}{
		{raw: 0x7FFF, want: 1023},
		{raw: 0x0000, want: 0},
		{raw: 750 << 5, want: 750},
		{raw: 0xFFF0, want: 0}, // negative clamps
	}
	for _, tc := range cases {
		f := &fakeI2C{regs: map[byte]uint16{regConfig: 0x8583, regConversion: tc.raw}}
		d, err := newWithIO(f, 0)
		if err != nil {
			t.Fatalf("newWithIO: %v", err)
		}
		got, err := d.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if got != tc.want {
			t.Fatalf("raw=0x%04X got %d want %d", tc.raw, got, tc.want)
		}
	}
}

func TestRead_SelectsChannelAndWaitsForReady(t *testing.T) {
	noSleep(t)
	f := &fakeI2C{regs: map[byte]uint16{regConfig: 0x8583, regConversion: 100 << 5}}
	d, err := newWithIO(f, 2)
	if err != nil {
		t.Fatalf("newWithIO: %v", err)
	}
	f.busy = 2
	if _, err := d.Read(); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(f.writes) != 1 {
		t.Fatalf("writes=%d want 1", len(f.writes))
	}
	if mux := (f.writes[0] >> 12) & 0x7; mux != 0x6 {
		t.Fatalf("mux=%03b want 110 (AIN2)", mux)
	}
	if f.writes[0]&cfgOSStart == 0 {
		t.Fatalf("expected single-shot start bit")
	}
}

func TestRead_TimesOut(t *testing.T) {
	noSleep(t)
	f := &fakeI2C{regs: map[byte]uint16{regConfig: 0x8583, regConversion: 0}}
	d, err := newWithIO(f, 0)
	if err != nil {
		t.Fatalf("newWithIO: %v", err)
	}
	f.busy = maxPolls
	if _, err := d.Read(); err == nil {
		t.Fatalf("expected timeout")
	}
}
