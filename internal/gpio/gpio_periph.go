package gpio

import (
	"fmt"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// periphBackend drives pins through periph.io's host drivers, which also
// cover boards without a GPIO character device.
type periphBackend struct{}

func newPeriphBackend() (backend, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio: periph host init: %w", err)
	}
	return periphBackend{}, nil
}

func periphPin(pin int) (pgpio.PinIO, error) {
	p := gpioreg.ByName(lineName(pin))
	if p == nil {
		return nil, fmt.Errorf("gpio line %q not found", lineName(pin))
	}
	return p, nil
}

func (periphBackend) output(pin int) (Output, error) {
	p, err := periphPin(pin)
	if err != nil {
		return nil, err
	}
	if err := p.Out(pgpio.Low); err != nil {
		return nil, err
	}
	return &periphLine{pin: p}, nil
}

func (periphBackend) input(pin int) (Input, error) {
	p, err := periphPin(pin)
	if err != nil {
		return nil, err
	}
	if err := p.In(pgpio.PullDown, pgpio.NoEdge); err != nil {
		return nil, err
	}
	return &periphLine{pin: p}, nil
}

func (periphBackend) close() error { return nil }

type periphLine struct {
	pin pgpio.PinIO
}

func (l *periphLine) Set(on bool) error {
	if l.pin == nil {
		return fmt.Errorf("gpio: line not open")
	}
	return l.pin.Out(pgpio.Level(on))
}

func (l *periphLine) Read() (int, error) {
	if l.pin == nil {
		return 0, fmt.Errorf("gpio: line not open")
	}
	if l.pin.Read() == pgpio.High {
		return 1, nil
	}
	return 0, nil
}

func (l *periphLine) Close() error {
	if l.pin == nil {
		return nil
	}
	err := l.pin.Halt()
	l.pin = nil
	return err
}
