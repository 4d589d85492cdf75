// Package gpio drives the holster's digital lines: two LED outputs and the
// button input. Pins use BCM numbering and are looked up by their "GPIOn"
// line name, so the same config works on any Pi revision.
package gpio

import (
	"errors"
	"fmt"
	"strings"
)

// Output is a digital output line.
type Output interface {
	Set(on bool) error
	Close() error
}

// Input is a digital input line. Read returns 0 or 1.
type Input interface {
	Read() (int, error)
	Close() error
}

type backend interface {
	output(pin int) (Output, error)
	input(pin int) (Input, error)
	close() error
}

var backends = map[string]func() (backend, error){
	"gpiocdev": newCdevBackend,
	"periph":   newPeriphBackend,
}

// Pins holds every line the holster needs, acquired together.
type Pins struct {
	RedLED   Output
	GreenLED Output
	Button   Input

	be backend
}

type PinConfig struct {
	Backend  string
	RedLED   int
	GreenLED int
	Button   int
}

// Open requests all three lines. On failure anything already requested is
// released before returning.
func Open(cfg PinConfig) (p *Pins, err error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if name == "" {
		name = "gpiocdev"
	}
	newBackend, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("gpio: unknown backend %q", cfg.Backend)
	}
	be, err := newBackend()
	if err != nil {
		return nil, err
	}

	p = &Pins{be: be}
	defer func() {
		if err != nil {
			_ = p.Close()
			p = nil
		}
	}()

	red, err := be.output(cfg.RedLED)
	if err != nil {
		return p, fmt.Errorf("gpio: red led: %w", err)
	}
	p.RedLED = red
	green, err := be.output(cfg.GreenLED)
	if err != nil {
		return p, fmt.Errorf("gpio: green led: %w", err)
	}
	p.GreenLED = green
	button, err := be.input(cfg.Button)
	if err != nil {
		return p, fmt.Errorf("gpio: button: %w", err)
	}
	p.Button = button
	return p, nil
}

// Close switches both LEDs off and releases every line.
func (p *Pins) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	for _, o := range []Output{p.RedLED, p.GreenLED} {
		if o == nil {
			continue
		}
		_ = o.Set(false)
		errs = append(errs, o.Close())
	}
	if p.Button != nil {
		errs = append(errs, p.Button.Close())
	}
	if p.be != nil {
		errs = append(errs, p.be.close())
	}
	p.RedLED, p.GreenLED, p.Button, p.be = nil, nil, nil, nil
	return errors.Join(errs...)
}

func lineName(pin int) string { return fmt.Sprintf("GPIO%d", pin) }
