//go:build linux

package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "safety-holster"

// cdevBackend uses the Linux GPIO character device. Each line keeps its own
// chip handle because Pi 5 kernels may spread header pins across chips.
type cdevBackend struct{}

func newCdevBackend() (backend, error) { return cdevBackend{}, nil }

func chipCandidates() []string {
	out := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "gpiochip") {
			out = append(out, filepath.Join("/dev", e.Name()))
		}
	}
	return out
}

func requestLine(pin int, opts ...gpiocdev.LineReqOption) (*cdevLine, error) {
	if pin < 0 {
		return nil, fmt.Errorf("invalid gpio pin %d", pin)
	}
	name := lineName(pin)
	opts = append(opts, gpiocdev.WithConsumer(consumer))
	for _, chipPath := range chipCandidates() {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(name)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, opts...)
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &cdevLine{chip: chip, line: line}, nil
	}
	return nil, fmt.Errorf("gpio line %q not found (or busy)", name)
}

func (cdevBackend) output(pin int) (Output, error) {
	return requestLine(pin, gpiocdev.AsOutput(0))
}

func (cdevBackend) input(pin int) (Input, error) {
	return requestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
}

func (cdevBackend) close() error { return nil }

type cdevLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (l *cdevLine) Set(on bool) error {
	if l == nil || l.line == nil {
		return fmt.Errorf("gpio: line not open")
	}
	v := 0
	if on {
		v = 1
	}
	return l.line.SetValue(v)
}

func (l *cdevLine) Read() (int, error) {
	if l == nil || l.line == nil {
		return 0, fmt.Errorf("gpio: line not open")
	}
	return l.line.Value()
}

func (l *cdevLine) Close() error {
	if l == nil || l.line == nil {
		return nil
	}
	err := l.line.Close()
	l.line = nil
	if l.chip != nil {
		_ = l.chip.Close()
		l.chip = nil
	}
	return err
}
