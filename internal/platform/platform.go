package platform

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrUnsupported is returned by Check when the board model matches none of
// the accepted models.
var ErrUnsupported = errors.New("unsupported platform")

var modelPaths = []string{
	"/sys/firmware/devicetree/base/model",
	"/proc/device-tree/model",
}

// Model returns the device-tree board model, e.g.
// "Raspberry Pi 4 Model B Rev 1.4". Empty when none can be read.
func Model() string {
	for _, p := range modelPaths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		model := strings.Trim(strings.TrimSpace(string(b)), "\x00")
		if model != "" {
			return model
		}
	}
	return ""
}

// Check verifies that model contains one of the accepted substrings.
// An empty accepted list allows every board.
func Check(model string, accepted []string) error {
	if len(accepted) == 0 {
		return nil
	}
	for _, a := range accepted {
		a = strings.TrimSpace(a)
		if a != "" && strings.Contains(model, a) {
			return nil
		}
	}
	if model == "" {
		model = "unknown"
	}
	return fmt.Errorf("%w: model=%q", ErrUnsupported, model)
}
