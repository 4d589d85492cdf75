//go:build !linux

package gpio

import "fmt"

func newCdevBackend() (backend, error) {
	return nil, fmt.Errorf("gpio: gpiocdev backend unsupported on this platform")
}
