//go:build !linux

package gps

import "fmt"

func openSerial(path string, baud int) (port, error) {
	return nil, fmt.Errorf("gps serial not supported on this platform")
}
