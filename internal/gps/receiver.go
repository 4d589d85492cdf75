// Package gps reads raw NMEA bytes from a UART-attached receiver (u-blox 6
// class). Sentences are passed through as-is; nothing is decoded.
package gps

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// BufferLength is the most a single Read is expected to return.
const BufferLength = 256

type port interface {
	io.ReadCloser
	Available(timeout time.Duration) (bool, error)
}

var openSerialFn = openSerial

type Config struct {
	// Device is the tty path, or "auto" to probe ttyACM*/ttyUSB*.
	Device string
	Baud   int
}

type Stats struct {
	Device    string `json:"device"`
	Baud      int    `json:"baud"`
	Reads     uint64 `json:"reads"`
	BytesRead uint64 `json:"bytes_read"`
	LastError string `json:"last_error,omitempty"`
}

type Receiver struct {
	port   port
	device string
	baud   int

	mu    sync.Mutex
	stats Stats
}

// Open configures the serial port. A failure here is the "port setup"
// error the caller treats as fatal.
func Open(cfg Config) (*Receiver, error) {
	device := strings.TrimSpace(cfg.Device)
	if device == "" || strings.EqualFold(device, "auto") {
		device = autoDetectDevice()
		if device == "" {
			return nil, fmt.Errorf("gps: auto-detect failed: no /dev/ttyACM* or /dev/ttyUSB* found")
		}
	}
	baud := cfg.Baud
	if baud == 0 {
		baud = 9600
	}

	p, err := openSerialFn(device, baud)
	if err != nil {
		return nil, fmt.Errorf("gps: failed to set up tty port device=%s baud=%d: %w", device, baud, err)
	}
	log.Printf("gps enabled device=%s baud=%d", device, baud)
	return &Receiver{port: p, device: device, baud: baud, stats: Stats{Device: device, Baud: baud}}, nil
}

// DataAvailable reports whether bytes are waiting, waiting at most timeout.
// Poll errors are recorded and reported as "no data".
func (r *Receiver) DataAvailable(timeout time.Duration) bool {
	if r == nil || r.port == nil {
		return false
	}
	ok, err := r.port.Available(timeout)
	if err != nil {
		r.setError(fmt.Sprintf("gps poll failed: %v", err))
		return false
	}
	return ok
}

// Read fills buf with whatever the receiver has buffered. A zero-length read
// is reported as io.ErrUnexpectedEOF so callers only need to check err.
func (r *Receiver) Read(buf []byte) (int, error) {
	if r == nil || r.port == nil {
		return 0, fmt.Errorf("gps: receiver is not open")
	}
	n, err := r.port.Read(buf)
	if err == nil && n <= 0 {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		r.setError(fmt.Sprintf("gps read failed: %v", err))
		return n, err
	}

	r.mu.Lock()
	r.stats.Reads++
	r.stats.BytesRead += uint64(n)
	r.mu.Unlock()
	return n, nil
}

func (r *Receiver) Stats() Stats {
	if r == nil {
		return Stats{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Receiver) Close() error {
	if r == nil || r.port == nil {
		return nil
	}
	err := r.port.Close()
	r.port = nil
	return err
}

func (r *Receiver) setError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.LastError = msg
}

func autoDetectDevice() string {
	candidates := []string{}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
