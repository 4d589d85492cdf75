// Package monitor runs the holster control loop: sample the hall sensor,
// smooth it, drive the LEDs and raise an alert with the GPS position when the
// weapon leaves the holster.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"safety-holster/internal/filter"
	"safety-holster/internal/notify"
)

// gpsBufferLength bounds a single GPS read.
const gpsBufferLength = 256

// ErrGPSRead ends the loop when the receiver reports data but the read fails
// or returns nothing.
var ErrGPSRead = errors.New("gps port read error")

var sleepFn = sleepCtx

type Sensor interface {
	Read() (int, error)
}

type Button interface {
	Read() (int, error)
}

type LED interface {
	Set(on bool) error
}

type GPS interface {
	DataAvailable(timeout time.Duration) bool
	Read(buf []byte) (int, error)
}

type State string

const (
	StateUnknown State = ""
	StateClear   State = "clear"
	StateAlert   State = "alert"
)

type StopReason string

const (
	StopButton     StopReason = "button"
	StopGPSRead    StopReason = "gps_read_error"
	StopSensorRead StopReason = "sensor_read_error"
	StopCanceled   StopReason = "canceled"
)

type Config struct {
	Threshold  int
	Samples    int
	SpikeLimit int
	Interval   time.Duration
}

// Deps are the peripherals and sinks the loop talks to. GPS, Alerter,
// Reporter and Echo may be nil.
type Deps struct {
	Sensor   Sensor
	Button   Button
	RedLED   LED
	GreenLED LED
	GPS      GPS
	Alerter  notify.Alerter
	Reporter notify.Reporter
	// Echo receives raw GPS bytes; usually os.Stdout.
	Echo io.Writer
}

type Snapshot struct {
	State         State  `json:"state"`
	Average       int    `json:"average"`
	Threshold     int    `json:"threshold"`
	Samples       []int  `json:"samples"`
	Filled        bool   `json:"filled"`
	Iterations    uint64 `json:"iterations"`
	SpikesDropped uint64 `json:"spikes_dropped"`
	Alerts        uint64 `json:"alerts"`
	GPSBytes      uint64 `json:"gps_bytes"`
	LastError     string `json:"last_error,omitempty"`
	UpdatedUTC    string `json:"updated_utc,omitempty"`
}

type Monitor struct {
	cfg  Config
	deps Deps
	avg  *filter.MovingAverage
	buf  [gpsBufferLength]byte

	mu   sync.RWMutex
	snap Snapshot
}

func New(cfg Config, deps Deps) (*Monitor, error) {
	if deps.Sensor == nil {
		return nil, fmt.Errorf("monitor: sensor is nil")
	}
	if deps.Button == nil {
		return nil, fmt.Errorf("monitor: button is nil")
	}
	if deps.RedLED == nil || deps.GreenLED == nil {
		return nil, fmt.Errorf("monitor: leds are nil")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	avg, err := filter.New(cfg.Samples, cfg.SpikeLimit)
	if err != nil {
		return nil, err
	}
	m := &Monitor{cfg: cfg, deps: deps, avg: avg}
	m.snap.Threshold = cfg.Threshold
	m.snap.Samples = avg.Samples()
	return m, nil
}

// Run steps the loop until a stop condition. Button presses and cancellation
// return a nil error; a failed GPS read returns an error wrapping ErrGPSRead.
func (m *Monitor) Run(ctx context.Context) (StopReason, error) {
	for {
		reason, err := m.Step(ctx)
		if reason != "" {
			return reason, err
		}
	}
}

// Step runs one loop iteration. It returns a non-empty reason when the loop
// must stop.
func (m *Monitor) Step(ctx context.Context) (StopReason, error) {
	v, err := m.deps.Sensor.Read()
	if err != nil {
		m.setErr(err)
		return StopSensorRead, fmt.Errorf("monitor: sensor read: %w", err)
	}
	rejected := m.avg.Add(v)
	mean := m.avg.Mean()
	m.update(func(s *Snapshot) {
		s.Iterations++
		if rejected {
			s.SpikesDropped++
		}
		s.Average = mean
		s.Samples = m.avg.Samples()
		s.Filled = m.avg.Filled()
	})

	if m.deps.Reporter != nil {
		if err := m.deps.Reporter.Report(ctx, mean); err != nil {
			log.Printf("telemetry report failed: %v", err)
		}
	}

	if err := sleepFn(ctx, m.cfg.Interval); err != nil {
		return StopCanceled, nil
	}

	if mean < m.cfg.Threshold {
		m.setState(StateClear)
	} else {
		m.setState(StateAlert)
		if reason, err := m.alert(ctx, mean); reason != "" {
			return reason, err
		}
	}

	pressed, err := m.deps.Button.Read()
	if err != nil {
		log.Printf("button read failed: %v", err)
		m.setErr(err)
		return "", nil
	}
	if pressed == 1 {
		return StopButton, nil
	}
	return "", nil
}

func (m *Monitor) alert(ctx context.Context, mean int) (StopReason, error) {
	if m.deps.GPS == nil || !m.deps.GPS.DataAvailable(0) {
		return "", nil
	}
	n, err := m.deps.GPS.Read(m.buf[:])
	if err != nil || n <= 0 {
		if err == nil {
			err = fmt.Errorf("read returned %d", n)
		}
		log.Printf("gps port read error: %v", err)
		m.setErr(err)
		return StopGPSRead, fmt.Errorf("%w: %v", ErrGPSRead, err)
	}
	data := m.buf[:n]
	if m.deps.Echo != nil {
		_, _ = m.deps.Echo.Write(data)
	}
	m.update(func(s *Snapshot) { s.GPSBytes += uint64(n) })

	if m.deps.Alerter == nil {
		return "", nil
	}
	a := notify.Alert{At: time.Now().UTC(), Average: mean, Threshold: m.cfg.Threshold, GPS: data}
	if err := m.deps.Alerter.Alert(ctx, a); err != nil {
		log.Printf("alert delivery failed: %v", err)
		m.setErr(err)
	}
	m.update(func(s *Snapshot) { s.Alerts++ })
	return "", nil
}

func (m *Monitor) setState(st State) {
	red, green := st == StateAlert, st == StateClear
	if err := m.deps.RedLED.Set(red); err != nil {
		log.Printf("red led set failed: %v", err)
	}
	if err := m.deps.GreenLED.Set(green); err != nil {
		log.Printf("green led set failed: %v", err)
	}
	m.update(func(s *Snapshot) { s.State = st })
}

// Snapshot is safe to call from other goroutines while Run is active.
func (m *Monitor) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.snap
	out.Samples = append([]int(nil), m.snap.Samples...)
	return out
}

func (m *Monitor) update(fn func(*Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.snap)
	m.snap.UpdatedUTC = time.Now().UTC().Format(time.RFC3339Nano)
}

func (m *Monitor) setErr(err error) {
	m.update(func(s *Snapshot) { s.LastError = err.Error() })
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
