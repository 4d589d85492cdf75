// Package notify delivers holster alerts and telemetry to remote endpoints.
//
// Every delivery is best-effort: callers log returned errors and carry on,
// nothing here retries.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Alert describes one qualifying (alert state, GPS data read) loop iteration.
type Alert struct {
	At        time.Time
	Average   int
	Threshold int
	// GPS holds the raw bytes read this iteration. Not owned by the receiver.
	GPS []byte
}

// Alerter is implemented by every alert channel.
type Alerter interface {
	Name() string
	Alert(ctx context.Context, a Alert) error
}

// Reporter receives the filtered reading once per loop iteration.
type Reporter interface {
	Report(ctx context.Context, average int) error
}

// Fanout sends an alert to every channel in order. A failing channel is
// logged and does not stop the rest.
type Fanout []Alerter

func (f Fanout) Name() string { return "fanout" }

func (f Fanout) Alert(ctx context.Context, a Alert) error {
	var errs []error
	for _, al := range f {
		if al == nil {
			continue
		}
		if err := al.Alert(ctx, a); err != nil {
			log.Printf("notify %s failed: %v", al.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", al.Name(), err))
		}
	}
	return errors.Join(errs...)
}
