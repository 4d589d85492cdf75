package web

import (
	"time"

	"safety-holster/internal/gps"
	"safety-holster/internal/monitor"
)

type MonitorSource interface {
	Snapshot() monitor.Snapshot
}

type GPSSource interface {
	Stats() gps.Stats
}

// Status assembles the /api/status document from live sources. Either source
// may be nil.
type Status struct {
	start   time.Time
	model   string
	monitor MonitorSource
	gps     GPSSource
}

func NewStatus(model string, mon MonitorSource, g GPSSource) *Status {
	return &Status{start: time.Now().UTC(), model: model, monitor: mon, gps: g}
}

type StatusSnapshot struct {
	Service   string            `json:"service"`
	NowUTC    string            `json:"now_utc"`
	UptimeSec int64             `json:"uptime_sec"`
	Platform  string            `json:"platform,omitempty"`
	Monitor   *monitor.Snapshot `json:"monitor,omitempty"`
	GPS       *gps.Stats        `json:"gps,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	out := StatusSnapshot{
		Service:   "safety-holster",
		NowUTC:    nowUTC.Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(s.start).Seconds()),
		Platform:  s.model,
	}
	if s.monitor != nil {
		m := s.monitor.Snapshot()
		out.Monitor = &m
	}
	if s.gps != nil {
		g := s.gps.Stats()
		out.GPS = &g
	}
	return out
}
