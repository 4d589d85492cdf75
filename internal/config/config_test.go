package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_EmptyFileAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Loop.Interval != 1*time.Second {
		t.Fatalf("interval=%s want 1s", cfg.Loop.Interval)
	}
	if cfg.Filter.Samples != DefaultSamples || cfg.Filter.Threshold != DefaultThreshold || cfg.Filter.SpikeLimit != DefaultSpikeLimit {
		t.Fatalf("filter defaults=%+v", cfg.Filter)
	}
	if cfg.GPIO.Backend != "gpiocdev" || cfg.GPIO.RedLED != 4 || cfg.GPIO.GreenLED != 3 || cfg.GPIO.Button != 8 {
		t.Fatalf("gpio defaults=%+v", cfg.GPIO)
	}
	if cfg.Sensor.Bus != "/dev/i2c-1" || cfg.Sensor.Address != 0x48 || cfg.Sensor.Channel != 0 {
		t.Fatalf("sensor defaults=%+v", cfg.Sensor)
	}
	if cfg.GPS.Device != "/dev/serial0" || cfg.GPS.Baud != 9600 {
		t.Fatalf("gps defaults=%+v", cfg.GPS)
	}
	if cfg.Notify.HTTP.URL != "" {
		t.Fatalf("http notify should be off by default")
	}
	if cfg.Notify.HTTP.Payload != DefaultHTTPPayload {
		t.Fatalf("payload=%q", cfg.Notify.HTTP.Payload)
	}
	if cfg.Notify.UDP.Dest != "localhost:41234" {
		t.Fatalf("udp dest=%q", cfg.Notify.UDP.Dest)
	}
	if cfg.Notify.MQTT.QoS == nil || *cfg.Notify.MQTT.QoS != 1 {
		t.Fatalf("mqtt qos default not applied")
	}
	if len(cfg.Platform.Models) != 1 || cfg.Platform.Models[0] != "Raspberry Pi" {
		t.Fatalf("platform models=%v", cfg.Platform.Models)
	}
}

func TestLoad_OverridesKept(t *testing.T) {
	path := writeTempConfig(t, `
loop:
  interval: 250ms
filter:
  samples: 2
  threshold: 100
  spike_limit: -1
gpio:
  backend: PERIPH
  red_led_pin: 17
  green_led_pin: 27
  button_pin: 22
notify:
  http:
    url: "http://example.com/status"
    payload: '{"drawn":true}'
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Loop.Interval != 250*time.Millisecond {
		t.Fatalf("interval=%s", cfg.Loop.Interval)
	}
	if cfg.Filter.Samples != 2 || cfg.Filter.Threshold != 100 || cfg.Filter.SpikeLimit != -1 {
		t.Fatalf("filter=%+v", cfg.Filter)
	}
	if cfg.GPIO.Backend != "periph" || cfg.GPIO.RedLED != 17 {
		t.Fatalf("gpio=%+v", cfg.GPIO)
	}
	if cfg.Notify.HTTP.Payload != `{"drawn":true}` {
		t.Fatalf("payload=%q", cfg.Notify.HTTP.Payload)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "TooManySamples",
			body: "filter:\n  samples: 11\n",
			want: "filter.samples must be between 1 and 10",
		},
		{
			name: "NegativeSamples",
			body: "filter:\n  samples: -1\n",
			want: "filter.samples must be between 1 and 10",
		},
		{
			name: "NegativeThreshold",
			body: "filter:\n  threshold: -5\n",
			want: "filter.threshold must be > 0",
		},
		{
			name: "BadBackend",
			body: "gpio:\n  backend: sysfs\n",
			want: "gpio.backend must be 'gpiocdev' or 'periph'",
		},
		{
			name: "DuplicatePins",
			body: "gpio:\n  red_led_pin: 5\n  green_led_pin: 5\n",
			want: "gpio pins must be distinct",
		},
		{
			name: "AddressTooWide",
			body: "sensor:\n  address: 0x90\n",
			want: "sensor.address must be a 7-bit i2c address",
		},
		{
			name: "ChannelOutOfRange",
			body: "sensor:\n  channel: 4\n",
			want: "sensor.channel must be between 0 and 3",
		},
		{
			name: "RelativeURL",
			body: "notify:\n  http:\n    url: /status\n",
			want: "notify.http.url must be an absolute http(s) url",
		},
		{
			name: "MQTTNeedsBroker",
			body: "notify:\n  mqtt:\n    enable: true\n    topic: holster\n",
			want: "notify.mqtt.broker is required when notify.mqtt.enable is true",
		},
		{
			name: "MQTTNeedsTopic",
			body: "notify:\n  mqtt:\n    enable: true\n    broker: 127.0.0.1:1883\n",
			want: "notify.mqtt.topic is required when notify.mqtt.enable is true",
		},
		{
			name: "MQTTQoS",
			body: "notify:\n  mqtt:\n    qos: 3\n",
			want: "notify.mqtt.qos must be 0, 1 or 2",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tc.body))
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestLoad_QoSZeroKept(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, "notify:\n  mqtt:\n    qos: 0\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Notify.MQTT.QoS == nil || *cfg.Notify.MQTT.QoS != 0 {
		t.Fatalf("qos=%v want 0", cfg.Notify.MQTT.QoS)
	}
}

func TestLoad_PlatformSkipLeavesModelsEmpty(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, "platform:\n  skip: true\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.Platform.Models) != 0 {
		t.Fatalf("models=%v want none", cfg.Platform.Models)
	}
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	_, err := Load(writeTempConfig(t, "filter:\n  window: 3\n"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.HasPrefix(err.Error(), "config contains unknown fields: ") || !strings.Contains(err.Error(), "field window not found") {
		t.Fatalf("error=%q", err.Error())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}
