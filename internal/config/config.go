package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultThreshold  = 750
	DefaultSamples    = 5
	DefaultSpikeLimit = 850
	MaxSamples        = 10

	DefaultHTTPPayload = `{"holster":"drawn"}`
)

type Config struct {
	Loop     LoopConfig     `yaml:"loop"`
	Filter   FilterConfig   `yaml:"filter"`
	Sensor   SensorConfig   `yaml:"sensor"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	GPS      GPSConfig      `yaml:"gps"`
	Notify   NotifyConfig   `yaml:"notify"`
	Platform PlatformConfig `yaml:"platform"`
	Web      WebConfig      `yaml:"web"`
}

type LoopConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type FilterConfig struct {
	Samples   int `yaml:"samples"`
	Threshold int `yaml:"threshold"`
	// SpikeLimit drops readings above it; negative disables the check.
	SpikeLimit int `yaml:"spike_limit"`
}

// SensorConfig locates the ADS1115 ADC the hall sensor is wired to.
type SensorConfig struct {
	Bus     string `yaml:"bus"`
	Address uint16 `yaml:"address"`
	Channel int    `yaml:"channel"`
}

// GPIOConfig uses BCM numbering for all pins.
type GPIOConfig struct {
	Backend  string `yaml:"backend"`
	RedLED   int    `yaml:"red_led_pin"`
	GreenLED int    `yaml:"green_led_pin"`
	Button   int    `yaml:"button_pin"`
}

type GPSConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type NotifyConfig struct {
	HTTP HTTPNotifyConfig `yaml:"http"`
	UDP  UDPNotifyConfig  `yaml:"udp"`
	MQTT MQTTNotifyConfig `yaml:"mqtt"`
}

type HTTPNotifyConfig struct {
	URL     string        `yaml:"url"`
	Payload string        `yaml:"payload"`
	Timeout time.Duration `yaml:"timeout"`
}

type UDPNotifyConfig struct {
	Enable    bool   `yaml:"enable"`
	Dest      string `yaml:"dest"`
	Component string `yaml:"component"`
}

type MQTTNotifyConfig struct {
	Enable   bool          `yaml:"enable"`
	Broker   string        `yaml:"broker"`
	Topic    string        `yaml:"topic"`
	ClientID string        `yaml:"client_id"`
	QoS      *byte         `yaml:"qos"`
	Timeout  time.Duration `yaml:"timeout"`
}

type PlatformConfig struct {
	Skip   bool     `yaml:"skip"`
	Models []string `yaml:"models"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		var te *yaml.TypeError
		if errors.As(err, &te) && unknownFieldsOnly(te) {
			return Config{}, fmt.Errorf("config contains unknown fields: %s", strings.Join(te.Errors, "; "))
		}
		return Config{}, err
	}

	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func unknownFieldsOnly(te *yaml.TypeError) bool {
	for _, e := range te.Errors {
		if !strings.Contains(e, "not found in type") {
			return false
		}
	}
	return len(te.Errors) > 0
}

// DefaultAndValidate fills zero values with defaults and rejects invalid
// combinations. It is safe to call more than once.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Loop.Interval <= 0 {
		cfg.Loop.Interval = 1 * time.Second
	}

	if cfg.Filter.Samples == 0 {
		cfg.Filter.Samples = DefaultSamples
	}
	if cfg.Filter.Samples < 1 || cfg.Filter.Samples > MaxSamples {
		return fmt.Errorf("filter.samples must be between 1 and %d", MaxSamples)
	}
	if cfg.Filter.Threshold == 0 {
		cfg.Filter.Threshold = DefaultThreshold
	}
	if cfg.Filter.Threshold < 0 {
		return fmt.Errorf("filter.threshold must be > 0")
	}
	if cfg.Filter.SpikeLimit == 0 {
		cfg.Filter.SpikeLimit = DefaultSpikeLimit
	}

	if strings.TrimSpace(cfg.Sensor.Bus) == "" {
		cfg.Sensor.Bus = "/dev/i2c-1"
	}
	if cfg.Sensor.Address == 0 {
		cfg.Sensor.Address = 0x48
	}
	if cfg.Sensor.Address > 0x7F {
		return fmt.Errorf("sensor.address must be a 7-bit i2c address")
	}
	if cfg.Sensor.Channel < 0 || cfg.Sensor.Channel > 3 {
		return fmt.Errorf("sensor.channel must be between 0 and 3")
	}

	cfg.GPIO.Backend = strings.ToLower(strings.TrimSpace(cfg.GPIO.Backend))
	if cfg.GPIO.Backend == "" {
		cfg.GPIO.Backend = "gpiocdev"
	}
	if cfg.GPIO.Backend != "gpiocdev" && cfg.GPIO.Backend != "periph" {
		return fmt.Errorf("gpio.backend must be 'gpiocdev' or 'periph'")
	}
	if cfg.GPIO.RedLED == 0 {
		cfg.GPIO.RedLED = 4
	}
	if cfg.GPIO.GreenLED == 0 {
		cfg.GPIO.GreenLED = 3
	}
	if cfg.GPIO.Button == 0 {
		cfg.GPIO.Button = 8
	}
	if cfg.GPIO.RedLED < 0 || cfg.GPIO.GreenLED < 0 || cfg.GPIO.Button < 0 {
		return fmt.Errorf("gpio pins must be >= 0")
	}
	if cfg.GPIO.RedLED == cfg.GPIO.GreenLED || cfg.GPIO.RedLED == cfg.GPIO.Button || cfg.GPIO.GreenLED == cfg.GPIO.Button {
		return fmt.Errorf("gpio pins must be distinct")
	}

	if strings.TrimSpace(cfg.GPS.Device) == "" {
		cfg.GPS.Device = "/dev/serial0"
	}
	if cfg.GPS.Baud == 0 {
		cfg.GPS.Baud = 9600
	}

	if err := defaultNotify(&cfg.Notify); err != nil {
		return err
	}

	if !cfg.Platform.Skip && len(cfg.Platform.Models) == 0 {
		cfg.Platform.Models = []string{"Raspberry Pi"}
	}
	return nil
}

func defaultNotify(n *NotifyConfig) error {
	if u := strings.TrimSpace(n.HTTP.URL); u != "" {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("notify.http.url must be an absolute http(s) url")
		}
		n.HTTP.URL = u
	}
	if n.HTTP.Payload == "" {
		n.HTTP.Payload = DefaultHTTPPayload
	}
	if n.HTTP.Timeout <= 0 {
		n.HTTP.Timeout = 10 * time.Second
	}

	if n.UDP.Dest == "" {
		n.UDP.Dest = "localhost:41234"
	}
	if n.UDP.Component == "" {
		n.UDP.Component = "holster"
	}

	if n.MQTT.Enable {
		if strings.TrimSpace(n.MQTT.Broker) == "" {
			return fmt.Errorf("notify.mqtt.broker is required when notify.mqtt.enable is true")
		}
		if strings.TrimSpace(n.MQTT.Topic) == "" {
			return fmt.Errorf("notify.mqtt.topic is required when notify.mqtt.enable is true")
		}
	}
	if n.MQTT.QoS == nil {
		q := byte(1)
		n.MQTT.QoS = &q
	}
	if *n.MQTT.QoS > 2 {
		return fmt.Errorf("notify.mqtt.qos must be 0, 1 or 2")
	}
	if n.MQTT.Timeout <= 0 {
		n.MQTT.Timeout = 10 * time.Second
	}
	return nil
}
