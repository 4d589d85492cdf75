package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"safety-holster/internal/config"
	"safety-holster/internal/gpio"
	"safety-holster/internal/gps"
	"safety-holster/internal/i2c"
	"safety-holster/internal/monitor"
	"safety-holster/internal/notify"
	"safety-holster/internal/platform"
	"safety-holster/internal/sensors/ads1115"
	"safety-holster/internal/web"
)

const (
	exitOK                  = 0
	exitGPSSetup            = 1
	exitConfig              = 2
	exitHardware            = 3
	exitUnsupportedPlatform = 10
)

type gpsDevice interface {
	monitor.GPS
	Stats() gps.Stats
	Close() error
}

type sensorDevice interface {
	monitor.Sensor
	io.Closer
}

var (
	platformModelFn = platform.Model
	openPinsFn      = gpio.Open
	openSensorFn    = openSensor
	openGPSFn       = func(cfg gps.Config) (gpsDevice, error) { return gps.Open(cfg) }
	stdout          io.Writer = os.Stdout
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("safety-holster", flag.ContinueOnError)
	var configPath string
	fs.StringVar(&configPath, "config", "./holster.yaml", "Path to YAML config")
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("config load failed: %v", err)
		return exitConfig
	}

	var logs *web.LogBuffer
	if cfg.Web.Listen != "" {
		logs = web.NewLogBuffer(500)
		prev := log.Writer()
		log.SetOutput(io.MultiWriter(prev, logs))
		defer log.SetOutput(prev)
	}

	model := platformModelFn()
	if !cfg.Platform.Skip {
		if err := platform.Check(model, cfg.Platform.Models); err != nil {
			log.Printf("unsupported platform, exiting: %v", err)
			return exitUnsupportedPlatform
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pins, err := openPinsFn(gpio.PinConfig{
		Backend:  cfg.GPIO.Backend,
		RedLED:   cfg.GPIO.RedLED,
		GreenLED: cfg.GPIO.GreenLED,
		Button:   cfg.GPIO.Button,
	})
	if err != nil {
		log.Printf("gpio init failed: %v", err)
		return exitHardware
	}
	// Close also switches both LEDs off.
	defer pins.Close()

	sensor, err := openSensorFn(cfg.Sensor)
	if err != nil {
		log.Printf("sensor init failed: %v", err)
		return exitHardware
	}
	defer sensor.Close()

	receiver, err := openGPSFn(gps.Config{Device: cfg.GPS.Device, Baud: cfg.GPS.Baud})
	if err != nil {
		log.Printf("failed to setup tty port parameters: %v", err)
		return exitGPSSetup
	}
	defer receiver.Close()

	alerter, reporter, closeNotify := buildNotifiers(cfg)
	defer closeNotify()

	mon, err := monitor.New(monitor.Config{
		Threshold:  cfg.Filter.Threshold,
		Samples:    cfg.Filter.Samples,
		SpikeLimit: cfg.Filter.SpikeLimit,
		Interval:   cfg.Loop.Interval,
	}, monitor.Deps{
		Sensor:   sensor,
		Button:   pins.Button,
		RedLED:   pins.RedLED,
		GreenLED: pins.GreenLED,
		GPS:      receiver,
		Alerter:  alerter,
		Reporter: reporter,
		Echo:     stdout,
	})
	if err != nil {
		log.Printf("monitor init failed: %v", err)
		return exitConfig
	}

	if cfg.Web.Listen != "" {
		status := web.NewStatus(model, mon, receiver)
		go func() {
			if err := web.Serve(ctx, cfg.Web.Listen, status, logs); err != nil {
				log.Printf("web server stopped: %v", err)
			}
		}()
		log.Printf("web status listen=%s", cfg.Web.Listen)
	}

	log.Printf("safety-holster starting threshold=%d samples=%d interval=%s", cfg.Filter.Threshold, cfg.Filter.Samples, cfg.Loop.Interval)
	reason, err := mon.Run(ctx)
	switch {
	case errors.Is(err, monitor.ErrGPSRead):
		log.Printf("safety-holster stopping reason=%s: %v", reason, err)
	case err != nil:
		log.Printf("safety-holster stopping reason=%s: %v", reason, err)
		return exitHardware
	default:
		log.Printf("safety-holster stopping reason=%s", reason)
	}
	return exitOK
}

func openSensor(cfg config.SensorConfig) (sensorDevice, error) {
	bus, err := i2c.Open(cfg.Bus)
	if err != nil {
		return nil, err
	}
	dev, err := ads1115.New(bus.Dev(cfg.Address), cfg.Channel)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	log.Printf("sensor enabled bus=%s addr=0x%02X channel=%d", bus.Path(), cfg.Address, cfg.Channel)
	return &adcSensor{Device: dev, bus: bus}, nil
}

type adcSensor struct {
	*ads1115.Device
	bus *i2c.Bus
}

func (s *adcSensor) Close() error { return s.bus.Close() }

// buildNotifiers wires the configured channels. A channel that cannot be set
// up is logged and skipped.
func buildNotifiers(cfg config.Config) (notify.Alerter, notify.Reporter, func()) {
	var closers []io.Closer
	var fan notify.Fanout

	if cfg.Notify.HTTP.URL != "" {
		p, err := notify.NewHTTPPoster(cfg.Notify.HTTP.URL, cfg.Notify.HTTP.Payload, cfg.Notify.HTTP.Timeout)
		if err != nil {
			log.Printf("http notify disabled: %v", err)
		} else {
			fan = append(fan, p)
			log.Printf("http notify enabled url=%s", cfg.Notify.HTTP.URL)
		}
	}

	if cfg.Notify.MQTT.Enable {
		m, err := notify.NewMQTTPublisher(notify.MQTTConfig{
			Broker:   cfg.Notify.MQTT.Broker,
			Topic:    cfg.Notify.MQTT.Topic,
			ClientID: cfg.Notify.MQTT.ClientID,
			QoS:      *cfg.Notify.MQTT.QoS,
			Payload:  cfg.Notify.HTTP.Payload,
			Timeout:  cfg.Notify.MQTT.Timeout,
		})
		if err != nil {
			log.Printf("mqtt notify disabled: %v", err)
		} else {
			fan = append(fan, m)
			closers = append(closers, m)
			log.Printf("mqtt notify enabled broker=%s topic=%s client_id=%s", cfg.Notify.MQTT.Broker, cfg.Notify.MQTT.Topic, m.ClientID())
		}
	}

	var reporter notify.Reporter
	if cfg.Notify.UDP.Enable {
		u, err := notify.NewUDPReporter(cfg.Notify.UDP.Dest, cfg.Notify.UDP.Component)
		if err != nil {
			log.Printf("udp telemetry disabled: %v", err)
		} else {
			reporter = u
			closers = append(closers, u)
			log.Printf("udp telemetry enabled dest=%s component=%s", cfg.Notify.UDP.Dest, cfg.Notify.UDP.Component)
		}
	}

	var alerter notify.Alerter
	if len(fan) > 0 {
		alerter = fan
	}
	return alerter, reporter, func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}
}
