package notify

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
)

type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
	Payload  string
	Timeout  time.Duration
}

// MQTTPublisher publishes the alert payload to a broker over MQTT v5.
//
// The session is opened on the first alert and kept; if a publish fails the
// session is dropped and the next alert dials again.
type MQTTPublisher struct {
	cfg  MQTTConfig
	dial func(ctx context.Context, network, addr string) (net.Conn, error)

	mu     sync.Mutex
	client *paho.Client
}

func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	cfg.Broker = strings.TrimSpace(cfg.Broker)
	if cfg.Broker == "" {
		return nil, fmt.Errorf("notify: mqtt broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("notify: mqtt topic is required")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("notify: mqtt qos %d out of range", cfg.QoS)
	}
	if cfg.ClientID == "" {
		// MQTT v5 servers must accept ids up to 23 bytes.
		cfg.ClientID = "holster-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	var d net.Dialer
	return &MQTTPublisher{cfg: cfg, dial: d.DialContext}, nil
}

func (m *MQTTPublisher) Name() string { return "mqtt" }

func (m *MQTTPublisher) ClientID() string { return m.cfg.ClientID }

func (m *MQTTPublisher) Alert(ctx context.Context, _ Alert) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		c, err := m.connectLocked(ctx)
		if err != nil {
			return err
		}
		m.client = c
	}

	_, err := m.client.Publish(ctx, &paho.Publish{
		Topic:   m.cfg.Topic,
		QoS:     m.cfg.QoS,
		Payload: []byte(m.cfg.Payload),
	})
	if err != nil {
		_ = m.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
		m.client = nil
		return fmt.Errorf("publish %s: %w", m.cfg.Topic, err)
	}
	return nil
}

func (m *MQTTPublisher) connectLocked(ctx context.Context) (*paho.Client, error) {
	conn, err := m.dial(ctx, "tcp", m.cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", m.cfg.Broker, err)
	}
	c := paho.NewClient(paho.ClientConfig{
		ClientID: m.cfg.ClientID,
		Conn:     conn,
	})
	ack, err := c.Connect(ctx, &paho.Connect{
		ClientID:   m.cfg.ClientID,
		KeepAlive:  30,
		CleanStart: true,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connect %s: %w", m.cfg.Broker, err)
	}
	if ack.ReasonCode != 0 {
		_ = conn.Close()
		return nil, fmt.Errorf("connect %s: reason code %d", m.cfg.Broker, ack.ReasonCode)
	}
	return c, nil
}

func (m *MQTTPublisher) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	err := m.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
	m.client = nil
	return err
}
