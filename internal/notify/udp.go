package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

// UDPReporter sends one iotkit-agent observation per reading:
//
//	{"n":"<component>","v":<average>}
//
// The agent listens on localhost:41234 by default.
type UDPReporter struct {
	dest      string
	component string
	conn      udpConn
}

func NewUDPReporter(dest, component string) (*UDPReporter, error) {
	return newUDPReporter(dest, component, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newUDPReporter(dest, component string, resolve resolveFunc, dial dialFunc) (*UDPReporter, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}
	// DialUDP picks the local address.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &UDPReporter{dest: dest, component: component, conn: conn}, nil
}

type observation struct {
	Name  string `json:"n"`
	Value int    `json:"v"`
}

func (u *UDPReporter) Report(_ context.Context, average int) error {
	if u == nil || u.conn == nil {
		return fmt.Errorf("notify: udp reporter is closed")
	}
	b, err := json.Marshal(observation{Name: u.component, Value: average})
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = u.conn.Write(b)
	return err
}

func (u *UDPReporter) Close() error {
	if u == nil || u.conn == nil {
		return nil
	}
	err := u.conn.Close()
	u.conn = nil
	return err
}
