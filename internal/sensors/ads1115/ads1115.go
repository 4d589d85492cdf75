package ads1115

import (
	"fmt"
	"time"

	"safety-holster/internal/i2c"
)

var sleep = time.Sleep

// Minimal ADS1115 driver: single-shot, single-ended conversions scaled to a
// 10-bit reading (0..1023) so thresholds match a classic analog pin.

const (
	regConversion = 0x00
	regConfig     = 0x01

	cfgOSStart    = 0x8000
	cfgMuxSingle0 = 0x4000 // AIN0 vs GND; channel n adds n<<12.
	cfgPGA4V096   = 0x0200
	cfgModeSingle = 0x0100
	cfgDR128SPS   = 0x0080
	cfgCompQDis   = 0x0003

	conversionWait = 8 * time.Millisecond
	maxPolls       = 5
)

type Device struct {
	dev     regIO
	channel int
}

type regIO interface {
	ReadReg16(reg byte) (uint16, error)
	WriteReg16(reg byte, v uint16) error
}

func New(dev *i2c.Dev, channel int) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("ads1115: dev is nil")
	}
	return newWithIO(dev, channel)
}

func newWithIO(dev regIO, channel int) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("ads1115: dev is nil")
	}
	if channel < 0 || channel > 3 {
		return nil, fmt.Errorf("ads1115: channel %d out of range", channel)
	}
	// No ID register; a config read proves the chip answers.
	if _, err := dev.ReadReg16(regConfig); err != nil {
		return nil, fmt.Errorf("ads1115: probe failed: %w", err)
	}
	return &Device{dev: dev, channel: channel}, nil
}

func (d *Device) config() uint16 {
	return cfgOSStart | cfgMuxSingle0 | uint16(d.channel)<<12 | cfgPGA4V096 | cfgModeSingle | cfgDR128SPS | cfgCompQDis
}

// Read starts a conversion, waits for it and returns the scaled reading.
func (d *Device) Read() (int, error) {
	if err := d.dev.WriteReg16(regConfig, d.config()); err != nil {
		return 0, fmt.Errorf("ads1115: start conversion failed: %w", err)
	}
	ready := false
	for i := 0; i < maxPolls; i++ {
		sleep(conversionWait)
		cfg, err := d.dev.ReadReg16(regConfig)
		if err != nil {
			return 0, fmt.Errorf("ads1115: status read failed: %w", err)
		}
		// OS reads back as 1 once the device is idle again.
		if cfg&cfgOSStart != 0 {
			ready = true
			break
		}
	}
	if !ready {
		return 0, fmt.Errorf("ads1115: conversion timed out")
	}
	raw, err := d.dev.ReadReg16(regConversion)
	if err != nil {
		return 0, fmt.Errorf("ads1115: conversion read failed: %w", err)
	}
	return scale(int16(raw)), nil
}

// scale maps the positive half of the signed 16-bit result onto 0..1023.
func scale(v int16) int {
	if v < 0 {
		return 0
	}
	return int(v) >> 5
}
