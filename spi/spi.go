// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package spi emulates the register semantics of a robot controller's SPI
// ports: basic transfers, auto streaming and the streaming accumulator.
//
// A Bus owns the state of every port. Simulated peripherals implement Device,
// usually by embedding Base and overriding the methods they care about.
//
package spi

import (
	"io"
	"time"

	"github.com/pkg/errors"
)

// Error causes.
//
var (
	// ErrNotImplemented is returned by Base for operations a concrete device
	// must supply data for.
	ErrNotImplemented = errors.New("not implemented by device emulator")
	// ErrPortRange reports an invalid port number.
	ErrPortRange = errors.New("port number out of range")
	// ErrPortInUse reports an attempt to open a port twice.
	ErrPortInUse = errors.New("port already open")
	// ErrPortClosed reports an operation on a closed port.
	ErrPortClosed = errors.New("port not open")
	// ErrSize reports a device response with an unexpected length.
	ErrSize = errors.New("response size mismatch")
	// ErrNoAccumulator reports an accumulator operation on a port without
	// an active accumulator.
	ErrNoAccumulator = errors.New("accumulator not initialized")
)

// Options are the transfer options of a port.
//
type Options struct {
	MSBFirst         bool // bit order
	SampleOnTrailing bool // sample edge
	ClockIdleHigh    bool // clock polarity
}

// Trigger configures externally triggered auto streaming.
//
type Trigger struct {
	Source     int // digital source handle
	AnalogType int
	Rising     bool
	Falling    bool
}

// Device is the interface implemented by SPI peripheral emulators.
//
// A Device instance is bound to a single port by Bus.Open, which calls
// Initialize, and released by Bus.Close, which calls Close. Bus serializes all
// calls to a Device.
//
type Device interface {
	Initialize(port int) error
	Close()

	// Transaction performs a full duplex transfer. The response must have
	// the same length as out.
	Transaction(out []byte) ([]byte, error)
	// Write performs a write-only transfer and returns the number of bytes
	// written.
	Write(out []byte) (int, error)
	// Read performs a read-only transfer of count bytes.
	Read(count int) ([]byte, error)

	SetSpeed(hz int)
	SetOptions(o Options)
	SetChipSelectActiveHigh(high bool)

	InitAuto(bufferSize int) error
	FreeAuto() error
	StartAutoRate(period time.Duration) error
	StartAutoTrigger(t Trigger) error
	StopAuto() error
	SetAutoTransmitData(data []byte, zeroSize int) error
	ForceAutoRead() error
	// ReadAutoReceivedData returns the number of bytes produced since the
	// last read. If numToRead is not 0, the data is also copied to buf and
	// consumed.
	ReadAutoReceivedData(buf []byte, numToRead int, timeout time.Duration) (int, error)
	AutoDroppedCount() (int, error)
}

// A Sampler supplies the current sample of an auto streaming device.
//
type Sampler interface {
	Sample() ([]byte, error)
}

// SamplerFunc is an adapter to use an ordinary function as a Sampler.
//
type SamplerFunc func() ([]byte, error)

// Sample implements Sampler.
//
func (f SamplerFunc) Sample() ([]byte, error) { return f() }

// Base provides default implementations for all Device methods.
//
// Operations that need receive data (Transaction, Read, AutoDroppedCount)
// fail with ErrNotImplemented so that missing device emulation does not go
// unnoticed. Write reports all bytes as written. Configuration methods are
// no-ops.
//
// Auto reads produce exactly one sample per call, obtained from Sampler.
// Without a Sampler, they fail with ErrNotImplemented.
//
type Base struct {
	Sampler Sampler
	port    int
}

// Initialize implements Device.
//
func (b *Base) Initialize(port int) error {
	b.port = port
	return nil
}

// Port returns the port number the device was initialized with.
//
func (b *Base) Port() int { return b.port }

// Close implements Device.
//
func (b *Base) Close() {}

// Transaction implements Device.
//
func (b *Base) Transaction(out []byte) ([]byte, error) {
	return nil, errors.Wrap(ErrNotImplemented, "transaction")
}

// Write implements Device.
//
func (b *Base) Write(out []byte) (int, error) { return len(out), nil }

// Read implements Device.
//
func (b *Base) Read(count int) ([]byte, error) {
	return nil, errors.Wrap(ErrNotImplemented, "read")
}

// SetSpeed implements Device.
//
func (b *Base) SetSpeed(hz int) {}

// SetOptions implements Device.
//
func (b *Base) SetOptions(o Options) {}

// SetChipSelectActiveHigh implements Device.
//
func (b *Base) SetChipSelectActiveHigh(high bool) {}

// InitAuto implements Device.
//
func (b *Base) InitAuto(bufferSize int) error { return nil }

// FreeAuto implements Device.
//
func (b *Base) FreeAuto() error { return nil }

// StartAutoRate implements Device.
//
func (b *Base) StartAutoRate(period time.Duration) error { return nil }

// StartAutoTrigger implements Device.
//
func (b *Base) StartAutoTrigger(t Trigger) error { return nil }

// StopAuto implements Device.
//
func (b *Base) StopAuto() error { return nil }

// SetAutoTransmitData implements Device.
//
func (b *Base) SetAutoTransmitData(data []byte, zeroSize int) error { return nil }

// ForceAutoRead implements Device.
//
func (b *Base) ForceAutoRead() error { return nil }

// ReadAutoReceivedData implements Device. It reports one sample from Sampler
// and copies it to buf if numToRead is not 0.
//
func (b *Base) ReadAutoReceivedData(buf []byte, numToRead int, timeout time.Duration) (int, error) {
	if b.Sampler == nil {
		return 0, errors.Wrap(ErrNotImplemented, "auto read")
	}
	v, err := b.Sampler.Sample()
	if err != nil {
		return 0, errors.Wrap(err, "auto read")
	}
	if numToRead != 0 {
		if len(buf) < len(v) {
			return 0, errors.Wrap(io.ErrShortBuffer, "auto read")
		}
		copy(buf, v)
	}
	return len(v), nil
}

// AutoDroppedCount implements Device.
//
func (b *Base) AutoDroppedCount() (int, error) {
	return 0, errors.Wrap(ErrNotImplemented, "auto dropped count")
}
