// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package spi

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Port numbers.
//
const (
	OnboardCS0 = iota
	OnboardCS1
	OnboardCS2
	OnboardCS3
	MXP
	NumPorts
)

// State is the state of a port.
//
type State int

// Port states.
//
const (
	Closed        State = iota
	Initialized         // open, no transfer yet
	Idle                // open, at least one transfer done
	AutoStreaming       // auto transfers running
)

var stateNames = [...]string{"closed", "initialized", "idle", "auto-streaming"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "invalid"
	}
	return stateNames[s]
}

type port struct {
	state  State
	dev    Device
	acc    *accumulator
	speed  int
	opts   Options
	csHigh bool
}

// Bus holds the state of all SPI ports and dispatches operations to the
// device bound to each port.
//
// All methods are safe for concurrent use. Calls to devices are serialized on
// a single lock that is held for the duration of each call. Devices may lock
// a halsim.Store while handling a call; the reverse must never happen.
//
type Bus struct {
	mu    sync.Mutex
	ports [NumPorts]port
}

// NewBus returns a new Bus with all ports closed.
//
func NewBus() *Bus {
	return &Bus{}
}

// Open binds dev to the given port and initializes it.
//
func (b *Bus) Open(n int, dev Device) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 || n >= NumPorts {
		return errors.Wrapf(ErrPortRange, "port %d", n)
	}
	p := &b.ports[n]
	if p.state != Closed {
		return errors.Wrapf(ErrPortInUse, "port %d", n)
	}
	if err := dev.Initialize(n); err != nil {
		return errors.Wrapf(err, "port %d: initialize", n)
	}
	p.dev = dev
	p.state = Initialized
	return nil
}

// Close closes the port and releases its device. Any running accumulator is
// freed and the port configuration is cleared.
//
func (b *Bus) Close(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.port(n)
	if err != nil {
		return err
	}
	p.dev.Close()
	*p = port{}
	return nil
}

// State returns the state of the given port. Out of range ports are reported
// as Closed.
//
func (b *Bus) State(n int) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 || n >= NumPorts {
		return Closed
	}
	return b.ports[n].state
}

// Device returns the device bound to the given port or nil if the port is
// closed.
//
func (b *Bus) Device(n int) Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 || n >= NumPorts {
		return nil
	}
	return b.ports[n].dev
}

// port returns the open port n. Must be called with b.mu held.
//
func (b *Bus) port(n int) (*port, error) {
	if n < 0 || n >= NumPorts {
		return nil, errors.Wrapf(ErrPortRange, "port %d", n)
	}
	p := &b.ports[n]
	if p.state == Closed {
		return nil, errors.Wrapf(ErrPortClosed, "port %d", n)
	}
	return p, nil
}

func (p *port) transferred() {
	if p.state == Initialized {
		p.state = Idle
	}
}

// Transaction performs a full duplex transfer on the given port and returns
// the received bytes. The response always has the same length as out.
//
func (b *Bus) Transaction(n int, out []byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.port(n)
	if err != nil {
		return nil, err
	}
	in, err := p.dev.Transaction(out)
	if err != nil {
		return nil, errors.Wrapf(err, "port %d", n)
	}
	if len(in) != len(out) {
		return nil, errors.Wrapf(ErrSize, "port %d: transaction sent %d bytes, received %d", n, len(out), len(in))
	}
	p.transferred()
	return in, nil
}

// Write performs a write-only transfer on the given port.
//
func (b *Bus) Write(n int, out []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.port(n)
	if err != nil {
		return 0, err
	}
	c, err := p.dev.Write(out)
	if err != nil {
		return 0, errors.Wrapf(err, "port %d", n)
	}
	p.transferred()
	return c, nil
}

// ReadInitiate reads count bytes from the given port by sending count zero
// bytes in a full duplex transfer.
//
func (b *Bus) ReadInitiate(n int, count int) ([]byte, error) {
	if count < 0 {
		return nil, errors.Wrapf(ErrSize, "port %d: read %d bytes", n, count)
	}
	return b.Transaction(n, make([]byte, count))
}

// Read performs a read-only transfer of count bytes on the given port.
//
func (b *Bus) Read(n int, count int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.port(n)
	if err != nil {
		return nil, err
	}
	in, err := p.dev.Read(count)
	if err != nil {
		return nil, errors.Wrapf(err, "port %d", n)
	}
	if len(in) != count {
		return nil, errors.Wrapf(ErrSize, "port %d: read %d bytes, expected %d", n, len(in), count)
	}
	p.transferred()
	return in, nil
}

// do calls f with the device of the open port n.
//
func (b *Bus) do(n int, f func(p *port) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.port(n)
	if err != nil {
		return err
	}
	return errors.Wrapf(f(p), "port %d", n)
}

// SetSpeed sets the clock rate of the given port.
//
func (b *Bus) SetSpeed(n int, hz int) error {
	return b.do(n, func(p *port) error {
		p.dev.SetSpeed(hz)
		p.speed = hz
		return nil
	})
}

// Speed returns the clock rate of the given port, or 0 if it was never set.
//
func (b *Bus) Speed(n int) (int, error) {
	var hz int
	err := b.do(n, func(p *port) error { hz = p.speed; return nil })
	return hz, err
}

// SetOptions sets the transfer options of the given port.
//
func (b *Bus) SetOptions(n int, o Options) error {
	return b.do(n, func(p *port) error {
		p.dev.SetOptions(o)
		p.opts = o
		return nil
	})
}

// Options returns the transfer options of the given port.
//
func (b *Bus) Options(n int) (Options, error) {
	var o Options
	err := b.do(n, func(p *port) error { o = p.opts; return nil })
	return o, err
}

// SetChipSelectActiveHigh sets the chip select polarity of the given port.
//
func (b *Bus) SetChipSelectActiveHigh(n int, high bool) error {
	return b.do(n, func(p *port) error {
		p.dev.SetChipSelectActiveHigh(high)
		p.csHigh = high
		return nil
	})
}

// ChipSelectActiveHigh reports whether chip select is active high on the
// given port.
//
func (b *Bus) ChipSelectActiveHigh(n int) (bool, error) {
	var high bool
	err := b.do(n, func(p *port) error { high = p.csHigh; return nil })
	return high, err
}

// InitAuto allocates the auto streaming buffer of the given port.
//
func (b *Bus) InitAuto(n int, bufferSize int) error {
	return b.do(n, func(p *port) error { return p.dev.InitAuto(bufferSize) })
}

// FreeAuto stops auto streaming and releases its buffer.
//
func (b *Bus) FreeAuto(n int) error {
	return b.do(n, func(p *port) error {
		if err := p.dev.FreeAuto(); err != nil {
			return err
		}
		if p.state == AutoStreaming {
			p.state = Idle
		}
		return nil
	})
}

// StartAutoRate starts auto streaming at a fixed rate.
//
func (b *Bus) StartAutoRate(n int, period time.Duration) error {
	return b.do(n, func(p *port) error {
		if err := p.dev.StartAutoRate(period); err != nil {
			return err
		}
		p.state = AutoStreaming
		return nil
	})
}

// StartAutoTrigger starts triggered auto streaming.
//
func (b *Bus) StartAutoTrigger(n int, t Trigger) error {
	return b.do(n, func(p *port) error {
		if err := p.dev.StartAutoTrigger(t); err != nil {
			return err
		}
		p.state = AutoStreaming
		return nil
	})
}

// StopAuto stops auto streaming.
//
func (b *Bus) StopAuto(n int) error {
	return b.do(n, func(p *port) error {
		if err := p.dev.StopAuto(); err != nil {
			return err
		}
		if p.state == AutoStreaming {
			p.state = Idle
		}
		return nil
	})
}

// SetAutoTransmitData sets the data sent for each auto transfer, followed by
// zeroSize zero bytes.
//
func (b *Bus) SetAutoTransmitData(n int, data []byte, zeroSize int) error {
	return b.do(n, func(p *port) error { return p.dev.SetAutoTransmitData(data, zeroSize) })
}

// ForceAutoRead triggers a single auto transfer.
//
func (b *Bus) ForceAutoRead(n int) error {
	return b.do(n, func(p *port) error { return p.dev.ForceAutoRead() })
}

// ReadAutoReceivedData reads auto streamed data. See Device.
//
// Reading auto data from a port with an active accumulator steals data from
// the accumulator.
//
func (b *Bus) ReadAutoReceivedData(n int, buf []byte, numToRead int, timeout time.Duration) (int, error) {
	var c int
	err := b.do(n, func(p *port) (err error) {
		c, err = p.dev.ReadAutoReceivedData(buf, numToRead, timeout)
		return err
	})
	return c, err
}

// AutoDroppedCount returns the number of auto transfers dropped because of a
// full buffer.
//
func (b *Bus) AutoDroppedCount(n int) (int, error) {
	var c int
	err := b.do(n, func(p *port) (err error) {
		c, err = p.dev.AutoDroppedCount()
		return err
	})
	return c, err
}

// InitAccumulator sets up auto streaming on the given port and starts
// accumulating the received records.
//
func (b *Bus) InitAccumulator(n int, cfg AccumulatorConfig) error {
	if err := cfg.validate(); err != nil {
		return errors.Wrapf(err, "port %d", n)
	}
	return b.do(n, func(p *port) error {
		if err := p.dev.InitAuto(cfg.TransferSize * 2048); err != nil {
			return err
		}
		if err := p.dev.SetAutoTransmitData(cfg.commandBytes(), 0); err != nil {
			return err
		}
		if err := p.dev.StartAutoRate(cfg.Period); err != nil {
			return err
		}
		p.state = AutoStreaming
		p.acc = &accumulator{cfg: cfg}
		return nil
	})
}

// FreeAccumulator stops the accumulator and auto streaming on the given port.
//
func (b *Bus) FreeAccumulator(n int) error {
	return b.do(n, func(p *port) error {
		p.acc = nil
		if err := p.dev.FreeAuto(); err != nil {
			return err
		}
		if p.state == AutoStreaming {
			p.state = Idle
		}
		return nil
	})
}

// acc calls f with the accumulator of port n, after updating it with the
// device data received since the last call.
//
func (b *Bus) acc(n int, f func(a *accumulator)) error {
	return b.do(n, func(p *port) error {
		if p.acc == nil {
			return ErrNoAccumulator
		}
		if err := p.acc.update(p.dev); err != nil {
			return err
		}
		f(p.acc)
		return nil
	})
}

// accNoUpdate calls f with the accumulator of port n.
//
func (b *Bus) accNoUpdate(n int, f func(a *accumulator)) error {
	return b.do(n, func(p *port) error {
		if p.acc == nil {
			return ErrNoAccumulator
		}
		f(p.acc)
		return nil
	})
}

// ResetAccumulator drains pending data and clears the accumulated value and
// count.
//
func (b *Bus) ResetAccumulator(n int) error {
	return b.acc(n, func(a *accumulator) { a.reset() })
}

// SetAccumulatorCenter sets the value subtracted from each sample before it is
// accumulated.
//
func (b *Bus) SetAccumulatorCenter(n int, center int32) error {
	return b.accNoUpdate(n, func(a *accumulator) { a.center = center })
}

// SetAccumulatorDeadband sets the deadband around the center. Samples within
// the deadband are counted but not accumulated.
//
func (b *Bus) SetAccumulatorDeadband(n int, deadband int32) error {
	return b.accNoUpdate(n, func(a *accumulator) { a.deadband = deadband })
}

// AccumulatorLastValue returns the last decoded sample, before center
// subtraction.
//
func (b *Bus) AccumulatorLastValue(n int) (int32, error) {
	var v int32
	err := b.acc(n, func(a *accumulator) { v = a.last })
	return v, err
}

// AccumulatorValue returns the accumulated value.
//
func (b *Bus) AccumulatorValue(n int) (int64, error) {
	var v int64
	err := b.acc(n, func(a *accumulator) { v = a.value })
	return v, err
}

// AccumulatorCount returns the number of accumulated samples.
//
func (b *Bus) AccumulatorCount(n int) (int64, error) {
	var c int64
	err := b.acc(n, func(a *accumulator) { c = a.count })
	return c, err
}

// AccumulatorAverage returns the average accumulated value per sample, or 0 if
// no sample has been accumulated yet.
//
func (b *Bus) AccumulatorAverage(n int) (float64, error) {
	var avg float64
	err := b.acc(n, func(a *accumulator) { avg = a.average() })
	return avg, err
}

// AccumulatorOutput returns the accumulated value and count as a consistent
// pair. Use it instead of separate calls to AccumulatorValue and
// AccumulatorCount, between which more samples may be accumulated.
//
func (b *Bus) AccumulatorOutput(n int) (value, count int64, err error) {
	err = b.acc(n, func(a *accumulator) {
		value = a.value
		count = a.count
	})
	return value, count, err
}
