// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package spi

import (
	"time"

	"github.com/pkg/errors"
)

// AccumulatorConfig configures the streaming accumulator of a port.
//
// Every received record of TransferSize bytes is decoded as follows: records
// for which (record & ValidMask) != ValidValue are discarded; otherwise the
// data is extracted by shifting right by DataShift and keeping the DataSize
// low bits, sign-extended if Signed.
//
type AccumulatorConfig struct {
	Period       time.Duration // auto streaming period
	Command      uint32        // command word sent for each transfer
	TransferSize int           // record size in bytes, 1 to 4
	ValidMask    uint32
	ValidValue   uint32
	DataShift    uint // bits
	DataSize     uint // bits, 1 to 32
	Signed       bool
	BigEndian    bool
}

func (c *AccumulatorConfig) validate() error {
	switch {
	case c.TransferSize < 1 || c.TransferSize > 4:
		return errors.Errorf("invalid accumulator transfer size %d", c.TransferSize)
	case c.DataSize < 1 || c.DataSize > 32:
		return errors.Errorf("invalid accumulator data size %d", c.DataSize)
	case c.DataShift > 31:
		return errors.Errorf("invalid accumulator data shift %d", c.DataShift)
	}
	return nil
}

// commandBytes returns the command word as sent on the wire.
//
func (c *AccumulatorConfig) commandBytes() []byte {
	n := c.TransferSize
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(c.Command >> (8 * uint(3-i)))
	}
	return b
}

// accumulator is the running state of a port accumulator.
//
type accumulator struct {
	cfg      AccumulatorConfig
	center   int32
	deadband int32
	last     int32
	value    int64
	count    int64
	pending  []byte // incomplete record carried over to the next update
}

func (a *accumulator) reset() {
	a.value = 0
	a.count = 0
	a.last = 0
	a.pending = a.pending[:0]
}

// update pulls all the data available from d and accumulates it.
//
func (a *accumulator) update(d Device) error {
	n, err := d.ReadAutoReceivedData(nil, 0, 0)
	if err != nil {
		return err
	}
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n)
	n, err = d.ReadAutoReceivedData(buf, n, 0)
	if err != nil {
		return err
	}
	if n > len(buf) {
		return errors.Wrapf(ErrSize, "device reported %d bytes for a %d bytes buffer", n, len(buf))
	}
	data := append(a.pending, buf[:n]...)
	sz := a.cfg.TransferSize
	for ; len(data) >= sz; data = data[sz:] {
		a.process(data[:sz])
	}
	a.pending = append(a.pending[:0], data...)
	return nil
}

func (a *accumulator) process(rec []byte) {
	var r uint32
	if a.cfg.BigEndian {
		for _, b := range rec {
			r = r<<8 | uint32(b)
		}
	} else {
		for i := len(rec) - 1; i >= 0; i-- {
			r = r<<8 | uint32(rec[i])
		}
	}
	if r&a.cfg.ValidMask != a.cfg.ValidValue {
		return
	}
	max := int64(1) << a.cfg.DataSize
	data := int64(r>>a.cfg.DataShift) & (max - 1)
	if a.cfg.Signed && data&(max>>1) != 0 {
		data -= max
	}
	a.last = int32(data)
	data -= int64(a.center)
	if data < -int64(a.deadband) || data > int64(a.deadband) {
		a.value += data
	}
	a.count++
}

func (a *accumulator) average() float64 {
	if a.count == 0 {
		return 0
	}
	return float64(a.value) / float64(a.count)
}
