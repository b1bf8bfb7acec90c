// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package spitest provides utility functions to help with testing SPI device
// emulation.
//
package spitest

import (
	"sync"
	"testing"

	"github.com/db47h/halsim/spi"
	"github.com/pkg/errors"
)

// Scripted is a spi.Device that replies with canned data and records every
// call made to it.
//
// Transaction replies with the next entry of Replies, Read returns the next
// entry of Reads. Both fail with spi.ErrNotImplemented once exhausted. Auto
// reads are handled by the embedded spi.Base.
//
type Scripted struct {
	spi.Base

	Replies [][]byte
	Reads   [][]byte

	mu       sync.Mutex
	sent     [][]byte
	written  [][]byte
	closed   bool
	speed    int
	options  spi.Options
	csHigh   bool
	autoData []byte
}

// Transaction implements spi.Device.
//
func (s *Scripted) Transaction(out []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, append([]byte(nil), out...))
	if len(s.Replies) == 0 {
		return nil, errors.Wrap(spi.ErrNotImplemented, "no scripted reply")
	}
	r := s.Replies[0]
	s.Replies = s.Replies[1:]
	return r, nil
}

// Write implements spi.Device.
//
func (s *Scripted) Write(out []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, append([]byte(nil), out...))
	return len(out), nil
}

// Read implements spi.Device.
//
func (s *Scripted) Read(count int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Reads) == 0 {
		return nil, errors.Wrap(spi.ErrNotImplemented, "no scripted read")
	}
	r := s.Reads[0]
	s.Reads = s.Reads[1:]
	return r, nil
}

// Close implements spi.Device.
//
func (s *Scripted) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// SetSpeed implements spi.Device.
//
func (s *Scripted) SetSpeed(hz int) {
	s.mu.Lock()
	s.speed = hz
	s.mu.Unlock()
}

// SetOptions implements spi.Device.
//
func (s *Scripted) SetOptions(o spi.Options) {
	s.mu.Lock()
	s.options = o
	s.mu.Unlock()
}

// SetChipSelectActiveHigh implements spi.Device.
//
func (s *Scripted) SetChipSelectActiveHigh(high bool) {
	s.mu.Lock()
	s.csHigh = high
	s.mu.Unlock()
}

// SetAutoTransmitData implements spi.Device.
//
func (s *Scripted) SetAutoTransmitData(data []byte, zeroSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoData = append(append([]byte(nil), data...), make([]byte, zeroSize)...)
	return nil
}

// Sent returns the data sent by every Transaction call.
//
func (s *Scripted) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

// Written returns the data sent by every Write call.
//
func (s *Scripted) Written() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Closed reports whether Close has been called.
//
func (s *Scripted) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Speed returns the last clock rate set.
//
func (s *Scripted) Speed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// Options returns the last transfer options set.
//
func (s *Scripted) Options() spi.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

// ChipSelectActiveHigh returns the last chip select polarity set.
//
func (s *Scripted) ChipSelectActiveHigh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.csHigh
}

// AutoTransmitData returns the auto transmit data, zero padding included.
//
func (s *Scripted) AutoTransmitData() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoData
}

// Constant returns a Sampler that always returns a copy of v.
//
func Constant(v []byte) spi.Sampler {
	return spi.SamplerFunc(func() ([]byte, error) {
		return append([]byte(nil), v...), nil
	})
}

// Open opens a new Bus with dev bound to port n. The test fails immediately
// if the port cannot be opened.
//
func Open(t testing.TB, n int, dev spi.Device) *spi.Bus {
	t.Helper()
	b := spi.NewBus()
	if err := b.Open(n, dev); err != nil {
		t.Fatalf("open port %d: %+v", n, err)
	}
	return b
}
