// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package devices provides emulators for common robot peripherals.
//
package devices

import (
	"encoding/binary"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/db47h/halsim"
	"github.com/db47h/halsim/spi"
	"github.com/pkg/errors"
)

// ADXRS450 gyro constants.
//
const (
	ADXRS450SamplePeriod          = 0.0005 // seconds
	ADXRS450DegreePerSecondPerLSB = 0.0125
	// ADXRS450MaxSegments is the maximum number of data records returned by
	// a single auto read.
	ADXRS450MaxSegments = 2048

	adxrs450Status = 0xff000000 | 0x5200<<5
	adxrs450Data   = 0x4000000
)

// ADXRS450Accumulator is the accumulator configuration used by robot code for
// the ADXRS450 gyro.
//
var ADXRS450Accumulator = spi.AccumulatorConfig{
	Period:       500 * time.Microsecond,
	Command:      0x20000000,
	TransferSize: 4,
	ValidMask:    0x0c00000e,
	ValidValue:   0x04000000,
	DataShift:    10,
	DataSize:     16,
	Signed:       true,
	BigEndian:    true,
}

// ADXRS450 emulates an ADXRS450 gyro on an SPI port.
//
// The simulated angle, in degrees, is read from the robot namespace of the
// store, under the key adxrs450_spi_<port>_angle, and defaults to 0. Each auto read encodes the
// angle change since the previous read as signed 16 bits rate samples, split
// over as many records as needed for each to fit. Large changes are spread
// over several reads.
//
// Plain transfers always return the device status word.
//
type ADXRS450 struct {
	spi.Base
	store    *halsim.Store
	angleKey string

	mu   sync.Mutex
	last float64 // last reported angle
}

// NewADXRS450 returns a new ADXRS450 emulator backed by store s.
//
func NewADXRS450(s *halsim.Store) *ADXRS450 {
	return &ADXRS450{store: s}
}

// ADXRS450AngleKey returns the robot namespace key holding the simulated
// angle of a gyro on the given SPI port.
//
func ADXRS450AngleKey(port int) string {
	return "adxrs450_spi_" + strconv.Itoa(port) + "_angle"
}

// Initialize implements spi.Device.
//
func (g *ADXRS450) Initialize(port int) error {
	if err := g.Base.Initialize(port); err != nil {
		return err
	}
	g.angleKey = ADXRS450AngleKey(port)
	g.setLast(0)
	return nil
}

// Close implements spi.Device.
//
func (g *ADXRS450) Close() {
	g.setLast(0)
}

// MaxAnglePerSegment returns the largest angle change a single data record
// can carry.
//
func (g *ADXRS450) MaxAnglePerSegment() float64 {
	return 0x7fff * ADXRS450SamplePeriod * ADXRS450DegreePerSecondPerLSB
}

// LastAngle returns the angle reported to robot code so far.
//
func (g *ADXRS450) LastAngle() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

func (g *ADXRS450) setLast(a float64) {
	g.mu.Lock()
	g.last = a
	g.mu.Unlock()
}

func (g *ADXRS450) angle() (float64, error) {
	v := g.store.Robot(g.angleKey, 0.0)
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	}
	return 0, errors.Errorf("%s: invalid angle type %T", g.angleKey, v)
}

// raw returns the angle change since the last read in LSBs, truncated toward
// zero and clamped to what a single read can report. Must be called with g.mu
// held.
//
func (g *ADXRS450) raw() (int64, error) {
	a, err := g.angle()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0, errors.Errorf("%s: invalid angle %g", g.angleKey, a)
	}
	const max = ADXRS450MaxSegments * 0x7fff
	d := (a - g.last) / (ADXRS450SamplePeriod * ADXRS450DegreePerSecondPerLSB)
	if d > max {
		d = max
	} else if d < -max {
		d = -max
	}
	return int64(d), nil
}

// segments returns the number of records needed to report raw LSBs.
//
func segments(raw int64) int {
	if raw < 0 {
		raw = -raw
	}
	n := int((raw+0x7ffe)/0x7fff) + 1
	if n > ADXRS450MaxSegments {
		n = ADXRS450MaxSegments
	}
	return n
}

// ReadAutoReceivedData implements spi.Device.
//
func (g *ADXRS450) ReadAutoReceivedData(buf []byte, numToRead int, timeout time.Duration) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	raw, err := g.raw()
	if err != nil {
		return 0, err
	}
	n := segments(raw)
	if numToRead == 0 {
		return n * 4, nil
	}
	if c := numToRead / 4; c < n {
		n = c
	}
	if c := len(buf) / 4; c < n {
		n = c
	}
	var sent int64
	for i := 0; i < n; i++ {
		r := raw - sent
		if r > 0x7fff {
			r = 0x7fff
		} else if r < -0x7fff {
			r = -0x7fff
		}
		sent += r
		binary.BigEndian.PutUint32(buf[i*4:], adxrs450Data|uint32(uint16(int16(r)))<<10)
	}
	g.last += float64(sent) * ADXRS450SamplePeriod * ADXRS450DegreePerSecondPerLSB
	return n * 4, nil
}

// Transaction implements spi.Device.
//
func (g *ADXRS450) Transaction(out []byte) ([]byte, error) {
	return status(len(out)), nil
}

// Read implements spi.Device.
//
func (g *ADXRS450) Read(count int) ([]byte, error) {
	return status(count), nil
}

// AutoDroppedCount implements spi.Device.
//
func (g *ADXRS450) AutoDroppedCount() (int, error) { return 0, nil }

// status returns the status word, zero padded or truncated to n bytes.
//
func status(n int) []byte {
	var w [4]byte
	binary.BigEndian.PutUint32(w[:], adxrs450Status)
	b := make([]byte, n)
	copy(b, w[:])
	return b
}

// ADXRS450Angle converts an accumulated value to an angle in degrees.
//
func ADXRS450Angle(value int64) float64 {
	return float64(value) * ADXRS450SamplePeriod * ADXRS450DegreePerSecondPerLSB
}
