package spi_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/db47h/halsim/spi"
	"github.com/db47h/halsim/spi/spitest"
	"github.com/pkg/errors"
)

func TestBus_transfers(t *testing.T) {
	dev := &spitest.Scripted{
		Replies: [][]byte{{3, 2, 1}},
		Reads:   [][]byte{{4, 5, 6}},
	}
	b := spitest.Open(t, spi.OnboardCS1, dev)
	if s := b.State(spi.OnboardCS1); s != spi.Initialized {
		t.Fatalf("expected state %v, got %v", spi.Initialized, s)
	}
	in, err := b.Transaction(spi.OnboardCS1, []byte{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(in, []byte{3, 2, 1}) {
		t.Fatalf("transaction: got %v", in)
	}
	if sent := dev.Sent(); len(sent) != 1 || !bytes.Equal(sent[0], []byte{1, 2, 3}) {
		t.Fatalf("device received %v", sent)
	}
	if s := b.State(spi.OnboardCS1); s != spi.Idle {
		t.Fatalf("expected state %v, got %v", spi.Idle, s)
	}
	n, err := b.Write(spi.OnboardCS1, []byte{5, 6, 7})
	if err != nil {
		t.Fatal(err)
	}
	if w := dev.Written(); n != 3 || len(w) != 1 || !bytes.Equal(w[0], []byte{5, 6, 7}) {
		t.Fatalf("write: got count %d, device received %v", n, w)
	}
	in, err = b.Read(spi.OnboardCS1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(in, []byte{4, 5, 6}) {
		t.Fatalf("read: got %v", in)
	}
	if err = b.Close(spi.OnboardCS1); err != nil {
		t.Fatal(err)
	}
	if !dev.Closed() {
		t.Fatal("device not closed")
	}
	if s := b.State(spi.OnboardCS1); s != spi.Closed {
		t.Fatalf("expected state %v, got %v", spi.Closed, s)
	}
}

func TestBus_errors(t *testing.T) {
	b := spi.NewBus()
	if err := b.Open(spi.NumPorts, &spitest.Scripted{}); errors.Cause(err) != spi.ErrPortRange {
		t.Fatalf("open out of range port: unexpected error %v", err)
	}
	if err := b.Open(-1, &spitest.Scripted{}); errors.Cause(err) != spi.ErrPortRange {
		t.Fatalf("open negative port: unexpected error %v", err)
	}
	if _, err := b.Transaction(spi.MXP, []byte{1}); errors.Cause(err) != spi.ErrPortClosed {
		t.Fatalf("transaction on closed port: unexpected error %v", err)
	}
	if err := b.Close(spi.MXP); errors.Cause(err) != spi.ErrPortClosed {
		t.Fatalf("close closed port: unexpected error %v", err)
	}

	dev := &spitest.Scripted{
		Replies: [][]byte{{1, 2}},
		Reads:   [][]byte{{1}},
	}
	if err := b.Open(spi.MXP, dev); err != nil {
		t.Fatal(err)
	}
	if err := b.Open(spi.MXP, &spitest.Scripted{}); errors.Cause(err) != spi.ErrPortInUse {
		t.Fatalf("double open: unexpected error %v", err)
	}
	if _, err := b.Transaction(spi.MXP, []byte{1, 2, 3}); errors.Cause(err) != spi.ErrSize {
		t.Fatalf("short transaction reply: unexpected error %v", err)
	}
	if _, err := b.Read(spi.MXP, 2); errors.Cause(err) != spi.ErrSize {
		t.Fatalf("short read: unexpected error %v", err)
	}
	// script exhausted
	if _, err := b.Transaction(spi.MXP, []byte{1}); errors.Cause(err) != spi.ErrNotImplemented {
		t.Fatalf("unexpected error %v", err)
	}
	if s := b.State(spi.MXP); s != spi.Initialized {
		t.Fatalf("failed transfers changed port state to %v", s)
	}
}

func TestBus_config(t *testing.T) {
	dev := &spitest.Scripted{}
	b := spitest.Open(t, spi.OnboardCS0, dev)
	o := spi.Options{MSBFirst: true, ClockIdleHigh: true}
	for _, err := range []error{
		b.SetSpeed(spi.OnboardCS0, 500000),
		b.SetOptions(spi.OnboardCS0, o),
		b.SetChipSelectActiveHigh(spi.OnboardCS0, true),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}
	if dev.Speed() != 500000 || dev.Options() != o || !dev.ChipSelectActiveHigh() {
		t.Fatalf("device config not set: speed %d, options %+v, cs high %v", dev.Speed(), dev.Options(), dev.ChipSelectActiveHigh())
	}
	hz, err := b.Speed(spi.OnboardCS0)
	if err != nil {
		t.Fatal(err)
	}
	bo, err := b.Options(spi.OnboardCS0)
	if err != nil {
		t.Fatal(err)
	}
	high, err := b.ChipSelectActiveHigh(spi.OnboardCS0)
	if err != nil {
		t.Fatal(err)
	}
	if hz != 500000 || bo != o || !high {
		t.Fatalf("port config not stored: speed %d, options %+v, cs high %v", hz, bo, high)
	}
	if err = b.SetSpeed(spi.OnboardCS2, 1); errors.Cause(err) != spi.ErrPortClosed {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err = b.Options(spi.OnboardCS2); errors.Cause(err) != spi.ErrPortClosed {
		t.Fatalf("unexpected error %v", err)
	}

	// closing clears the port configuration.
	if err = b.Close(spi.OnboardCS0); err != nil {
		t.Fatal(err)
	}
	if err = b.Open(spi.OnboardCS0, &spitest.Scripted{}); err != nil {
		t.Fatal(err)
	}
	hz, _ = b.Speed(spi.OnboardCS0)
	bo, _ = b.Options(spi.OnboardCS0)
	high, _ = b.ChipSelectActiveHigh(spi.OnboardCS0)
	if hz != 0 || bo != (spi.Options{}) || high {
		t.Fatalf("port config kept after close: speed %d, options %+v, cs high %v", hz, bo, high)
	}
}

func TestBus_readInitiate(t *testing.T) {
	dev := &spitest.Scripted{
		Replies: [][]byte{{7, 8}},
	}
	b := spitest.Open(t, spi.OnboardCS0, dev)
	in, err := b.ReadInitiate(spi.OnboardCS0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(in, []byte{7, 8}) {
		t.Fatalf("got %v", in)
	}
	if sent := dev.Sent(); len(sent) != 1 || !bytes.Equal(sent[0], []byte{0, 0}) {
		t.Fatalf("device received %v", sent)
	}
	if s := b.State(spi.OnboardCS0); s != spi.Idle {
		t.Fatalf("expected state %v, got %v", spi.Idle, s)
	}
	if _, err = b.ReadInitiate(spi.OnboardCS0, -1); errors.Cause(err) != spi.ErrSize {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestBus_auto(t *testing.T) {
	dev := &spitest.Scripted{}
	b := spitest.Open(t, spi.OnboardCS0, dev)
	buf := make([]byte, 4)
	if _, err := b.ReadAutoReceivedData(spi.OnboardCS0, buf, 4, 0); errors.Cause(err) != spi.ErrNotImplemented {
		t.Fatalf("auto read without sampler: unexpected error %v", err)
	}
	if _, err := b.AutoDroppedCount(spi.OnboardCS0); errors.Cause(err) != spi.ErrNotImplemented {
		t.Fatalf("unexpected error %v", err)
	}

	dev.Sampler = spitest.Constant([]byte{1, 2, 3, 4})
	if err := b.InitAuto(spi.OnboardCS0, 1024); err != nil {
		t.Fatal(err)
	}
	if err := b.SetAutoTransmitData(spi.OnboardCS0, []byte{0xAA}, 3); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dev.AutoTransmitData(), []byte{0xAA, 0, 0, 0}) {
		t.Fatalf("auto transmit data: got %v", dev.AutoTransmitData())
	}
	if err := b.StartAutoRate(spi.OnboardCS0, 0); err != nil {
		t.Fatal(err)
	}
	if s := b.State(spi.OnboardCS0); s != spi.AutoStreaming {
		t.Fatalf("expected state %v, got %v", spi.AutoStreaming, s)
	}
	n, err := b.ReadAutoReceivedData(spi.OnboardCS0, nil, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("expected 4 bytes available, got %d", n)
	}
	n, err = b.ReadAutoReceivedData(spi.OnboardCS0, buf, 4, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 || !bytes.Equal(buf, []byte{1, 2, 3, 4}) {
		t.Fatalf("auto read: got %d bytes %v", n, buf)
	}
	if _, err = b.ReadAutoReceivedData(spi.OnboardCS0, buf[:2], 4, 0); err == nil {
		t.Fatal("auto read to short buffer succeeded")
	}
	if err = b.StopAuto(spi.OnboardCS0); err != nil {
		t.Fatal(err)
	}
	if s := b.State(spi.OnboardCS0); s != spi.Idle {
		t.Fatalf("expected state %v, got %v", spi.Idle, s)
	}
	if err = b.StartAutoTrigger(spi.OnboardCS0, spi.Trigger{Rising: true}); err != nil {
		t.Fatal(err)
	}
	if err = b.FreeAuto(spi.OnboardCS0); err != nil {
		t.Fatal(err)
	}
	if s := b.State(spi.OnboardCS0); s != spi.Idle {
		t.Fatalf("expected state %v, got %v", spi.Idle, s)
	}
}

func record(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

func rawConfig() spi.AccumulatorConfig {
	return spi.AccumulatorConfig{
		Command:      0x20000000,
		TransferSize: 4,
		DataSize:     32,
		Signed:       true,
		BigEndian:    true,
	}
}

func TestBus_accumulatorAtomicity(t *testing.T) {
	dev := &spitest.Scripted{}
	dev.Sampler = spitest.Constant(record(10))
	b := spitest.Open(t, spi.OnboardCS0, dev)
	if _, err := b.AccumulatorValue(spi.OnboardCS0); errors.Cause(err) != spi.ErrNoAccumulator {
		t.Fatalf("unexpected error %v", err)
	}
	if err := b.InitAccumulator(spi.OnboardCS0, rawConfig()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dev.AutoTransmitData(), []byte{0x20, 0, 0, 0}) {
		t.Fatalf("command not sent: %v", dev.AutoTransmitData())
	}

	// every getter pulls one more sample: separate reads are inconsistent.
	v, err := b.AccumulatorValue(spi.OnboardCS0)
	if err != nil {
		t.Fatal(err)
	}
	c, err := b.AccumulatorCount(spi.OnboardCS0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 10 || c != 2 {
		t.Fatalf("expected value 10 and count 2, got %d, %d", v, c)
	}
	v, c, err = b.AccumulatorOutput(spi.OnboardCS0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 30 || c != 3 {
		t.Fatalf("expected output (30, 3), got (%d, %d)", v, c)
	}
	avg, err := b.AccumulatorAverage(spi.OnboardCS0)
	if err != nil {
		t.Fatal(err)
	}
	if avg != 10 {
		t.Fatalf("expected average 10, got %g", avg)
	}
	last, err := b.AccumulatorLastValue(spi.OnboardCS0)
	if err != nil {
		t.Fatal(err)
	}
	if last != 10 {
		t.Fatalf("expected last value 10, got %d", last)
	}

	if err = b.ResetAccumulator(spi.OnboardCS0); err != nil {
		t.Fatal(err)
	}
	v, c, err = b.AccumulatorOutput(spi.OnboardCS0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 10 || c != 1 {
		t.Fatalf("after reset: expected output (10, 1), got (%d, %d)", v, c)
	}

	if err = b.FreeAccumulator(spi.OnboardCS0); err != nil {
		t.Fatal(err)
	}
	if _, _, err = b.AccumulatorOutput(spi.OnboardCS0); errors.Cause(err) != spi.ErrNoAccumulator {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestBus_accumulatorDecode(t *testing.T) {
	var samples [][]byte
	calls := 0
	dev := &spitest.Scripted{}
	dev.Sampler = spi.SamplerFunc(func() ([]byte, error) {
		// each accumulator update makes a size query then a read.
		s := samples[calls/2%len(samples)]
		calls++
		return s, nil
	})

	// ADXRS450 style records: status bits in the high byte, signed 16 bits
	// data at bit 10.
	cfg := spi.AccumulatorConfig{
		Command:      0x20000000,
		TransferSize: 4,
		ValidMask:    0x0c00000e,
		ValidValue:   0x04000000,
		DataShift:    10,
		DataSize:     16,
		Signed:       true,
		BigEndian:    true,
	}
	samples = [][]byte{
		record(0x04000000 | 100<<10),
		record(0x04000000 | uint32(uint16(0xFFFF&-50))<<10),
		record(0x0c000000 | 1000<<10), // invalid, ignored
		record(0x04000000 | 2<<10),
	}
	b := spitest.Open(t, spi.OnboardCS0, dev)
	if err := b.InitAccumulator(spi.OnboardCS0, cfg); err != nil {
		t.Fatal(err)
	}
	if err := b.SetAccumulatorCenter(spi.OnboardCS0, 0); err != nil {
		t.Fatal(err)
	}
	if err := b.SetAccumulatorDeadband(spi.OnboardCS0, 5); err != nil {
		t.Fatal(err)
	}
	var last int32
	for range samples {
		var err error
		if last, err = b.AccumulatorLastValue(spi.OnboardCS0); err != nil {
			t.Fatal(err)
		}
	}
	v, c, err := b.AccumulatorOutput(spi.OnboardCS0)
	if err != nil {
		t.Fatal(err)
	}
	// the last getter call accumulated the first sample again.
	if v != 100-50+100 || c != 4 {
		t.Fatalf("expected output (150, 4), got (%d, %d)", v, c)
	}
	if last != 2 {
		t.Fatalf("expected last value 2, got %d", last)
	}
}

func TestBus_accumulatorNoSampler(t *testing.T) {
	b := spitest.Open(t, spi.OnboardCS0, &spitest.Scripted{})
	if err := b.InitAccumulator(spi.OnboardCS0, rawConfig()); err != nil {
		t.Fatal(err)
	}
	if _, _, err := b.AccumulatorOutput(spi.OnboardCS0); errors.Cause(err) != spi.ErrNotImplemented {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestBus_accumulatorConfig(t *testing.T) {
	b := spitest.Open(t, spi.OnboardCS0, &spitest.Scripted{})
	for _, cfg := range []spi.AccumulatorConfig{
		{TransferSize: 0, DataSize: 16},
		{TransferSize: 5, DataSize: 16},
		{TransferSize: 4, DataSize: 0},
		{TransferSize: 4, DataSize: 33},
		{TransferSize: 4, DataSize: 16, DataShift: 32},
	} {
		if err := b.InitAccumulator(spi.OnboardCS0, cfg); err == nil {
			t.Errorf("config %+v accepted", cfg)
		}
	}
}
