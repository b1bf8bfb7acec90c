// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command halsim runs a short headless simulation: a gyro rotating at a
// constant rate on SPI port 0 and an optional Lua world script.
//
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/db47h/halsim"
	"github.com/db47h/halsim/devices"
	"github.com/db47h/halsim/spi"
	"github.com/db47h/halsim/world"
)

func main() {
	var (
		script   = flag.String("script", "", "Lua world `file`")
		period   = flag.Duration("period", 20*time.Millisecond, "world update period")
		duration = flag.Duration("duration", time.Second, "simulation duration")
		rate     = flag.Float64("rate", 90, "gyro rotation rate in degrees per second")
		dump     = flag.Bool("dump", false, "dump the register store on exit")
	)
	flag.Parse()
	log.SetFlags(0)
	log.SetPrefix("halsim: ")
	if *duration <= 0 || *period <= 0 {
		log.Fatal("duration and period must be positive")
	}

	start := time.Now()
	s, err := halsim.Reset(halsim.Config{
		Clock:  func() float64 { return time.Since(start).Seconds() },
		Logger: log.New(os.Stderr, "halsim: ", 0),
	})
	if err != nil {
		log.Fatalf("%+v", err)
	}

	bus := spi.NewBus()
	gyro := devices.NewADXRS450(s)
	if err = bus.Open(spi.OnboardCS0, gyro); err != nil {
		log.Fatalf("%+v", err)
	}
	defer bus.Close(spi.OnboardCS0)
	if err = bus.InitAccumulator(spi.OnboardCS0, devices.ADXRS450Accumulator); err != nil {
		log.Fatalf("%+v", err)
	}

	var lsrc *world.LuaSource
	if *script != "" {
		if lsrc, err = world.LoadLuaSource(*script); err != nil {
			log.Fatalf("%+v", err)
		}
		defer lsrc.Close()
	}
	angleKey := devices.ADXRS450AngleKey(spi.OnboardCS0)
	src := world.SourceFunc(func(in halsim.Dict, now, dt float64) (halsim.Dict, error) {
		if err := s.SetRobot(angleKey, *rate*now); err != nil {
			return nil, err
		}
		if lsrc != nil {
			return lsrc.Update(in, now, dt)
		}
		return nil, nil
	})

	p := world.NewPump(s, src, *period)
	if err = p.Start(); err != nil {
		log.Fatalf("%+v", err)
	}
	tick := time.NewTicker(*duration / 5)
	defer tick.Stop()
	timeout := time.After(*duration)
loop:
	for {
		select {
		case <-tick.C:
			v, c, err := bus.AccumulatorOutput(spi.OnboardCS0)
			if err != nil {
				log.Fatalf("%+v", err)
			}
			log.Printf("t=%.2fs angle=%.3f samples=%d", p.Now(), devices.ADXRS450Angle(v), c)
		case <-p.Dead():
			break loop
		case <-timeout:
			break loop
		}
	}
	if err = p.Stop(); err != nil {
		log.Fatalf("%+v", err)
	}
	if *dump {
		fmt.Println(s.Dump())
	}
}
