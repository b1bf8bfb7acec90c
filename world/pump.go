// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package world drives the simulated world side of a halsim.Store: sources
// compute world-writable register updates that pumps apply periodically.
//
package world

import (
	"sync"
	"time"

	"github.com/db47h/halsim"
	"github.com/pkg/errors"
	"gopkg.in/tomb.v2"
)

// A Source computes world input updates.
//
// Update is called with a copy of the world input view, the current simulation
// time and the time elapsed since the previous update, in seconds. It returns
// the update to apply to the store, which may be a subset of the view, or nil
// to leave the store untouched. The Source may modify and return in.
//
type Source interface {
	Update(in halsim.Dict, now, dt float64) (halsim.Dict, error)
}

// SourceFunc is an adapter to use an ordinary function as a Source.
//
type SourceFunc func(in halsim.Dict, now, dt float64) (halsim.Dict, error)

// Update implements Source.
//
func (f SourceFunc) Update(in halsim.Dict, now, dt float64) (halsim.Dict, error) {
	return f(in, now, dt)
}

// Pump feeds world input updates from a Source into a Store.
//
type Pump struct {
	store  *halsim.Store
	src    Source
	period time.Duration

	mu    sync.Mutex // serializes steps
	now   float64
	steps int

	t       tomb.Tomb
	smu     sync.Mutex
	started bool
}

// NewPump returns a new Pump that updates s from src every period once
// started.
//
func NewPump(s *halsim.Store, src Source, period time.Duration) *Pump {
	return &Pump{store: s, src: src, period: period}
}

// Step advances the simulation time by dt seconds and applies a single update
// from the source.
//
func (p *Pump) Step(dt float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now + dt
	up, err := p.src.Update(p.store.WorldInput(), now, dt)
	if err != nil {
		return errors.Wrapf(err, "world update at %gs", now)
	}
	if up != nil {
		if err = p.store.Apply(up); err != nil {
			return errors.Wrapf(err, "world update at %gs", now)
		}
	}
	p.now = now
	p.steps++
	return nil
}

// Now returns the current simulation time.
//
func (p *Pump) Now() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now
}

// Steps returns the number of updates applied so far.
//
func (p *Pump) Steps() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.steps
}

// Start starts updating the store in a new goroutine. The pump stops on the
// first failed update or when Stop is called.
//
func (p *Pump) Start() error {
	p.smu.Lock()
	defer p.smu.Unlock()
	if p.started {
		return errors.New("pump already started")
	}
	if p.period <= 0 {
		return errors.Errorf("invalid pump period %v", p.period)
	}
	p.started = true
	p.t.Go(p.loop)
	return nil
}

func (p *Pump) loop() error {
	tick := time.NewTicker(p.period)
	defer tick.Stop()
	dt := p.period.Seconds()
	for {
		select {
		case <-p.t.Dying():
			return nil
		case <-tick.C:
			if err := p.Step(dt); err != nil {
				p.store.Logger().Printf("world pump stopped: %v", err)
				return err
			}
		}
	}
}

func (p *Pump) isStarted() bool {
	p.smu.Lock()
	defer p.smu.Unlock()
	return p.started
}

// Stop stops the pump and waits for its goroutine to exit. It returns the
// error that stopped the pump, if any.
//
func (p *Pump) Stop() error {
	if !p.isStarted() {
		return nil
	}
	p.t.Kill(nil)
	return p.t.Wait()
}

// Wait waits for the pump to stop and returns the error that stopped it, if
// any.
//
func (p *Pump) Wait() error {
	if !p.isStarted() {
		return nil
	}
	return p.t.Wait()
}

// Dead returns a channel that is closed once the pump has stopped.
//
func (p *Pump) Dead() <-chan struct{} {
	return p.t.Dead()
}
