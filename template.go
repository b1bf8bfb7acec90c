// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package halsim

// Dir is the direction tag of a register leaf. It tells which side owns
// write access to the register.
//
type Dir int

// Direction tags.
//
const (
	// Robot registers are set by robot code and only read by the simulated
	// world (commanded duty cycle, enabled flag...).
	Robot Dir = iota
	// World registers are set by the simulated world and only read by robot
	// code (measured voltage, button state, sensor count...).
	World
)

func (d Dir) String() string {
	switch d {
	case Robot:
		return "out"
	case World:
		return "in"
	}
	return "invalid"
}

// A Leaf is a tagged register value in a template.
//
type Leaf struct {
	Dir   Dir
	Value interface{}
}

// In returns a world-writable leaf with initial value v.
//
func In(v interface{}) Leaf { return Leaf{World, v} }

// Out returns a robot-writable leaf with initial value v.
//
func Out(v interface{}) Leaf { return Leaf{Robot, v} }

// A Group is a template node with named fields. Values must be Leaf, Group,
// NotifyGroup or Array. A Group becomes a plain Dict in the store.
//
type Group map[string]interface{}

// A NotifyGroup is like a Group but becomes a *NotifyDict in the store.
//
type NotifyGroup map[string]interface{}

// An Array is a fixed-size indexed collection of groups, one per physical
// channel. Elements must be Group or NotifyGroup.
//
type Array []interface{}

// ArrayOf returns an Array of n groups built by f.
//
func ArrayOf(n int, f func(i int) interface{}) Array {
	a := make(Array, n)
	for i := range a {
		a[i] = f(i)
	}
	return a
}
