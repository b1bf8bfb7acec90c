// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package halsim

import (
	"sort"
	"strconv"
)

// Map is the interface implemented by register containers with named
// entries.
//
type Map interface {
	// Get returns the value for key and whether it was found.
	Get(key string) (interface{}, bool)
	// Set sets the value for key.
	Set(key string, v interface{})
	// Keys returns the container keys in sorted order.
	Keys() []string
	// Len returns the number of entries.
	Len() int
}

// Dict is a plain register container. Writes have no side effect.
//
type Dict map[string]interface{}

// Get implements Map.
//
func (d Dict) Get(key string) (interface{}, bool) {
	v, ok := d[key]
	return v, ok
}

// Set implements Map.
//
func (d Dict) Set(key string, v interface{}) { d[key] = v }

// Keys implements Map.
//
func (d Dict) Keys() []string { return sortedKeys(d) }

// Len implements Map.
//
func (d Dict) Len() int { return len(d) }

// List is a fixed-length register sequence. Elements are either scalars
// (leaf sequences like joystick buttons) or Maps (one per channel).
//
type List []interface{}

// CANKey returns the key of CAN device number n in the "CAN" container.
//
func CANKey(n int) string { return strconv.Itoa(n) }

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// deepCopy returns an independent copy of v. Containers are copied
// recursively, scalars are returned as is. A *NotifyDict is copied as a plain
// Dict: observers belong to the store they were registered on.
//
func deepCopy(v interface{}) interface{} {
	switch v := v.(type) {
	case Dict:
		return copyMap(v)
	case *NotifyDict:
		return copyMap(v)
	case map[string]interface{}:
		return copyMap(Dict(v))
	case List:
		return copyList(v)
	case []interface{}:
		return copyList(v)
	}
	return v
}

func copyMap(m Map) Dict {
	d := make(Dict, m.Len())
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		d[k] = deepCopy(v)
	}
	return d
}

func copyList(l []interface{}) List {
	c := make(List, len(l))
	for i, v := range l {
		c[i] = deepCopy(v)
	}
	return c
}
