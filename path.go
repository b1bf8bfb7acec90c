// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package halsim

import (
	"fmt"

	"github.com/pkg/errors"
)

// Lookup returns the value found in root at the given path. Path elements are
// map keys (string) or sequence indices (int):
//
//	v, err := Lookup(data, "analog_in", 3, "voltage")
//
func Lookup(root interface{}, path ...interface{}) (interface{}, error) {
	v := root
	for i, e := range path {
		var err error
		if v, err = step(v, e); err != nil {
			return nil, errors.Wrap(err, pathString(path[:i+1]))
		}
	}
	return v, nil
}

// Assign sets the value at the given path in root. The last path element must
// already exist. When it designates a map entry, the write goes through the
// map's Set method so that NotifyDict observers are notified.
//
func Assign(root interface{}, value interface{}, path ...interface{}) error {
	if len(path) == 0 {
		return errors.New("empty path")
	}
	parent, err := Lookup(root, path[:len(path)-1]...)
	if err != nil {
		return err
	}
	last := path[len(path)-1]
	if _, err = step(parent, last); err != nil {
		return errors.Wrap(err, pathString(path))
	}
	switch p := parent.(type) {
	case Map:
		p.Set(last.(string), value)
	case List:
		p[last.(int)] = value
	}
	return nil
}

func step(v interface{}, e interface{}) (interface{}, error) {
	switch e := e.(type) {
	case string:
		m, ok := v.(Map)
		if !ok {
			return nil, errors.Wrapf(ErrShape, "cannot index %T with key %q", v, e)
		}
		r, ok := m.Get(e)
		if !ok {
			return nil, ErrNoSuchKey
		}
		return r, nil
	case int:
		l, ok := v.(List)
		if !ok {
			return nil, errors.Wrapf(ErrShape, "cannot index %T with %d", v, e)
		}
		if e < 0 || e >= len(l) {
			return nil, errors.Wrapf(ErrNoSuchKey, "index %d out of range [0, %d)", e, len(l))
		}
		return l[e], nil
	}
	return nil, errors.Errorf("invalid path element type %T", e)
}

func pathString(path []interface{}) string {
	var s string
	for _, e := range path {
		switch e := e.(type) {
		case int:
			s = joinIndex(s, e)
		default:
			s = joinKey(s, fmt.Sprint(e))
		}
	}
	return s
}
