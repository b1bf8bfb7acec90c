// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package halsim

import (
	"reflect"
	"strconv"

	"github.com/pkg/errors"
)

// partition walks a register template and splits it into the canonical store
// data and the world input view. Direction tags are consumed here: neither
// returned tree contains Leaf values.
//
// World-writable leaves are copied into both trees as independent copies.
// Robot-writable leaves only go to data. Groups and arrays are present in the
// view only if one of their descendants is world-writable.
//
// The returned shape has the nesting of the view, with world-writable leaves
// replaced by worldLeaf markers. It is used to project the current store
// values onto the view.
//
func partition(tmpl Group, l Logger) (data, view, shape Dict, err error) {
	d, sh, _, err := splitGroup("", tmpl, false, l)
	if err != nil {
		return nil, nil, nil, err
	}
	data = d.(Dict)
	shape = sh.(Dict)
	v, err := project("", shape, data)
	if err != nil {
		return nil, nil, nil, err
	}
	view = v.(Dict)
	if err = checkShape("", view, data); err != nil {
		return nil, nil, nil, err
	}
	return data, view, shape, nil
}

// worldLeaf marks a world-writable leaf in a view shape.
//
type worldLeaf struct{}

func splitNode(path string, n interface{}, l Logger) (data, shape interface{}, inView bool, err error) {
	switch n := n.(type) {
	case Leaf:
		val, err := leafValue(n.Value)
		if err != nil {
			return nil, nil, false, errors.Wrap(err, path)
		}
		switch n.Dir {
		case World:
			return val, worldLeaf{}, true, nil
		case Robot:
			return val, nil, false, nil
		}
		return nil, nil, false, errors.Wrapf(ErrStructure, "%s: invalid direction %d", path, n.Dir)
	case Group:
		return splitGroup(path, n, false, l)
	case NotifyGroup:
		return splitGroup(path, n, true, l)
	case Array:
		return splitArray(path, n, l)
	}
	return nil, nil, false, errors.Wrapf(ErrStructure, "%s: must be a Leaf, Group, NotifyGroup or Array, got %T", path, n)
}

func splitGroup(path string, fields map[string]interface{}, notify bool, l Logger) (interface{}, interface{}, bool, error) {
	data := make(Dict, len(fields))
	shape := make(Dict)
	for _, k := range sortedKeys(fields) {
		d, sh, ok, err := splitNode(joinKey(path, k), fields[k], l)
		if err != nil {
			return nil, nil, false, err
		}
		data[k] = d
		if ok {
			shape[k] = sh
		}
	}
	if notify {
		return NewNotifyDict(data, l), shape, len(shape) > 0, nil
	}
	return data, shape, len(shape) > 0, nil
}

func splitArray(path string, a Array, l Logger) (interface{}, interface{}, bool, error) {
	data := make(List, len(a))
	var shape List
	for i, e := range a {
		p := joinIndex(path, i)
		switch e.(type) {
		case Group, NotifyGroup:
		default:
			return nil, nil, false, errors.Wrapf(ErrStructure, "%s: arrays can only contain groups, got %T", p, e)
		}
		d, sh, ok, err := splitNode(p, e, l)
		if err != nil {
			return nil, nil, false, err
		}
		data[i] = d
		if ok {
			shape = append(shape, sh)
		}
	}
	if len(shape) != 0 && len(shape) != len(data) {
		return nil, nil, false, errors.Wrapf(ErrStructure, "%s: only %d of %d elements have world-writable registers", path, len(shape), len(data))
	}
	return data, shape, len(shape) > 0, nil
}

// leafValue normalizes a leaf value into a fresh store value: slices and
// arrays become List, maps with string keys become Dict.
//
func leafValue(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch v.(type) {
	case Leaf, Group, NotifyGroup, Array:
		return nil, errors.Wrapf(ErrStructure, "template node %T used as a leaf value", v)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v, nil
	case reflect.Slice, reflect.Array:
		l := make(List, rv.Len())
		for i := range l {
			e, err := leafValue(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			l[i] = e
		}
		return l, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, errors.Wrapf(ErrStructure, "unsupported map key type in %T", v)
		}
		d := make(Dict, rv.Len())
		for _, k := range rv.MapKeys() {
			e, err := leafValue(rv.MapIndex(k).Interface())
			if err != nil {
				return nil, err
			}
			d[k.String()] = e
		}
		return d, nil
	}
	return nil, errors.Wrapf(ErrStructure, "unsupported leaf value type %T", v)
}

// project returns a copy of the values of data found at the world-writable
// leaves of shape.
//
func project(path string, shape, data interface{}) (interface{}, error) {
	switch sh := shape.(type) {
	case worldLeaf:
		return deepCopy(data), nil
	case Dict:
		m, ok := data.(Map)
		if !ok {
			return nil, errors.Wrapf(ErrStructure, "%s: expected a map, got %T", path, data)
		}
		view := make(Dict, len(sh))
		for k, s := range sh {
			d, ok := m.Get(k)
			if !ok {
				return nil, errors.Wrapf(ErrStructure, "%s: missing from store", joinKey(path, k))
			}
			v, err := project(joinKey(path, k), s, d)
			if err != nil {
				return nil, err
			}
			view[k] = v
		}
		return view, nil
	case List:
		l, ok := data.(List)
		if !ok || len(l) != len(sh) {
			return nil, errors.Wrapf(ErrStructure, "%s: expected a sequence of length %d, got %T", path, len(sh), data)
		}
		view := make(List, len(sh))
		for i, s := range sh {
			v, err := project(joinIndex(path, i), s, l[i])
			if err != nil {
				return nil, err
			}
			view[i] = v
		}
		return view, nil
	}
	return nil, errors.Wrapf(ErrStructure, "%s: invalid view shape %T", path, shape)
}

// checkShape checks that every entry of view exists in data at the same
// path.
//
func checkShape(path string, view, data interface{}) error {
	switch v := view.(type) {
	case Dict:
		m, ok := data.(Map)
		if !ok {
			return errors.Wrapf(ErrStructure, "%s: view has a map, store has %T", path, data)
		}
		for k, vv := range v {
			dv, ok := m.Get(k)
			if !ok {
				return errors.Wrapf(ErrStructure, "%s: missing from store", joinKey(path, k))
			}
			if err := checkShape(joinKey(path, k), vv, dv); err != nil {
				return err
			}
		}
	case List:
		l, ok := data.(List)
		if !ok || len(l) != len(v) {
			return errors.Wrapf(ErrStructure, "%s: view and store sequences differ", path)
		}
		for i := range v {
			if err := checkShape(joinIndex(path, i), v[i], l[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func joinKey(path, k string) string {
	if path == "" {
		return k
	}
	return path + "." + k
}

func joinIndex(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
