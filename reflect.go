// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package halsim

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// TemplateOf builds a register template from a struct value (or pointer to
// struct). Register leaves are identified by field tags and their initial
// value is the field value.
//
// The field tag must be `hal:"in"` for world-writable registers or
// `hal:"out"` for robot-writable registers. By default, the register key is
// the field name in lowercase. A specific key can be forced by adding it in
// the tag: `hal:"in,key_name"`.
//
// Fields without a direction are containers:
//
//	- nested structs become groups,
//	- arrays and slices of structs become arrays of groups, one per channel,
//	- maps with string keys become free-form groups; they must be empty.
//
// The "notify" option turns a container (or each element of an array) into a
// NotifyDict in the store: `hal:",analog_in,notify"`. Fields tagged with
// `hal:"-"` and unexported fields are ignored.
//
// Untagged fields of any other type are reported as errors with cause
// ErrStructure.
//
func TemplateOf(v interface{}) (Group, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if k := rv.Kind(); k != reflect.Struct {
		return nil, errors.Wrapf(ErrStructure, "unsupported template type %q", k)
	}
	return templateOf(rv)
}

type fieldTag struct {
	key    string
	dir    Dir
	leaf   bool
	notify bool
	skip   bool
}

func parseTag(f reflect.StructField) (fieldTag, error) {
	ft := fieldTag{key: strings.ToLower(f.Name)}
	tag, ok := f.Tag.Lookup("hal")
	if !ok {
		return ft, nil
	}
	tv := strings.Split(tag, ",")
	switch tv[0] {
	case "-":
		ft.skip = true
		return ft, nil
	case "in":
		ft.dir, ft.leaf = World, true
	case "out":
		ft.dir, ft.leaf = Robot, true
	case "":
	default:
		return ft, errors.Wrapf(ErrStructure, "unsupported tag %q for field %q", tag, f.Name)
	}
	if len(tv) > 1 && tv[1] != "" {
		ft.key = tv[1]
	}
	for _, opt := range tv[min(len(tv), 2):] {
		switch opt {
		case "notify":
			ft.notify = true
		default:
			return ft, errors.Wrapf(ErrStructure, "unsupported option %q for field %q", opt, f.Name)
		}
	}
	if ft.leaf && ft.notify {
		return ft, errors.Wrapf(ErrStructure, "field %q: notify applies to containers only", f.Name)
	}
	return ft, nil
}

func templateOf(rv reflect.Value) (Group, error) {
	typ := rv.Type()
	g := make(Group, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if f.PkgPath != "" {
			continue
		}
		tag, err := parseTag(f)
		if err != nil {
			return nil, errors.Wrap(err, typ.Name())
		}
		if tag.skip {
			continue
		}
		if _, dup := g[tag.key]; dup {
			return nil, errors.Wrapf(ErrStructure, "%s: duplicate key %q", typ.Name(), tag.key)
		}
		fv := rv.Field(i)
		if tag.leaf {
			g[tag.key] = Leaf{tag.dir, fv.Interface()}
			continue
		}
		n, err := containerOf(fv, tag.notify)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", typ.Name(), f.Name)
		}
		g[tag.key] = n
	}
	return g, nil
}

func containerOf(fv reflect.Value, notify bool) (interface{}, error) {
	switch fv.Kind() {
	case reflect.Struct:
		sub, err := templateOf(fv)
		if err != nil {
			return nil, err
		}
		if notify {
			return NotifyGroup(sub), nil
		}
		return sub, nil
	case reflect.Array, reflect.Slice:
		if k := fv.Type().Elem().Kind(); k != reflect.Struct {
			return nil, errors.Wrapf(ErrStructure, "untagged sequence of %q: sequences can only contain structs", k)
		}
		a := make(Array, fv.Len())
		for i := range a {
			e, err := containerOf(fv.Index(i), notify)
			if err != nil {
				return nil, err
			}
			a[i] = e
		}
		return a, nil
	case reflect.Map:
		if fv.Type().Key().Kind() != reflect.String {
			return nil, errors.Wrapf(ErrStructure, "unsupported map type %q", fv.Type())
		}
		if fv.Len() != 0 {
			return nil, errors.Wrap(ErrStructure, "free-form groups must be empty")
		}
		if notify {
			return NotifyGroup{}, nil
		}
		return Group{}, nil
	}
	return nil, errors.Wrapf(ErrStructure, "untagged field of type %q", fv.Type())
}

func min(a, b int) int {
	if a <= b {
		return a
	}
	return b
}
