// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package halsim

import (
	"github.com/pkg/errors"
)

// Merge applies update onto target in place.
//
// update must have the same shape as target or a subset of it: maps are
// merged recursively, sequences are merged element by element and must have
// the same length as the target sequence, other values overwrite the target
// value. Merge never adds or removes keys or sequence elements.
//
// All writes go through target's Set method, so observers registered on a
// NotifyDict are notified. When a scalar sequence held by a NotifyDict is
// updated, the sequence is Set again once all its elements are written.
//
// update is checked against target before anything is written: on error,
// target is left unchanged and no observer is notified.
//
func Merge(update, target Map) error {
	if err := merge("", update, target, false); err != nil {
		return err
	}
	return merge("", update, target, true)
}

// merge walks update and target together. Values are only written when set
// is true.
//
func merge(path string, update, target Map, set bool) error {
	for _, k := range update.Keys() {
		p := joinKey(path, k)
		uv, _ := update.Get(k)
		tv, ok := target.Get(k)
		if !ok {
			return errors.Wrap(ErrNoSuchKey, p)
		}
		if um, ok := asMap(uv); ok {
			tm, ok := asMap(tv)
			if !ok {
				return errors.Wrapf(ErrShape, "%s: cannot merge a map into %T", p, tv)
			}
			if err := merge(p, um, tm, set); err != nil {
				return err
			}
			continue
		}
		if ul, ok := asList(uv); ok {
			tl, ok := asList(tv)
			if !ok {
				return errors.Wrapf(ErrShape, "%s: cannot merge a sequence into %T", p, tv)
			}
			scalars, err := mergeList(p, ul, tl, set)
			if err != nil {
				return err
			}
			if scalars && set {
				target.Set(k, tv)
			}
			continue
		}
		if isContainer(tv) {
			return errors.Wrapf(ErrShape, "%s: cannot overwrite %T with %T", p, tv, uv)
		}
		if set {
			target.Set(k, uv)
		}
	}
	return nil
}

// mergeList merges update into target by position. It reports whether any
// scalar element was written.
//
func mergeList(path string, update, target []interface{}, set bool) (bool, error) {
	if len(update) != len(target) {
		return false, errors.Wrapf(ErrShape, "%s: sequence length %d, expected %d", path, len(update), len(target))
	}
	scalars := false
	for i, uv := range update {
		p := joinIndex(path, i)
		if um, ok := asMap(uv); ok {
			tm, ok := asMap(target[i])
			if !ok {
				return false, errors.Wrapf(ErrShape, "%s: cannot merge a map into %T", p, target[i])
			}
			if err := merge(p, um, tm, set); err != nil {
				return false, err
			}
			continue
		}
		if _, ok := asList(uv); ok {
			return false, errors.Wrapf(ErrShape, "%s: nested sequences are not supported", p)
		}
		if isContainer(target[i]) {
			return false, errors.Wrapf(ErrShape, "%s: cannot overwrite %T with %T", p, target[i], uv)
		}
		if set {
			target[i] = uv
		}
		scalars = true
	}
	return scalars, nil
}

func asMap(v interface{}) (Map, bool) {
	switch v := v.(type) {
	case Dict:
		return v, true
	case *NotifyDict:
		return v, true
	case map[string]interface{}:
		return Dict(v), true
	}
	return nil, false
}

func asList(v interface{}) ([]interface{}, bool) {
	switch v := v.(type) {
	case List:
		return v, true
	case []interface{}:
		return v, true
	}
	return nil, false
}

func isContainer(v interface{}) bool {
	if _, ok := asMap(v); ok {
		return true
	}
	_, ok := asList(v)
	return ok
}
