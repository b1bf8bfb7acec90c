// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package halsim

import (
	"github.com/pkg/errors"
)

// An Observer is called with the key and new value each time an entry of a
// NotifyDict is set.
//
type Observer func(key string, value interface{}) error

// NotifyDict is a register container that calls registered observers
// synchronously whenever one of its entries is set.
//
// Only writes through Set notify observers. Reads have no side effect.
//
type NotifyDict struct {
	m   Dict
	obs map[string][]Observer
	log Logger
}

// NewNotifyDict returns a new NotifyDict holding a copy of the entries of m.
// Observer failures are reported to l. If l is nil, DefaultLogger is used.
//
func NewNotifyDict(m Dict, l Logger) *NotifyDict {
	if l == nil {
		l = DefaultLogger
	}
	d := &NotifyDict{m: make(Dict, len(m)), log: l}
	for k, v := range m {
		d.m[k] = v
	}
	return d
}

// Register appends fn to the list of observers for key. If notify is true,
// fn is called once right away with the current value.
//
// Register returns an error with cause ErrNoSuchKey if the key does not exist
// in d. In this case fn is never called. An error returned by fn on immediate
// notification is returned as is.
//
func (d *NotifyDict) Register(key string, fn Observer, notify bool) error {
	v, ok := d.m[key]
	if !ok {
		return errors.Wrapf(ErrNoSuchKey, "cannot register for key %q", key)
	}
	if d.obs == nil {
		d.obs = make(map[string][]Observer)
	}
	d.obs[key] = append(d.obs[key], fn)
	if notify {
		return fn(key, v)
	}
	return nil
}

// Set sets the value for key then calls every observer registered for key,
// in registration order.
//
// Observer failures (returned errors or panics) are logged and do not prevent
// the remaining observers from running.
//
func (d *NotifyDict) Set(key string, v interface{}) {
	d.m[key] = v
	for i, fn := range d.obs[key] {
		if err := d.call(fn, key, v); err != nil {
			d.log.Printf("observer #%d for key %q failed: %+v", i, key, err)
		}
	}
}

func (d *NotifyDict) call(fn Observer, key string, v interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return fn(key, v)
}

// Get implements Map.
//
func (d *NotifyDict) Get(key string) (interface{}, bool) {
	v, ok := d.m[key]
	return v, ok
}

// Keys implements Map.
//
func (d *NotifyDict) Keys() []string { return sortedKeys(d.m) }

// Len implements Map.
//
func (d *NotifyDict) Len() int { return len(d.m) }

// Observers returns the number of observers registered for key.
//
func (d *NotifyDict) Observers(key string) int { return len(d.obs[key]) }
