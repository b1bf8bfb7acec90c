// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package halsim

import (
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
)

// Store holds every simulated hardware register for the duration of a
// simulated run.
//
// A Store is the context object passed to simulated devices and test
// harnesses. Its methods are safe for concurrent use: all of them serialize on
// a single lock around the whole register tree. Observers registered on
// NotifyDict containers run with that lock held and must not call Store
// methods.
//
type Store struct {
	mu    sync.Mutex
	data  Dict
	shape Dict
	log   Logger
}

// Reset builds a new Store from the register schema. Each simulated run
// should start with a fresh Store.
//
// Reset fails if the register schema is malformed. The returned error's cause
// is ErrStructure.
//
func Reset(cfg Config) (*Store, error) {
	tmpl, err := TemplateOf(newRegisters(cfg.now()))
	if err != nil {
		return nil, errors.Wrap(err, "register schema")
	}
	return New(tmpl, cfg)
}

// New builds a new Store from a custom register template.
//
func New(tmpl Group, cfg Config) (*Store, error) {
	l := cfg.logger()
	data, _, shape, err := partition(tmpl, l)
	if err != nil {
		return nil, err
	}
	return &Store{data: data, shape: shape, log: l}, nil
}

// Do calls f with the register tree while holding the store lock. f must not
// retain the tree after it returns.
//
func (s *Store) Do(f func(data Dict) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f(s.data)
}

// Get returns a copy of the value found at the given path. See Lookup.
//
func (s *Store) Get(path ...interface{}) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := Lookup(s.data, path...)
	if err != nil {
		return nil, err
	}
	return deepCopy(v), nil
}

// Set sets the value at the given path. See Assign.
//
func (s *Store) Set(value interface{}, path ...interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Assign(s.data, value, path...)
}

// Register registers fn as an observer for key in the NotifyDict found at the
// given path.
//
//	s.Register(onSet, "pwm", 3, "value")
//
func (s *Store) Register(fn Observer, notify bool, path ...interface{}) error {
	if len(path) == 0 {
		return errors.New("empty path")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := Lookup(s.data, path[:len(path)-1]...)
	if err != nil {
		return err
	}
	nd, ok := c.(*NotifyDict)
	if !ok {
		return errors.Wrapf(ErrShape, "%s: not a notifying container", pathString(path[:len(path)-1]))
	}
	key, ok := path[len(path)-1].(string)
	if !ok {
		return errors.Errorf("invalid key type %T", path[len(path)-1])
	}
	return errors.Wrap(nd.Register(key, fn, notify), pathString(path))
}

// WorldInput returns a copy of the world input view: a tree with the same
// nesting as the store that only contains world-writable registers, with
// their current values.
//
// The returned Dict can be modified freely and then applied with Apply.
//
func (s *Store) WorldInput() Dict {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := project("", s.shape, s.data)
	if err != nil {
		// keys are never removed from the store.
		panic(err)
	}
	return v.(Dict)
}

// Apply merges a world input update into the store. update must have the
// shape of the world input view or a subset of it; registers missing from
// update are left untouched. A failed Apply leaves the store unchanged. See
// Merge.
//
// Apply does not check that update only contains world-writable registers.
//
func (s *Store) Apply(update Dict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Merge(update, s.data)
}

// Robot returns the value of key in the free-form "robot" namespace, or def
// if it is not set.
//
func (s *Store) Robot(key string, def interface{}) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.data["robot"].(Map)
	if !ok {
		return def
	}
	if v, ok := r.Get(key); ok {
		return deepCopy(v)
	}
	return def
}

// SetRobot sets the value of key in the free-form "robot" namespace.
//
func (s *Store) SetRobot(key string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.data["robot"].(Map)
	if !ok {
		return errors.Wrap(ErrNoSuchKey, "robot")
	}
	r.Set(key, v)
	return nil
}

// Logger returns the logger the store reports observer failures to.
//
func (s *Store) Logger() Logger { return s.log }

// Dump returns a human readable dump of the register tree.
//
func (s *Store) Dump() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dumpConfig.Sdump(copyMap(s.data))
}

var dumpConfig = &spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}
