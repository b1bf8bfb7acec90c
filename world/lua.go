// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package world

import (
	"strconv"
	"sync"

	"github.com/db47h/halsim"
	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
)

// LuaSource is a Source implemented as a Lua script.
//
// The script must define a global function:
//
//	function update(input, now, dt)
//		input.analog_in[1].voltage = 2.5 + math.sin(now)
//		return input
//	end
//
// input is the world input view converted to nested Lua tables. Sequences are
// converted to 1-based Lua arrays: channel 0 is input.analog_in[1]. The
// function returns a table with the shape of input or a subset of it, or nil.
// Registers and sequence entries missing from the returned table are left
// untouched.
//
type LuaSource struct {
	mu sync.Mutex
	l  *lua.LState
	fn lua.LValue
}

// NewLuaSource compiles and runs script, then looks up its update function.
//
func NewLuaSource(script string) (*LuaSource, error) {
	return newLuaSource(func(l *lua.LState) error { return l.DoString(script) })
}

// LoadLuaSource is like NewLuaSource but reads the script from a file.
//
func LoadLuaSource(filename string) (*LuaSource, error) {
	return newLuaSource(func(l *lua.LState) error { return l.DoFile(filename) })
}

func newLuaSource(load func(*lua.LState) error) (*LuaSource, error) {
	l := lua.NewState()
	if err := load(l); err != nil {
		l.Close()
		return nil, errors.Wrap(err, "lua source")
	}
	fn := l.GetGlobal("update")
	if fn.Type() != lua.LTFunction {
		l.Close()
		return nil, errors.New("lua source: no update function defined")
	}
	return &LuaSource{l: l, fn: fn}, nil
}

// Update implements Source.
//
func (s *LuaSource) Update(in halsim.Dict, now, dt float64) (halsim.Dict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.l.CallByParam(lua.P{Fn: s.fn, NRet: 1, Protect: true},
		toLua(s.l, in), lua.LNumber(now), lua.LNumber(dt))
	if err != nil {
		return nil, errors.Wrap(err, "lua update")
	}
	ret := s.l.Get(-1)
	s.l.Pop(1)
	if ret == lua.LNil {
		return nil, nil
	}
	t, ok := ret.(*lua.LTable)
	if !ok {
		return nil, errors.Errorf("lua update: expected a table or nil, got %s", ret.Type())
	}
	v, err := fromLua("", t, in)
	if err != nil {
		return nil, errors.Wrap(err, "lua update")
	}
	d, ok := v.(halsim.Dict)
	if !ok {
		return nil, errors.Errorf("lua update: expected a table with string keys, got %T", v)
	}
	return d, nil
}

// Close releases the Lua interpreter.
//
func (s *LuaSource) Close() {
	s.mu.Lock()
	s.l.Close()
	s.mu.Unlock()
}

func toLua(l *lua.LState, v interface{}) lua.LValue {
	switch v := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case int:
		return lua.LNumber(v)
	case int32:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float32:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case halsim.Map:
		t := l.NewTable()
		for _, k := range v.Keys() {
			e, _ := v.Get(k)
			t.RawSetString(k, toLua(l, e))
		}
		return t
	case halsim.List:
		t := l.NewTable()
		for i, e := range v {
			if e != nil {
				t.RawSetInt(i+1, toLua(l, e))
			}
		}
		return t
	}
	return lua.LNil
}

// fromLua converts a Lua value back to a store value. like is the value it
// was converted from, if any; it gives the length of sequences and the Go type
// of numbers.
//
func fromLua(path string, v lua.LValue, like interface{}) (interface{}, error) {
	switch v := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(v), nil
	case lua.LString:
		return string(v), nil
	case lua.LNumber:
		switch like.(type) {
		case int:
			return int(v), nil
		case int32:
			return int32(v), nil
		case int64:
			return int64(v), nil
		case float32:
			return float32(v), nil
		}
		return float64(v), nil
	case *lua.LTable:
		if l, ok := like.(halsim.List); ok {
			return listFromLua(path, v, l)
		}
		if m, ok := like.(halsim.Map); ok {
			return dictFromLua(path, v, m)
		}
		if v.Len() > 0 {
			return listFromLua(path, v, make(halsim.List, v.Len()))
		}
		return dictFromLua(path, v, nil)
	}
	return nil, errors.Errorf("%s: unsupported lua type %s", path, v.Type())
}

func listFromLua(path string, t *lua.LTable, like halsim.List) (interface{}, error) {
	var err error
	l := make(halsim.List, len(like))
	// elements missing from t keep their current value.
	for i, e := range like {
		if _, ok := e.(halsim.Map); ok {
			l[i] = halsim.Dict{}
		} else {
			l[i] = e
		}
	}
	t.ForEach(func(k, e lua.LValue) {
		if err != nil {
			return
		}
		i, ok := k.(lua.LNumber)
		if !ok || int(i) < 1 || int(i) > len(l) || lua.LNumber(int(i)) != i {
			err = errors.Errorf("%s: invalid sequence index %s", path, k)
			return
		}
		l[int(i)-1], err = fromLua(path+"["+strconv.Itoa(int(i)-1)+"]", e, like[int(i)-1])
	})
	return l, err
}

func dictFromLua(path string, t *lua.LTable, like halsim.Map) (interface{}, error) {
	var err error
	d := make(halsim.Dict)
	t.ForEach(func(k, e lua.LValue) {
		if err != nil {
			return
		}
		ks, ok := k.(lua.LString)
		if !ok {
			err = errors.Errorf("%s: invalid key %s", path, k)
			return
		}
		var le interface{}
		if like != nil {
			le, _ = like.Get(string(ks))
		}
		p := string(ks)
		if path != "" {
			p = path + "." + p
		}
		d[string(ks)], err = fromLua(p, e, le)
	})
	return d, err
}
