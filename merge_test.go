package halsim_test

import (
	"testing"

	"github.com/db47h/halsim"
	"github.com/pkg/errors"
)

func TestMerge(t *testing.T) {
	target := halsim.Dict{
		"a": 1,
		"g": halsim.Dict{"x": 1.0, "y": "y"},
		"l": halsim.List{halsim.Dict{"v": 0}, halsim.Dict{"v": 0}},
		"s": halsim.List{false, false},
	}
	err := halsim.Merge(halsim.Dict{
		"g": map[string]interface{}{"x": 2.0},
		"l": []interface{}{halsim.Dict{}, halsim.Dict{"v": 3}},
		"s": halsim.List{true, false},
	}, target)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	g := target["g"].(halsim.Dict)
	if target["a"] != 1 || g["x"] != 2.0 || g["y"] != "y" {
		t.Fatalf("bad merge result %v", target)
	}
	if l := target["l"].(halsim.List); l[0].(halsim.Dict)["v"] != 0 || l[1].(halsim.Dict)["v"] != 3 {
		t.Fatalf("bad list merge %v", l)
	}
	if s := target["s"].(halsim.List); s[0] != true || s[1] != false {
		t.Fatalf("bad scalar list merge %v", s)
	}
}

func TestMerge_errors(t *testing.T) {
	target := func() halsim.Dict {
		return halsim.Dict{
			"a": 1,
			"g": halsim.Dict{"x": 1.0},
			"l": halsim.List{halsim.Dict{"v": 0}},
		}
	}
	data := []struct {
		name   string
		update halsim.Dict
		cause  error
	}{
		{"absent key", halsim.Dict{"b": 1}, halsim.ErrNoSuchKey},
		{"absent nested key", halsim.Dict{"g": halsim.Dict{"z": 1}}, halsim.ErrNoSuchKey},
		{"map into scalar", halsim.Dict{"a": halsim.Dict{}}, halsim.ErrShape},
		{"scalar into map", halsim.Dict{"g": 1}, halsim.ErrShape},
		{"scalar into list", halsim.Dict{"l": 1}, halsim.ErrShape},
		{"list into scalar", halsim.Dict{"a": halsim.List{}}, halsim.ErrShape},
		{"list length", halsim.Dict{"l": halsim.List{halsim.Dict{}, halsim.Dict{}}}, halsim.ErrShape},
		{"nested list", halsim.Dict{"l": halsim.List{halsim.List{}}}, halsim.ErrShape},
		{"scalar into list element", halsim.Dict{"l": halsim.List{1}}, halsim.ErrShape},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			if err := halsim.Merge(d.update, target()); errors.Cause(err) != d.cause {
				t.Fatalf("expected cause %v, got %v", d.cause, err)
			}
		})
	}
}

func TestMerge_notify(t *testing.T) {
	nd := halsim.NewNotifyDict(halsim.Dict{"value": 0.0, "buttons": halsim.List{false, false}}, &recorder{})
	target := halsim.Dict{"n": nd}
	var keys []string
	obs := func(key string, v interface{}) error {
		keys = append(keys, key)
		return nil
	}
	for _, k := range []string{"value", "buttons"} {
		if err := nd.Register(k, obs, false); err != nil {
			t.Fatal(err)
		}
	}
	err := halsim.Merge(halsim.Dict{"n": halsim.Dict{"value": 1.0, "buttons": halsim.List{true, true}}}, target)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 notifications, got %v", keys)
	}
	b, _ := nd.Get("buttons")
	if l := b.(halsim.List); l[0] != true || l[1] != true {
		t.Fatalf("buttons not set: %v", l)
	}
}

func TestMerge_atomic(t *testing.T) {
	nd := halsim.NewNotifyDict(halsim.Dict{"value": 0.0}, &recorder{})
	notified := 0
	if err := nd.Register("value", func(string, interface{}) error { notified++; return nil }, false); err != nil {
		t.Fatal(err)
	}
	target := halsim.Dict{
		"a": 1,
		"l": halsim.List{false, false},
		"n": nd,
	}
	// keys are merged in sorted order: "z" fails after the others are checked.
	err := halsim.Merge(halsim.Dict{
		"a": 2,
		"l": halsim.List{true, true},
		"n": halsim.Dict{"value": 1.0},
		"z": 1,
	}, target)
	if errors.Cause(err) != halsim.ErrNoSuchKey {
		t.Fatalf("unexpected error %v", err)
	}
	if v, _ := nd.Get("value"); target["a"] != 1 || v != 0.0 {
		t.Fatalf("failed merge modified target: a = %v, value = %v", target["a"], v)
	}
	if l := target["l"].(halsim.List); l[0] != false || l[1] != false {
		t.Fatalf("failed merge modified list %v", l)
	}
	if notified != 0 {
		t.Fatalf("failed merge notified %d observers", notified)
	}
}
