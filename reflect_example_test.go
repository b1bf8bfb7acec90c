package halsim_test

import (
	"fmt"

	"github.com/db47h/halsim"
)

type motor struct {
	Initialized bool    `hal:"out"`
	Value       float64 `hal:"out"`
}

type sensor struct {
	Count int  `hal:"in"`
	Fault bool `hal:"in,has_fault"` // the second tag value forces the key to "has_fault"
}

// a custom register schema
type bot struct {
	Motors  [2]motor `hal:",motors,notify"` // each motor is a NotifyDict
	Sensors [2]sensor
	Mode    string `hal:"out"`
}

func ExampleTemplateOf() {
	tmpl, err := halsim.TemplateOf(&bot{Mode: "disabled"})
	if err != nil {
		panic(err)
	}
	s, err := halsim.New(tmpl, halsim.Config{})
	if err != nil {
		panic(err)
	}

	// watch robot writes to motor 1
	err = s.Register(func(key string, v interface{}) error {
		fmt.Printf("motor 1 %s set to %v\n", key, v)
		return nil
	}, false, "motors", 1, "value")
	if err != nil {
		panic(err)
	}
	if err = s.Set(0.5, "motors", 1, "value"); err != nil {
		panic(err)
	}

	// the world only sees sensors
	in := s.WorldInput()
	fmt.Println(in)
	in["sensors"].(halsim.List)[0].(halsim.Dict)["count"] = 42
	if err = s.Apply(in); err != nil {
		panic(err)
	}
	v, _ := s.Get("sensors", 0, "count")
	fmt.Println(v)

	// Output:
	// motor 1 value set to 0.5
	// map[sensors:[map[count:0 has_fault:false] map[count:0 has_fault:false]]]
	// 42
}
