// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package halsim

import (
	"log"
	"os"
)

// Logger is the logging interface used by the store. *log.Logger
// implements it.
//
type Logger interface {
	Printf(format string, v ...interface{})
}

// DefaultLogger is used when no Logger is configured.
//
var DefaultLogger Logger = log.New(os.Stderr, "halsim: ", log.LstdFlags)

// Config configures a new Store. The zero value is ready to use.
//
type Config struct {
	// Clock returns the current simulation time in seconds. It is used to
	// initialize time.program_start. If nil, time 0 is used.
	Clock func() float64
	// Logger receives observer failures. If nil, DefaultLogger is used.
	Logger Logger
}

func (c *Config) now() float64 {
	if c.Clock == nil {
		return 0
	}
	return c.Clock()
}

func (c *Config) logger() Logger {
	if c.Logger == nil {
		return DefaultLogger
	}
	return c.Logger
}
