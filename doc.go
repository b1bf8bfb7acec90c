/*
Package halsim provides a software-only stand-in for a robot's hardware I/O
layer so that robot control code can run and be tested without physical
hardware.

It exposes the same logical ports a real hardware abstraction layer would
(analog channels, digital I/O, encoders, pneumatics, power rails...) backed
by an in-memory register store that test code and simulated devices can read
and write.

Every register is tagged at definition time as world-writable (an input the
simulated world sets, like a measured voltage) or robot-writable (an output
robot code sets, like a commanded duty cycle). The register schema is declared
as Go structs with field tags, in the same spirit as:

	type encoder struct {
		Initialized bool `hal:"out"`
		Count       int  `hal:"in"`
	}

When a Store is built, the tags are consumed once to split the registers into
the canonical store and a world input view that only holds world-writable
registers. External physics processes take the view, update it and merge it
back with Store.Apply without clobbering robot-owned state.

Some containers are NotifyDicts: observers registered on their keys are called
synchronously whenever a key is set, which lets simulated devices react to
robot writes.

The SPI bus emulation lives in the spi sub-package, simulated devices in the
devices sub-package and background world updaters in the world sub-package.
*/
package halsim
