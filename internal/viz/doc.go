// Package viz renders a running cloth in the terminal.
//
// [Model] is a Bubble Tea program that drives a [sim.Driver] from the frame
// clock, draws the structural mesh on a Braille [Canvas] through an orbiting
// [Camera], and shows energy, stretch and stability readouts next to it.
//
// # Key Bindings
//
//	Space      pause / resume
//	n          single step while paused
//	r          reset the cloth to rest
//	Tab        select the next parameter
//	Up/Down    raise or lower the selected parameter
//	i          cycle integrator
//	p          cycle pin mode
//	u          toggle pause on instability
//	< >        slow down / speed up playback
//	h/l  w/s   orbit the camera
//	+ -        zoom
//	t          cycle theme
//	?          help
//	q          quit
package viz
