// Package io reads scene and script files and writes run results.
//
// # Formats
//
// Every file can be TOML, YAML or JSON; the format follows the file
// extension (.toml, .yaml/.yml, .json). Unknown keys are rejected so typos
// surface as errors instead of silently ignored settings.
//
// # Scene Files
//
// A scene lists transforms, the initial selection and the current time:
//
//	time = 1
//	selection = ["hips", "head"]
//
//	[[nodes]]
//	name = "hips"
//	translate = [0, 1, 0]
//
//	[[nodes]]
//	name = "head"
//	parent = "hips"
//	translate = [0, 0.6, 0]
//	rotate = [0, 0, 15]
//	pivot = [0, 0.1, 0]
//
// Node fields:
//   - name: required, unique
//   - parent: name of the parent node (any order)
//   - uuid: stable identity; derived from the name when omitted, so offsets
//     learned in one run are found again in the next
//   - translate, rotate (XYZ degrees), scale, pivot: three numbers each
//
// # Script Files
//
// A script is a list of steps replayed against the scene, one operation per
// step:
//
//	steps:
//	  - select: [hips, head]   # start a temp pivot on these nodes
//	  - move: [0, 2, 0]        # translate the master group
//	  - rotate: [0, 90, 0]     # rotate it about its manipulator pivot
//	  - scale: [2, 2, 2]       # scale it about its manipulator pivot
//	  - pivot: [0, 1, 0]       # relocate its manipulator pivot
//	  - time: 24               # change the current time
//	  - delete: head           # delete a node behind the engine's back
//	  - deselect: true         # end the session
//	  - cancel: true           # end the session immediately
//
// # Results
//
// [WriteResult] encodes the final node positions and learned offsets of a
// run in any of the three formats.
package io
