package machine

// TextSurface is the external text-display collaborator the machine
// forwards Textout instructions and a handful of long-operation
// post-actions to. Rendering, word-wrap, and window management are the
// host's problem; the machine only needs to hand over text and the two
// page-lifecycle signals the teacher's screen model exposes.
//
// Excluded by spec.md's Non-goals (graphics/text-encoding backends); this
// is the narrow seam the Machine needs from that excluded layer.
type TextSurface interface {
	// Write appends s to the currently open text page.
	Write(s string)
	// NewPage starts a fresh page, clearing whatever was displayed.
	NewPage()
	// HardBrake snaps any in-progress reveal to its final state.
	HardBrake()
}

// InputSource lets a Pause long operation check for user-driven
// advancement without the machine depending on any concrete UI toolkit.
type InputSource interface {
	// PollInput reports whether the user has signalled "continue" since
	// the last call.
	PollInput() bool
}
