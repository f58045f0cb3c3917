package console

import "github.com/ssakurai/rlvm/bytecode"

// Event is one thing a Runner reports back to its frontend, mirroring
// the teacher's zoo of channel message types (InputRequest, Save,
// Restore, StatusBar, ScreenModel, ...) cut down to what RLVM's
// narrower, Non-goal-trimmed scope actually needs: text, page breaks, a
// pending choice, and the machine halting.
type Event interface{ isEvent() }

// TextEvent is a run of text written to the surface.
type TextEvent string

func (TextEvent) isEvent() {}

// PageEvent marks a NewPage call: the frontend should flush whatever
// it's accumulated into its backlog.
type PageEvent struct{}

func (PageEvent) isEvent() {}

// BrakeEvent marks a HardBrake call. The frontend never animates a
// partial reveal itself - the machine's Textout dispatch gives
// TextoutLongOp the run's full length as its per-tick count, so each
// Write carries a whole textout run - so there's nothing to do beyond
// the tick.
type BrakeEvent struct{}

func (BrakeEvent) isEvent() {}

// ChoiceEvent carries a Select menu's already-filtered options. The
// frontend must eventually call Runner.Answer with the chosen index;
// the engine goroutine sits blocked inside PromptChoice until it does.
type ChoiceEvent struct {
	Params []bytecode.SelectParam
}

func (ChoiceEvent) isEvent() {}

// HaltEvent reports that the machine's Step loop has stopped.
type HaltEvent struct{}

func (HaltEvent) isEvent() {}
