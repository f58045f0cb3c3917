package console

import (
	"time"

	"github.com/ssakurai/rlvm/bytecode"
	"github.com/ssakurai/rlvm/machine"
	"github.com/ssakurai/rlvm/scriptor"
)

// tickInterval paces Run's Step loop. Zoom's time-driven interpolation
// and TextoutLongOp's multi-frame reveal (machine/builtin_longops.go)
// both already assume Invoke is called at something like a steady frame
// rate rather than a tight spin; Run supplies that rate.
const tickInterval = 4 * time.Millisecond

// Runner drives a Machine's Step loop on its own goroutine and is the
// bridge between it and a bubbletea frontend: a Surface/Input pair
// satisfy the machine's TextSurface/InputSource seam, and Runner itself
// satisfies ChoicePrompter for the built-in Select opcode RegisterSelect
// installs.
//
// Grounded on the teacher's channel-driven pairing of ZMachine.Run()
// with runInterpreter/waitForInterpreter (main.go): a background
// goroutine owns the engine and only ever talks to the frontend through
// channels, generalized from the Z-machine's fixed InputRequest/Save/
// Restore/StatusBar/ScreenModel message zoo down to the narrower Event
// set RLVM's Non-goal-trimmed scope needs.
type Runner struct {
	engine *machine.Machine
	input  *Input

	events     chan Event
	choiceResp chan int
}

// NewRunner builds a Machine wired to a fresh Surface/Input pair and
// registers the built-in Select opcode into registry.
func NewRunner(script *scriptor.Scriptor, registry *machine.OpcodeRegistry, reporter machine.FatalErrorReporter) *Runner {
	r := &Runner{
		events:     make(chan Event),
		choiceResp: make(chan int),
		input:      NewInput(),
	}
	surface := &Surface{events: r.events}
	r.engine = machine.New(script, registry, surface, reporter)
	RegisterSelect(registry, r)
	return r
}

// Engine returns the wrapped Machine, so a caller can Start it and
// inspect its state (Memory, StoreReg, Halted) once the frontend exits.
func (r *Runner) Engine() *machine.Machine { return r.engine }

// Input returns the InputSource a Pause long operation should poll.
func (r *Runner) Input() *Input { return r.input }

// Events is the channel a frontend reads from.
func (r *Runner) Events() <-chan Event { return r.events }

// Run steps the engine until it halts, reporting a HaltEvent at the
// end. Intended to run on its own goroutine, the way the teacher's
// ZMachine.Run() does.
func (r *Runner) Run() {
	for !r.engine.Halted {
		r.engine.Step()
		time.Sleep(tickInterval)
	}
	r.events <- HaltEvent{}
}

// PromptChoice implements ChoicePrompter: it reports a ChoiceEvent to
// the frontend and blocks until Answer delivers the chosen index.
func (r *Runner) PromptChoice(params []bytecode.SelectParam) (int, error) {
	r.events <- ChoiceEvent{Params: params}
	return <-r.choiceResp, nil
}

// Answer delivers the frontend's chosen index back to a blocked
// PromptChoice call.
func (r *Runner) Answer(index int) {
	r.choiceResp <- index
}
