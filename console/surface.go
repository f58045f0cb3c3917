package console

// Surface implements machine.TextSurface by forwarding every call to
// the Runner's event channel as a typed Event, rather than buffering
// text itself. That keeps all display state owned by the frontend's
// own goroutine (a bubbletea Model mutates only its own fields inside
// Update), the same separation the teacher keeps between the
// goroutine driving ZMachine.Run() and runStoryModel's fields.
type Surface struct {
	events chan<- Event
}

func (s *Surface) Write(text string) { s.events <- TextEvent(text) }
func (s *Surface) NewPage()          { s.events <- PageEvent{} }
func (s *Surface) HardBrake()        { s.events <- BrakeEvent{} }
