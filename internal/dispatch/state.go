package dispatch

import "fmt"

// State 单笔派发的状态
type State string

const (
	StateIdle        State = "IDLE"
	StateProbing     State = "PROBING"
	StateDispatching State = "DISPATCHING"
	StatePolling     State = "POLLING"
	StateConfirming  State = "CONFIRMING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

var transitions = map[State][]State{
	StateIdle:        {StateProbing, StateFailed},
	StateProbing:     {StateDispatching, StateFailed},
	StateDispatching: {StatePolling, StateConfirming, StateFailed},
	StatePolling:     {StateConfirming, StateFailed},
	StateConfirming:  {StateDone, StateFailed},
}

func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition 是否允许 from -> to
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Run 记录一次派发经过的状态
type Run struct {
	States       []State
	PollAttempts int

	onTransition func(from, to State)
}

func newRun(hook func(from, to State)) *Run {
	return &Run{States: []State{StateIdle}, onTransition: hook}
}

func (r *Run) Current() State {
	return r.States[len(r.States)-1]
}

func (r *Run) advance(to State) error {
	from := r.Current()
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid dispatch transition %s -> %s", from, to)
	}
	r.States = append(r.States, to)
	if r.onTransition != nil {
		r.onTransition(from, to)
	}
	return nil
}
