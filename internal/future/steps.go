package future

import (
	"time"

	"github.com/sencha/orion-core/internal/player"
)

// AndStep is one item of an And chain. Build with Inspect, InspectAsync, or
// StepTimeout.
type AndStep struct {
	sync       func(v any)
	async      func(v any, done *player.Completion)
	timeout    time.Duration
	hasTimeout bool
}

// Inspect runs fn with the future's value once every earlier playable in the
// chain has finished. The value is the resolved element for element futures,
// the component for component futures, and the record for item futures.
func Inspect(fn func(v any)) AndStep {
	return AndStep{sync: fn}
}

// InspectAsync runs fn with the future's value and a completion the function
// must settle. The run fails if the completion's deadline expires first.
func InspectAsync(fn func(v any, done *player.Completion)) AndStep {
	return AndStep{async: fn}
}

// StepTimeout changes the budget for the steps that follow it within the
// same And call.
func StepTimeout(t time.Duration) AndStep {
	return AndStep{timeout: t, hasTimeout: true}
}

// WaitStep is one item of a Wait chain. Build with Pause, Label, or Until.
type WaitStep struct {
	pause   time.Duration
	isPause bool
	label   string
	isLabel bool
	until   func() bool
}

// Pause inserts a pure delay into the chain.
func Pause(t time.Duration) WaitStep {
	return WaitStep{pause: t, isPause: true}
}

// Label names the next Until condition in timeout diagnostics.
func Label(s string) WaitStep {
	return WaitStep{label: s, isLabel: true}
}

// Until inserts a predicate the chain polls until it reports true.
func Until(fn func() bool) WaitStep {
	return WaitStep{until: fn}
}
