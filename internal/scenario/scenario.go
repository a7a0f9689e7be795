// Package scenario loads JSON play scripts and runs them as a harness
// suite. Each step becomes queued work on the driver, so a scenario passes
// through the same readiness gates, timeouts and transcript as a
// hand-written spec.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	json "github.com/json-iterator/go"
)

// ErrInvalid reports a scenario that fails validation.
var ErrInvalid = errors.New("invalid scenario")

// StepKind names what a step does.
type StepKind string

const (
	StepTap      StepKind = "tap"
	StepClick    StepKind = "click"
	StepDblClick StepKind = "dblclick"
	StepType     StepKind = "type"
	StepKey      StepKind = "key"
	StepFocus    StepKind = "focus"
	StepBlur     StepKind = "blur"
	StepWait     StepKind = "wait"
	StepAssert   StepKind = "assert"
	StepDelay    StepKind = "delay"
)

// States a wait or assert step may name, matching the future vocabulary.
const (
	StateVisible  = "visible"
	StateHidden   = "hidden"
	StateRemoved  = "removed"
	StateText     = "text"
	StateTextLike = "textLike"
	StateHasCls   = "hasCls"
)

// Step is one scripted action.
type Step struct {
	Do StepKind `json:"do"`
	// Target is the locator the step acts on. Required except for delay.
	Target string `json:"target,omitempty"`
	// Text is what a type step writes.
	Text string `json:"text,omitempty"`
	// Key is the identifier a key step presses, "Enter" style.
	Key string `json:"key,omitempty"`
	// Button is the DOM button code for click steps: 0 left, 1 middle,
	// 2 right.
	Button int `json:"button,omitempty"`
	// State is the condition a wait or assert step names.
	State string `json:"state,omitempty"`
	// Value parameterizes the text, textLike and hasCls states.
	Value string `json:"value,omitempty"`
	// Ms is a delay step's pause in milliseconds.
	Ms int `json:"ms,omitempty"`
	// TimeoutMs overrides the default chain timeout for this step.
	TimeoutMs int `json:"timeoutMs,omitempty"`
}

// Scenario is a named script of steps.
type Scenario struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// Parse decodes and validates a scenario. Unknown fields and trailing data
// are errors, so a typo surfaces during check instead of silently dropping
// a knob.
func Parse(data []byte) (*Scenario, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after the scenario object", ErrInvalid)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks that every step is playable. Errors name the offending
// step by position.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalid)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalid)
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return fmt.Errorf("%w: step %d: %s", ErrInvalid, i+1, err)
		}
	}
	return nil
}

func (st Step) validate() error {
	if st.Do == "" {
		return errors.New("missing do")
	}
	if st.Target == "" && st.Do != StepDelay {
		return fmt.Errorf("%s needs a target", st.Do)
	}
	if st.TimeoutMs < 0 {
		return errors.New("timeoutMs must not be negative")
	}

	switch st.Do {
	case StepTap, StepDblClick, StepFocus, StepBlur:
	case StepClick:
		if st.Button < 0 || st.Button > 2 {
			return fmt.Errorf("unknown button %d", st.Button)
		}
	case StepType:
		if st.Text == "" {
			return errors.New("type needs text")
		}
	case StepKey:
		if st.Key == "" {
			return errors.New("key needs a key")
		}
	case StepDelay:
		if st.Ms <= 0 {
			return errors.New("delay needs ms > 0")
		}
	case StepWait, StepAssert:
		return st.validateState()
	default:
		return fmt.Errorf("unknown step kind %q", st.Do)
	}
	return nil
}

func (st Step) validateState() error {
	switch st.State {
	case StateVisible, StateHidden:
	case StateRemoved:
		if st.Do == StepAssert {
			return errors.New("removed cannot be asserted point-in-time; use a wait step")
		}
	case StateText, StateTextLike, StateHasCls:
		if st.Value == "" {
			return fmt.Errorf("state %s needs a value", st.State)
		}
	case "":
		return fmt.Errorf("%s needs a state", st.Do)
	default:
		return fmt.Errorf("unknown state %q", st.State)
	}
	return nil
}
