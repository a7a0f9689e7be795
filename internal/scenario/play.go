package scenario

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sencha/orion-core/api/schemas"
	"github.com/sencha/orion-core/internal/future"
	"github.com/sencha/orion-core/internal/harness"
	"github.com/sencha/orion-core/internal/player"
)

// Declare registers the scenario on a runner: one suite named after the
// scenario, one spec that queues every step in order. A step that never
// becomes ready times out, flushes the queue and fails the spec with a
// diagnostic naming the locator, so later steps are not played against a
// page in an unknown state.
func Declare(r *harness.Runner, s *Scenario) {
	r.Describe(s.Name, func() {
		r.It("plays the steps", func(t *harness.SpecCtx) {
			for i, st := range s.Steps {
				applyStep(t, i, st)
			}
		})
	})
}

// Play runs the scenario as its own suite and blocks until it resolves or
// ctx is cancelled. Meant for the system scheduler; manual-clock callers
// use Declare with their own runner.
func Play(ctx context.Context, d *future.Driver, rep schemas.Reporter, s *Scenario, opts harness.Options, log *zap.Logger) (*schemas.SuiteResult, error) {
	r := harness.NewRunner(d, rep, opts, log)
	Declare(r, s)
	return r.Run(ctx)
}

func applyStep(t *harness.SpecCtx, idx int, st Step) {
	d := t.Driver()
	tag := stepTag(idx, st)

	if st.Do == StepDelay {
		pause := player.NewDelay(time.Duration(st.Ms) * time.Millisecond)
		if err := d.Player().Enqueue(pause); err != nil {
			t.Fail("%s: %s", tag, err)
		}
		return
	}

	var opts []future.Option
	if st.TimeoutMs > 0 {
		opts = append(opts, future.Within(time.Duration(st.TimeoutMs)*time.Millisecond))
	}
	el := d.Element(st.Target, opts...)

	switch st.Do {
	case StepTap:
		el.Tap()
	case StepClick:
		el.Click(player.WithButton(st.Button))
	case StepDblClick:
		el.DoubleClick()
	case StepType:
		el.Type(st.Text)
	case StepKey:
		el.Key(st.Key)
	case StepFocus:
		el.Focus()
	case StepBlur:
		el.Blur()
	case StepWait:
		applyGate(el, st)
	case StepAssert:
		el.And(future.Inspect(func(v any) {
			elem, _ := v.(schemas.Element)
			passed, detail := checkState(elem, st)
			t.Check(passed, "%s: %s", tag, detail)
		}))
	}
}

func applyGate(el *future.Element, st Step) {
	switch st.State {
	case StateVisible:
		el.Visible()
	case StateHidden:
		el.Hidden()
	case StateRemoved:
		el.Removed()
	case StateText:
		el.Text(st.Value)
	case StateTextLike:
		el.TextLike(st.Value)
	case StateHasCls:
		el.HasCls(st.Value)
	}
}

// checkState evaluates an assert step against the resolved element, now
// rather than as a gate.
func checkState(el schemas.Element, st Step) (bool, string) {
	if el == nil {
		return false, fmt.Sprintf("no element for %q", st.Target)
	}
	switch st.State {
	case StateVisible:
		return el.IsVisible(), fmt.Sprintf("%s should be visible", el.Describe())
	case StateHidden:
		return !el.IsVisible(), fmt.Sprintf("%s should be hidden", el.Describe())
	case StateText:
		got := el.Text()
		return got == st.Value,
			fmt.Sprintf("%s text is %q, want %q", el.Describe(), got, st.Value)
	case StateTextLike:
		got := el.Text()
		return strings.Contains(got, st.Value),
			fmt.Sprintf("%s text is %q, want it to contain %q", el.Describe(), got, st.Value)
	case StateHasCls:
		return el.HasClass(st.Value),
			fmt.Sprintf("%s should carry class %q", el.Describe(), st.Value)
	}
	return false, fmt.Sprintf("unknown state %q", st.State)
}

func stepTag(idx int, st Step) string {
	if st.Target == "" {
		return fmt.Sprintf("step %d (%s)", idx+1, st.Do)
	}
	return fmt.Sprintf("step %d (%s %s)", idx+1, st.Do, st.Target)
}
