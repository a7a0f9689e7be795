// Package reporting turns harness lifecycle callbacks into run output: a
// structured log stream, JUnit XML for CI, or both fanned out together.
package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/sencha/orion-core/api/schemas"
)

// New builds the reporter stack for a comma separated format list. Known
// formats are "log" (structured progress through the logger) and "junit"
// (JUnit XML written to outputPath, or stdout when the path is empty). The
// returned flush finalizes buffered reports and must run once the suite has
// finished.
func New(formats, outputPath string, log *zap.Logger) (schemas.Reporter, func() error, error) {
	var (
		reps  []schemas.Reporter
		junit *JUnit
		seen  = map[string]bool{}
	)
	// Close a half-built junit writer when a later format fails.
	cleanup := func() {
		if junit != nil {
			junit.w.Close()
		}
	}

	for _, format := range strings.Split(formats, ",") {
		name := strings.TrimSpace(format)
		if name == "" {
			continue
		}
		if seen[name] {
			cleanup()
			return nil, nil, fmt.Errorf("duplicate report format %q", name)
		}
		seen[name] = true

		switch name {
		case "log":
			reps = append(reps, NewLog(log))
		case "junit":
			w, err := reportWriter(outputPath)
			if err != nil {
				return nil, nil, err
			}
			junit = NewJUnit(w)
			reps = append(reps, junit)
		default:
			cleanup()
			return nil, nil, fmt.Errorf("unsupported report format %q", name)
		}
	}
	if len(reps) == 0 {
		return nil, nil, fmt.Errorf("no report format in %q", formats)
	}

	flush := func() error { return nil }
	if junit != nil {
		flush = junit.Flush
	}
	if len(reps) == 1 {
		return reps[0], flush, nil
	}
	return NewMulti(reps...), flush, nil
}

func reportWriter(path string) (io.WriteCloser, error) {
	if path == "" || path == "stdout" {
		// Wrap Stdout so Close is a no-op.
		return &nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create report file %s: %w", path, err)
	}
	return f, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (*nopWriteCloser) Close() error { return nil }

// Multi fans every callback out to each reporter in order.
type Multi []schemas.Reporter

// NewMulti builds a fan-out reporter, dropping nil entries.
func NewMulti(reps ...schemas.Reporter) Multi {
	out := make(Multi, 0, len(reps))
	for _, r := range reps {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m Multi) SuiteEnter(s *schemas.SuiteResult) {
	for _, r := range m {
		r.SuiteEnter(s)
	}
}

func (m Multi) SuiteStarted(s *schemas.SuiteResult) {
	for _, r := range m {
		r.SuiteStarted(s)
	}
}

func (m Multi) SpecStarted(sp *schemas.SpecResult) {
	for _, r := range m {
		r.SpecStarted(sp)
	}
}

func (m Multi) SpecFinished(sp *schemas.SpecResult) {
	for _, r := range m {
		r.SpecFinished(sp)
	}
}

func (m Multi) SuiteFinished(s *schemas.SuiteResult) {
	for _, r := range m {
		r.SuiteFinished(s)
	}
}

func (m Multi) SuiteLeave(s *schemas.SuiteResult) {
	for _, r := range m {
		r.SuiteLeave(s)
	}
}

// failureMessages collects the messages of a spec's failed expectations.
func failureMessages(sp *schemas.SpecResult) []string {
	var msgs []string
	for _, e := range sp.Expectations {
		if e.Passed {
			continue
		}
		if e.Message == "" {
			msgs = append(msgs, "expectation failed")
			continue
		}
		msgs = append(msgs, e.Message)
	}
	if len(msgs) == 0 {
		msgs = append(msgs, "spec failed without expectation detail")
	}
	return msgs
}
