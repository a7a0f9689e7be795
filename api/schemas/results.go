package schemas

import "time"

// Expectation is one recorded assertion of a spec.
type Expectation struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// SpecResult is the outcome of one test block.
type SpecResult struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	FullName     string        `json:"fullName"`
	Passed       bool          `json:"passed"`
	Disabled     bool          `json:"disabled,omitempty"`
	Expectations []Expectation `json:"expectations,omitempty"`
	Started      time.Time     `json:"started"`
	Duration     time.Duration `json:"duration"`
}

// SuiteResult is the outcome of one describe block, including nested suites.
type SuiteResult struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Specs    []*SpecResult  `json:"specs,omitempty"`
	Suites   []*SuiteResult `json:"suites,omitempty"`
	Started  time.Time      `json:"started"`
	Finished time.Time      `json:"finished"`
}

// Passed reports whether every spec in the suite and its descendants passed.
// Disabled specs do not count against the suite.
func (s *SuiteResult) Passed() bool {
	for _, sp := range s.Specs {
		if !sp.Disabled && !sp.Passed {
			return false
		}
	}
	for _, child := range s.Suites {
		if !child.Passed() {
			return false
		}
	}
	return true
}

// Counts returns the total and failed spec counts across the suite tree.
func (s *SuiteResult) Counts() (total, failed int) {
	for _, sp := range s.Specs {
		if sp.Disabled {
			continue
		}
		total++
		if !sp.Passed {
			failed++
		}
	}
	for _, child := range s.Suites {
		t, f := child.Counts()
		total += t
		failed += f
	}
	return total, failed
}

// TranscriptEntry is one line of the played-event transcript: a single
// playable's journey through the queue.
type TranscriptEntry struct {
	Seq      int64     `json:"seq"`
	SpecID   string    `json:"specId,omitempty"`
	Kind     string    `json:"kind"`
	Event    EventType `json:"event,omitempty"`
	Target   string    `json:"target,omitempty"`
	Waited   string    `json:"waited,omitempty"`
	State    string    `json:"state"`
	Error    string    `json:"error,omitempty"`
	Enqueued time.Time `json:"enqueued"`
	Finished time.Time `json:"finished"`
}

// Reporter receives harness lifecycle callbacks. Enter and Leave bracket a
// suite's whole subtree; Started and Finished bracket its own execution.
type Reporter interface {
	SuiteEnter(s *SuiteResult)
	SuiteStarted(s *SuiteResult)
	SpecStarted(sp *SpecResult)
	SpecFinished(sp *SpecResult)
	SuiteFinished(s *SuiteResult)
	SuiteLeave(s *SuiteResult)
}
