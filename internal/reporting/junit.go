package reporting

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"

	"github.com/sencha/orion-core/api/schemas"
)

// JUnit accumulates finished suite trees and renders them as JUnit XML on
// Flush. Nested suites flatten into one testsuite element per suite that
// ran specs, named by the suite path, which is what CI ingesters expect.
// Safe for concurrent callbacks.
type JUnit struct {
	mu    sync.Mutex
	w     io.WriteCloser
	depth int
	roots []*schemas.SuiteResult
}

// NewJUnit builds the reporter. Flush takes ownership of closing w.
func NewJUnit(w io.WriteCloser) *JUnit {
	return &JUnit{w: w}
}

func (j *JUnit) SuiteEnter(*schemas.SuiteResult) {
	j.mu.Lock()
	j.depth++
	j.mu.Unlock()
}

func (j *JUnit) SuiteStarted(*schemas.SuiteResult) {}
func (j *JUnit) SpecStarted(*schemas.SpecResult)   {}
func (j *JUnit) SpecFinished(*schemas.SpecResult)  {}

func (j *JUnit) SuiteFinished(*schemas.SuiteResult) {}

// SuiteLeave keeps the whole tree once the outermost suite unwinds; the
// nested results are reachable from the root.
func (j *JUnit) SuiteLeave(s *schemas.SuiteResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.depth--
	if j.depth == 0 {
		j.roots = append(j.roots, s)
	}
}

// Flush renders the XML document, writes it out and closes the writer. A
// write failure wins over a close failure: it means the report is
// incomplete.
func (j *JUnit) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("testsuites")

	var agg tally
	for _, s := range j.roots {
		agg.add(writeSuite(root, nil, s))
	}
	root.CreateAttr("tests", strconv.Itoa(agg.tests))
	root.CreateAttr("failures", strconv.Itoa(agg.failures))
	root.CreateAttr("disabled", strconv.Itoa(agg.disabled))
	root.CreateAttr("time", seconds(agg.dur))

	doc.Indent(2)
	_, writeErr := doc.WriteTo(j.w)
	closeErr := j.w.Close()
	if writeErr != nil {
		return fmt.Errorf("write junit report: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close junit report: %w", closeErr)
	}
	return nil
}

type tally struct {
	tests    int
	failures int
	disabled int
	dur      time.Duration
}

func (t *tally) add(o tally) {
	t.tests += o.tests
	t.failures += o.failures
	t.disabled += o.disabled
	t.dur += o.dur
}

func writeSuite(parent *etree.Element, path []string, s *schemas.SuiteResult) tally {
	path = append(path, s.Name)
	name := strings.Join(path, " ")

	var t tally
	if len(s.Specs) > 0 {
		el := parent.CreateElement("testsuite")
		el.CreateAttr("name", name)

		var st tally
		for _, sp := range s.Specs {
			st.add(writeSpec(el, name, sp))
		}
		el.CreateAttr("tests", strconv.Itoa(st.tests))
		el.CreateAttr("failures", strconv.Itoa(st.failures))
		el.CreateAttr("disabled", strconv.Itoa(st.disabled))
		el.CreateAttr("time", seconds(st.dur))
		if !s.Started.IsZero() {
			el.CreateAttr("timestamp", s.Started.UTC().Format("2006-01-02T15:04:05"))
		}
		t.add(st)
	}
	for _, child := range s.Suites {
		t.add(writeSuite(parent, path, child))
	}
	return t
}

func writeSpec(parent *etree.Element, classname string, sp *schemas.SpecResult) tally {
	el := parent.CreateElement("testcase")
	el.CreateAttr("name", sp.Name)
	el.CreateAttr("classname", classname)
	el.CreateAttr("time", seconds(sp.Duration))

	t := tally{tests: 1, dur: sp.Duration}
	if sp.Disabled {
		el.CreateElement("skipped")
		t.disabled++
		return t
	}
	if sp.Passed {
		return t
	}
	t.failures++
	for _, msg := range failureMessages(sp) {
		f := el.CreateElement("failure")
		f.CreateAttr("message", msg)
	}
	return t
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
