// Package orion is the embedding surface. It bundles a host, player and
// futures driver into a Session, re-exports the types a test author needs,
// and can stand up the in-process sim page so suites run without a browser.
//
// A minimal embedded suite:
//
//	sess, page, err := orion.NewSimSession(html, orion.Config{})
//	...
//	r := sess.NewRunner(nil, orion.RunnerOptions{SuiteName: "smoke"})
//	r.Describe("cart", func() {
//		r.It("adds an item", func(t *orion.SpecCtx) {
//			d := t.Driver()
//			d.Element("#add").Click()
//			d.Element("#count").Text("1")
//		})
//	})
//	root, err := r.Run(ctx)
//	_ = page // poke the sim DOM from listeners if the suite needs it
package orion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sencha/orion-core/api/schemas"
	"github.com/sencha/orion-core/internal/browser/domhost"
	"github.com/sencha/orion-core/internal/clock"
	"github.com/sencha/orion-core/internal/future"
	"github.com/sencha/orion-core/internal/harness"
	"github.com/sencha/orion-core/internal/player"
	"github.com/sencha/orion-core/internal/scenario"
)

// Widget vocabulary variants.
const (
	VariantClassic = future.VariantClassic
	VariantModern  = future.VariantModern
)

// Re-exported types, so embedders import one package.
type (
	Driver        = future.Driver
	Element       = future.Element
	Option        = future.Option
	Variant       = future.Variant
	Runner        = harness.Runner
	RunnerOptions = harness.Options
	SpecCtx       = harness.SpecCtx
	Player        = player.Player
	PlayOption    = player.Option
	Transcript    = player.TranscriptRecorder
	SimHost       = domhost.Host
	Scenario      = scenario.Scenario
	Step          = scenario.Step
	Host          = schemas.Host
	Scheduler     = schemas.Scheduler
	Reporter      = schemas.Reporter
	SuiteResult   = schemas.SuiteResult
	SpecResult    = schemas.SpecResult
	PageElement   = schemas.Element
)

// Re-exported chain options and scenario loading.
var (
	Within        = future.Within
	Inspect       = future.Inspect
	LoadScenario  = scenario.Load
	ParseScenario = scenario.Parse
)

// Config tunes a session. The zero value is a sound test rig: no event or
// typing delays, fast polling, a five second readiness budget, classic
// vocabulary, system scheduler, silent logger.
type Config struct {
	// Variant selects the widget vocabulary; empty means classic.
	Variant Variant
	// EventDelay is the pre-play wait applied to injected events.
	EventDelay time.Duration
	// TypingDelay separates the key pairs of an expanded type.
	TypingDelay time.Duration
	// PollInterval is the readiness re-check cadence; zero means 10ms.
	PollInterval time.Duration
	// Timeout bounds how long a playable may stay not-ready; zero means 5s.
	// Negative disables timeouts.
	Timeout time.Duration
	// Scheduler defaults to the system clock. Hand in a manual clock for
	// deterministic suites.
	Scheduler Scheduler
	// Logger defaults to a nop logger.
	Logger *zap.Logger
}

func (c *Config) fill() {
	if c.Variant == "" {
		c.Variant = VariantClassic
	}
	if c.PollInterval == 0 {
		c.PollInterval = 10 * time.Millisecond
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	} else if c.Timeout < 0 {
		c.Timeout = 0
	}
	if c.Scheduler == nil {
		c.Scheduler = clock.NewSystem()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Session bundles one host, its player and the futures driver over it.
type Session struct {
	host   Host
	player *Player
	driver *Driver
	log    *zap.Logger
}

// NewSession builds a session over any host.
func NewSession(host Host, cfg Config) (*Session, error) {
	cfg.fill()
	variant, err := future.ParseVariant(string(cfg.Variant))
	if err != nil {
		return nil, err
	}

	pl, err := player.New(player.Env{
		Host:      host,
		Scheduler: cfg.Scheduler,
		Logger:    cfg.Logger,
	}, player.Options{
		EventDelay:   cfg.EventDelay,
		TypingDelay:  cfg.TypingDelay,
		PollInterval: cfg.PollInterval,
		Timeout:      cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		host:   host,
		player: pl,
		driver: future.NewDriver(pl, variant, cfg.Logger),
		log:    cfg.Logger,
	}, nil
}

// NewSimSession parses pageHTML into the in-process sim host and builds a
// session over it. The returned host lets the suite poke the page the way
// an application would: attach listeners, mutate attributes, remove nodes.
func NewSimSession(pageHTML string, cfg Config) (*Session, *SimHost, error) {
	cfg.fill()
	h, err := domhost.New(pageHTML, cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	sess, err := NewSession(h, cfg)
	if err != nil {
		return nil, nil, err
	}
	return sess, h, nil
}

// Driver returns the futures driver.
func (s *Session) Driver() *Driver { return s.driver }

// Player returns the underlying player.
func (s *Session) Player() *Player { return s.player }

// NewRunner builds a harness runner on this session's driver. A nil
// reporter discards lifecycle callbacks.
func (s *Session) NewRunner(rep Reporter, opts RunnerOptions) *Runner {
	return harness.NewRunner(s.driver, rep, opts, s.log)
}

// NewTranscript attaches a transcript recorder to the session's player.
func (s *Session) NewTranscript() *Transcript {
	return player.NewTranscriptRecorder(s.player)
}

// PlayScenario runs one scenario to completion and returns the root suite.
func (s *Session) PlayScenario(ctx context.Context, sc *Scenario, rep Reporter, opts RunnerOptions) (*SuiteResult, error) {
	return scenario.Play(ctx, s.driver, rep, sc, opts, s.log)
}

// Stop abandons whatever is queued. The session stays usable.
func (s *Session) Stop() {
	s.player.Stop()
}
