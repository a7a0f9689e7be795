package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/sencha/orion-core/internal/browser/cdphost"
	"github.com/sencha/orion-core/internal/clock"
	"github.com/sencha/orion-core/internal/config"
	"github.com/sencha/orion-core/internal/future"
	"github.com/sencha/orion-core/internal/player"
)

// ComponentFactory builds the run stack. The abstraction keeps the run
// command testable: tests swap in a factory that never launches a browser.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error)
}

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct{}

// NewComponentFactory creates a new production-ready component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// getBrowserExecOptions translates the application config into chromedp
// allocator options.
func getBrowserExecOptions(cfg config.Interface) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		// Hardened systems refuse Chrome's sandbox, and a driven tab does
		// not need it.
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	if cfg.Browser().Headless {
		opts = append(opts, chromedp.Headless)
	}

	if w, h := cfg.Browser().Viewport["width"], cfg.Browser().Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}

	// Extra args pass through as flags, "key=value" or bare switches, with
	// or without the leading dashes.
	for _, arg := range cfg.Browser().Args {
		parts := strings.SplitN(arg, "=", 2)
		key := strings.TrimPrefix(parts[0], "--")
		if key == "" {
			continue
		}
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(key, parts[1]))
			continue
		}
		opts = append(opts, chromedp.Flag(key, true))
	}
	return opts
}

// typingInterval converts a keys-per-second rate into the host's key event
// pacing interval.
func typingInterval(rate float64) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / rate)
}

// Create builds the stack bottom-up: browser process, tab, host, player,
// driver, transcript, then the optional archive. Cheap config checks run
// before the browser launches; a half-built stack is torn down before the
// error returns.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error) {
	variant, err := future.ParseVariant(cfg.Toolkit().Variant)
	if err != nil {
		return nil, err
	}
	if cfg.Archive().Enabled && cfg.Archive().URL == "" {
		return nil, fmt.Errorf("archive is enabled but no URL is configured (hint: check ORION_ARCHIVE_URL)")
	}

	components := &Components{}

	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("initialization failed, shutting partially created components down",
				zap.Error(initializationErr))
			components.Shutdown()
		}
	}()

	// 1. Browser process and tab.
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, getBrowserExecOptions(cfg)...)
	components.allocCancel = allocCancel

	tab, tabCancel := chromedp.NewContext(allocCtx)
	components.tabCancel = tabCancel

	// The first Run launches the process and attaches the tab.
	if err := chromedp.Run(tab); err != nil {
		initializationErr = fmt.Errorf("failed to launch browser: %w", err)
		return nil, initializationErr
	}
	logger.Debug("browser tab ready")

	// 2. Host over the tab.
	components.Host = cdphost.New(cdphost.NewExecutor(tab), logger, cdphost.Options{
		TypingInterval: typingInterval(cfg.Browser().TypingRate),
	})

	// 3. Player on the system scheduler.
	pl, err := player.New(player.Env{
		Host:      components.Host,
		Scheduler: clock.NewSystem(),
		Logger:    logger,
	}, player.OptionsFromConfig(cfg.Player()))
	if err != nil {
		initializationErr = fmt.Errorf("failed to build player: %w", err)
		return nil, initializationErr
	}
	components.Player = pl

	// 4. Futures driver for the configured toolkit, with the transcript
	// listening from the start.
	components.Driver = future.NewDriver(pl, variant, logger)
	components.Transcript = player.NewTranscriptRecorder(pl)

	// 5. Optional run archive.
	if cfg.Archive().Enabled {
		arc, pool, err := InitializeArchive(ctx, cfg, logger)
		if err != nil {
			initializationErr = err
			return nil, initializationErr
		}
		components.Archive = arc
		components.DBPool = pool
		logger.Debug("run archive ready")
	}

	return components, nil
}
