// Package service composes a live run stack: browser process and tab, CDP
// host, player, futures driver, transcript recorder and the optional run
// archive. The factory owns construction order, Components owns teardown
// order, and the initializers are shared by commands that need only a slice
// of the stack.
package service

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sencha/orion-core/internal/archive"
	"github.com/sencha/orion-core/internal/browser/cdphost"
	"github.com/sencha/orion-core/internal/future"
	"github.com/sencha/orion-core/internal/observability"
	"github.com/sencha/orion-core/internal/player"
)

// Components holds one initialized run stack.
type Components struct {
	Host       *cdphost.Host
	Player     *player.Player
	Driver     *future.Driver
	Transcript *player.TranscriptRecorder
	Archive    *archive.Archive
	DBPool     *pgxpool.Pool

	// tabCancel closes the tab, allocCancel tears the browser process down.
	// Shutdown calls them in that order.
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
}

// Shutdown releases everything Create built, newest first: the player stops
// queueing, the transcript detaches, the tab closes before its allocator,
// and the archive pool closes last. Safe on a partially built struct.
func (c *Components) Shutdown() {
	logger := observability.GetLogger()
	logger.Debug("shutting run stack down")

	if c.Player != nil {
		c.Player.Stop()
		logger.Debug("player stopped")
	}
	if c.Transcript != nil {
		c.Transcript.Close()
	}
	if c.tabCancel != nil {
		c.tabCancel()
		logger.Debug("browser tab closed")
	}
	if c.allocCancel != nil {
		c.allocCancel()
		logger.Debug("browser allocator released")
	}
	if c.DBPool != nil {
		c.DBPool.Close()
		logger.Debug("archive pool closed")
	}
}
