package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sencha/orion-core/api/schemas"
	"github.com/sencha/orion-core/internal/archive"
	"github.com/sencha/orion-core/internal/config"
	"github.com/sencha/orion-core/internal/reporting"
)

// InitializeArchive connects the run archive and ensures its schema. The
// caller owns the returned pool's lifetime; closing it invalidates the
// archive.
func InitializeArchive(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*archive.Archive, *pgxpool.Pool, error) {
	if cfg.Archive().URL == "" {
		return nil, nil, fmt.Errorf("archive URL is not configured (hint: check ORION_ARCHIVE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Archive().URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create archive connection pool: %w", err)
	}

	arc, err := archive.New(ctx, pool, logger, archive.Options{Compress: cfg.Archive().Compress})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := arc.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return arc, pool, nil
}

// InitializeReporter builds the configured reporters. The returned flush
// finalizes buffered output and must run after the last suite finishes.
func InitializeReporter(cfg config.Interface, logger *zap.Logger) (schemas.Reporter, func() error, error) {
	return reporting.New(strings.Join(cfg.Report().Formats, ","), cfg.Report().JUnitPath, logger)
}

// Navigate opens url in the stack's tab, bounded by the configured
// navigation timeout.
func Navigate(ctx context.Context, c *Components, cfg config.Interface, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, cfg.Browser().NavigationTimeout)
	defer cancel()
	if err := c.Host.Navigate(navCtx, url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}
