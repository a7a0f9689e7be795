// Package archive persists finished runs to PostgreSQL: one row per run with
// the compressed play transcript, plus a spec_results row per executed spec.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/sencha/orion-core/api/schemas"
)

var (
	// ErrNoSuite reports a run submitted without a suite result.
	ErrNoSuite = errors.New("run has no suite result")
	// ErrNotFound reports a run id the archive does not hold.
	ErrNotFound = errors.New("run not found")
)

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Options tune how runs are stored.
type Options struct {
	// Compress stores transcripts brotli-compressed. Disabled, the raw JSON
	// goes in as-is for easy inspection with psql.
	Compress bool
}

// Archive is the PostgreSQL-backed run store.
type Archive struct {
	pool DBPool
	log  *zap.Logger
	opts Options
}

// New verifies the connection and returns the archive.
func New(ctx context.Context, pool DBPool, log *zap.Logger, opts Options) (*Archive, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping archive database: %w", err)
	}
	return &Archive{
		pool: pool,
		log:  log.Named("archive"),
		opts: opts,
	}, nil
}

// EnsureSchema creates the archive tables when they do not exist yet.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}
	return nil
}

// Run is one finished scenario execution bound for the archive.
type Run struct {
	// ID identifies the run; empty means the archive assigns one.
	ID         string
	Scenario   string
	Host       string
	Suite      *schemas.SuiteResult
	Transcript []schemas.TranscriptEntry
}

const sqlInsertRun = `
INSERT INTO runs (id, scenario, host, started, finished, passed, total, failed, transcript, transcript_encoding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`

// specResultColumns is the CopyFrom column list for spec_results.
var specResultColumns = []string{
	"run_id", "id", "name", "full_name", "passed", "disabled",
	"started", "duration_ms", "expectations",
}

// SaveRun writes the run and all of its spec rows in one transaction and
// returns the run id.
func (a *Archive) SaveRun(ctx context.Context, run *Run) (string, error) {
	if run == nil || run.Suite == nil {
		return "", ErrNoSuite
	}
	id := run.ID
	if id == "" {
		id = uuid.NewString()
	}

	blob, encoding, err := encodeTranscript(run.Transcript, a.opts.Compress)
	if err != nil {
		return "", err
	}
	rows, err := specRows(id, run.Suite)
	if err != nil {
		return "", err
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin run transaction: %w", err)
	}
	defer func() {
		// Rollback after Commit reports pgx.ErrTxClosed; anything else is a
		// real cleanup failure worth logging.
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			a.log.Error("rollback failed", zap.Error(rbErr))
		}
	}()

	total, failed := run.Suite.Counts()
	if _, err := tx.Exec(ctx, sqlInsertRun,
		id, run.Scenario, run.Host,
		run.Suite.Started.UTC(), run.Suite.Finished.UTC(),
		run.Suite.Passed(), total, failed,
		blob, encoding,
	); err != nil {
		return "", fmt.Errorf("insert run %s: %w", id, err)
	}

	if len(rows) > 0 {
		copied, err := tx.CopyFrom(ctx,
			pgx.Identifier{"spec_results"}, specResultColumns,
			pgx.CopyFromRows(rows))
		if err != nil {
			return "", fmt.Errorf("copy spec results: %w", err)
		}
		if int(copied) != len(rows) {
			return "", fmt.Errorf("copied %d of %d spec rows", copied, len(rows))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit run %s: %w", id, err)
	}

	a.log.Debug("run archived",
		zap.String("run", id),
		zap.Int("specs", len(rows)),
		zap.Int("transcript_bytes", len(blob)),
		zap.String("encoding", encoding))
	return id, nil
}

// specRows flattens the suite tree into CopyFrom rows, depth-first so the
// stored order matches execution order.
func specRows(runID string, suite *schemas.SuiteResult) ([][]any, error) {
	var rows [][]any
	var walk func(s *schemas.SuiteResult) error
	walk = func(s *schemas.SuiteResult) error {
		for _, sp := range s.Specs {
			expectations, err := json.Marshal(sp.Expectations)
			if err != nil {
				return fmt.Errorf("marshal expectations of %s: %w", sp.ID, err)
			}
			if len(expectations) == 0 || string(expectations) == "null" {
				expectations = []byte("[]")
			}
			rows = append(rows, []any{
				runID, sp.ID, sp.Name, sp.FullName, sp.Passed, sp.Disabled,
				sp.Started.UTC(), sp.Duration.Milliseconds(), expectations,
			})
		}
		for _, child := range s.Suites {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(suite); err != nil {
		return nil, err
	}
	return rows, nil
}

const sqlSelectTranscript = `
SELECT transcript, transcript_encoding FROM runs WHERE id = $1;`

// LoadTranscript reads one run's transcript back, decompressing as needed.
func (a *Archive) LoadTranscript(ctx context.Context, runID string) ([]schemas.TranscriptEntry, error) {
	var (
		blob     []byte
		encoding string
	)
	err := a.pool.QueryRow(ctx, sqlSelectTranscript, runID).Scan(&blob, &encoding)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query transcript of %s: %w", runID, err)
	}
	return decodeTranscript(blob, encoding)
}

// RunSummary is one line of the run listing.
type RunSummary struct {
	ID       string
	Scenario string
	Host     string
	Started  time.Time
	Finished time.Time
	Passed   bool
	Total    int
	Failed   int
}

const sqlSelectRecent = `
SELECT id, scenario, host, started, finished, passed, total, failed
FROM runs
ORDER BY started DESC
LIMIT $1;`

// RecentRuns lists the newest runs, most recent first.
func (a *Archive) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := a.pool.Query(ctx, sqlSelectRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Scenario, &r.Host, &r.Started, &r.Finished,
			&r.Passed, &r.Total, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return out, nil
}
