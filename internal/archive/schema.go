package archive

// schemaSQL creates the archive tables. Statements are idempotent so
// EnsureSchema can run on every startup.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id UUID PRIMARY KEY,
    scenario TEXT NOT NULL,
    host TEXT NOT NULL,
    started TIMESTAMPTZ NOT NULL,
    finished TIMESTAMPTZ NOT NULL,
    passed BOOLEAN NOT NULL,
    total INTEGER NOT NULL,
    failed INTEGER NOT NULL,
    transcript BYTEA NOT NULL,
    transcript_encoding TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs (started DESC);

CREATE TABLE IF NOT EXISTS spec_results (
    run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    full_name TEXT NOT NULL,
    passed BOOLEAN NOT NULL,
    disabled BOOLEAN NOT NULL,
    started TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL,
    expectations JSONB NOT NULL,
    PRIMARY KEY (run_id, id)
);
CREATE INDEX IF NOT EXISTS idx_spec_results_run ON spec_results (run_id);
`
