package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Action types: lookup table for normalization
CREATE TABLE IF NOT EXISTS action_types (
    type_id INTEGER PRIMARY KEY AUTOINCREMENT,
    type_name TEXT NOT NULL UNIQUE,
    description TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Runs: one row per batch invocation
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    verb TEXT NOT NULL,
    policy TEXT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    processed INTEGER DEFAULT 0,
    applied INTEGER DEFAULT 0,
    flagged INTEGER DEFAULT 0,
    skipped INTEGER DEFAULT 0,
    errored INTEGER DEFAULT 0,
    total_cost REAL DEFAULT 0,
    report_path TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_verb ON runs(verb);

-- Run items: per-product outcome within a run
CREATE TABLE IF NOT EXISTS run_items (
    item_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    product_id INTEGER NOT NULL,
    product_title TEXT,
    outcome TEXT NOT NULL,
    method TEXT,
    score REAL DEFAULT 0,
    confidence REAL DEFAULT 0,
    reason TEXT,
    action_id INTEGER,
    plan_json TEXT,
    applied BOOLEAN DEFAULT 0,
    rollback_token TEXT,
    cost REAL DEFAULT 0,
    error_type TEXT,
    error_message TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    FOREIGN KEY (action_id) REFERENCES action_types(type_id),
    UNIQUE(run_id, product_id)
);

CREATE INDEX IF NOT EXISTS idx_run_items_run ON run_items(run_id);
CREATE INDEX IF NOT EXISTS idx_run_items_product ON run_items(product_id);
CREATE INDEX IF NOT EXISTS idx_run_items_outcome ON run_items(outcome);
CREATE INDEX IF NOT EXISTS idx_run_items_errors ON run_items(error_type) WHERE error_type IS NOT NULL;

-- Rollback snapshots: pre-mutation field values, written before each
-- mutating call. INSERT only; the first write for a product in a run
-- wins and is never overwritten.
CREATE TABLE IF NOT EXISTS rollback_snapshots (
    snapshot_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    product_id INTEGER NOT NULL,
    token TEXT NOT NULL UNIQUE,
    fields_json TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, product_id)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_run ON rollback_snapshots(run_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_token ON rollback_snapshots(token);

-- Ledger entries: per-backend spend within a run
CREATE TABLE IF NOT EXISTS ledger_entries (
    entry_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    backend TEXT NOT NULL,
    calls INTEGER DEFAULT 0,
    input_units INTEGER DEFAULT 0,
    output_units INTEGER DEFAULT 0,
    cost REAL DEFAULT 0,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, backend)
);

CREATE INDEX IF NOT EXISTS idx_ledger_run ON ledger_entries(run_id);

-- Seed action types
INSERT OR IGNORE INTO action_types (type_name, description) VALUES
    ('none', 'No mutation planned'),
    ('variant-set', 'Option and variant matrix creation'),
    ('curation', 'Status change and title cleanup'),
    ('discount', 'Variant price reduction'),
    ('restore', 'Snapshot re-applied by rollback');
`
