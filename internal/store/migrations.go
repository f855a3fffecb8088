package store

const schema = `
-- Metric samples, append-only. ts is server-assigned reporting-zone time;
-- rows are never updated or deleted.
CREATE TABLE IF NOT EXISTS metrics (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    host TEXT NOT NULL,
    os   TEXT NOT NULL,
    cpu  REAL,
    mem  REAL,
    disk REAL,
    ts   TEXT NOT NULL
);

-- Normalized alerts, append-only. raw keeps the submitted object verbatim.
CREATE TABLE IF NOT EXISTS alerts (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    host       TEXT NOT NULL,
    os         TEXT NOT NULL,
    source     TEXT,
    category   TEXT NOT NULL,
    event_id   INTEGER,
    event_name TEXT,
    severity   TEXT NOT NULL,
    username   TEXT,
    ip         TEXT,
    process    TEXT,
    message    TEXT,
    raw        TEXT NOT NULL,
    ts         TEXT NOT NULL
);

-- Per-(host, kind) threshold state so resource alerts are not re-fired
-- on every sample. kind is cpu/mem/disk, status is high/normal.
CREATE TABLE IF NOT EXISTS metric_state (
    host       TEXT NOT NULL,
    kind       TEXT NOT NULL,
    status     TEXT NOT NULL,
    last_value REAL,
    updated_ts TEXT NOT NULL,
    PRIMARY KEY (host, kind)
);

-- Secondary indexes for the "most recent N" access patterns
CREATE INDEX IF NOT EXISTS idx_metrics_ts      ON metrics(ts);
CREATE INDEX IF NOT EXISTS idx_metrics_host_ts ON metrics(host, ts);
CREATE INDEX IF NOT EXISTS idx_alerts_ts       ON alerts(ts);
CREATE INDEX IF NOT EXISTS idx_alerts_host_ts  ON alerts(host, ts);
`
