package database

const schema = `
CREATE TABLE IF NOT EXISTS settings (
    category TEXT NOT NULL,
    id INTEGER NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL DEFAULT '',
    is_encrypted BOOLEAN NOT NULL DEFAULT false,
    PRIMARY KEY(category, id),
    UNIQUE(category, key)
);

CREATE TABLE IF NOT EXISTS emails (
    id TEXT PRIMARY KEY,
    subject TEXT NOT NULL DEFAULT '',
    from_addr TEXT NOT NULL DEFAULT '',
    date INTEGER NOT NULL,
    is_read BOOLEAN NOT NULL DEFAULT false,
    body TEXT,
    processed BOOLEAN NOT NULL DEFAULT false,
    error TEXT,
    processing_message TEXT,
    intercom_id TEXT,
    processing_time INTEGER
);

CREATE INDEX IF NOT EXISTS idx_emails_date ON emails(date);
`
