package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password      TEXT NOT NULL,
    github_token  TEXT,
    created_at    TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS websites (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name            TEXT NOT NULL,
    url             TEXT NOT NULL,
    keywords        TEXT NOT NULL DEFAULT '[]',
    tone            TEXT,
    audience        TEXT,
    status          TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'paused', 'error')),
    github_repo     TEXT,
    github_branch   TEXT NOT NULL DEFAULT 'main',
    github_path     TEXT NOT NULL DEFAULT 'blog',
    cta_text        TEXT,
    cta_url         TEXT,
    min_words       INTEGER NOT NULL DEFAULT 1000,
    max_words       INTEGER NOT NULL DEFAULT 3000,
    total_articles  INTEGER NOT NULL DEFAULT 0,
    last_generated  TEXT,
    next_scheduled  TEXT,
    scraped_data    TEXT,
    last_scraped    TEXT,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS article_ideas (
    id              TEXT PRIMARY KEY,
    website_id      TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
    headline        TEXT NOT NULL,
    confidence      INTEGER NOT NULL,
    keywords        TEXT NOT NULL DEFAULT '[]',
    estimated_words INTEGER NOT NULL,
    seo_score       INTEGER NOT NULL,
    status          TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    priority        INTEGER,
    scheduled_date  TEXT,
    created_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS drafts (
    id                TEXT PRIMARY KEY,
    article_idea_id   TEXT NOT NULL REFERENCES article_ideas(id) ON DELETE CASCADE,
    website_id        TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
    title             TEXT NOT NULL,
    content           TEXT NOT NULL,
    excerpt           TEXT NOT NULL,
    word_count        INTEGER NOT NULL,
    readability_score INTEGER NOT NULL,
    keyword_density   REAL NOT NULL,
    status            TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'review', 'pr_created', 'merged')),
    pr_url            TEXT,
    frontmatter       TEXT,
    image_url         TEXT,
    created_at        TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at        TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS generation_history (
    id            TEXT PRIMARY KEY,
    website_id    TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
    action        TEXT NOT NULL,
    article_title TEXT,
    status        TEXT NOT NULL CHECK (status IN ('success', 'failed', 'pending')),
    pr_url        TEXT,
    error_message TEXT,
    created_at    TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_websites_user ON websites(user_id);
CREATE INDEX IF NOT EXISTS idx_article_ideas_website ON article_ideas(website_id);
CREATE INDEX IF NOT EXISTS idx_article_ideas_status ON article_ideas(status);
CREATE INDEX IF NOT EXISTS idx_drafts_website ON drafts(website_id);
CREATE INDEX IF NOT EXISTS idx_drafts_status ON drafts(status);
CREATE INDEX IF NOT EXISTS idx_history_website ON generation_history(website_id);
`

func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running schema migration: %w", err)
	}
	return db, nil
}
