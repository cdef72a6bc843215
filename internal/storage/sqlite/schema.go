package sqlite

// Schema is the embedded SQLite schema. Every statement is idempotent so the
// schema can be re-applied on every open.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
    id                TEXT PRIMARY KEY,
    scope_kind        TEXT NOT NULL,
    scope_id          TEXT NOT NULL,
    category          TEXT NOT NULL,
    about_subject     TEXT,
    content           TEXT NOT NULL,
    confidence        REAL NOT NULL DEFAULT 1.0,
    is_active         INTEGER NOT NULL DEFAULT 1,
    source_message_id TEXT,
    embedding         BLOB,
    created_at        TIMESTAMP NOT NULL,
    updated_at        TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memories_scope
    ON memories(scope_kind, scope_id, is_active, created_at);

CREATE TABLE IF NOT EXISTS insights (
    id             TEXT PRIMARY KEY,
    partnership_id TEXT NOT NULL,
    category       TEXT NOT NULL,
    about_user_id  TEXT,
    title          TEXT NOT NULL,
    content        TEXT NOT NULL,
    confidence     REAL NOT NULL DEFAULT 1.0,
    is_active      INTEGER NOT NULL DEFAULT 1,
    created_at     TIMESTAMP NOT NULL,
    updated_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_insights_partnership
    ON insights(partnership_id, is_active, created_at);

CREATE TABLE IF NOT EXISTS personality_summaries (
    user_id    TEXT PRIMARY KEY,
    summary    TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS partner_profiles (
    user_id    TEXT PRIMARY KEY,
    profile    TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS partnerships (
    id         TEXT PRIMARY KEY,
    user_a_id  TEXT NOT NULL,
    user_b_id  TEXT NOT NULL,
    status     TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_partnerships_members
    ON partnerships(user_a_id, user_b_id, status);

CREATE TABLE IF NOT EXISTS turns (
    id              TEXT PRIMARY KEY,
    conversation_id TEXT NOT NULL,
    user_id         TEXT NOT NULL,
    role            TEXT NOT NULL,
    content         TEXT NOT NULL,
    created_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_conversation
    ON turns(conversation_id, created_at);
`
