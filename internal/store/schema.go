package store

// schema is applied with CREATE TABLE IF NOT EXISTS on every Open, mirroring
// dexidp-dex's migrate() step but collapsed to a single idempotent script
// since clipslot ships one schema version rather than a migration chain.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS devices (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	device_type TEXT NOT NULL,
	last_seen   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_devices_user_id ON devices(user_id);

CREATE TABLE IF NOT EXISTS synced_slots (
	user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	slot_number     INTEGER NOT NULL,
	encrypted_blob  TEXT NOT NULL DEFAULT '',
	updated_at      INTEGER NOT NULL DEFAULT 0,
	updated_by      TEXT,
	PRIMARY KEY (user_id, slot_number)
);

CREATE TABLE IF NOT EXISTS synced_history (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	encrypted_blob TEXT NOT NULL,
	content_hash   TEXT NOT NULL,
	device_id      TEXT,
	created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (user_id, content_hash)
);
CREATE INDEX IF NOT EXISTS idx_history_user_created ON synced_history(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS link_codes (
	code          TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	encrypted_key TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at    TIMESTAMP NOT NULL
);
`

// serverSlotCount is the number of slot rows CreateUser seeds for each
// user; the client caps at 5 (clientstore.clientSlotCount).
const serverSlotCount = 10
