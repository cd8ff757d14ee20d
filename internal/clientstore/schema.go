package clientstore

// schema mirrors store.schema's idempotent CREATE-TABLE-IF-NOT-EXISTS
// approach, adapted to the client's three tables: items, slots, settings.
// updated_by tracks which device last wrote a slot when ingesting a
// relay-pushed update.
const schema = `
CREATE TABLE IF NOT EXISTS items (
	id             TEXT PRIMARY KEY,
	content        TEXT NOT NULL,
	content_hash   TEXT NOT NULL,
	device_id      TEXT,
	created_at_ms  INTEGER NOT NULL,
	is_promoted    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_items_content_hash ON items(content_hash);
CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at_ms DESC);

CREATE TABLE IF NOT EXISTS slots (
	slot_number   INTEGER PRIMARY KEY,
	item_id       TEXT REFERENCES items(id),
	name          TEXT NOT NULL DEFAULT '',
	updated_at_ms INTEGER NOT NULL DEFAULT 0,
	updated_by    TEXT
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// clientSlotCount is the client-side slot count, deliberately smaller
// than the server's — kept as separate, documented constants rather than
// unified; see DESIGN.md.
const clientSlotCount = 5

const debounceWindowMS = 2000

const maxSearchResults = 100

const slotPreviewMaxChars = 100
