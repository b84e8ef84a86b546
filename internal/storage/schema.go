package storage

const schema = `
-- The 'cards' table stores each user's flashcards and their SM-2 scheduling state.
CREATE TABLE IF NOT EXISTS cards (
    seq INTEGER PRIMARY KEY AUTOINCREMENT, -- insertion order
    id TEXT NOT NULL UNIQUE,
    user_id TEXT NOT NULL,
    hash TEXT NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    context TEXT NOT NULL DEFAULT '',
    ease_factor REAL NOT NULL DEFAULT 2.5,
    interval_days INTEGER NOT NULL DEFAULT 0,
    repetitions INTEGER NOT NULL DEFAULT 0,
    next_review DATETIME NOT NULL,
    last_review DATETIME,
    version INTEGER NOT NULL DEFAULT 1, -- bumped on every save, see DB.Save
    source_id INTEGER,
    created_at DATETIME NOT NULL,

    UNIQUE(user_id, hash),
    FOREIGN KEY(source_id) REFERENCES sources(id)
);

CREATE INDEX IF NOT EXISTS idx_cards_user_next_review ON cards(user_id, next_review);
CREATE INDEX IF NOT EXISTS idx_cards_source ON cards(source_id);

-- The 'sources' table tracks where imported cards come from, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    path TEXT NOT NULL,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME,

    UNIQUE(user_id, path)
);

-- The 'review_logs' table keeps one row per accepted review.
CREATE TABLE IF NOT EXISTS review_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    response TEXT NOT NULL,
    quality INTEGER NOT NULL,
    ease_before REAL NOT NULL,
    ease_after REAL NOT NULL,
    interval_before INTEGER NOT NULL,
    interval_after INTEGER NOT NULL,
    repetitions_before INTEGER NOT NULL,
    repetitions_after INTEGER NOT NULL,
    reviewed_at DATETIME NOT NULL,

    FOREIGN KEY(card_id) REFERENCES cards(id)
);

CREATE INDEX IF NOT EXISTS idx_review_logs_card ON review_logs(card_id);
`
