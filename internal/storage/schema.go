package storage

// Schema holds the document index and the citation graph.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
    id               TEXT PRIMARY KEY,
    title            TEXT NOT NULL,
    content          TEXT NOT NULL DEFAULT '',
    document_type    TEXT NOT NULL DEFAULT '',
    jurisdiction     TEXT NOT NULL DEFAULT '',
    authority        TEXT NOT NULL DEFAULT '',
    citation         TEXT NOT NULL DEFAULT '',
    legislation_name TEXT NOT NULL DEFAULT '',
    effective_date   TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL DEFAULT '',
    metadata         TEXT NOT NULL DEFAULT '{}',
    embedding        BLOB NULL,
    updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
    title,
    content,
    citation,
    legislation_name,
    content='documents',
    content_rowid='rowid',
    tokenize='porter unicode61'
);

CREATE TABLE IF NOT EXISTS graph_nodes (
    id        TEXT PRIMARY KEY,
    title     TEXT NOT NULL,
    citation  TEXT NOT NULL DEFAULT '',
    kind      TEXT NOT NULL CHECK(kind IN ('regulation', 'section')),
    parent_id TEXT NULL REFERENCES graph_nodes(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS graph_edges (
    source_id TEXT NOT NULL REFERENCES graph_nodes(id) ON DELETE CASCADE,
    target_id TEXT NOT NULL REFERENCES graph_nodes(id) ON DELETE CASCADE,
    kind      TEXT NOT NULL CHECK(kind IN ('cites', 'amends', 'implements')),
    PRIMARY KEY (source_id, target_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_graph_edges_target ON graph_edges(target_id, kind);
CREATE INDEX IF NOT EXISTS idx_graph_nodes_parent ON graph_nodes(parent_id);
`

const Triggers = `
CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
    INSERT INTO documents_fts(rowid, title, content, citation, legislation_name)
    VALUES (new.rowid, new.title, new.content, new.citation, new.legislation_name);
END;
CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
    INSERT INTO documents_fts(documents_fts, rowid, title, content, citation, legislation_name)
    VALUES ('delete', old.rowid, old.title, old.content, old.citation, old.legislation_name);
END;
CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE ON documents BEGIN
    INSERT INTO documents_fts(documents_fts, rowid, title, content, citation, legislation_name)
    VALUES ('delete', old.rowid, old.title, old.content, old.citation, old.legislation_name);
    INSERT INTO documents_fts(rowid, title, content, citation, legislation_name)
    VALUES (new.rowid, new.title, new.content, new.citation, new.legislation_name);
END;
`
