package store

// schema creates the §3 tables and the indexes required by §6: file by
// path, symbol by FQN, edge by source_file_id, edge by
// (is_resolved, target_symbol), AST-node by file_id and by fqcn.
const schema = `
CREATE TABLE IF NOT EXISTS files (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	path          TEXT NOT NULL UNIQUE,
	absolute_path TEXT NOT NULL,
	content_hash  INTEGER NOT NULL,
	raw_content   BLOB,
	class_kind    TEXT NOT NULL,
	skip_ast      INTEGER NOT NULL DEFAULT 0,
	ast_root      INTEGER,
	is_entry      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);

CREATE TABLE IF NOT EXISTS symbols (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id          INTEGER NOT NULL REFERENCES files(id),
	kind             TEXT NOT NULL,
	short_name       TEXT NOT NULL,
	fqn              TEXT NOT NULL,
	namespace        TEXT NOT NULL,
	visibility       TEXT NOT NULL,
	parent_symbol_id INTEGER,
	UNIQUE(file_id, fqn, kind)
);
CREATE INDEX IF NOT EXISTS idx_symbols_fqn ON symbols(fqn);

CREATE TABLE IF NOT EXISTS edges (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	source_file_id   INTEGER NOT NULL REFERENCES files(id),
	target_symbol    TEXT NOT NULL DEFAULT '',
	target_file_id   INTEGER,
	kind             TEXT NOT NULL,
	line             INTEGER NOT NULL,
	is_conditional   INTEGER NOT NULL DEFAULT 0,
	is_resolved      INTEGER NOT NULL DEFAULT 0,
	context          TEXT NOT NULL DEFAULT '',
	externally_satisfied INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_file_id);
CREATE INDEX IF NOT EXISTS idx_edges_unresolved ON edges(is_resolved, target_symbol);

CREATE TABLE IF NOT EXISTS autoload_rules (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	kind     TEXT NOT NULL,
	prefix   TEXT NOT NULL DEFAULT '',
	path     TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ast_nodes (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id             INTEGER NOT NULL REFERENCES files(id),
	parent_id           INTEGER,
	node_type           TEXT NOT NULL,
	fqcn                TEXT NOT NULL DEFAULT '',
	position_in_parent  INTEGER NOT NULL,
	start_line          INTEGER NOT NULL,
	end_line            INTEGER NOT NULL,
	attributes          BLOB
);
CREATE INDEX IF NOT EXISTS idx_ast_nodes_file ON ast_nodes(file_id);
CREATE INDEX IF NOT EXISTS idx_ast_nodes_fqcn ON ast_nodes(fqcn);
`
