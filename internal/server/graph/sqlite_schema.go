package graph

// SQLite schema DDL constants

const schemaDocuments = `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    properties TEXT,
    created_at DATETIME NOT NULL,
    modified_at DATETIME NOT NULL
)`

const schemaRelations = `
CREATE TABLE IF NOT EXISTS relations (
    source_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    type TEXT NOT NULL,
    properties TEXT,
    created_at DATETIME NOT NULL,
    PRIMARY KEY (source_id, target_id, type),
    FOREIGN KEY (source_id) REFERENCES documents(id) ON DELETE CASCADE,
    FOREIGN KEY (target_id) REFERENCES documents(id) ON DELETE CASCADE
)`

// Index definitions
const indexRelationsSource = `CREATE INDEX IF NOT EXISTS idx_relations_source ON relations(source_id)`
const indexRelationsTarget = `CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target_id)`
const indexRelationsType = `CREATE INDEX IF NOT EXISTS idx_relations_type ON relations(type)`

// SQLite pragmas for optimal performance
const pragmaWAL = `PRAGMA journal_mode=WAL`
const pragmaFK = `PRAGMA foreign_keys=ON`
const pragmaBusyTimeout = `PRAGMA busy_timeout=5000`
const pragmaSynchronous = `PRAGMA synchronous=NORMAL`

// allSchemaStatements returns all schema DDL in order
func allSchemaStatements() []string {
	return []string{
		schemaDocuments,
		schemaRelations,
		indexRelationsSource,
		indexRelationsTarget,
		indexRelationsType,
	}
}

// allPragmas returns all pragma statements
func allPragmas() []string {
	return []string{
		pragmaWAL,
		pragmaFK,
		pragmaBusyTimeout,
		pragmaSynchronous,
	}
}
