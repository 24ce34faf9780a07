package database

import (
	"strings"
)

// ExpectedTables is the canonical table set for the literature store. Schema
// validation fails if any of these is missing from the live catalog.
var ExpectedTables = []string{
	"authors",
	"papers",
	"datasets",
	"paper_authors",
	"citations",
	"paper_datasets",
	"research_trends",
	"collaboration_networks",
}

// ExpectedIndexes is the set of performance indexes the bootstrap script
// creates.
var ExpectedIndexes = []string{
	"idx_authors_name",
	"idx_papers_publication_date",
	"idx_papers_journal",
	"idx_paper_authors_author",
	"idx_citations_citing",
	"idx_citations_cited",
	"idx_paper_datasets_dataset",
	"idx_trends_keyword_year",
	"idx_collab_authors",
}

// FTSTable is the full-text-search artifact over paper text.
const FTSTable = "papers_fts"

// SchemaScriptName is the override filename looked up next to the database
// file. When absent, the embedded default schema below is used.
const SchemaScriptName = "schema.sql"

// defaultSchema bootstraps the literature store. Every statement is
// idempotent so the script can run on every startup.
const defaultSchema = `
-- Researchers and their academic profiles
CREATE TABLE IF NOT EXISTS authors (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	affiliation TEXT,
	orcid TEXT UNIQUE,
	h_index INTEGER DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Published papers
CREATE TABLE IF NOT EXISTS papers (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	abstract TEXT,
	publication_date DATE,
	journal TEXT,
	doi TEXT UNIQUE,
	citation_count INTEGER DEFAULT 0,
	keywords TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Datasets referenced by papers
CREATE TABLE IF NOT EXISTS datasets (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	url TEXT,
	format TEXT,
	size_bytes INTEGER,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Many-to-many: papers to authors, ordered by author position
CREATE TABLE IF NOT EXISTS paper_authors (
	paper_id INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
	author_id INTEGER NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
	author_position INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (paper_id, author_id)
);

-- Directed citation edges between papers
CREATE TABLE IF NOT EXISTS citations (
	id INTEGER PRIMARY KEY,
	citing_paper_id INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
	cited_paper_id INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
	citation_type TEXT DEFAULT 'direct',
	context TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (citing_paper_id, cited_paper_id)
);

-- Many-to-many: papers to datasets
CREATE TABLE IF NOT EXISTS paper_datasets (
	paper_id INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
	dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	usage_type TEXT DEFAULT 'analysis',
	PRIMARY KEY (paper_id, dataset_id)
);

-- Aggregated keyword momentum per year
CREATE TABLE IF NOT EXISTS research_trends (
	id INTEGER PRIMARY KEY,
	keyword TEXT NOT NULL,
	year INTEGER NOT NULL,
	paper_count INTEGER DEFAULT 0,
	total_citations INTEGER DEFAULT 0,
	UNIQUE (keyword, year)
);

-- Pairwise author collaboration summary
CREATE TABLE IF NOT EXISTS collaboration_networks (
	id INTEGER PRIMARY KEY,
	author_a_id INTEGER NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
	author_b_id INTEGER NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
	paper_count INTEGER DEFAULT 1,
	first_collaboration DATE,
	last_collaboration DATE,
	UNIQUE (author_a_id, author_b_id)
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_authors_name ON authors(name);
CREATE INDEX IF NOT EXISTS idx_papers_publication_date ON papers(publication_date);
CREATE INDEX IF NOT EXISTS idx_papers_journal ON papers(journal);
CREATE INDEX IF NOT EXISTS idx_paper_authors_author ON paper_authors(author_id);
CREATE INDEX IF NOT EXISTS idx_citations_citing ON citations(citing_paper_id);
CREATE INDEX IF NOT EXISTS idx_citations_cited ON citations(cited_paper_id);
CREATE INDEX IF NOT EXISTS idx_paper_datasets_dataset ON paper_datasets(dataset_id);
CREATE INDEX IF NOT EXISTS idx_trends_keyword_year ON research_trends(keyword, year);
CREATE INDEX IF NOT EXISTS idx_collab_authors ON collaboration_networks(author_a_id, author_b_id);

-- Full-text search over paper text, kept in sync by triggers
CREATE VIRTUAL TABLE IF NOT EXISTS papers_fts USING fts5(
	title,
	abstract,
	content='papers',
	content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS papers_fts_insert AFTER INSERT ON papers BEGIN
	INSERT INTO papers_fts(rowid, title, abstract) VALUES (new.id, new.title, new.abstract);
END;

CREATE TRIGGER IF NOT EXISTS papers_fts_delete AFTER DELETE ON papers BEGIN
	INSERT INTO papers_fts(papers_fts, rowid, title, abstract) VALUES ('delete', old.id, old.title, old.abstract);
END;

CREATE TRIGGER IF NOT EXISTS papers_fts_update AFTER UPDATE ON papers BEGIN
	INSERT INTO papers_fts(papers_fts, rowid, title, abstract) VALUES ('delete', old.id, old.title, old.abstract);
	INSERT INTO papers_fts(rowid, title, abstract) VALUES (new.id, new.title, new.abstract);
END;
`

// splitSQLStatements splits a SQL script into individual statements. It
// tracks BEGIN...END trigger bodies so their internal semicolons do not end
// the statement, skips comments, and only returns non-empty statements.
func splitSQLStatements(script string) []string {
	var statements []string
	var current strings.Builder
	inTriggerBody := false

	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		// Skip empty lines and comments
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		upper := strings.ToUpper(trimmed)
		if strings.HasSuffix(upper, "BEGIN") {
			inTriggerBody = true
		}
		if inTriggerBody {
			if strings.HasPrefix(upper, "END;") || upper == "END;" {
				inTriggerBody = false
			} else {
				continue
			}
		}

		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" && stmt != ";" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		statements = append(statements, remaining)
	}

	return statements
}
