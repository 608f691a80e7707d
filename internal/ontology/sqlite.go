package ontology

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const createTermTable = `CREATE TABLE IF NOT EXISTS cv_term (
	accession  TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	obsolete   INTEGER NOT NULL DEFAULT 0,
	value_type INTEGER NOT NULL DEFAULT 0
)`

// SQLiteStore keeps CV terms in an SQLite database, so large ontologies
// don't have to be parsed from OBO on every run.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) a term cache at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ontology: open cache %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createTermTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("ontology: create cache table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Import stores terms, replacing terms with the same accession
func (s *SQLiteStore) Import(terms []Term) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO cv_term
		(accession, name, obsolete, value_type) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, t := range terms {
		obsolete := 0
		if t.Obsolete {
			obsolete = 1
		}
		if _, err := stmt.Exec(t.ID, t.Name, obsolete, int(t.ValueType)); err != nil {
			tx.Rollback()
			return fmt.Errorf("ontology: import %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// Lookup returns the term with the given accession. A missing term is
// not an error: the boolean is false.
func (s *SQLiteStore) Lookup(accession string) (Term, bool, error) {
	var t Term
	var obsolete, vt int
	err := s.db.QueryRow(`SELECT accession, name, obsolete, value_type
		FROM cv_term WHERE accession = ?`, accession).Scan(&t.ID, &t.Name, &obsolete, &vt)
	if errors.Is(err, sql.ErrNoRows) {
		return Term{}, false, nil
	}
	if err != nil {
		return Term{}, false, err
	}
	t.Obsolete = obsolete != 0
	t.ValueType = ValueType(vt)
	return t, true, nil
}

// Term implements Store. Database errors are reported as a missing term.
func (s *SQLiteStore) Term(accession string) (Term, bool) {
	t, ok, err := s.Lookup(accession)
	if err != nil {
		return Term{}, false
	}
	return t, ok
}

// Len returns the number of cached terms
func (s *SQLiteStore) Len() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM cv_term`).Scan(&n)
	return n, err
}
