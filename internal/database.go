package internal

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// KeyValuePair is one row from cursorDiskKV.
type KeyValuePair struct {
	Key   string
	Value string
}

// OpenDatabase opens the state.vscdb SQLite store in read-only mode. Any
// failure here (missing, locked, corrupt) fails fast so the caller can abort
// the cycle without touching cursors.
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, &StoreError{Path: path, Op: "open", Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StoreError{Path: path, Op: "open", Err: err}
	}

	return db, nil
}

// QueryDiskKV queries the cursorDiskKV table with a LIKE pattern.
func QueryDiskKV(db *sql.DB, pattern string) ([]KeyValuePair, error) {
	query := "SELECT key, value FROM cursorDiskKV WHERE key LIKE ? AND value IS NOT NULL"
	rows, err := db.Query(query, pattern)
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}
	defer rows.Close()

	var pairs []KeyValuePair
	for rows.Next() {
		var pair KeyValuePair
		var value sql.NullString
		if err := rows.Scan(&pair.Key, &value); err != nil {
			return nil, &StoreError{Op: "scan", Err: err}
		}
		if value.Valid {
			pair.Value = value.String
			pairs = append(pairs, pair)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "scan", Err: err}
	}

	return pairs, nil
}
