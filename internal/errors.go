package internal

import "fmt"

// StoreError represents a failure reading the local chat store. A StoreError
// aborts the whole collection cycle without mutating any cursor.
type StoreError struct {
	Path string
	Op   string // "open", "query", "scan"
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ParseError represents a malformed payload for a single row. The offending
// fragment is skipped; the session keeps processing.
type ParseError struct {
	Source string // "cursorDiskKV"
	Key    string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UploadError represents a rejected or failed batch upload. Sessions covered
// by the batch keep their cursors and are retried next cycle.
type UploadError struct {
	Endpoint  string
	BatchSize int
	Status    int // HTTP status, 0 on transport failure
	Err       error
}

func (e *UploadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upload error [%s] batch of %d: status %d: %v", e.Endpoint, e.BatchSize, e.Status, e.Err)
	}
	return fmt.Sprintf("upload error [%s] batch of %d: %v", e.Endpoint, e.BatchSize, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// StateError represents a failure loading or persisting collector state.
type StateError struct {
	Path string
	Op   string // "load", "save"
	Err  error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}
