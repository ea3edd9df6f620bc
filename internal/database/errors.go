package database

import "errors"

var (
	// ErrRunNotFound is returned when no run matches the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousRunID is returned when an ID prefix matches several runs.
	ErrAmbiguousRunID = errors.New("run ID prefix matches more than one run")

	// ErrDatabaseNotFound is returned when opening a database that does not
	// exist without CreateIfNotExists.
	ErrDatabaseNotFound = errors.New("database not found")
)
