package domain

import "context"

// TransactionView provides read-only access to catalog state.
type TransactionView interface {
	// Get returns a copy of the record of the given kind.
	Get(kind EntityType, id string) (Record, bool)
	// List returns copies of every record of the given kind sorted by ID.
	List(kind EntityType) []Record
	// LinkedIDs returns the IDs on the opposite side of rows whose side matches id, sorted.
	LinkedIDs(assoc Association, side Side, id string) []string
	// IsLinked reports whether the (left, right) row exists.
	IsLinked(assoc Association, leftID, rightID string) bool
	// CountLinks counts rows whose side matches id.
	CountLinks(assoc Association, side Side, id string) int
	// Links returns every row of an association sorted by (left, right).
	Links(assoc Association) []Link
}

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope. Every mutation is recorded as a Change for rule evaluation.
type Transaction interface {
	TransactionView
	Snapshot() TransactionView
	// Insert stores a new record, assigning an ID when empty and stamping timestamps.
	Insert(record Record) (Record, error)
	// Replace overwrites an existing record, preserving CreatedAt.
	Replace(record Record) (Record, error)
	// Remove deletes a record. Association rows are not touched.
	Remove(kind EntityType, id string) error
	// Link inserts an association row; duplicates fail with ErrAlreadyLinked.
	Link(assoc Association, leftID, rightID string) error
	// Unlink removes an association row; absent rows fail with ErrNotLinked.
	Unlink(assoc Association, leftID, rightID string) error
}

// PersistentStore is a minimal abstraction over durable backends.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	RulesEngine() *RulesEngine
}
