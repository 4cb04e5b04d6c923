package model

import (
	"time"

	"github.com/google/uuid"
)

type ChangeKind string

const (
	ChangeInserted ChangeKind = "inserted"
	ChangeUpdated  ChangeKind = "updated"
	ChangeDeleted  ChangeKind = "deleted"
)

// Entity is anything kept in the replicated snapshot.
type Entity interface {
	Key() uuid.UUID
	Stamp() time.Time
}

// Change is a single row change pushed by a backend. Entity is set for
// inserts and updates, ID for every kind.
type Change[T Entity] struct {
	Kind   ChangeKind
	Entity T
	ID     uuid.UUID
}

func Inserted[T Entity](e T) Change[T] {
	return Change[T]{Kind: ChangeInserted, Entity: e, ID: e.Key()}
}

func Updated[T Entity](e T) Change[T] {
	return Change[T]{Kind: ChangeUpdated, Entity: e, ID: e.Key()}
}

func Deleted[T Entity](id uuid.UUID) Change[T] {
	return Change[T]{Kind: ChangeDeleted, ID: id}
}

// ChangeSet groups changes from one backend notification. Resync is set
// when the feed had a gap and the receiver must reload from the backend.
type ChangeSet struct {
	Products     []Change[Product]
	Transactions []Change[Transaction]
	Resync       bool
}

func (cs ChangeSet) Empty() bool {
	return !cs.Resync && len(cs.Products) == 0 && len(cs.Transactions) == 0
}
