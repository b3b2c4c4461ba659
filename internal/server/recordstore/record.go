// Package recordstore is a thin typed client over the relational store.
//
// A Table binds one entity type to one table. Every call is an independent
// round trip: there are no transactions, no caching and no batching.
// Failures are logged and reported as a nil record, false or an empty
// slice, so callers decide for themselves whether a missing write matters.
package recordstore

import "time"

// Record is implemented by pointer-to-entity types. Columns, Values and
// ScanDest must return aligned slices with the "id" column first.
type Record interface {
	RecordID() string
	SetRecordID(id string)
	Columns() []string
	Values() []any
	ScanDest() []any
}

// Stamper is implemented by records with creation timestamps; Insert calls
// it before writing.
type Stamper interface {
	Stamp(now time.Time)
}

// Row ties an entity type T to its pointer type implementing Record.
type Row[T any] interface {
	*T
	Record
}

// Fields is a set of column assignments or equality filters.
type Fields map[string]any

// Query describes a List call. Filters are ANDed equality matches; a nil
// filter value matches NULL. Limit <= 0 means no limit.
type Query struct {
	Filters Fields
	OrderBy string
	Desc    bool
	Limit   int
}
