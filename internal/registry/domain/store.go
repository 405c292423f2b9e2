package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Row is a single registry record keyed by column name.
type Row map[string]any

// Condition is one field=value predicate. Field names are validated against
// the table allow-list before any SQL is built.
type Condition struct {
	Field string
	Value any
}

// Store is the typed CRUD gateway over the customer registry. Exists and
// Fetch join conditions with OR (a record matching any pair counts), Delete
// joins with AND. Fetch with no conditions lists the whole table; Exists
// and Delete require at least one. All identifiers are allow-listed and
// all values are bound parameters.
type Store interface {
	Exists(ctx context.Context, db *gorm.DB, table string, match []Condition) (bool, error)
	Fetch(ctx context.Context, db *gorm.DB, table string, match []Condition, fields []string) ([]Row, error)
	Insert(ctx context.Context, db *gorm.DB, table string, row Row) error
	Delete(ctx context.Context, db *gorm.DB, table string, match []Condition) (int64, error)
}

var (
	ErrUnknownTable = errors.New("unknown_table")
	ErrUnknownField = errors.New("unknown_field")
	ErrNoConditions = errors.New("no_conditions")
	ErrEmptyRow     = errors.New("empty_row")
)
