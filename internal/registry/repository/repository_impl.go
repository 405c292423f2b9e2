package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/smallbiznis/chargeway/internal/registry/domain"
	"gorm.io/gorm"
)

// allowedTables maps each queryable table to its queryable columns. Anything
// outside this map is rejected before SQL is built.
var allowedTables = map[string]map[string]struct{}{
	"customers": {
		"customer_id":   {},
		"email":         {},
		"phone":         {},
		"name":          {},
		"address":       {},
		"metadata":      {},
		"customer_type": {},
		"created_at":    {},
	},
	"charge_info": {
		"type_code":     {},
		"amount":        {},
		"card_upcharge": {},
	},
}

type store struct{}

func Provide() domain.Store {
	return &store{}
}

func (s *store) Exists(ctx context.Context, db *gorm.DB, table string, match []domain.Condition) (bool, error) {
	predicate, values, err := buildPredicate(table, match, " OR ")
	if err != nil {
		return false, err
	}

	var one int
	result := db.WithContext(ctx).Raw(
		fmt.Sprintf("SELECT 1 FROM %s WHERE %s LIMIT 1", table, predicate),
		values...,
	).Scan(&one)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *store) Fetch(ctx context.Context, db *gorm.DB, table string, match []domain.Condition, fields []string) ([]domain.Row, error) {
	columns, err := projectedColumns(table, fields)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s", columns, table)
	var values []any
	if len(match) > 0 {
		predicate, bound, err := buildPredicate(table, match, " OR ")
		if err != nil {
			return nil, err
		}
		query += " WHERE " + predicate
		values = bound
	}

	var rows []map[string]any
	err = db.WithContext(ctx).Raw(query, values...).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Row(row))
	}
	return out, nil
}

func (s *store) Insert(ctx context.Context, db *gorm.DB, table string, row domain.Row) error {
	allowed, ok := allowedTables[table]
	if !ok {
		return domain.ErrUnknownTable
	}
	if len(row) == 0 {
		return domain.ErrEmptyRow
	}

	columns := make([]string, 0, len(row))
	for column := range row {
		if _, ok := allowed[column]; !ok {
			return domain.ErrUnknownField
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	placeholders := make([]string, 0, len(columns))
	values := make([]any, 0, len(columns))
	for _, column := range columns {
		placeholders = append(placeholders, "?")
		values = append(values, row[column])
	}

	return db.WithContext(ctx).Exec(
		fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table,
			strings.Join(columns, ", "),
			strings.Join(placeholders, ", "),
		),
		values...,
	).Error
}

func (s *store) Delete(ctx context.Context, db *gorm.DB, table string, match []domain.Condition) (int64, error) {
	predicate, values, err := buildPredicate(table, match, " AND ")
	if err != nil {
		return 0, err
	}

	result := db.WithContext(ctx).Exec(
		fmt.Sprintf("DELETE FROM %s WHERE %s", table, predicate),
		values...,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func buildPredicate(table string, match []domain.Condition, joiner string) (string, []any, error) {
	allowed, ok := allowedTables[table]
	if !ok {
		return "", nil, domain.ErrUnknownTable
	}
	if len(match) == 0 {
		return "", nil, domain.ErrNoConditions
	}

	parts := make([]string, 0, len(match))
	values := make([]any, 0, len(match))
	for _, cond := range match {
		if _, ok := allowed[cond.Field]; !ok {
			return "", nil, domain.ErrUnknownField
		}
		parts = append(parts, cond.Field+" = ?")
		values = append(values, cond.Value)
	}
	return strings.Join(parts, joiner), values, nil
}

func projectedColumns(table string, fields []string) (string, error) {
	allowed, ok := allowedTables[table]
	if !ok {
		return "", domain.ErrUnknownTable
	}
	if len(fields) == 0 {
		return "*", nil
	}
	for _, field := range fields {
		if _, ok := allowed[field]; !ok {
			return "", domain.ErrUnknownField
		}
	}
	return strings.Join(fields, ", "), nil
}
