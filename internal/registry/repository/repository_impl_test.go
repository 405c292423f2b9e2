package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	chargedomain "github.com/smallbiznis/chargeway/internal/charge/domain"
	customerdomain "github.com/smallbiznis/chargeway/internal/customer/domain"
	"github.com/smallbiznis/chargeway/internal/registry/domain"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:registry_%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&customerdomain.CustomerRecord{},
		&chargedomain.PolicyRecord{},
	))
	return conn
}

func seedCustomer(t *testing.T, conn *gorm.DB, store domain.Store, id, email, phone string) {
	t.Helper()
	err := store.Insert(context.Background(), conn, customerdomain.Table, domain.Row{
		"customer_id": id,
		"email":       email,
		"phone":       phone,
		"created_at":  time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestExistsMatchesAnyCondition(t *testing.T) {
	conn := setupDB(t)
	store := Provide()
	seedCustomer(t, conn, store, "cus_1", "a@b.co", "555-0001")

	// Matching email with a different phone still counts as existing.
	found, err := store.Exists(context.Background(), conn, customerdomain.Table, []domain.Condition{
		{Field: "email", Value: "a@b.co"},
		{Field: "phone", Value: "555-9999"},
	})
	require.NoError(t, err)
	assert.True(t, found)

	found, err = store.Exists(context.Background(), conn, customerdomain.Table, []domain.Condition{
		{Field: "email", Value: "other@b.co"},
		{Field: "phone", Value: "555-9999"},
	})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFetchProjection(t *testing.T) {
	conn := setupDB(t)
	store := Provide()
	seedCustomer(t, conn, store, "cus_1", "a@b.co", "555-0001")

	rows, err := store.Fetch(context.Background(), conn, customerdomain.Table,
		[]domain.Condition{{Field: "customer_id", Value: "cus_1"}},
		[]string{"customer_id", "email"},
	)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "cus_1", rows[0]["customer_id"])
	assert.Equal(t, "a@b.co", rows[0]["email"])
	_, hasPhone := rows[0]["phone"]
	assert.False(t, hasPhone, "projection should drop unselected columns")
}

func TestFetchWithoutConditionsListsAll(t *testing.T) {
	conn := setupDB(t)
	store := Provide()
	seedCustomer(t, conn, store, "cus_1", "a@b.co", "555-0001")
	seedCustomer(t, conn, store, "cus_2", "c@d.co", "555-0002")

	rows, err := store.Fetch(context.Background(), conn, customerdomain.Table, nil, []string{"customer_id"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestDeleteJoinsWithAnd(t *testing.T) {
	conn := setupDB(t)
	store := Provide()
	seedCustomer(t, conn, store, "cus_1", "a@b.co", "555-0001")

	// AND semantics: only one condition matches, so nothing is deleted.
	rows, err := store.Delete(context.Background(), conn, customerdomain.Table, []domain.Condition{
		{Field: "customer_id", Value: "cus_1"},
		{Field: "email", Value: "wrong@b.co"},
	})
	require.NoError(t, err)
	assert.Zero(t, rows)

	rows, err = store.Delete(context.Background(), conn, customerdomain.Table, []domain.Condition{
		{Field: "customer_id", Value: "cus_1"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	// Deleting an absent record affects zero rows without error.
	rows, err = store.Delete(context.Background(), conn, customerdomain.Table, []domain.Condition{
		{Field: "customer_id", Value: "cus_1"},
	})
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestAllowListRejections(t *testing.T) {
	conn := setupDB(t)
	store := Provide()
	ctx := context.Background()

	_, err := store.Exists(ctx, conn, "users; DROP TABLE customers", []domain.Condition{{Field: "email", Value: "x"}})
	assert.True(t, errors.Is(err, domain.ErrUnknownTable))

	_, err = store.Exists(ctx, conn, customerdomain.Table, []domain.Condition{{Field: "email OR 1=1", Value: "x"}})
	assert.True(t, errors.Is(err, domain.ErrUnknownField))

	_, err = store.Exists(ctx, conn, customerdomain.Table, nil)
	assert.True(t, errors.Is(err, domain.ErrNoConditions))

	_, err = store.Delete(ctx, conn, customerdomain.Table, nil)
	assert.True(t, errors.Is(err, domain.ErrNoConditions))

	err = store.Insert(ctx, conn, customerdomain.Table, domain.Row{"not_a_column": "x"})
	assert.True(t, errors.Is(err, domain.ErrUnknownField))

	err = store.Insert(ctx, conn, customerdomain.Table, domain.Row{})
	assert.True(t, errors.Is(err, domain.ErrEmptyRow))
}

func TestChargeInfoRoundTrip(t *testing.T) {
	conn := setupDB(t)
	store := Provide()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, conn, chargedomain.Table, domain.Row{
		"type_code":     "standard",
		"amount":        int64(1000),
		"card_upcharge": int64(200),
	}))

	rows, err := store.Fetch(ctx, conn, chargedomain.Table,
		[]domain.Condition{{Field: "type_code", Value: "standard"}},
		[]string{"type_code", "amount", "card_upcharge"},
	)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "standard", rows[0]["type_code"])
}
