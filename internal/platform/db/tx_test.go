package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	_ "github.com/beacon-sis/beacon/internal/testing/guard"
)

func TestIsSerializationFailure(t *testing.T) {
	require.True(t, IsSerializationFailure(&pgconn.PgError{Code: "40001"}))
	require.True(t, IsSerializationFailure(&pgconn.PgError{Code: "40P01"}))

	// Wrapped errors still classify.
	wrapped := fmt.Errorf("platform/db: commit tx: %w", &pgconn.PgError{Code: "40001"})
	require.True(t, IsSerializationFailure(wrapped))

	require.False(t, IsSerializationFailure(&pgconn.PgError{Code: "23505"}))
	require.False(t, IsSerializationFailure(errors.New("connection reset")))
	require.False(t, IsSerializationFailure(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "fee_transactions_receipt_number_key"}
	require.True(t, IsUniqueViolation(dup, ""))
	require.True(t, IsUniqueViolation(dup, "fee_transactions_receipt_number_key"))
	require.False(t, IsUniqueViolation(dup, "fee_accounts_student_id_academic_year_key"))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "40001"}, ""))
	require.False(t, IsUniqueViolation(errors.New("not a pg error"), ""))
}
