package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beacon-sis/beacon/internal/platform/db"
	"github.com/beacon-sis/beacon/internal/shared"
)

const accountColumns = `id, student_id, academic_year, total_fee, total_paid, balance, status, created_at, updated_at`

const transactionColumns = `id, account_id, student_id, academic_year, receipt_number, amount_paid, payment_mode, payment_for, paid_months, remarks, transaction_date, recorded_by, created_at`

// Repository persists fee accounts and transactions in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetAccount(ctx context.Context, studentID int64, academicYear string) (*FeeAccount, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM fee_accounts WHERE student_id = $1 AND academic_year = $2`,
		studentID, academicYear))
}

func (r *Repository) GetTransaction(ctx context.Context, id int64) (*FeeTransaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM fee_transactions WHERE id = $1`, id))
}

func (r *Repository) ListTransactions(ctx context.Context, studentID int64, academicYear string) ([]FeeTransaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM fee_transactions
		 WHERE student_id = $1 AND academic_year = $2
		 ORDER BY transaction_date DESC, id DESC`,
		studentID, academicYear)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var out []FeeTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *txn)
	}
	return out, storageErr(rows.Err())
}

func (r *Repository) MarkOverdue(ctx context.Context, academicYear string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE fee_accounts SET status = $1, updated_at = NOW()
		 WHERE academic_year = $2 AND balance > 0 AND status IN ($3, $4)`,
		StatusOverdue, academicYear, StatusPending, StatusPartial)
	if err != nil {
		return 0, storageErr(err)
	}
	return tag.RowsAffected(), nil
}

// InTx runs fn inside a repeatable-read transaction; the TxPort it hands
// out is only valid for the duration of fn.
func (r *Repository) InTx(ctx context.Context, fn func(TxPort) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) GetOrCreateAccount(ctx context.Context, studentID int64, academicYear string, totalFee float64) (*FeeAccount, bool, error) {
	acct, err := scanAccount(t.tx.QueryRow(ctx,
		`INSERT INTO fee_accounts (student_id, academic_year, total_fee, total_paid, balance, status)
		 VALUES ($1, $2, $3, 0, $3, $4)
		 ON CONFLICT (student_id, academic_year) DO NOTHING
		 RETURNING `+accountColumns,
		studentID, academicYear, totalFee, StatusPending))
	if err == nil {
		return acct, true, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}
	acct, err = scanAccount(t.tx.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM fee_accounts WHERE student_id = $1 AND academic_year = $2`,
		studentID, academicYear))
	if err != nil {
		return nil, false, err
	}
	return acct, false, nil
}

// NextReceiptSeq allocates the next receipt sequence value for the year.
// The upsert increment is a single statement, so concurrent allocations
// serialize on the row and never hand out the same value twice.
func (t *txRepository) NextReceiptSeq(ctx context.Context, academicYear string) (int64, error) {
	var seq int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO receipt_sequences (academic_year, last_value) VALUES ($1, 1)
		 ON CONFLICT (academic_year) DO UPDATE SET last_value = receipt_sequences.last_value + 1
		 RETURNING last_value`,
		academicYear).Scan(&seq)
	if err != nil {
		return 0, storageErr(err)
	}
	return seq, nil
}

func (t *txRepository) InsertTransaction(ctx context.Context, txn *FeeTransaction) (*FeeTransaction, error) {
	out, err := scanTransaction(t.tx.QueryRow(ctx,
		`INSERT INTO fee_transactions (account_id, student_id, academic_year, receipt_number, amount_paid, payment_mode, payment_for, paid_months, remarks, transaction_date, recorded_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+transactionColumns,
		txn.AccountID, txn.StudentID, txn.AcademicYear, txn.ReceiptNumber, txn.AmountPaid,
		txn.PaymentMode, txn.PaymentFor, txn.PaidMonths, txn.Remarks, txn.TransactionDate, txn.RecordedBy))
	if err != nil {
		if db.IsUniqueViolation(err, "fee_transactions_receipt_number_key") {
			return nil, fmt.Errorf("%w: receipt number %s already exists", shared.ErrInvalidState, txn.ReceiptNumber)
		}
		return nil, err
	}
	return out, nil
}

func (t *txRepository) DeleteTransaction(ctx context.Context, id int64) (*FeeTransaction, error) {
	return scanTransaction(t.tx.QueryRow(ctx,
		`DELETE FROM fee_transactions WHERE id = $1 RETURNING `+transactionColumns, id))
}

// ApplyDelta shifts total_paid by delta and recomputes balance in one
// statement. The WHERE guard refuses any delta that would take the paid
// total negative; that surfaces as ErrInvalidState, not a silent clamp.
func (t *txRepository) ApplyDelta(ctx context.Context, accountID int64, delta float64) (*FeeAccount, error) {
	acct, err := scanAccount(t.tx.QueryRow(ctx,
		`UPDATE fee_accounts
		 SET total_paid = total_paid + $2,
		     balance = total_fee - (total_paid + $2),
		     updated_at = NOW()
		 WHERE id = $1 AND total_paid + $2 >= 0
		 RETURNING `+accountColumns,
		accountID, delta))
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	var exists bool
	if scanErr := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM fee_accounts WHERE id = $1)`, accountID).Scan(&exists); scanErr != nil {
		return nil, storageErr(scanErr)
	}
	if exists {
		return nil, fmt.Errorf("%w: paid total for account %d cannot go negative", shared.ErrInvalidState, accountID)
	}
	return nil, fmt.Errorf("%w: fee account %d", shared.ErrNotFound, accountID)
}

func (t *txRepository) SetStatus(ctx context.Context, accountID int64, status FeeStatus) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE fee_accounts SET status = $2, updated_at = NOW() WHERE id = $1`, accountID, status)
	return storageErr(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*FeeAccount, error) {
	var a FeeAccount
	err := row.Scan(&a.ID, &a.StudentID, &a.AcademicYear, &a.TotalFee, &a.TotalPaid, &a.Balance, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: fee account", shared.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return &a, nil
}

func scanTransaction(row rowScanner) (*FeeTransaction, error) {
	var t FeeTransaction
	err := row.Scan(&t.ID, &t.AccountID, &t.StudentID, &t.AcademicYear, &t.ReceiptNumber, &t.AmountPaid, &t.PaymentMode, &t.PaymentFor, &t.PaidMonths, &t.Remarks, &t.TransactionDate, &t.RecordedBy, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: fee transaction", shared.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return &t, nil
}

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(shared.ErrStorage, err)
}
