// repository/loan/loanRepository.go
package loanrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/DevAldrete/shelfs/model"
)

// Repo is the loan ledger. Methods taking a *sql.Tx participate in the
// two-write transactions owned by the loan service (ledger write plus
// item status write); the rest are plain reads.
type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, l *model.Loan) error
	MarkReturned(ctx context.Context, tx *sql.Tx, loanID int64, at time.Time) error
	SetItemStatus(ctx context.Context, tx *sql.Tx, itemID int64, status model.BookStatus) error
	UpdateLimit(ctx context.Context, loanID int64, limitAt time.Time) error

	ByID(ctx context.Context, id int64) (*model.Loan, error)
	ActiveByItemID(ctx context.Context, itemID int64) (*model.Loan, error)

	List(ctx context.Context) ([]model.Loan, error)
	ListActive(ctx context.Context) ([]model.Loan, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Loan, error)
	ListActiveByUser(ctx context.Context, userID int64) ([]model.Loan, error)
	ListReturnedByUser(ctx context.Context, userID int64) ([]model.Loan, error)
	ListOverdue(ctx context.Context, now time.Time) ([]model.Loan, error)
	ListOverdueByUser(ctx context.Context, userID int64, now time.Time) ([]model.Loan, error)
	ListDueBetween(ctx context.Context, from, to time.Time) ([]model.Loan, error)
	ListDueBetweenForUser(ctx context.Context, userID int64, from, to time.Time) ([]model.Loan, error)
	HistoryByItem(ctx context.Context, itemID int64) ([]model.Loan, error)

	CountActiveByUser(ctx context.Context, userID int64) (int64, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	CountOverdue(ctx context.Context, now time.Time) (int64, error)
	HasOverdue(ctx context.Context, userID int64, now time.Time) (bool, error)
	ItemHasActiveLoan(ctx context.Context, itemID int64) (bool, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

// Every loan read joins the patron and the item so responses carry
// username, barcode and title without extra round trips.
const selectLoan = `
SELECT l.id, l.user_id, l.book_item_id, l.created_at, l.limit_at, l.returned_at,
       u.username, bi.barcode, bd.title
FROM loans l
JOIN users u             ON u.id = l.user_id
JOIN book_items bi       ON bi.id = l.book_item_id
JOIN book_definitions bd ON bd.id = bi.book_definition_id`

func scanLoan(row *sql.Row) (*model.Loan, error) {
	var l model.Loan
	err := row.Scan(&l.ID, &l.UserID, &l.BookItemID, &l.CreatedAt, &l.LimitAt, &l.ReturnedAt,
		&l.Username, &l.Barcode, &l.BookTitle)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanLoans(rows *sql.Rows) ([]model.Loan, error) {
	defer rows.Close()
	var out []model.Loan
	for rows.Next() {
		var l model.Loan
		if err := rows.Scan(&l.ID, &l.UserID, &l.BookItemID, &l.CreatedAt, &l.LimitAt, &l.ReturnedAt,
			&l.Username, &l.Barcode, &l.BookTitle); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Writes

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, l *model.Loan) error {
	const q = `
INSERT INTO loans (user_id, book_item_id, created_at, limit_at)
VALUES ($1,$2,$3,$4)
RETURNING id`
	return tx.QueryRowContext(ctx, q, l.UserID, l.BookItemID, l.CreatedAt, l.LimitAt).Scan(&l.ID)
}

func (r *repo) MarkReturned(ctx context.Context, tx *sql.Tx, loanID int64, at time.Time) error {
	const q = `
UPDATE loans
SET returned_at = $2
WHERE id = $1 AND returned_at IS NULL`
	res, err := tx.ExecContext(ctx, q, loanID, at)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) SetItemStatus(ctx context.Context, tx *sql.Tx, itemID int64, status model.BookStatus) error {
	const q = `UPDATE book_items SET status = $2 WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, itemID, status)
	return err
}

func (r *repo) UpdateLimit(ctx context.Context, loanID int64, limitAt time.Time) error {
	const q = `UPDATE loans SET limit_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, loanID, limitAt)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Single-row reads

func (r *repo) ByID(ctx context.Context, id int64) (*model.Loan, error) {
	return scanLoan(r.db.QueryRowContext(ctx, selectLoan+` WHERE l.id = $1`, id))
}

func (r *repo) ActiveByItemID(ctx context.Context, itemID int64) (*model.Loan, error) {
	return scanLoan(r.db.QueryRowContext(ctx,
		selectLoan+` WHERE l.book_item_id = $1 AND l.returned_at IS NULL`, itemID))
}

// Listings

func (r *repo) List(ctx context.Context) ([]model.Loan, error) {
	rows, err := r.db.QueryContext(ctx, selectLoan+` ORDER BY l.created_at DESC, l.id DESC`)
	if err != nil {
		return nil, err
	}
	return scanLoans(rows)
}

func (r *repo) ListActive(ctx context.Context) ([]model.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		selectLoan+` WHERE l.returned_at IS NULL ORDER BY l.created_at DESC, l.id DESC`)
	if err != nil {
		return nil, err
	}
	return scanLoans(rows)
}

func (r *repo) ListByUser(ctx context.Context, userID int64) ([]model.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		selectLoan+` WHERE l.user_id = $1 ORDER BY l.created_at DESC, l.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return scanLoans(rows)
}

func (r *repo) ListActiveByUser(ctx context.Context, userID int64) ([]model.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		selectLoan+` WHERE l.user_id = $1 AND l.returned_at IS NULL ORDER BY l.created_at DESC, l.id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	return scanLoans(rows)
}

func (r *repo) ListReturnedByUser(ctx context.Context, userID int64) ([]model.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		selectLoan+` WHERE l.user_id = $1 AND l.returned_at IS NOT NULL ORDER BY l.created_at DESC, l.id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	return scanLoans(rows)
}

func (r *repo) ListOverdue(ctx context.Context, now time.Time) ([]model.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		selectLoan+` WHERE l.returned_at IS NULL AND l.limit_at < $1 ORDER BY l.limit_at`, now)
	if err != nil {
		return nil, err
	}
	return scanLoans(rows)
}

func (r *repo) ListOverdueByUser(ctx context.Context, userID int64, now time.Time) ([]model.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		selectLoan+` WHERE l.user_id = $1 AND l.returned_at IS NULL AND l.limit_at < $2 ORDER BY l.limit_at`,
		userID, now)
	if err != nil {
		return nil, err
	}
	return scanLoans(rows)
}

func (r *repo) ListDueBetween(ctx context.Context, from, to time.Time) ([]model.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		selectLoan+` WHERE l.returned_at IS NULL AND l.limit_at BETWEEN $1 AND $2 ORDER BY l.limit_at`,
		from, to)
	if err != nil {
		return nil, err
	}
	return scanLoans(rows)
}

func (r *repo) ListDueBetweenForUser(ctx context.Context, userID int64, from, to time.Time) ([]model.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		selectLoan+` WHERE l.user_id = $1 AND l.returned_at IS NULL AND l.limit_at BETWEEN $2 AND $3 ORDER BY l.limit_at`,
		userID, from, to)
	if err != nil {
		return nil, err
	}
	return scanLoans(rows)
}

func (r *repo) HistoryByItem(ctx context.Context, itemID int64) ([]model.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		selectLoan+` WHERE l.book_item_id = $1 ORDER BY l.created_at DESC, l.id DESC`, itemID)
	if err != nil {
		return nil, err
	}
	return scanLoans(rows)
}

// Counts & existence

func (r *repo) CountActiveByUser(ctx context.Context, userID int64) (int64, error) {
	const q = `SELECT COUNT(*) FROM loans WHERE user_id = $1 AND returned_at IS NULL`
	var n int64
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&n)
	return n, err
}

func (r *repo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	const q = `SELECT COUNT(*) FROM loans WHERE user_id = $1`
	var n int64
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&n)
	return n, err
}

func (r *repo) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	const q = `SELECT COUNT(*) FROM loans WHERE returned_at IS NULL AND limit_at < $1`
	var n int64
	err := r.db.QueryRowContext(ctx, q, now).Scan(&n)
	return n, err
}

func (r *repo) HasOverdue(ctx context.Context, userID int64, now time.Time) (bool, error) {
	const q = `
SELECT EXISTS (
    SELECT 1 FROM loans
    WHERE user_id = $1 AND returned_at IS NULL AND limit_at < $2
)`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, userID, now).Scan(&ok)
	return ok, err
}

func (r *repo) ItemHasActiveLoan(ctx context.Context, itemID int64) (bool, error) {
	const q = `
SELECT EXISTS (
    SELECT 1 FROM loans
    WHERE book_item_id = $1 AND returned_at IS NULL
)`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, itemID).Scan(&ok)
	return ok, err
}
