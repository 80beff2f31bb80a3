package loansvc

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/DevAldrete/shelfs/model"
)

// errors used by controllers

type ErrCode string

const (
	ErrUserNotFound    ErrCode = "USER_NOT_FOUND"
	ErrItemNotFound    ErrCode = "ITEM_NOT_FOUND"
	ErrLoanNotFound    ErrCode = "LOAN_NOT_FOUND"
	ErrLoanLimit       ErrCode = "LOAN_LIMIT_REACHED"
	ErrOverdueLockout  ErrCode = "OVERDUE_LOCKOUT"
	ErrNotAvailable    ErrCode = "ITEM_NOT_AVAILABLE"
	ErrAlreadyBorrowed ErrCode = "ITEM_ALREADY_BORROWED"
	ErrAlreadyReturned ErrCode = "LOAN_ALREADY_RETURNED"
	ErrNoActiveLoan    ErrCode = "NO_ACTIVE_LOAN_FOR_ITEM"
	ErrNotActive       ErrCode = "LOAN_NOT_ACTIVE"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

const (
	// DefaultLoanDays is applied when a borrow request carries no due date
	// and when an extension does not say how many days to add.
	DefaultLoanDays = 14

	// MaxActiveLoans is the per-patron cap on concurrently open loans.
	MaxActiveLoans = 5

	// DefaultDueSoonDays is the forward-looking window for due-soon queries.
	DefaultDueSoonDays = 3
)

type LoanRepo interface {
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

type ItemRepo interface {
	ItemByID(ctx context.Context, id int64) (*model.BookItem, error)
	ItemByBarcode(ctx context.Context, barcode string) (*model.BookItem, error)
}

type UserRepo interface {
	ByID(ctx context.Context, id int64) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
}

type Service interface {
	// Create validates borrowing eligibility and item availability, then
	// writes the loan and the BORROWED status in one transaction.
	Create(ctx context.Context, userID, bookItemID int64, limitAt *time.Time) (*model.Loan, error)

	// Return closes an active loan and frees the item, atomically.
	Return(ctx context.Context, loanID int64) (*model.Loan, error)

	// ReturnByBarcode resolves the item's active loan and returns it.
	ReturnByBarcode(ctx context.Context, barcode string) (*model.Loan, error)

	// Extend pushes an active loan's due date forward by days (calendar
	// days; zero means the default duration).
	Extend(ctx context.Context, loanID int64, days int) (*model.Loan, error)

	ByID(ctx context.Context, id int64) (*model.Loan, error)
	All(ctx context.Context) ([]model.Loan, error)
	AllActive(ctx context.Context) ([]model.Loan, error)
	ByUser(ctx context.Context, userID int64) ([]model.Loan, error)
	ActiveByUser(ctx context.Context, userID int64) ([]model.Loan, error)
	HistoryByUser(ctx context.Context, userID int64) ([]model.Loan, error)
	ByUserEmail(ctx context.Context, email string) ([]model.Loan, error)
	ActiveByUserEmail(ctx context.Context, email string) ([]model.Loan, error)
	Overdue(ctx context.Context) ([]model.Loan, error)
	OverdueByUser(ctx context.Context, userID int64) ([]model.Loan, error)
	UserHasOverdue(ctx context.Context, userID int64) (bool, error)
	CountOverdue(ctx context.Context) (int64, error)
	DueSoon(ctx context.Context, days int) ([]model.Loan, error)
	DueSoonByUser(ctx context.Context, userID int64, days int) ([]model.Loan, error)
	HistoryByItem(ctx context.Context, bookItemID int64) ([]model.Loan, error)
	CountActiveByUser(ctx context.Context, userID int64) (int64, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	ItemBorrowed(ctx context.Context, bookItemID int64) (bool, error)
}

// ----- Service implementation -----

type service struct {
	db    *sql.DB
	loans LoanRepo
	items ItemRepo
	users UserRepo
}

func New(db *sql.DB, loans LoanRepo, items ItemRepo, users UserRepo) Service {
	return &service{db: db, loans: loans, items: items, users: users}
}

// Create checks, in order: user exists, item exists, active-loan cap,
// overdue lockout, item status, no active loan row. The status check and
// the ledger check guard the same invariant from two sides; a manual
// status override can make them disagree, so both run.
func (s *service) Create(ctx context.Context, userID, bookItemID int64, limitAt *time.Time) (l *model.Loan, err error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrUserNotFound)
		}
		return nil, err
	}

	item, err := s.items.ItemByID(ctx, bookItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrItemNotFound)
		}
		return nil, err
	}

	now := time.Now()

	active, err := s.loans.CountActiveByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if active >= MaxActiveLoans {
		return nil, makeErr(ErrLoanLimit)
	}

	overdue, err := s.loans.HasOverdue(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}
	if overdue {
		return nil, makeErr(ErrOverdueLockout)
	}

	if item.Status != model.ItemAvailable {
		return nil, makeErr(ErrNotAvailable)
	}

	borrowed, err := s.loans.ItemHasActiveLoan(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if borrowed {
		return nil, makeErr(ErrAlreadyBorrowed)
	}

	due := now.AddDate(0, 0, DefaultLoanDays)
	if limitAt != nil {
		due = *limitAt
	}

	l = &model.Loan{
		UserID:     user.ID,
		BookItemID: item.ID,
		CreatedAt:  now,
		LimitAt:    due,
		Username:   user.Username,
		Barcode:    item.Barcode,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.loans.Insert(ctx, tx, l); err != nil {
		if isUniqueViolation(err) {
			// Partial unique index on active loans: a concurrent create
			// won the race between our checks and this insert.
			err = makeErr(ErrAlreadyBorrowed)
		}
		return nil, err
	}
	if err = s.loans.SetItemStatus(ctx, tx, item.ID, model.ItemBorrowed); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	l.Finalize(now)
	return l, nil
}

func (s *service) Return(ctx context.Context, loanID int64) (l *model.Loan, err error) {
	l, err = s.loans.ByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrLoanNotFound)
		}
		return nil, err
	}
	if !l.IsActive() {
		return nil, makeErr(ErrAlreadyReturned)
	}

	now := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.loans.MarkReturned(ctx, tx, l.ID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = makeErr(ErrAlreadyReturned)
		}
		return nil, err
	}
	if err = s.loans.SetItemStatus(ctx, tx, l.BookItemID, model.ItemAvailable); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	l.ReturnedAt = &now
	l.Finalize(now)
	return l, nil
}

func (s *service) ReturnByBarcode(ctx context.Context, barcode string) (*model.Loan, error) {
	item, err := s.items.ItemByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrItemNotFound)
		}
		return nil, err
	}

	loan, err := s.loans.ActiveByItemID(ctx, item.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNoActiveLoan)
		}
		return nil, err
	}
	return s.Return(ctx, loan.ID)
}

func (s *service) Extend(ctx context.Context, loanID int64, days int) (*model.Loan, error) {
	if days <= 0 {
		days = DefaultLoanDays
	}

	l, err := s.loans.ByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrLoanNotFound)
		}
		return nil, err
	}
	if !l.IsActive() {
		return nil, makeErr(ErrNotActive)
	}

	newLimit := l.LimitAt.AddDate(0, 0, days)
	if err := s.loans.UpdateLimit(ctx, l.ID, newLimit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrLoanNotFound)
		}
		return nil, err
	}

	l.LimitAt = newLimit
	l.Finalize(time.Now())
	return l, nil
}

// ----- Queries -----

func (s *service) ByID(ctx context.Context, id int64) (*model.Loan, error) {
	l, err := s.loans.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrLoanNotFound)
		}
		return nil, err
	}
	l.Finalize(time.Now())
	return l, nil
}

func (s *service) All(ctx context.Context) ([]model.Loan, error) {
	return finalizeAll(s.loans.List(ctx))
}

func (s *service) AllActive(ctx context.Context) ([]model.Loan, error) {
	return finalizeAll(s.loans.ListActive(ctx))
}

func (s *service) ByUser(ctx context.Context, userID int64) ([]model.Loan, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return finalizeAll(s.loans.ListByUser(ctx, userID))
}

func (s *service) ActiveByUser(ctx context.Context, userID int64) ([]model.Loan, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return finalizeAll(s.loans.ListActiveByUser(ctx, userID))
}

func (s *service) HistoryByUser(ctx context.Context, userID int64) ([]model.Loan, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return finalizeAll(s.loans.ListReturnedByUser(ctx, userID))
}

func (s *service) ByUserEmail(ctx context.Context, email string) ([]model.Loan, error) {
	u, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrUserNotFound)
		}
		return nil, err
	}
	return finalizeAll(s.loans.ListByUser(ctx, u.ID))
}

func (s *service) ActiveByUserEmail(ctx context.Context, email string) ([]model.Loan, error) {
	u, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrUserNotFound)
		}
		return nil, err
	}
	return finalizeAll(s.loans.ListActiveByUser(ctx, u.ID))
}

func (s *service) Overdue(ctx context.Context) ([]model.Loan, error) {
	return finalizeAll(s.loans.ListOverdue(ctx, time.Now()))
}

func (s *service) OverdueByUser(ctx context.Context, userID int64) ([]model.Loan, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return finalizeAll(s.loans.ListOverdueByUser(ctx, userID, time.Now()))
}

func (s *service) UserHasOverdue(ctx context.Context, userID int64) (bool, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return false, err
	}
	return s.loans.HasOverdue(ctx, userID, time.Now())
}

func (s *service) CountOverdue(ctx context.Context) (int64, error) {
	return s.loans.CountOverdue(ctx, time.Now())
}

func (s *service) DueSoon(ctx context.Context, days int) ([]model.Loan, error) {
	if days <= 0 {
		days = DefaultDueSoonDays
	}
	now := time.Now()
	return finalizeAll(s.loans.ListDueBetween(ctx, now, now.AddDate(0, 0, days)))
}

func (s *service) DueSoonByUser(ctx context.Context, userID int64, days int) ([]model.Loan, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DefaultDueSoonDays
	}
	now := time.Now()
	return finalizeAll(s.loans.ListDueBetweenForUser(ctx, userID, now, now.AddDate(0, 0, days)))
}

func (s *service) HistoryByItem(ctx context.Context, bookItemID int64) ([]model.Loan, error) {
	if _, err := s.items.ItemByID(ctx, bookItemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrItemNotFound)
		}
		return nil, err
	}
	return finalizeAll(s.loans.HistoryByItem(ctx, bookItemID))
}

func (s *service) CountActiveByUser(ctx context.Context, userID int64) (int64, error) {
	return s.loans.CountActiveByUser(ctx, userID)
}

func (s *service) CountByUser(ctx context.Context, userID int64) (int64, error) {
	return s.loans.CountByUser(ctx, userID)
}

func (s *service) ItemBorrowed(ctx context.Context, bookItemID int64) (bool, error) {
	return s.loans.ItemHasActiveLoan(ctx, bookItemID)
}

// ----- helpers -----

func (s *service) requireUser(ctx context.Context, userID int64) error {
	if _, err := s.users.ByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrUserNotFound)
		}
		return err
	}
	return nil
}

func finalizeAll(loans []model.Loan, err error) ([]model.Loan, error) {
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for i := range loans {
		loans[i].Finalize(now)
	}
	return loans, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
