package usersvc

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/DevAldrete/shelfs/model"
	"github.com/DevAldrete/shelfs/util/hash"
)

type ErrCode string

const (
	ErrNotFound       ErrCode = "USER_NOT_FOUND"
	ErrUsernameTaken  ErrCode = "USERNAME_TAKEN"
	ErrEmailTaken     ErrCode = "EMAIL_TAKEN"
	ErrHasActiveLoans ErrCode = "USER_HAS_ACTIVE_LOANS"
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

type Repo interface {
	List(ctx context.Context) ([]model.User, error)
	ByID(ctx context.Context, id int64) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id int64) error
}

// LoanCounter reports a patron's open loans; deletion is blocked while
// any exist so loan rows never dangle.
type LoanCounter interface {
	CountActiveByUser(ctx context.Context, userID int64) (int64, error)
}

type Service interface {
	List(ctx context.Context) ([]model.User, error)
	ByID(ctx context.Context, id int64) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, id int64, req model.UpdateUserReq) (*model.User, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	ur    Repo
	loans LoanCounter
}

func New(ur Repo, loans LoanCounter) Service { return &service{ur: ur, loans: loans} }

func (s *service) List(ctx context.Context) ([]model.User, error) {
	return s.ur.List(ctx)
}

func (s *service) ByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.ur.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return u, nil
}

func (s *service) ByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.ur.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return u, nil
}

func (s *service) Update(ctx context.Context, id int64, req model.UpdateUserReq) (*model.User, error) {
	u, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u.Username = req.Username
	u.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Password != "" {
		hashed, err := hash.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hashed
	}

	if err := s.ur.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, makeErr(ErrNotFound)
		case isUniqueViolation(err, "email"):
			return nil, makeErr(ErrEmailTaken)
		case isUniqueViolation(err, "username"):
			return nil, makeErr(ErrUsernameTaken)
		}
		return nil, err
	}
	return u, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if _, err := s.ByID(ctx, id); err != nil {
		return err
	}

	active, err := s.loans.CountActiveByUser(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return makeErr(ErrHasActiveLoans)
	}

	if err := s.ur.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrNotFound)
		}
		return err
	}
	return nil
}

func isUniqueViolation(err error, field string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return strings.Contains(strings.ToLower(pgErr.ConstraintName), field) ||
		strings.Contains(strings.ToLower(pgErr.Message), field)
}
