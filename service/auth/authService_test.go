package authsvc_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/DevAldrete/shelfs/model"
	authsvc "github.com/DevAldrete/shelfs/service/auth"
	"github.com/DevAldrete/shelfs/util/hash"
)

type repoMock struct {
	createFn  func(ctx context.Context, u *model.User) error
	byEmailFn func(ctx context.Context, email string) (*model.User, error)
}

func (m *repoMock) Create(ctx context.Context, u *model.User) error {
	if m.createFn == nil {
		u.ID = 1
		return nil
	}
	return m.createFn(ctx, u)
}

func (m *repoMock) ByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.byEmailFn == nil {
		return nil, sql.ErrNoRows
	}
	return m.byEmailFn(ctx, email)
}

func TestRegister_Success(t *testing.T) {
	var stored *model.User
	r := &repoMock{
		createFn: func(ctx context.Context, u *model.User) error {
			u.ID = 7
			stored = u
			return nil
		},
	}
	svc := authsvc.New(r, "secret")

	u, token, err := svc.Register(context.Background(), model.RegisterReq{
		Username: "alice",
		Email:    "  Alice@Example.COM ",
		Password: "hunter22",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, int64(7), u.ID)

	require.NotNil(t, stored)
	require.Equal(t, "alice@example.com", stored.Email)
	require.NotEqual(t, "hunter22", stored.PasswordHash)
	require.True(t, hash.Check(stored.PasswordHash, "hunter22"))
}

func TestRegister_EmailTaken(t *testing.T) {
	r := &repoMock{
		createFn: func(context.Context, *model.User) error {
			return &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "users_email_key",
			}
		},
	}
	svc := authsvc.New(r, "secret")

	_, _, err := svc.Register(context.Background(), model.RegisterReq{
		Username: "alice", Email: "alice@example.com", Password: "hunter22",
	})
	require.ErrorIs(t, err, authsvc.ErrEmailTaken)
}

func TestRegister_UsernameTaken(t *testing.T) {
	r := &repoMock{
		createFn: func(context.Context, *model.User) error {
			return &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "users_username_key",
			}
		},
	}
	svc := authsvc.New(r, "secret")

	_, _, err := svc.Register(context.Background(), model.RegisterReq{
		Username: "alice", Email: "alice@example.com", Password: "hunter22",
	})
	require.ErrorIs(t, err, authsvc.ErrUsernameTaken)
}

func TestLogin_Success(t *testing.T) {
	hashed, err := hash.HashPassword("hunter22")
	require.NoError(t, err)

	r := &repoMock{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			require.Equal(t, "alice@example.com", email)
			return &model.User{ID: 7, Username: "alice", Email: email, PasswordHash: hashed}, nil
		},
	}
	svc := authsvc.New(r, "secret")

	u, token, err := svc.Login(context.Background(), model.LoginReq{
		Email: "alice@example.com", Password: "hunter22",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, int64(7), u.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	hashed, err := hash.HashPassword("hunter22")
	require.NoError(t, err)

	r := &repoMock{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: 7, PasswordHash: hashed}, nil
		},
	}
	svc := authsvc.New(r, "secret")

	_, _, err = svc.Login(context.Background(), model.LoginReq{
		Email: "alice@example.com", Password: "wrong",
	})
	require.ErrorIs(t, err, authsvc.ErrInvalidCreds)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := authsvc.New(&repoMock{}, "secret")

	_, _, err := svc.Login(context.Background(), model.LoginReq{
		Email: "nobody@example.com", Password: "whatever",
	})
	require.ErrorIs(t, err, authsvc.ErrInvalidCreds)
}
