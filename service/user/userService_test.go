package usersvc_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DevAldrete/shelfs/model"
	usersvc "github.com/DevAldrete/shelfs/service/user"
	"github.com/DevAldrete/shelfs/util/hash"
)

type repoMock struct {
	byIDFn   func(ctx context.Context, id int64) (*model.User, error)
	updateFn func(ctx context.Context, u *model.User) error
	deleteFn func(ctx context.Context, id int64) error
}

var _ usersvc.Repo = (*repoMock)(nil)

func (m *repoMock) List(context.Context) ([]model.User, error) { return nil, nil }

func (m *repoMock) ByID(ctx context.Context, id int64) (*model.User, error) {
	if m.byIDFn == nil {
		return nil, sql.ErrNoRows
	}
	return m.byIDFn(ctx, id)
}

func (m *repoMock) ByEmail(context.Context, string) (*model.User, error) {
	return nil, sql.ErrNoRows
}

func (m *repoMock) Update(ctx context.Context, u *model.User) error {
	if m.updateFn == nil {
		return nil
	}
	return m.updateFn(ctx, u)
}

func (m *repoMock) Delete(ctx context.Context, id int64) error {
	if m.deleteFn == nil {
		return nil
	}
	return m.deleteFn(ctx, id)
}

type counterMock struct {
	active int64
}

func (m *counterMock) CountActiveByUser(context.Context, int64) (int64, error) {
	return m.active, nil
}

func existing(id int64, passwordHash string) *repoMock {
	return &repoMock{
		byIDFn: func(ctx context.Context, got int64) (*model.User, error) {
			if got != id {
				return nil, sql.ErrNoRows
			}
			return &model.User{ID: id, Username: "alice", Email: "alice@example.com", PasswordHash: passwordHash}, nil
		},
	}
}

func TestDelete_BlockedByActiveLoans(t *testing.T) {
	deleteCalled := false
	r := existing(7, "x")
	r.deleteFn = func(context.Context, int64) error {
		deleteCalled = true
		return nil
	}
	svc := usersvc.New(r, &counterMock{active: 2})

	err := svc.Delete(context.Background(), 7)
	require.Error(t, err)
	require.Equal(t, usersvc.ErrHasActiveLoans, usersvc.Code(err))
	require.False(t, deleteCalled)
}

func TestDelete_Success(t *testing.T) {
	var deletedID int64
	r := existing(7, "x")
	r.deleteFn = func(ctx context.Context, id int64) error {
		deletedID = id
		return nil
	}
	svc := usersvc.New(r, &counterMock{})

	require.NoError(t, svc.Delete(context.Background(), 7))
	require.Equal(t, int64(7), deletedID)
}

func TestDelete_NotFound(t *testing.T) {
	svc := usersvc.New(&repoMock{}, &counterMock{})

	err := svc.Delete(context.Background(), 99)
	require.Error(t, err)
	require.Equal(t, usersvc.ErrNotFound, usersvc.Code(err))
}

func TestUpdate_KeepsPasswordWhenEmpty(t *testing.T) {
	var saved *model.User
	r := existing(7, "oldhash")
	r.updateFn = func(ctx context.Context, u *model.User) error {
		saved = u
		return nil
	}
	svc := usersvc.New(r, &counterMock{})

	u, err := svc.Update(context.Background(), 7, model.UpdateUserReq{
		Username: "alice2", Email: "Alice2@Example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "alice2", u.Username)
	require.Equal(t, "alice2@example.com", u.Email)
	require.NotNil(t, saved)
	require.Equal(t, "oldhash", saved.PasswordHash)
}

func TestUpdate_RehashesNewPassword(t *testing.T) {
	var saved *model.User
	r := existing(7, "oldhash")
	r.updateFn = func(ctx context.Context, u *model.User) error {
		saved = u
		return nil
	}
	svc := usersvc.New(r, &counterMock{})

	_, err := svc.Update(context.Background(), 7, model.UpdateUserReq{
		Username: "alice", Email: "alice@example.com", Password: "newpass1",
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	require.NotEqual(t, "oldhash", saved.PasswordHash)
	require.True(t, hash.Check(saved.PasswordHash, "newpass1"))
}

func TestByID_NotFound(t *testing.T) {
	svc := usersvc.New(&repoMock{}, &counterMock{})

	_, err := svc.ByID(context.Background(), 404)
	require.Error(t, err)
	require.Equal(t, usersvc.ErrNotFound, usersvc.Code(err))
}
