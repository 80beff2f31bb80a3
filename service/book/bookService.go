package booksvc

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/DevAldrete/shelfs/model"
)

type ErrCode string

const (
	ErrDefinitionNotFound ErrCode = "DEFINITION_NOT_FOUND"
	ErrDefinitionInUse    ErrCode = "DEFINITION_IN_USE"
	ErrItemNotFound       ErrCode = "ITEM_NOT_FOUND"
	ErrIsbnTaken          ErrCode = "ISBN_TAKEN"
	ErrBarcodeTaken       ErrCode = "BARCODE_TAKEN"
	ErrItemInLoan         ErrCode = "ITEM_IN_ACTIVE_LOAN"
	ErrNotDeleted         ErrCode = "ITEM_NOT_DELETED"
	ErrInvalidStatus      ErrCode = "INVALID_STATUS"
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
	CreateDefinition(ctx context.Context, d *model.BookDefinition) error
	ListDefinitions(ctx context.Context) ([]model.BookDefinition, error)
	DefinitionByID(ctx context.Context, id int64) (*model.BookDefinition, error)
	DefinitionByISBN(ctx context.Context, isbn string) (*model.BookDefinition, error)
	UpdateDefinition(ctx context.Context, d *model.BookDefinition) error
	DeleteDefinition(ctx context.Context, id int64) error

	CreateItem(ctx context.Context, it *model.BookItem) error
	ListItems(ctx context.Context) ([]model.BookItem, error)
	ListItemsByDefinition(ctx context.Context, defID int64) ([]model.BookItem, error)
	ListAvailableItemsByDefinition(ctx context.Context, defID int64) ([]model.BookItem, error)
	ListDeletedItems(ctx context.Context) ([]model.BookItem, error)
	ItemByID(ctx context.Context, id int64) (*model.BookItem, error)
	ItemByBarcode(ctx context.Context, barcode string) (*model.BookItem, error)
	ItemByBarcodeIncludingDeleted(ctx context.Context, barcode string) (*model.BookItem, error)
	CountItemsByDefinition(ctx context.Context, defID int64) (int64, error)
	CountAvailableItemsByDefinition(ctx context.Context, defID int64) (int64, error)
	UpdateItemStatus(ctx context.Context, id int64, status model.BookStatus) error
	SoftDeleteItem(ctx context.Context, id int64, at time.Time) error
	RestoreItem(ctx context.Context, barcode string) error
}

// LoanChecker answers whether an item is tied up in an active loan. The
// same check the loan engine uses guards item deletion here.
type LoanChecker interface {
	ItemHasActiveLoan(ctx context.Context, itemID int64) (bool, error)
}

type Service interface {
	CreateDefinition(ctx context.Context, req model.CreateBookDefinitionReq) (*model.BookDefinition, error)
	Definitions(ctx context.Context) ([]model.BookDefinition, error)
	DefinitionByID(ctx context.Context, id int64) (*model.BookDefinition, error)
	DefinitionByISBN(ctx context.Context, isbn string) (*model.BookDefinition, error)
	UpdateDefinition(ctx context.Context, id int64, req model.CreateBookDefinitionReq) (*model.BookDefinition, error)
	DeleteDefinition(ctx context.Context, id int64) error

	CreateItem(ctx context.Context, req model.CreateBookItemReq) (*model.BookItem, error)
	Items(ctx context.Context) ([]model.BookItem, error)
	ItemsByDefinition(ctx context.Context, defID int64) ([]model.BookItem, error)
	AvailableItemsByDefinition(ctx context.Context, defID int64) ([]model.BookItem, error)
	DeletedItems(ctx context.Context) ([]model.BookItem, error)
	ItemByID(ctx context.Context, id int64) (*model.BookItem, error)
	ItemByBarcode(ctx context.Context, barcode string) (*model.BookItem, error)
	CountItemsByDefinition(ctx context.Context, defID int64) (int64, error)
	CountAvailableItemsByDefinition(ctx context.Context, defID int64) (int64, error)

	// UpdateItemStatus is the administrative override; it validates only
	// the enum value, not loan consistency.
	UpdateItemStatus(ctx context.Context, barcode string, status model.BookStatus) (*model.BookItem, error)
	SoftDeleteItemByBarcode(ctx context.Context, barcode string) error
	SoftDeleteItemByID(ctx context.Context, id int64) error
	RestoreItem(ctx context.Context, barcode string) (*model.BookItem, error)
}

type service struct {
	r     Repo
	loans LoanChecker
}

func New(r Repo, loans LoanChecker) Service { return &service{r: r, loans: loans} }

// ----- Definitions -----

func (s *service) CreateDefinition(ctx context.Context, req model.CreateBookDefinitionReq) (*model.BookDefinition, error) {
	d := &model.BookDefinition{
		ISBN:      req.ISBN,
		Title:     req.Title,
		Author:    req.Author,
		Publisher: req.Publisher,
	}
	if err := s.r.CreateDefinition(ctx, d); err != nil {
		if isUniqueViolation(err) {
			return nil, makeErr(ErrIsbnTaken)
		}
		return nil, err
	}
	return d, nil
}

func (s *service) Definitions(ctx context.Context) ([]model.BookDefinition, error) {
	return s.r.ListDefinitions(ctx)
}

func (s *service) DefinitionByID(ctx context.Context, id int64) (*model.BookDefinition, error) {
	d, err := s.r.DefinitionByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrDefinitionNotFound)
		}
		return nil, err
	}
	return d, nil
}

func (s *service) DefinitionByISBN(ctx context.Context, isbn string) (*model.BookDefinition, error) {
	d, err := s.r.DefinitionByISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrDefinitionNotFound)
		}
		return nil, err
	}
	return d, nil
}

func (s *service) UpdateDefinition(ctx context.Context, id int64, req model.CreateBookDefinitionReq) (*model.BookDefinition, error) {
	d := &model.BookDefinition{
		ID:        id,
		ISBN:      req.ISBN,
		Title:     req.Title,
		Author:    req.Author,
		Publisher: req.Publisher,
	}
	if err := s.r.UpdateDefinition(ctx, d); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, makeErr(ErrDefinitionNotFound)
		case isUniqueViolation(err):
			return nil, makeErr(ErrIsbnTaken)
		}
		return nil, err
	}
	return d, nil
}

func (s *service) DeleteDefinition(ctx context.Context, id int64) error {
	if err := s.r.DeleteDefinition(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return makeErr(ErrDefinitionNotFound)
		case isForeignKeyViolation(err):
			return makeErr(ErrDefinitionInUse)
		}
		return err
	}
	return nil
}

// ----- Items -----

func (s *service) CreateItem(ctx context.Context, req model.CreateBookItemReq) (*model.BookItem, error) {
	if _, err := s.r.DefinitionByID(ctx, req.BookDefinitionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrDefinitionNotFound)
		}
		return nil, err
	}

	it := &model.BookItem{
		Barcode:          req.Barcode,
		BookDefinitionID: req.BookDefinitionID,
		Status:           model.ItemAvailable,
	}
	if err := s.r.CreateItem(ctx, it); err != nil {
		if isUniqueViolation(err) {
			return nil, makeErr(ErrBarcodeTaken)
		}
		return nil, err
	}
	return it, nil
}

func (s *service) Items(ctx context.Context) ([]model.BookItem, error) {
	return s.r.ListItems(ctx)
}

func (s *service) ItemsByDefinition(ctx context.Context, defID int64) ([]model.BookItem, error) {
	if err := s.requireDefinition(ctx, defID); err != nil {
		return nil, err
	}
	return s.r.ListItemsByDefinition(ctx, defID)
}

func (s *service) AvailableItemsByDefinition(ctx context.Context, defID int64) ([]model.BookItem, error) {
	if err := s.requireDefinition(ctx, defID); err != nil {
		return nil, err
	}
	return s.r.ListAvailableItemsByDefinition(ctx, defID)
}

func (s *service) DeletedItems(ctx context.Context) ([]model.BookItem, error) {
	return s.r.ListDeletedItems(ctx)
}

func (s *service) ItemByID(ctx context.Context, id int64) (*model.BookItem, error) {
	it, err := s.r.ItemByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrItemNotFound)
		}
		return nil, err
	}
	return it, nil
}

func (s *service) ItemByBarcode(ctx context.Context, barcode string) (*model.BookItem, error) {
	it, err := s.r.ItemByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrItemNotFound)
		}
		return nil, err
	}
	return it, nil
}

func (s *service) CountItemsByDefinition(ctx context.Context, defID int64) (int64, error) {
	if err := s.requireDefinition(ctx, defID); err != nil {
		return 0, err
	}
	return s.r.CountItemsByDefinition(ctx, defID)
}

func (s *service) CountAvailableItemsByDefinition(ctx context.Context, defID int64) (int64, error) {
	if err := s.requireDefinition(ctx, defID); err != nil {
		return 0, err
	}
	return s.r.CountAvailableItemsByDefinition(ctx, defID)
}

func (s *service) UpdateItemStatus(ctx context.Context, barcode string, status model.BookStatus) (*model.BookItem, error) {
	if !model.ValidStatus(status) {
		return nil, makeErr(ErrInvalidStatus)
	}
	it, err := s.ItemByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if err := s.r.UpdateItemStatus(ctx, it.ID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrItemNotFound)
		}
		return nil, err
	}
	it.Status = status
	return it, nil
}

func (s *service) SoftDeleteItemByBarcode(ctx context.Context, barcode string) error {
	it, err := s.ItemByBarcode(ctx, barcode)
	if err != nil {
		return err
	}
	return s.softDelete(ctx, it.ID)
}

func (s *service) SoftDeleteItemByID(ctx context.Context, id int64) error {
	it, err := s.ItemByID(ctx, id)
	if err != nil {
		return err
	}
	return s.softDelete(ctx, it.ID)
}

func (s *service) softDelete(ctx context.Context, itemID int64) error {
	inLoan, err := s.loans.ItemHasActiveLoan(ctx, itemID)
	if err != nil {
		return err
	}
	if inLoan {
		return makeErr(ErrItemInLoan)
	}
	if err := s.r.SoftDeleteItem(ctx, itemID, time.Now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrItemNotFound)
		}
		return err
	}
	return nil
}

func (s *service) RestoreItem(ctx context.Context, barcode string) (*model.BookItem, error) {
	it, err := s.r.ItemByBarcodeIncludingDeleted(ctx, barcode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrItemNotFound)
		}
		return nil, err
	}
	if !it.Deleted {
		return nil, makeErr(ErrNotDeleted)
	}
	if err := s.r.RestoreItem(ctx, barcode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotDeleted)
		}
		return nil, err
	}
	it.Deleted = false
	it.DeletedAt = nil
	return it, nil
}

// ----- helpers -----

func (s *service) requireDefinition(ctx context.Context, defID int64) error {
	if _, err := s.r.DefinitionByID(ctx, defID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrDefinitionNotFound)
		}
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
