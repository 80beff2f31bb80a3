package booksvc_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/DevAldrete/shelfs/model"
	booksvc "github.com/DevAldrete/shelfs/service/book"
)

type repoMock struct {
	createDefFn   func(ctx context.Context, d *model.BookDefinition) error
	defByIDFn     func(ctx context.Context, id int64) (*model.BookDefinition, error)
	deleteDefFn   func(ctx context.Context, id int64) error
	createItemFn  func(ctx context.Context, it *model.BookItem) error
	itemByBcFn    func(ctx context.Context, barcode string) (*model.BookItem, error)
	itemByBcAllFn func(ctx context.Context, barcode string) (*model.BookItem, error)
	updateStatFn  func(ctx context.Context, id int64, status model.BookStatus) error
	softDeleteFn  func(ctx context.Context, id int64, at time.Time) error
	restoreFn     func(ctx context.Context, barcode string) error
}

var _ booksvc.Repo = (*repoMock)(nil)

func (m *repoMock) CreateDefinition(ctx context.Context, d *model.BookDefinition) error {
	if m.createDefFn == nil {
		d.ID = 1
		return nil
	}
	return m.createDefFn(ctx, d)
}

func (m *repoMock) ListDefinitions(context.Context) ([]model.BookDefinition, error) {
	return nil, nil
}

func (m *repoMock) DefinitionByID(ctx context.Context, id int64) (*model.BookDefinition, error) {
	if m.defByIDFn == nil {
		return nil, sql.ErrNoRows
	}
	return m.defByIDFn(ctx, id)
}

func (m *repoMock) DefinitionByISBN(context.Context, string) (*model.BookDefinition, error) {
	return nil, sql.ErrNoRows
}

func (m *repoMock) UpdateDefinition(context.Context, *model.BookDefinition) error { return nil }

func (m *repoMock) DeleteDefinition(ctx context.Context, id int64) error {
	if m.deleteDefFn == nil {
		return nil
	}
	return m.deleteDefFn(ctx, id)
}

func (m *repoMock) CreateItem(ctx context.Context, it *model.BookItem) error {
	if m.createItemFn == nil {
		it.ID = 1
		return nil
	}
	return m.createItemFn(ctx, it)
}

func (m *repoMock) ListItems(context.Context) ([]model.BookItem, error) { return nil, nil }
func (m *repoMock) ListItemsByDefinition(context.Context, int64) ([]model.BookItem, error) {
	return nil, nil
}
func (m *repoMock) ListAvailableItemsByDefinition(context.Context, int64) ([]model.BookItem, error) {
	return nil, nil
}
func (m *repoMock) ListDeletedItems(context.Context) ([]model.BookItem, error) { return nil, nil }

func (m *repoMock) ItemByID(context.Context, int64) (*model.BookItem, error) {
	return nil, sql.ErrNoRows
}

func (m *repoMock) ItemByBarcode(ctx context.Context, barcode string) (*model.BookItem, error) {
	if m.itemByBcFn == nil {
		return nil, sql.ErrNoRows
	}
	return m.itemByBcFn(ctx, barcode)
}

func (m *repoMock) ItemByBarcodeIncludingDeleted(ctx context.Context, barcode string) (*model.BookItem, error) {
	if m.itemByBcAllFn == nil {
		return nil, sql.ErrNoRows
	}
	return m.itemByBcAllFn(ctx, barcode)
}

func (m *repoMock) CountItemsByDefinition(context.Context, int64) (int64, error) { return 0, nil }
func (m *repoMock) CountAvailableItemsByDefinition(context.Context, int64) (int64, error) {
	return 0, nil
}

func (m *repoMock) UpdateItemStatus(ctx context.Context, id int64, status model.BookStatus) error {
	if m.updateStatFn == nil {
		return nil
	}
	return m.updateStatFn(ctx, id, status)
}

func (m *repoMock) SoftDeleteItem(ctx context.Context, id int64, at time.Time) error {
	if m.softDeleteFn == nil {
		return nil
	}
	return m.softDeleteFn(ctx, id, at)
}

func (m *repoMock) RestoreItem(ctx context.Context, barcode string) error {
	if m.restoreFn == nil {
		return nil
	}
	return m.restoreFn(ctx, barcode)
}

type loanCheckMock struct {
	fn func(ctx context.Context, itemID int64) (bool, error)
}

func (m *loanCheckMock) ItemHasActiveLoan(ctx context.Context, itemID int64) (bool, error) {
	if m.fn == nil {
		return false, nil
	}
	return m.fn(ctx, itemID)
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraint}
}

func TestCreateDefinition_IsbnTaken(t *testing.T) {
	r := &repoMock{
		createDefFn: func(context.Context, *model.BookDefinition) error {
			return uniqueViolation("book_definitions_isbn_key")
		},
	}
	svc := booksvc.New(r, &loanCheckMock{})

	_, err := svc.CreateDefinition(context.Background(), model.CreateBookDefinitionReq{
		ISBN: "9780000000001", Title: "T", Author: "A",
	})
	if booksvc.Code(err) != booksvc.ErrIsbnTaken {
		t.Fatalf("want ErrIsbnTaken, got %v", err)
	}
}

func TestDeleteDefinition_StillHasItems(t *testing.T) {
	r := &repoMock{
		deleteDefFn: func(context.Context, int64) error {
			return &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}
		},
	}
	svc := booksvc.New(r, &loanCheckMock{})

	err := svc.DeleteDefinition(context.Background(), 1)
	if booksvc.Code(err) != booksvc.ErrDefinitionInUse {
		t.Fatalf("want ErrDefinitionInUse, got %v", err)
	}
}

func TestCreateItem_DefinitionMissing(t *testing.T) {
	svc := booksvc.New(&repoMock{}, &loanCheckMock{})

	_, err := svc.CreateItem(context.Background(), model.CreateBookItemReq{
		Barcode: "B1", BookDefinitionID: 42,
	})
	if booksvc.Code(err) != booksvc.ErrDefinitionNotFound {
		t.Fatalf("want ErrDefinitionNotFound, got %v", err)
	}
}

func TestCreateItem_StartsAvailable(t *testing.T) {
	var created *model.BookItem
	r := &repoMock{
		defByIDFn: func(ctx context.Context, id int64) (*model.BookDefinition, error) {
			return &model.BookDefinition{ID: id}, nil
		},
		createItemFn: func(ctx context.Context, it *model.BookItem) error {
			it.ID = 9
			created = it
			return nil
		},
	}
	svc := booksvc.New(r, &loanCheckMock{})

	it, err := svc.CreateItem(context.Background(), model.CreateBookItemReq{
		Barcode: "B1", BookDefinitionID: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Status != model.ItemAvailable {
		t.Fatalf("new item status = %s, want AVAILABLE", it.Status)
	}
	if created == nil || created.Barcode != "B1" {
		t.Fatalf("item not persisted as expected: %+v", created)
	}
}

func TestCreateItem_BarcodeTaken(t *testing.T) {
	r := &repoMock{
		defByIDFn: func(ctx context.Context, id int64) (*model.BookDefinition, error) {
			return &model.BookDefinition{ID: id}, nil
		},
		createItemFn: func(context.Context, *model.BookItem) error {
			return uniqueViolation("book_items_barcode_key")
		},
	}
	svc := booksvc.New(r, &loanCheckMock{})

	_, err := svc.CreateItem(context.Background(), model.CreateBookItemReq{
		Barcode: "B1", BookDefinitionID: 1,
	})
	if booksvc.Code(err) != booksvc.ErrBarcodeTaken {
		t.Fatalf("want ErrBarcodeTaken, got %v", err)
	}
}

func TestUpdateItemStatus_RejectsUnknownValue(t *testing.T) {
	svc := booksvc.New(&repoMock{}, &loanCheckMock{})

	_, err := svc.UpdateItemStatus(context.Background(), "B1", model.BookStatus("MISPLACED"))
	if booksvc.Code(err) != booksvc.ErrInvalidStatus {
		t.Fatalf("want ErrInvalidStatus, got %v", err)
	}
}

func TestUpdateItemStatus_Override(t *testing.T) {
	// The admin override does not consult the loan ledger.
	loanCheckCalled := false
	r := &repoMock{
		itemByBcFn: func(ctx context.Context, barcode string) (*model.BookItem, error) {
			return &model.BookItem{ID: 3, Barcode: barcode, Status: model.ItemBorrowed}, nil
		},
	}
	lc := &loanCheckMock{fn: func(context.Context, int64) (bool, error) {
		loanCheckCalled = true
		return true, nil
	}}
	svc := booksvc.New(r, lc)

	it, err := svc.UpdateItemStatus(context.Background(), "B1", model.ItemLost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Status != model.ItemLost {
		t.Fatalf("status = %s, want LOST", it.Status)
	}
	if loanCheckCalled {
		t.Fatal("status override must not consult the loan ledger")
	}
}

func TestSoftDelete_BlockedByActiveLoan(t *testing.T) {
	r := &repoMock{
		itemByBcFn: func(ctx context.Context, barcode string) (*model.BookItem, error) {
			return &model.BookItem{ID: 3, Barcode: barcode, Status: model.ItemBorrowed}, nil
		},
	}
	lc := &loanCheckMock{fn: func(context.Context, int64) (bool, error) { return true, nil }}
	svc := booksvc.New(r, lc)

	err := svc.SoftDeleteItemByBarcode(context.Background(), "B1")
	if booksvc.Code(err) != booksvc.ErrItemInLoan {
		t.Fatalf("want ErrItemInLoan, got %v", err)
	}
}

func TestSoftDelete_Success(t *testing.T) {
	var deletedID int64
	r := &repoMock{
		itemByBcFn: func(ctx context.Context, barcode string) (*model.BookItem, error) {
			return &model.BookItem{ID: 3, Barcode: barcode, Status: model.ItemAvailable}, nil
		},
		softDeleteFn: func(ctx context.Context, id int64, at time.Time) error {
			deletedID = id
			return nil
		},
	}
	svc := booksvc.New(r, &loanCheckMock{})

	if err := svc.SoftDeleteItemByBarcode(context.Background(), "B1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deletedID != 3 {
		t.Fatalf("deleted id = %d, want 3", deletedID)
	}
}

func TestRestoreItem_NotDeleted(t *testing.T) {
	r := &repoMock{
		itemByBcAllFn: func(ctx context.Context, barcode string) (*model.BookItem, error) {
			return &model.BookItem{ID: 3, Barcode: barcode, Deleted: false}, nil
		},
	}
	svc := booksvc.New(r, &loanCheckMock{})

	_, err := svc.RestoreItem(context.Background(), "B1")
	if booksvc.Code(err) != booksvc.ErrNotDeleted {
		t.Fatalf("want ErrNotDeleted, got %v", err)
	}
}

func TestRestoreItem_Success(t *testing.T) {
	deletedAt := time.Now().AddDate(0, 0, -1)
	r := &repoMock{
		itemByBcAllFn: func(ctx context.Context, barcode string) (*model.BookItem, error) {
			return &model.BookItem{
				ID: 3, Barcode: barcode, Status: model.ItemAvailable,
				Deleted: true, DeletedAt: &deletedAt,
			}, nil
		},
	}
	svc := booksvc.New(r, &loanCheckMock{})

	it, err := svc.RestoreItem(context.Background(), "B1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Deleted || it.DeletedAt != nil {
		t.Fatalf("item still marked deleted after restore: %+v", it)
	}
}

func TestRestoreItem_UnknownBarcode(t *testing.T) {
	svc := booksvc.New(&repoMock{}, &loanCheckMock{})

	_, err := svc.RestoreItem(context.Background(), "missing")
	if booksvc.Code(err) != booksvc.ErrItemNotFound {
		t.Fatalf("want ErrItemNotFound, got %v", err)
	}
}
