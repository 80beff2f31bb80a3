// repository/book/bookRepository.go
package bookrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/DevAldrete/shelfs/model"
)

// Repo is the data access surface for the catalog: book definitions and
// their physical items. Every default item query carries an explicit
// deleted = FALSE predicate; the IncludingDeleted variants bypass it.
type Repo interface {
	// Definitions
	CreateDefinition(ctx context.Context, d *model.BookDefinition) error
	ListDefinitions(ctx context.Context) ([]model.BookDefinition, error)
	DefinitionByID(ctx context.Context, id int64) (*model.BookDefinition, error)
	DefinitionByISBN(ctx context.Context, isbn string) (*model.BookDefinition, error)
	UpdateDefinition(ctx context.Context, d *model.BookDefinition) error
	DeleteDefinition(ctx context.Context, id int64) error

	// Items
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

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

// Definitions

func (r *repo) CreateDefinition(ctx context.Context, d *model.BookDefinition) error {
	const q = `
INSERT INTO book_definitions (isbn, title, author, publisher)
VALUES ($1,$2,$3,$4)
RETURNING id`
	return r.db.QueryRowContext(ctx, q, d.ISBN, d.Title, d.Author, d.Publisher).Scan(&d.ID)
}

func (r *repo) ListDefinitions(ctx context.Context) ([]model.BookDefinition, error) {
	const q = `
SELECT id, isbn, title, COALESCE(author,''), COALESCE(publisher,'')
FROM book_definitions
ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BookDefinition
	for rows.Next() {
		var d model.BookDefinition
		if err := rows.Scan(&d.ID, &d.ISBN, &d.Title, &d.Author, &d.Publisher); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repo) DefinitionByID(ctx context.Context, id int64) (*model.BookDefinition, error) {
	const q = `
SELECT id, isbn, title, COALESCE(author,''), COALESCE(publisher,'')
FROM book_definitions
WHERE id = $1`
	var d model.BookDefinition
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&d.ID, &d.ISBN, &d.Title, &d.Author, &d.Publisher); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repo) DefinitionByISBN(ctx context.Context, isbn string) (*model.BookDefinition, error) {
	const q = `
SELECT id, isbn, title, COALESCE(author,''), COALESCE(publisher,'')
FROM book_definitions
WHERE isbn = $1`
	var d model.BookDefinition
	if err := r.db.QueryRowContext(ctx, q, isbn).Scan(&d.ID, &d.ISBN, &d.Title, &d.Author, &d.Publisher); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repo) UpdateDefinition(ctx context.Context, d *model.BookDefinition) error {
	const q = `
UPDATE book_definitions
SET isbn = $2, title = $3, author = $4, publisher = $5
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, d.ID, d.ISBN, d.Title, d.Author, d.Publisher)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) DeleteDefinition(ctx context.Context, id int64) error {
	// Fails with a foreign key violation while items still reference it.
	const q = `DELETE FROM book_definitions WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Items

const itemColumns = `id, barcode, book_definition_id, status, acquired_at, deleted, deleted_at`

func scanItems(rows *sql.Rows) ([]model.BookItem, error) {
	defer rows.Close()
	var out []model.BookItem
	for rows.Next() {
		var it model.BookItem
		if err := rows.Scan(&it.ID, &it.Barcode, &it.BookDefinitionID, &it.Status,
			&it.AcquiredAt, &it.Deleted, &it.DeletedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *repo) CreateItem(ctx context.Context, it *model.BookItem) error {
	const q = `
INSERT INTO book_items (barcode, book_definition_id, status)
VALUES ($1,$2,$3)
RETURNING id, acquired_at`
	return r.db.QueryRowContext(ctx, q, it.Barcode, it.BookDefinitionID, it.Status).
		Scan(&it.ID, &it.AcquiredAt)
}

func (r *repo) ListItems(ctx context.Context) ([]model.BookItem, error) {
	q := `SELECT ` + itemColumns + ` FROM book_items WHERE deleted = FALSE ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

func (r *repo) ListItemsByDefinition(ctx context.Context, defID int64) ([]model.BookItem, error) {
	q := `SELECT ` + itemColumns + ` FROM book_items
WHERE book_definition_id = $1 AND deleted = FALSE
ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, defID)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

func (r *repo) ListAvailableItemsByDefinition(ctx context.Context, defID int64) ([]model.BookItem, error) {
	q := `SELECT ` + itemColumns + ` FROM book_items
WHERE book_definition_id = $1 AND status = 'AVAILABLE' AND deleted = FALSE
ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, defID)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

func (r *repo) ListDeletedItems(ctx context.Context) ([]model.BookItem, error) {
	q := `SELECT ` + itemColumns + ` FROM book_items WHERE deleted = TRUE ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

func (r *repo) ItemByID(ctx context.Context, id int64) (*model.BookItem, error) {
	q := `SELECT ` + itemColumns + ` FROM book_items WHERE id = $1 AND deleted = FALSE`
	var it model.BookItem
	err := r.db.QueryRowContext(ctx, q, id).Scan(&it.ID, &it.Barcode, &it.BookDefinitionID,
		&it.Status, &it.AcquiredAt, &it.Deleted, &it.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *repo) ItemByBarcode(ctx context.Context, barcode string) (*model.BookItem, error) {
	q := `SELECT ` + itemColumns + ` FROM book_items WHERE barcode = $1 AND deleted = FALSE`
	var it model.BookItem
	err := r.db.QueryRowContext(ctx, q, barcode).Scan(&it.ID, &it.Barcode, &it.BookDefinitionID,
		&it.Status, &it.AcquiredAt, &it.Deleted, &it.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *repo) ItemByBarcodeIncludingDeleted(ctx context.Context, barcode string) (*model.BookItem, error) {
	q := `SELECT ` + itemColumns + ` FROM book_items WHERE barcode = $1`
	var it model.BookItem
	err := r.db.QueryRowContext(ctx, q, barcode).Scan(&it.ID, &it.Barcode, &it.BookDefinitionID,
		&it.Status, &it.AcquiredAt, &it.Deleted, &it.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *repo) CountItemsByDefinition(ctx context.Context, defID int64) (int64, error) {
	const q = `SELECT COUNT(*) FROM book_items WHERE book_definition_id = $1 AND deleted = FALSE`
	var n int64
	err := r.db.QueryRowContext(ctx, q, defID).Scan(&n)
	return n, err
}

func (r *repo) CountAvailableItemsByDefinition(ctx context.Context, defID int64) (int64, error) {
	const q = `
SELECT COUNT(*) FROM book_items
WHERE book_definition_id = $1 AND status = 'AVAILABLE' AND deleted = FALSE`
	var n int64
	err := r.db.QueryRowContext(ctx, q, defID).Scan(&n)
	return n, err
}

func (r *repo) UpdateItemStatus(ctx context.Context, id int64, status model.BookStatus) error {
	const q = `UPDATE book_items SET status = $2 WHERE id = $1 AND deleted = FALSE`
	res, err := r.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) SoftDeleteItem(ctx context.Context, id int64, at time.Time) error {
	const q = `
UPDATE book_items
SET deleted = TRUE, deleted_at = $2
WHERE id = $1 AND deleted = FALSE`
	res, err := r.db.ExecContext(ctx, q, id, at)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) RestoreItem(ctx context.Context, barcode string) error {
	// Status is left untouched; restore only clears the soft-delete flag.
	const q = `
UPDATE book_items
SET deleted = FALSE, deleted_at = NULL
WHERE barcode = $1 AND deleted = TRUE`
	res, err := r.db.ExecContext(ctx, q, barcode)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}
