// model/book.go
package model

import "time"

type BookDefinition struct {
	ID        int64  `json:"id"`
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	Publisher string `json:"publisher,omitempty"`
}

type BookStatus string

const (
	ItemAvailable BookStatus = "AVAILABLE"
	ItemBorrowed  BookStatus = "BORROWED"
	ItemLost      BookStatus = "LOST"
)

// ValidStatus reports whether s is one of the closed status set.
// Invalid statuses are rejected at the boundary, never stored.
func ValidStatus(s BookStatus) bool {
	switch s {
	case ItemAvailable, ItemBorrowed, ItemLost:
		return true
	}
	return false
}

// BookItem is one physical, barcoded copy of a definition. Deleted is a
// soft-delete flag orthogonal to Status; deleted items are excluded from
// default queries.
type BookItem struct {
	ID               int64      `json:"id"`
	Barcode          string     `json:"barcode"`
	BookDefinitionID int64      `json:"book_definition_id"`
	Status           BookStatus `json:"status"`
	AcquiredAt       time.Time  `json:"acquired_at"`
	Deleted          bool       `json:"deleted"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
}

// CreateBookDefinitionReq represents a new catalog title payload
// swagger:model CreateBookDefinitionReq
type CreateBookDefinitionReq struct {
	ISBN      string `json:"isbn" validate:"required,max=20"`
	Title     string `json:"title" validate:"required,max=255"`
	Author    string `json:"author" validate:"max=100"`
	Publisher string `json:"publisher" validate:"max=100"`
}

// CreateBookItemReq represents a new physical copy payload
// swagger:model CreateBookItemReq
type CreateBookItemReq struct {
	Barcode          string `json:"barcode" validate:"required,max=50"`
	BookDefinitionID int64  `json:"book_definition_id" validate:"required,gt=0"`
}

// UpdateItemStatusReq carries a manual status override
// swagger:model UpdateItemStatusReq
type UpdateItemStatusReq struct {
	Status string `json:"status" validate:"required,oneof=AVAILABLE BORROWED LOST"`
}
