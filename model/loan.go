// model/loan.go
package model

import "time"

// Loan is one borrowing transaction. ReturnedAt nil means the loan is
// still active; it is set exactly once at return time.
type Loan struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	BookItemID int64      `json:"book_item_id"`
	CreatedAt  time.Time  `json:"created_at"`
	LimitAt    time.Time  `json:"limit_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`

	// Joined for API responses.
	Username  string `json:"username"`
	Barcode   string `json:"barcode"`
	BookTitle string `json:"book_title"`

	Active  bool `json:"active"`
	Overdue bool `json:"overdue"`
}

func (l *Loan) IsActive() bool { return l.ReturnedAt == nil }

func (l *Loan) IsOverdue(now time.Time) bool {
	return l.IsActive() && now.After(l.LimitAt)
}

// Finalize fills the derived Active/Overdue fields against now.
func (l *Loan) Finalize(now time.Time) {
	l.Active = l.IsActive()
	l.Overdue = l.IsOverdue(now)
}

// CreateLoanReq represents a borrow request. LimitAt is optional; the
// service applies the default duration when it is absent.
// swagger:model CreateLoanReq
type CreateLoanReq struct {
	UserID     int64      `json:"user_id" validate:"required,gt=0"`
	BookItemID int64      `json:"book_item_id" validate:"required,gt=0"`
	LimitAt    *time.Time `json:"limit_at,omitempty"`
}

// ExtendLoanReq represents a due-date extension. Zero days means the
// default duration.
// swagger:model ExtendLoanReq
type ExtendLoanReq struct {
	Days int `json:"days" validate:"omitempty,gt=0"`
}
