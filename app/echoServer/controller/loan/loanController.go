package loan

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/DevAldrete/shelfs/model"
	ls "github.com/DevAldrete/shelfs/service/loan"
)

type Controller struct {
	Svc ls.Service
	V   *validator.Validate
	Log *slog.Logger
}

// Create a loan
// @Summary      Borrow a book item
// @Description  Validates patron eligibility and item availability, then opens a loan
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        payload  body  model.CreateLoanReq  true  "Loan payload"
// @Success      201  {object}  model.Loan
// @Failure      400  {object}  map[string]any
// @Failure      404  {object}  map[string]any "user or item not found"
// @Failure      409  {object}  map[string]any "limit reached, overdue lockout, or item unavailable"
// @Router       /api/loans [post]
func (h *Controller) Create(c echo.Context) error {
	var req model.CreateLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	out, err := h.Svc.Create(c.Request().Context(), req.UserID, req.BookItemID, req.LimitAt)
	if err != nil {
		return h.mapError(c, "loan create", err)
	}
	return c.JSON(http.StatusCreated, out)
}

// POST /api/loans/:id/return
func (h *Controller) Return(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	out, err := h.Svc.Return(c.Request().Context(), id)
	if err != nil {
		return h.mapError(c, "loan return", err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/loans/return/barcode/:barcode
func (h *Controller) ReturnByBarcode(c echo.Context) error {
	barcode := c.Param("barcode")
	if barcode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid barcode"})
	}
	out, err := h.Svc.ReturnByBarcode(c.Request().Context(), barcode)
	if err != nil {
		return h.mapError(c, "loan return by barcode", err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/loans/:id/extend
func (h *Controller) Extend(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req model.ExtendLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	out, err := h.Svc.Extend(c.Request().Context(), id, req.Days)
	if err != nil {
		return h.mapError(c, "loan extend", err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/loans/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	out, err := h.Svc.ByID(c.Request().Context(), id)
	if err != nil {
		return h.mapError(c, "loan detail", err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/loans
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.All(c.Request().Context())
	if err != nil {
		return h.mapError(c, "loan list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/loans/active
func (h *Controller) ListActive(c echo.Context) error {
	rows, err := h.Svc.AllActive(c.Request().Context())
	if err != nil {
		return h.mapError(c, "active loans", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/loans/overdue
func (h *Controller) ListOverdue(c echo.Context) error {
	rows, err := h.Svc.Overdue(c.Request().Context())
	if err != nil {
		return h.mapError(c, "overdue loans", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/loans/overdue/count
func (h *Controller) CountOverdue(c echo.Context) error {
	n, err := h.Svc.CountOverdue(c.Request().Context())
	if err != nil {
		return h.mapError(c, "overdue count", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

// GET /api/loans/due-soon?days=3
func (h *Controller) DueSoon(c echo.Context) error {
	days := parseDays(c)
	rows, err := h.Svc.DueSoon(c.Request().Context(), days)
	if err != nil {
		return h.mapError(c, "due soon", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/loans/user/:userId
func (h *Controller) ByUser(c echo.Context) error {
	uid, err := parseID(c, "userId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user id"})
	}
	rows, err := h.Svc.ByUser(c.Request().Context(), uid)
	if err != nil {
		return h.mapError(c, "loans by user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/loans/user/:userId/active
func (h *Controller) ActiveByUser(c echo.Context) error {
	uid, err := parseID(c, "userId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user id"})
	}
	rows, err := h.Svc.ActiveByUser(c.Request().Context(), uid)
	if err != nil {
		return h.mapError(c, "active loans by user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/loans/user/:userId/history
func (h *Controller) HistoryByUser(c echo.Context) error {
	uid, err := parseID(c, "userId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user id"})
	}
	rows, err := h.Svc.HistoryByUser(c.Request().Context(), uid)
	if err != nil {
		return h.mapError(c, "loan history by user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/loans/user/:userId/overdue
func (h *Controller) OverdueByUser(c echo.Context) error {
	uid, err := parseID(c, "userId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user id"})
	}
	rows, err := h.Svc.OverdueByUser(c.Request().Context(), uid)
	if err != nil {
		return h.mapError(c, "overdue loans by user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/loans/user/:userId/due-soon?days=3
func (h *Controller) DueSoonByUser(c echo.Context) error {
	uid, err := parseID(c, "userId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user id"})
	}
	rows, err := h.Svc.DueSoonByUser(c.Request().Context(), uid, parseDays(c))
	if err != nil {
		return h.mapError(c, "due soon by user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/loans/user/:userId/count
func (h *Controller) CountByUser(c echo.Context) error {
	uid, err := parseID(c, "userId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user id"})
	}
	ctx := c.Request().Context()
	active, err := h.Svc.CountActiveByUser(ctx, uid)
	if err != nil {
		return h.mapError(c, "active loan count", err)
	}
	total, err := h.Svc.CountByUser(ctx, uid)
	if err != nil {
		return h.mapError(c, "total loan count", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"active": active, "total": total})
}

// GET /api/loans/user/email/:email
func (h *Controller) ByUserEmail(c echo.Context) error {
	email := c.Param("email")
	rows, err := h.Svc.ByUserEmail(c.Request().Context(), email)
	if err != nil {
		return h.mapError(c, "loans by email", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/loans/user/email/:email/active
func (h *Controller) ActiveByUserEmail(c echo.Context) error {
	email := c.Param("email")
	rows, err := h.Svc.ActiveByUserEmail(c.Request().Context(), email)
	if err != nil {
		return h.mapError(c, "active loans by email", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/loans/book-item/:bookItemId/history
func (h *Controller) HistoryByItem(c echo.Context) error {
	itemID, err := parseID(c, "bookItemId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid item id"})
	}
	rows, err := h.Svc.HistoryByItem(c.Request().Context(), itemID)
	if err != nil {
		return h.mapError(c, "loan history by item", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/loans/book-item/:bookItemId/borrowed
func (h *Controller) ItemBorrowed(c echo.Context) error {
	itemID, err := parseID(c, "bookItemId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid item id"})
	}
	borrowed, err := h.Svc.ItemBorrowed(c.Request().Context(), itemID)
	if err != nil {
		return h.mapError(c, "item borrowed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"borrowed": borrowed})
}

func (h *Controller) mapError(c echo.Context, op string, err error) error {
	switch ls.Code(err) {
	case ls.ErrUserNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
	case ls.ErrItemNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "book item not found"})
	case ls.ErrLoanNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "loan not found"})
	case ls.ErrNoActiveLoan:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "no active loan for item"})
	case ls.ErrLoanLimit:
		return c.JSON(http.StatusConflict, echo.Map{"message": "loan limit reached"})
	case ls.ErrOverdueLockout:
		return c.JSON(http.StatusConflict, echo.Map{"message": "user has overdue loans"})
	case ls.ErrNotAvailable:
		return c.JSON(http.StatusConflict, echo.Map{"message": "book item not available"})
	case ls.ErrAlreadyBorrowed:
		return c.JSON(http.StatusConflict, echo.Map{"message": "book item already borrowed"})
	case ls.ErrAlreadyReturned:
		return c.JSON(http.StatusConflict, echo.Map{"message": "loan already returned"})
	case ls.ErrNotActive:
		return c.JSON(http.StatusConflict, echo.Map{"message": "cannot extend a returned loan"})
	default:
		h.Log.Error(op, "err", err,
			"req_id", c.Response().Header().Get(echo.HeaderXRequestID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.ErrBadRequest
	}
	return id, nil
}

func parseDays(c echo.Context) int {
	days, err := strconv.Atoi(c.QueryParam("days"))
	if err != nil || days <= 0 {
		return 0
	}
	return days
}
