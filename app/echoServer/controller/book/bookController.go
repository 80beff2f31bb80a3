package book

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/DevAldrete/shelfs/model"
	booksvc "github.com/DevAldrete/shelfs/service/book"
)

type Controller struct {
	Svc booksvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// Create a definition
// @Summary      Create book definition
// @Description  Register a new catalog title, unique by ISBN
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        payload  body  model.CreateBookDefinitionReq  true  "Definition payload"
// @Success      201  {object}  model.BookDefinition
// @Failure      400  {object}  map[string]any
// @Failure      409  {object}  map[string]any "isbn already registered"
// @Router       /api/books [post]
func (h *Controller) CreateDefinition(c echo.Context) error {
	var req model.CreateBookDefinitionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	out, err := h.Svc.CreateDefinition(c.Request().Context(), req)
	if err != nil {
		return h.mapError(c, "definition create", err)
	}
	return c.JSON(http.StatusCreated, out)
}

// GET /api/books
func (h *Controller) ListDefinitions(c echo.Context) error {
	rows, err := h.Svc.Definitions(c.Request().Context())
	if err != nil {
		return h.mapError(c, "definition list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/books/:id
func (h *Controller) DefinitionDetail(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	out, err := h.Svc.DefinitionByID(c.Request().Context(), id)
	if err != nil {
		return h.mapError(c, "definition detail", err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/books/isbn/:isbn
func (h *Controller) DefinitionByISBN(c echo.Context) error {
	out, err := h.Svc.DefinitionByISBN(c.Request().Context(), c.Param("isbn"))
	if err != nil {
		return h.mapError(c, "definition by isbn", err)
	}
	return c.JSON(http.StatusOK, out)
}

// PUT /api/books/:id
func (h *Controller) UpdateDefinition(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req model.CreateBookDefinitionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	out, err := h.Svc.UpdateDefinition(c.Request().Context(), id, req)
	if err != nil {
		return h.mapError(c, "definition update", err)
	}
	return c.JSON(http.StatusOK, out)
}

// DELETE /api/books/:id
func (h *Controller) DeleteDefinition(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.Svc.DeleteDefinition(c.Request().Context(), id); err != nil {
		return h.mapError(c, "definition delete", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Create an item
// @Summary      Create book item
// @Description  Register a physical copy; starts AVAILABLE
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        payload  body  model.CreateBookItemReq  true  "Item payload"
// @Success      201  {object}  model.BookItem
// @Failure      404  {object}  map[string]any "definition not found"
// @Failure      409  {object}  map[string]any "barcode already registered"
// @Router       /api/books/items [post]
func (h *Controller) CreateItem(c echo.Context) error {
	var req model.CreateBookItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	out, err := h.Svc.CreateItem(c.Request().Context(), req)
	if err != nil {
		return h.mapError(c, "item create", err)
	}
	return c.JSON(http.StatusCreated, out)
}

// GET /api/books/items
func (h *Controller) ListItems(c echo.Context) error {
	rows, err := h.Svc.Items(c.Request().Context())
	if err != nil {
		return h.mapError(c, "item list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/books/items/deleted
func (h *Controller) ListDeletedItems(c echo.Context) error {
	rows, err := h.Svc.DeletedItems(c.Request().Context())
	if err != nil {
		return h.mapError(c, "deleted item list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/books/items/:itemId
func (h *Controller) ItemDetail(c echo.Context) error {
	id, err := parseID(c, "itemId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	out, err := h.Svc.ItemByID(c.Request().Context(), id)
	if err != nil {
		return h.mapError(c, "item detail", err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/books/items/barcode/:barcode
func (h *Controller) ItemByBarcode(c echo.Context) error {
	out, err := h.Svc.ItemByBarcode(c.Request().Context(), c.Param("barcode"))
	if err != nil {
		return h.mapError(c, "item by barcode", err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/books/:id/items
func (h *Controller) ItemsByDefinition(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	rows, err := h.Svc.ItemsByDefinition(c.Request().Context(), id)
	if err != nil {
		return h.mapError(c, "items by definition", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/books/:id/items/available
func (h *Controller) AvailableItemsByDefinition(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	rows, err := h.Svc.AvailableItemsByDefinition(c.Request().Context(), id)
	if err != nil {
		return h.mapError(c, "available items", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/books/:id/items/count
func (h *Controller) CountItemsByDefinition(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	n, err := h.Svc.CountItemsByDefinition(c.Request().Context(), id)
	if err != nil {
		return h.mapError(c, "item count", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

// GET /api/books/:id/items/available/count
func (h *Controller) CountAvailableItemsByDefinition(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	n, err := h.Svc.CountAvailableItemsByDefinition(c.Request().Context(), id)
	if err != nil {
		return h.mapError(c, "available item count", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

// PATCH /api/books/items/barcode/:barcode/status
func (h *Controller) UpdateItemStatus(c echo.Context) error {
	var req model.UpdateItemStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	out, err := h.Svc.UpdateItemStatus(c.Request().Context(), c.Param("barcode"), model.BookStatus(req.Status))
	if err != nil {
		return h.mapError(c, "item status update", err)
	}
	return c.JSON(http.StatusOK, out)
}

// DELETE /api/books/items/barcode/:barcode
func (h *Controller) SoftDeleteItemByBarcode(c echo.Context) error {
	if err := h.Svc.SoftDeleteItemByBarcode(c.Request().Context(), c.Param("barcode")); err != nil {
		return h.mapError(c, "item soft delete", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DELETE /api/books/items/:itemId
func (h *Controller) SoftDeleteItemByID(c echo.Context) error {
	id, err := parseID(c, "itemId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.Svc.SoftDeleteItemByID(c.Request().Context(), id); err != nil {
		return h.mapError(c, "item soft delete", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// POST /api/books/items/barcode/:barcode/restore
func (h *Controller) RestoreItem(c echo.Context) error {
	out, err := h.Svc.RestoreItem(c.Request().Context(), c.Param("barcode"))
	if err != nil {
		return h.mapError(c, "item restore", err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Controller) mapError(c echo.Context, op string, err error) error {
	switch booksvc.Code(err) {
	case booksvc.ErrDefinitionNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "book definition not found"})
	case booksvc.ErrItemNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "book item not found"})
	case booksvc.ErrIsbnTaken:
		return c.JSON(http.StatusConflict, echo.Map{"message": "isbn already registered"})
	case booksvc.ErrBarcodeTaken:
		return c.JSON(http.StatusConflict, echo.Map{"message": "barcode already registered"})
	case booksvc.ErrDefinitionInUse:
		return c.JSON(http.StatusConflict, echo.Map{"message": "definition still has items"})
	case booksvc.ErrItemInLoan:
		return c.JSON(http.StatusConflict, echo.Map{"message": "item has an active loan"})
	case booksvc.ErrNotDeleted:
		return c.JSON(http.StatusConflict, echo.Map{"message": "item is not deleted"})
	case booksvc.ErrInvalidStatus:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid status"})
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
