package user

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/DevAldrete/shelfs/model"
	usersvc "github.com/DevAldrete/shelfs/service/user"
)

type Controller struct {
	Svc usersvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// GET /api/users
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return h.mapError(c, "user list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/users/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	out, err := h.Svc.ByID(c.Request().Context(), id)
	if err != nil {
		return h.mapError(c, "user detail", err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/users/email/:email
func (h *Controller) DetailByEmail(c echo.Context) error {
	out, err := h.Svc.ByEmail(c.Request().Context(), c.Param("email"))
	if err != nil {
		return h.mapError(c, "user by email", err)
	}
	return c.JSON(http.StatusOK, out)
}

// PUT /api/users/:id
func (h *Controller) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req model.UpdateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	out, err := h.Svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return h.mapError(c, "user update", err)
	}
	return c.JSON(http.StatusOK, out)
}

// DELETE /api/users/:id
func (h *Controller) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return h.mapError(c, "user delete", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Controller) mapError(c echo.Context, op string, err error) error {
	switch usersvc.Code(err) {
	case usersvc.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
	case usersvc.ErrEmailTaken:
		return c.JSON(http.StatusConflict, echo.Map{"message": "email already registered"})
	case usersvc.ErrUsernameTaken:
		return c.JSON(http.StatusConflict, echo.Map{"message": "username already taken"})
	case usersvc.ErrHasActiveLoans:
		return c.JSON(http.StatusConflict, echo.Map{"message": "user has active loans"})
	default:
		h.Log.Error(op, "err", err,
			"req_id", c.Response().Header().Get(echo.HeaderXRequestID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.ErrBadRequest
	}
	return id, nil
}
