package echoServer

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/DevAldrete/shelfs/app/echoServer/controller/auth"
	"github.com/DevAldrete/shelfs/app/echoServer/controller/book"
	"github.com/DevAldrete/shelfs/app/echoServer/controller/loan"
	"github.com/DevAldrete/shelfs/app/echoServer/controller/user"
	"github.com/DevAldrete/shelfs/app/echoServer/jwtx"
)

type C struct {
	Auth      *auth.Controller
	Book      *book.Controller
	Loan      *loan.Controller
	User      *user.Controller
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/api")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Auth
	api := e.Group("/api")
	api.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization:Bearer ",
	}))
	api.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			uid, err := jwtx.UserIDFromContext(ctx)
			if err != nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			ctx.Set("user_id", uid)
			return next(ctx)
		}
	})

	// Users
	api.GET("/users", c.User.List)
	api.GET("/users/email/:email", c.User.DetailByEmail)
	api.GET("/users/:id", c.User.Detail)
	api.PUT("/users/:id", c.User.Update)
	api.DELETE("/users/:id", c.User.Delete)

	// Book definitions
	api.GET("/books", c.Book.ListDefinitions)
	api.POST("/books", c.Book.CreateDefinition)
	api.GET("/books/isbn/:isbn", c.Book.DefinitionByISBN)
	api.GET("/books/:id", c.Book.DefinitionDetail)
	api.PUT("/books/:id", c.Book.UpdateDefinition)
	api.DELETE("/books/:id", c.Book.DeleteDefinition)

	// Book items. Static segments before :itemId so /items/deleted and
	// /items/barcode resolve correctly.
	api.GET("/books/items", c.Book.ListItems)
	api.POST("/books/items", c.Book.CreateItem)
	api.GET("/books/items/deleted", c.Book.ListDeletedItems)
	api.GET("/books/items/barcode/:barcode", c.Book.ItemByBarcode)
	api.PATCH("/books/items/barcode/:barcode/status", c.Book.UpdateItemStatus)
	api.DELETE("/books/items/barcode/:barcode", c.Book.SoftDeleteItemByBarcode)
	api.POST("/books/items/barcode/:barcode/restore", c.Book.RestoreItem)
	api.GET("/books/items/:itemId", c.Book.ItemDetail)
	api.DELETE("/books/items/:itemId", c.Book.SoftDeleteItemByID)
	api.GET("/books/:id/items", c.Book.ItemsByDefinition)
	api.GET("/books/:id/items/available", c.Book.AvailableItemsByDefinition)
	api.GET("/books/:id/items/count", c.Book.CountItemsByDefinition)
	api.GET("/books/:id/items/available/count", c.Book.CountAvailableItemsByDefinition)

	// Loans
	api.POST("/loans", c.Loan.Create)
	api.GET("/loans", c.Loan.List)
	api.GET("/loans/active", c.Loan.ListActive)
	api.GET("/loans/overdue", c.Loan.ListOverdue)
	api.GET("/loans/overdue/count", c.Loan.CountOverdue)
	api.GET("/loans/due-soon", c.Loan.DueSoon)
	api.POST("/loans/return/barcode/:barcode", c.Loan.ReturnByBarcode)
	api.GET("/loans/user/:userId", c.Loan.ByUser)
	api.GET("/loans/user/:userId/active", c.Loan.ActiveByUser)
	api.GET("/loans/user/:userId/history", c.Loan.HistoryByUser)
	api.GET("/loans/user/:userId/overdue", c.Loan.OverdueByUser)
	api.GET("/loans/user/:userId/due-soon", c.Loan.DueSoonByUser)
	api.GET("/loans/user/:userId/count", c.Loan.CountByUser)
	api.GET("/loans/user/email/:email", c.Loan.ByUserEmail)
	api.GET("/loans/user/email/:email/active", c.Loan.ActiveByUserEmail)
	api.GET("/loans/book-item/:bookItemId/history", c.Loan.HistoryByItem)
	api.GET("/loans/book-item/:bookItemId/borrowed", c.Loan.ItemBorrowed)
	api.GET("/loans/:id", c.Loan.Detail)
	api.POST("/loans/:id/return", c.Loan.Return)
	api.POST("/loans/:id/extend", c.Loan.Extend)
}
