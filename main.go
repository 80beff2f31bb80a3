// Package main shelfs API.
//
// @title           shelfs Library API
// @version         1.0
// @description     Library management service (book catalog, physical copies, patrons, loans).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/DevAldrete/shelfs/app/echoServer"
	authctrl "github.com/DevAldrete/shelfs/app/echoServer/controller/auth"
	bookctrl "github.com/DevAldrete/shelfs/app/echoServer/controller/book"
	loanctrl "github.com/DevAldrete/shelfs/app/echoServer/controller/loan"
	userctrl "github.com/DevAldrete/shelfs/app/echoServer/controller/user"
	"github.com/DevAldrete/shelfs/app/echoServer/validation"
	"github.com/DevAldrete/shelfs/config"
	bookrepo "github.com/DevAldrete/shelfs/repository/book"
	loanrepo "github.com/DevAldrete/shelfs/repository/loan"
	userrepo "github.com/DevAldrete/shelfs/repository/user"
	authsvc "github.com/DevAldrete/shelfs/service/auth"
	booksvc "github.com/DevAldrete/shelfs/service/book"
	loansvc "github.com/DevAldrete/shelfs/service/loan"
	usersvc "github.com/DevAldrete/shelfs/service/user"
	"github.com/DevAldrete/shelfs/util/database"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB: *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	br := bookrepo.New(db)
	lr := loanrepo.New(db)
	ur := userrepo.New(db)

	// services
	as := authsvc.New(ur, cfg.JWTSecret)
	bs := booksvc.New(br, lr)
	ls := loansvc.New(db, lr, br, ur)
	us := usersvc.New(ur, lr)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	loanC := &loanctrl.Controller{Svc: ls, V: v, Log: log}
	userC := &userctrl.Controller{Svc: us, V: v, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		if err := db.PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status": "DOWN",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth: authC,
		Book: bookC,
		Loan: loanC,
		User: userC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}
