package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pagecorner/bookstore/internal/broker"
	"github.com/pagecorner/bookstore/internal/config"
	"github.com/pagecorner/bookstore/internal/es"
	"github.com/pagecorner/bookstore/internal/handlers"
	"github.com/pagecorner/bookstore/internal/logging"
	"github.com/pagecorner/bookstore/internal/mailer"
	"github.com/pagecorner/bookstore/internal/service/sweeper"
	"github.com/pagecorner/bookstore/internal/service/token"
	httpserver "github.com/pagecorner/bookstore/internal/transport/http"
	"github.com/pagecorner/bookstore/internal/validation"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	prod, err := broker.NewProducer(
		[]string{configuration.KAFKA_ADDRESS},
		[]string{broker.TopicUserEvents, broker.TopicOrderEvents, broker.TopicAnnouncements},
	)
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	smtp := &mailer.SMTPMailer{
		Host:     configuration.SMTP_HOST,
		Port:     configuration.SMTP_PORT,
		Username: configuration.SMTP_USER,
		Password: configuration.SMTP_PASSWORD,
		From:     configuration.SMTP_FROM,
	}

	tokens := &token.TokenService{
		DB:            db,
		JWTSecret:     []byte(configuration.JWT_SECRET),
		RefreshSecret: []byte(configuration.REFRESH_SECRET),
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Validator = validation.New()

	orderHandler := &handlers.OrderHandler{DB: db, Producer: prod, Mailer: smtp}

	deps := httpserver.Deps{
		DB:                  db,
		Logger:              logger,
		Tokens:              tokens,
		AuthHandler:         &handlers.AuthHandler{DB: db, Tokens: tokens, Producer: prod},
		BookHandler:         &handlers.BookHandler{DB: db, Producer: prod},
		CartHandler:         &handlers.CartHandler{DB: db, Producer: prod},
		OrderHandler:        orderHandler,
		SaleHandler:         &handlers.SaleHandler{DB: db},
		AnnouncementHandler: &handlers.AnnouncementHandler{DB: db, Producer: prod},
		ReviewHandler:       &handlers.ReviewHandler{DB: db},
		ProfileHandler:      &handlers.ProfileHandler{DB: db},
		BookmarkHandler:     &handlers.BookmarkHandler{DB: db},
		StaffHandler:        &handlers.StaffHandler{DB: db},
		StatsHandler:        &handlers.StatsHandler{DB: db},
		SearchHandler:       handlers.NewSearchHandler(esClient, "books"),
	}

	httpserver.Register(e, &deps)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sw := &sweeper.Sweeper{DB: db, Interval: configuration.SWEEP_INTERVAL, Logger: logger}
	go sw.Run(sweepCtx)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	orderHandler.DrainMail()

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
