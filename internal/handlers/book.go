package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pagecorner/bookstore/internal/broker"
	"github.com/pagecorner/bookstore/internal/logging"
	"github.com/pagecorner/bookstore/internal/models"
	"github.com/pagecorner/bookstore/internal/service/pricing"
	"github.com/pagecorner/bookstore/internal/util"
)

type BookHandler struct {
	DB       *gorm.DB
	Producer broker.Publisher
}

type bookResponse struct {
	models.Book
	EffectivePrice decimal.Decimal `json:"effective_price"`
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func parseUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, name+" is not a valid id")
	}
	return id, nil
}

func (h *BookHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, broker.TopicOrderEvents, fmt.Sprint(event["bookID"]), event); err != nil {
		c.Logger().Errorf("event publish error: %v", err)
	}
}

func withEffectivePrices(books []models.Book, sales []models.Sale) []bookResponse {
	out := make([]bookResponse, len(books))
	for i, b := range books {
		out[i] = bookResponse{Book: b, EffectivePrice: pricing.Effective(b.Price, b.ID, sales)}
	}
	return out
}

func (h *BookHandler) GetBook(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var book models.Book
	if err := h.DB.First(&book, "id = ?", id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "book not found")
	}

	effective, err := pricing.EffectiveForBook(h.DB, &book, time.Now().UTC())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot evaluate price")
	}

	return c.JSON(http.StatusOK, bookResponse{Book: book, EffectivePrice: effective})
}

func (h *BookHandler) GetBooks(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "book.get_books")

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Book{}).Count(&total).Error; err != nil {
		l.Error("get_books_failed", "status", 500, "reason", "cannot count books", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot count books")
	}

	var items []models.Book
	if err := h.DB.Model(&models.Book{}).Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		l.Error("get_books_failed", "status", 500, "reason", "cannot list books", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list books")
	}

	sales, err := pricing.ActiveSales(h.DB, time.Now().UTC())
	if err != nil {
		l.Error("get_books_failed", "status", 500, "reason", "cannot load sales", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load sales")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": withEffectivePrices(items, sales),
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

// shelf renders a storefront book list with effective prices attached.
func (h *BookHandler) shelf(c echo.Context, items []models.Book) error {
	sales, err := pricing.ActiveSales(h.DB, time.Now().UTC())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load sales")
	}
	return c.JSON(http.StatusOK, withEffectivePrices(items, sales))
}

// GetFeatured returns a small random selection for the storefront.
func (h *BookHandler) GetFeatured(c echo.Context) error {
	var items []models.Book
	if err := h.DB.Where("is_available = ?", true).Order("RANDOM()").Limit(6).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list books")
	}
	return h.shelf(c, items)
}

func (h *BookHandler) GetRecentlyPublished(c echo.Context) error {
	var items []models.Book
	if err := h.DB.Where("publication_date IS NOT NULL").Order("publication_date DESC").Limit(10).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list books")
	}
	return h.shelf(c, items)
}

func (h *BookHandler) GetRecentlyCreated(c echo.Context) error {
	var items []models.Book
	if err := h.DB.Order("created_at DESC").Limit(10).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list books")
	}
	return h.shelf(c, items)
}

func (h *BookHandler) GetAwardWinning(c echo.Context) error {
	var items []models.Book
	if err := h.DB.Where("is_exclusive = ?", true).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list books")
	}
	return h.shelf(c, items)
}

type bestSellerView struct {
	bookResponse
	TotalSold int64 `json:"total_sold"`
}

// GetBestSellers ranks books by quantity sold across completed orders.
func (h *BookHandler) GetBestSellers(c echo.Context) error {
	var rows []struct {
		BookID    uuid.UUID
		TotalSold int64
	}
	err := h.DB.Model(&models.OrderItem{}).
		Select("order_items.book_id AS book_id, SUM(order_items.quantity) AS total_sold").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status = ?", models.OrderStatusComplete).
		Group("order_items.book_id").
		Order("total_sold DESC").
		Limit(10).
		Scan(&rows).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot rank books")
	}

	sales, err := pricing.ActiveSales(h.DB, time.Now().UTC())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load sales")
	}

	out := make([]bestSellerView, 0, len(rows))
	for _, r := range rows {
		var book models.Book
		if err := h.DB.First(&book, "id = ?", r.BookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// The book left the catalog after it sold; skip the row.
				continue
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot load book")
		}
		out = append(out, bestSellerView{
			bookResponse: bookResponse{Book: book, EffectivePrice: pricing.Effective(book.Price, book.ID, sales)},
			TotalSold:    r.TotalSold,
		})
	}
	return c.JSON(http.StatusOK, out)
}

type bookRequest struct {
	Title           string          `json:"title"       validate:"required,max=200"`
	Author          string          `json:"author"      validate:"required,max=100"`
	Description     string          `json:"description" validate:"max=1000"`
	Genre           string          `json:"genre"       validate:"max=50"`
	Price           decimal.Decimal `json:"price"`
	StockQuantity   int             `json:"stock_quantity" validate:"gte=0"`
	Language        string          `json:"language"    validate:"max=50"`
	Format          string          `json:"format"      validate:"max=50"`
	Publisher       string          `json:"publisher"   validate:"max=100"`
	ISBN            string          `json:"isbn"        validate:"max=13"`
	CoverImage      string          `json:"cover_image" validate:"max=500"`
	PublicationDate *time.Time      `json:"publication_date"`
	IsAvailable     *bool           `json:"is_available"`
	IsExclusive     *bool           `json:"is_exclusive"`
}

func (h *BookHandler) CreateBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "book.create_book")

	var req bookRequest
	if err := c.Bind(&req); err != nil {
		l.Error("create_book_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Price.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "price cannot be negative")
	}

	book := models.Book{
		Title:           req.Title,
		Author:          req.Author,
		Description:     req.Description,
		Genre:           req.Genre,
		Price:           req.Price,
		StockQuantity:   req.StockQuantity,
		Language:        req.Language,
		Format:          req.Format,
		Publisher:       req.Publisher,
		ISBN:            req.ISBN,
		CoverImage:      req.CoverImage,
		PublicationDate: req.PublicationDate,
		IsAvailable:     true,
	}
	if req.IsAvailable != nil {
		book.IsAvailable = *req.IsAvailable
	}
	if req.IsExclusive != nil {
		book.IsExclusive = *req.IsExclusive
	}

	if err := h.DB.Create(&book).Error; err != nil {
		l.Error("create_book_failed", "status", 500, "reason", "cannot add book to db", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot add book to db")
	}

	h.publish(c, map[string]any{
		"type":   "book_created",
		"bookID": book.ID,
		"title":  book.Title,
	})
	l.Info("create_book_success", "bookID", book.ID)
	return c.JSON(http.StatusCreated, book)
}

func (h *BookHandler) PatchBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "book.patch_book")

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Title           *string          `json:"title"`
		Author          *string          `json:"author"`
		Description     *string          `json:"description"`
		Genre           *string          `json:"genre"`
		Price           *decimal.Decimal `json:"price"`
		StockQuantity   *int             `json:"stock_quantity"`
		Language        *string          `json:"language"`
		Format          *string          `json:"format"`
		Publisher       *string          `json:"publisher"`
		ISBN            *string          `json:"isbn"`
		CoverImage      *string          `json:"cover_image"`
		PublicationDate *time.Time       `json:"publication_date"`
		IsAvailable     *bool            `json:"is_available"`
		IsExclusive     *bool            `json:"is_exclusive"`
	}
	if err := c.Bind(&req); err != nil {
		l.Error("patch_book_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var book models.Book
	if err := h.DB.First(&book, "id = ?", id).Error; err != nil {
		l.Warn("patch_book_failed", "status", 404, "reason", "book not found", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "book not found")
	}

	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Author != nil {
		book.Author = *req.Author
	}
	if req.Description != nil {
		book.Description = *req.Description
	}
	if req.Genre != nil {
		book.Genre = *req.Genre
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return echo.NewHTTPError(http.StatusBadRequest, "price cannot be negative")
		}
		book.Price = *req.Price
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "stock cannot be negative")
		}
		book.StockQuantity = *req.StockQuantity
	}
	if req.Language != nil {
		book.Language = *req.Language
	}
	if req.Format != nil {
		book.Format = *req.Format
	}
	if req.Publisher != nil {
		book.Publisher = *req.Publisher
	}
	if req.ISBN != nil {
		book.ISBN = *req.ISBN
	}
	if req.CoverImage != nil {
		book.CoverImage = *req.CoverImage
	}
	if req.PublicationDate != nil {
		book.PublicationDate = req.PublicationDate
	}
	if req.IsAvailable != nil {
		book.IsAvailable = *req.IsAvailable
	}
	if req.IsExclusive != nil {
		book.IsExclusive = *req.IsExclusive
	}

	if err := h.DB.Save(&book).Error; err != nil {
		l.Error("patch_book_failed", "status", 500, "reason", "cannot save book", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot save book")
	}

	h.publish(c, map[string]any{
		"type":   "book_updated",
		"bookID": book.ID,
		"title":  book.Title,
	})
	l.Info("patch_book_success", "bookID", book.ID)
	return c.JSON(http.StatusOK, book)
}

func (h *BookHandler) DeleteBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "book.delete_book")

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	res := h.DB.Delete(&models.Book{}, "id = ?", id)
	if res.Error != nil {
		l.Error("delete_book_failed", "status", 500, "reason", "cannot delete book", "error", res.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete book")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "book not found")
	}

	h.publish(c, map[string]any{
		"type":   "book_deleted",
		"bookID": id,
	})
	l.Info("delete_book_success", "bookID", id)
	return c.NoContent(http.StatusNoContent)
}
