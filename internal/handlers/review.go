package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/pagecorner/bookstore/internal/models"
	"github.com/pagecorner/bookstore/internal/service/token"
)

type ReviewHandler struct {
	DB *gorm.DB
}

func (h *ReviewHandler) SubmitReview(c echo.Context) error {
	p, err := token.CurrentPrincipal(c)
	if err != nil {
		return err
	}

	var req struct {
		BookID  uuid.UUID `json:"book_id" validate:"required"`
		Rating  int       `json:"rating"  validate:"required,gte=1,lte=5"`
		Comment string    `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	// Reviews are gated on a completed order containing the book.
	var completed int64
	err = h.DB.Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.book_id = ? AND orders.member_id = ? AND orders.status = ?",
			req.BookID, p.UserID, models.OrderStatusComplete).
		Count(&completed).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if completed == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "you can only review books from your completed orders")
	}

	review := models.Review{
		BookID:    req.BookID,
		MemberID:  p.UserID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.DB.Create(&review).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot save review")
	}

	return c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) MyReviews(c echo.Context) error {
	p, err := token.CurrentPrincipal(c)
	if err != nil {
		return err
	}

	var reviews []models.Review
	if err := h.DB.Where("member_id = ?", p.UserID).Order("created_at DESC").Find(&reviews).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": reviews})
}

func (h *ReviewHandler) GetBookReviews(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var reviews []models.Review
	if err := h.DB.Where("book_id = ?", id).Order("created_at DESC").Find(&reviews).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": reviews})
}
