package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/pagecorner/bookstore/internal/logging"
	"github.com/pagecorner/bookstore/internal/models"
)

// Sales are discount rules evaluated at read and checkout time. Creating or
// removing one never rewrites book prices, so an expired sale needs no
// reverting.
type SaleHandler struct {
	DB *gorm.DB
}

type saleRequest struct {
	BookID             *uuid.UUID `json:"book_id"`
	DiscountPercentage float64    `json:"discount_percentage" validate:"required,gt=0,lte=100"`
	StartDate          time.Time  `json:"start_date"          validate:"required"`
	EndDate            time.Time  `json:"end_date"            validate:"required"`
}

func (h *SaleHandler) AddSale(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sale.add_sale")

	var req saleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.StartDate.After(req.EndDate) {
		return echo.NewHTTPError(http.StatusBadRequest, "start date cannot be after the end date")
	}

	if req.BookID != nil {
		var book models.Book
		if err := h.DB.First(&book, "id = ?", *req.BookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "book not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	sale := models.Sale{
		BookID:             req.BookID,
		DiscountPercentage: req.DiscountPercentage,
		StartDate:          req.StartDate.UTC(),
		EndDate:            req.EndDate.UTC(),
	}
	if err := h.DB.Create(&sale).Error; err != nil {
		l.Error("add_sale_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create sale")
	}

	l.Info("add_sale_success", "saleID", sale.ID)
	return c.JSON(http.StatusCreated, sale)
}

func (h *SaleHandler) EditSale(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req saleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.StartDate.After(req.EndDate) {
		return echo.NewHTTPError(http.StatusBadRequest, "start date cannot be after the end date")
	}

	var sale models.Sale
	if err := h.DB.First(&sale, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "sale not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	sale.DiscountPercentage = req.DiscountPercentage
	sale.StartDate = req.StartDate.UTC()
	sale.EndDate = req.EndDate.UTC()
	if err := h.DB.Save(&sale).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, sale)
}

func (h *SaleHandler) DeleteSale(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	res := h.DB.Delete(&models.Sale{}, "id = ?", id)
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "sale not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SaleHandler) GetActiveSales(c echo.Context) error {
	now := time.Now().UTC()
	var sales []models.Sale
	if err := h.DB.Where("start_date <= ? AND end_date >= ?", now, now).Find(&sales).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sales)
}

func (h *SaleHandler) RemoveExpiredSales(c echo.Context) error {
	res := h.DB.Where("end_date < ?", time.Now().UTC()).Delete(&models.Sale{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return c.JSON(http.StatusOK, echo.Map{"message": "no expired sales to remove"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "expired sales removed", "removed": res.RowsAffected})
}
