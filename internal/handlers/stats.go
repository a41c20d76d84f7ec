package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pagecorner/bookstore/internal/models"
)

type StatsHandler struct {
	DB *gorm.DB
}

func (h *StatsHandler) Dashboard(c echo.Context) error {
	var totalStaff int64
	if err := h.DB.Model(&models.User{}).Where("role = ?", models.RoleStaff).Count(&totalStaff).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var totalBooks int64
	if err := h.DB.Model(&models.Book{}).Count(&totalBooks).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var completed []models.Order
	if err := h.DB.Where("status = ?", models.OrderStatusComplete).Find(&completed).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	revenue := decimal.Zero
	for _, o := range completed {
		revenue = revenue.Add(o.TotalPrice)
	}

	var totalStock struct{ Total int64 }
	if err := h.DB.Model(&models.Book{}).Select("COALESCE(SUM(stock_quantity), 0) AS total").Scan(&totalStock).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_staff":        totalStaff,
		"total_books":        totalBooks,
		"total_sales_amount": revenue,
		"total_stock":        totalStock.Total,
	})
}

type daySales struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// SalesByDay sums completed-order revenue per calendar day, oldest first.
func (h *StatsHandler) SalesByDay(c echo.Context) error {
	var completed []models.Order
	if err := h.DB.Where("status = ?", models.OrderStatusComplete).Order("created_at ASC").Find(&completed).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	totals := make(map[string]decimal.Decimal)
	var days []string
	for _, o := range completed {
		day := o.CreatedAt.UTC().Format("2006-01-02")
		if _, ok := totals[day]; !ok {
			days = append(days, day)
		}
		totals[day] = totals[day].Add(o.TotalPrice)
	}

	out := make([]daySales, 0, len(days))
	for _, day := range days {
		out = append(out, daySales{Date: day, Total: totals[day]})
	}
	return c.JSON(http.StatusOK, echo.Map{"sales_by_day": out})
}
