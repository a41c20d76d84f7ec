package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagecorner/bookstore/internal/models"
)

func TestCreateAndDeleteStaff(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("boss@example.com", models.RoleAdmin)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/admin/staff", echo.Map{
		"first_name": "New",
		"last_name":  "Hire",
		"email":      "hire@example.com",
		"password":   "welcome1",
	})
	as(c, admin)
	require.NoError(t, env.Staff.CreateStaff(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var staff models.User
	require.NoError(t, env.DB.First(&staff, "email = ?", "hire@example.com").Error)
	assert.Equal(t, models.RoleStaff, staff.Role)

	rec, c = env.doJSONRequest(http.MethodDelete, "/api/v1/admin/staff/"+staff.ID.String(), nil)
	c.SetParamNames("id")
	c.SetParamValues(staff.ID.String())
	as(c, admin)
	require.NoError(t, env.Staff.DeleteStaff(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDeleteStaffIgnoresNonStaffUsers(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("boss2@example.com", models.RoleAdmin)
	member := env.createUser("civilian@example.com", models.RoleMember)

	_, c := env.doJSONRequest(http.MethodDelete, "/api/v1/admin/staff/"+member.ID.String(), nil)
	c.SetParamNames("id")
	c.SetParamValues(member.ID.String())
	as(c, admin)
	err := env.Staff.DeleteStaff(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Code)

	var still models.User
	assert.NoError(t, env.DB.First(&still, "id = ?", member.ID).Error)
}

func TestSalesByDayGroupsCompletedOrders(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("ledger@example.com", models.RoleAdmin)
	member := env.createUser("regular@example.com", models.RoleMember)

	day1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)

	orders := []models.Order{
		{MemberID: member.ID, TotalPrice: decimal.RequireFromString("10.00"), Status: models.OrderStatusComplete, CreatedAt: day1},
		{MemberID: member.ID, TotalPrice: decimal.RequireFromString("15.00"), Status: models.OrderStatusComplete, CreatedAt: day1.Add(4 * time.Hour)},
		{MemberID: member.ID, TotalPrice: decimal.RequireFromString("7.00"), Status: models.OrderStatusComplete, CreatedAt: day2},
		{MemberID: member.ID, TotalPrice: decimal.RequireFromString("99.00"), Status: models.OrderStatusPending, CreatedAt: day2},
	}
	for i := range orders {
		require.NoError(t, env.DB.Create(&orders[i]).Error)
	}

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/admin/stats/sales/day", nil)
	as(c, admin)
	require.NoError(t, env.Stats.SalesByDay(c))

	var resp struct {
		SalesByDay []struct {
			Date  string          `json:"date"`
			Total decimal.Decimal `json:"total"`
		} `json:"sales_by_day"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.SalesByDay, 2)
	assert.Equal(t, "2026-08-01", resp.SalesByDay[0].Date)
	assert.True(t, resp.SalesByDay[0].Total.Equal(decimal.RequireFromString("25.00")),
		"got %s", resp.SalesByDay[0].Total)
	assert.Equal(t, "2026-08-02", resp.SalesByDay[1].Date)
	assert.True(t, resp.SalesByDay[1].Total.Equal(decimal.RequireFromString("7.00")),
		"got %s", resp.SalesByDay[1].Total)
}

func TestDashboardCountsCompletedRevenueOnly(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("numbers@example.com", models.RoleAdmin)
	env.createUser("clerk1@example.com", models.RoleStaff)
	member := env.createUser("shopper@example.com", models.RoleMember)
	env.createBook("Counted Book", "10.00", 7)

	done := models.Order{MemberID: member.ID, TotalPrice: decimal.RequireFromString("30.00"), Status: models.OrderStatusComplete}
	open := models.Order{MemberID: member.ID, TotalPrice: decimal.RequireFromString("99.00"), Status: models.OrderStatusPending}
	require.NoError(t, env.DB.Create(&done).Error)
	require.NoError(t, env.DB.Create(&open).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/admin/stats/dashboard", nil)
	as(c, admin)
	require.NoError(t, env.Stats.Dashboard(c))

	var resp struct {
		TotalStaff       int64           `json:"total_staff"`
		TotalBooks       int64           `json:"total_books"`
		TotalSalesAmount decimal.Decimal `json:"total_sales_amount"`
		TotalStock       int64           `json:"total_stock"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.TotalStaff)
	assert.Equal(t, int64(1), resp.TotalBooks)
	assert.True(t, resp.TotalSalesAmount.Equal(decimal.RequireFromString("30.00")),
		"got revenue %s", resp.TotalSalesAmount)
	assert.Equal(t, int64(7), resp.TotalStock)
}
