package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagecorner/bookstore/internal/models"
)

func TestAddSaleDoesNotRewriteBookPrice(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("admin@example.com", models.RoleAdmin)
	book := env.createBook("Stable Book", "20.00", 5)

	now := time.Now().UTC()
	body := echo.Map{
		"book_id":             book.ID,
		"discount_percentage": 50,
		"start_date":          now.Add(-time.Hour),
		"end_date":            now.Add(time.Hour),
	}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/admin/sales", body)
	as(c, admin)
	require.NoError(t, env.Sales.AddSale(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var reloaded models.Book
	require.NoError(t, env.DB.First(&reloaded, "id = ?", book.ID).Error)
	assert.True(t, reloaded.Price.Equal(decimal.RequireFromString("20.00")))

	// The discount shows up on the read side instead.
	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/books/"+book.ID.String(), nil)
	c.SetParamNames("id")
	c.SetParamValues(book.ID.String())
	require.NoError(t, env.Books.GetBook(c))

	var resp struct {
		Price          decimal.Decimal `json:"price"`
		EffectivePrice decimal.Decimal `json:"effective_price"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Price.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, resp.EffectivePrice.Equal(decimal.RequireFromString("10.00")),
		"got effective %s", resp.EffectivePrice)
}

func TestAddSaleRejectsInvalidWindow(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("admin2@example.com", models.RoleAdmin)
	book := env.createBook("Windowed Book", "10.00", 5)

	now := time.Now().UTC()
	body := echo.Map{
		"book_id":             book.ID,
		"discount_percentage": 10,
		"start_date":          now.Add(time.Hour),
		"end_date":            now.Add(-time.Hour),
	}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/admin/sales", body)
	as(c, admin)
	err := env.Sales.AddSale(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestAddSaleRejectsUnknownBook(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("admin3@example.com", models.RoleAdmin)

	now := time.Now().UTC()
	body := echo.Map{
		"book_id":             uuid.New(),
		"discount_percentage": 10,
		"start_date":          now,
		"end_date":            now.Add(time.Hour),
	}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/admin/sales", body)
	as(c, admin)
	err := env.Sales.AddSale(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestGetActiveSalesExcludesExpiredAndFuture(t *testing.T) {
	env := newTestEnv(t)
	book := env.createBook("Timed Book", "10.00", 5)

	now := time.Now().UTC()
	active := models.Sale{BookID: &book.ID, DiscountPercentage: 10, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)}
	expired := models.Sale{BookID: &book.ID, DiscountPercentage: 20, StartDate: now.Add(-48 * time.Hour), EndDate: now.Add(-24 * time.Hour)}
	future := models.Sale{BookID: &book.ID, DiscountPercentage: 30, StartDate: now.Add(24 * time.Hour), EndDate: now.Add(48 * time.Hour)}
	require.NoError(t, env.DB.Create(&active).Error)
	require.NoError(t, env.DB.Create(&expired).Error)
	require.NoError(t, env.DB.Create(&future).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/sales/active", nil)
	require.NoError(t, env.Sales.GetActiveSales(c))

	var sales []models.Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sales))
	require.Len(t, sales, 1)
	assert.Equal(t, active.ID, sales[0].ID)
}

func TestRemoveExpiredSales(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("janitor@example.com", models.RoleAdmin)
	book := env.createBook("Cleaned Book", "10.00", 5)

	now := time.Now().UTC()
	active := models.Sale{BookID: &book.ID, DiscountPercentage: 10, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)}
	expired := models.Sale{BookID: &book.ID, DiscountPercentage: 20, StartDate: now.Add(-48 * time.Hour), EndDate: now.Add(-24 * time.Hour)}
	require.NoError(t, env.DB.Create(&active).Error)
	require.NoError(t, env.DB.Create(&expired).Error)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/v1/admin/sales/expired", nil)
	as(c, admin)
	require.NoError(t, env.Sales.RemoveExpiredSales(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var remaining []models.Sale
	require.NoError(t, env.DB.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, active.ID, remaining[0].ID)
}
