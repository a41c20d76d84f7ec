package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagecorner/bookstore/internal/models"
)

func TestGetBooksPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 12; i++ {
		env.createBook("Book "+strconv.Itoa(i), "10.00", 5)
	}

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/books?page=2&size=5", nil)
	require.NoError(t, env.Books.GetBooks(c))

	var resp struct {
		Data []bookResponse `json:"data"`
		Meta struct {
			Page       int   `json:"page"`
			Size       int   `json:"size"`
			Total      int64 `json:"total"`
			TotalPages int64 `json:"total_pages"`
			HasPrev    bool  `json:"has_prev"`
			HasNext    bool  `json:"has_next"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 5)
	assert.Equal(t, int64(12), resp.Meta.Total)
	assert.Equal(t, int64(3), resp.Meta.TotalPages)
	assert.True(t, resp.Meta.HasPrev)
	assert.True(t, resp.Meta.HasNext)
}

func TestCreateBookRejectsNegativePrice(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("curator@example.com", models.RoleAdmin)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/admin/books", echo.Map{
		"title":  "Bad Price",
		"author": "Nobody",
		"price":  "-1.00",
	})
	as(c, admin)
	err := env.Books.CreateBook(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestPatchBookUpdatesOnlyGivenFields(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("editor@example.com", models.RoleAdmin)
	book := env.createBook("Original Title", "10.00", 5)

	rec, c := env.doJSONRequest(http.MethodPatch, "/api/v1/admin/books/"+book.ID.String(), echo.Map{
		"stock_quantity": 42,
	})
	c.SetParamNames("id")
	c.SetParamValues(book.ID.String())
	as(c, admin)
	require.NoError(t, env.Books.PatchBook(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var reloaded models.Book
	require.NoError(t, env.DB.First(&reloaded, "id = ?", book.ID).Error)
	assert.Equal(t, 42, reloaded.StockQuantity)
	assert.Equal(t, "Original Title", reloaded.Title)
	assert.True(t, reloaded.Price.Equal(decimal.RequireFromString("10.00")))
}

func TestDeleteBook(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("librarian@example.com", models.RoleAdmin)
	book := env.createBook("Withdrawn Book", "10.00", 5)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/v1/admin/books/"+book.ID.String(), nil)
	c.SetParamNames("id")
	c.SetParamValues(book.ID.String())
	as(c, admin)
	require.NoError(t, env.Books.DeleteBook(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.Book{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetBestSellersRanksCompletedSalesOnly(t *testing.T) {
	env := newTestEnv(t)
	member := env.createUser("fan@example.com", models.RoleMember)
	hit := env.createBook("The Hit", "10.00", 50)
	slow := env.createBook("Slow Burner", "10.00", 50)
	unsold := env.createBook("Still Wrapped", "10.00", 50)

	done := models.Order{MemberID: member.ID, TotalPrice: decimal.RequireFromString("70.00"), Status: models.OrderStatusComplete}
	require.NoError(t, env.DB.Create(&done).Error)
	require.NoError(t, env.DB.Create(&models.OrderItem{OrderID: done.ID, BookID: hit.ID, Quantity: 5, Price: decimal.RequireFromString("10.00")}).Error)
	require.NoError(t, env.DB.Create(&models.OrderItem{OrderID: done.ID, BookID: slow.ID, Quantity: 2, Price: decimal.RequireFromString("10.00")}).Error)

	// Pending sales do not count toward the ranking.
	open := models.Order{MemberID: member.ID, TotalPrice: decimal.RequireFromString("990.00"), Status: models.OrderStatusPending}
	require.NoError(t, env.DB.Create(&open).Error)
	require.NoError(t, env.DB.Create(&models.OrderItem{OrderID: open.ID, BookID: unsold.ID, Quantity: 99, Price: decimal.RequireFromString("10.00")}).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/books/best-sellers", nil)
	require.NoError(t, env.Books.GetBestSellers(c))

	var resp []struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		TotalSold int64  `json:"total_sold"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "The Hit", resp[0].Title)
	assert.Equal(t, int64(5), resp[0].TotalSold)
	assert.Equal(t, "Slow Burner", resp[1].Title)
	assert.Equal(t, int64(2), resp[1].TotalSold)
}

func TestGetRecentlyPublishedSkipsUndatedBooks(t *testing.T) {
	env := newTestEnv(t)
	older := time.Now().UTC().Add(-48 * time.Hour)
	newer := time.Now().UTC().Add(-24 * time.Hour)

	env.createBook("Undated", "10.00", 5)
	second := env.createBook("Older Release", "10.00", 5)
	require.NoError(t, env.DB.Model(&models.Book{}).Where("id = ?", second.ID).Update("publication_date", older).Error)
	third := env.createBook("Newer Release", "10.00", 5)
	require.NoError(t, env.DB.Model(&models.Book{}).Where("id = ?", third.ID).Update("publication_date", newer).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/books/recently-published", nil)
	require.NoError(t, env.Books.GetRecentlyPublished(c))

	var resp []bookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "Newer Release", resp[0].Title)
	assert.Equal(t, "Older Release", resp[1].Title)
}

func TestGetAwardWinningFiltersExclusiveEditions(t *testing.T) {
	env := newTestEnv(t)
	env.createBook("Ordinary Book", "10.00", 5)
	winner := env.createBook("Prize Winner", "10.00", 5)
	require.NoError(t, env.DB.Model(&models.Book{}).Where("id = ?", winner.ID).Update("is_exclusive", true).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/books/award-winning", nil)
	require.NoError(t, env.Books.GetAwardWinning(c))

	var resp []bookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Prize Winner", resp[0].Title)
}

func TestGetFeaturedOnlyAvailableBooks(t *testing.T) {
	env := newTestEnv(t)
	env.createBook("In Print", "10.00", 5)
	hidden := env.createBook("Out of Print", "10.00", 0)
	require.NoError(t, env.DB.Model(&models.Book{}).
		Where("id = ?", hidden.ID).
		Update("is_available", false).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/books/featured", nil)
	require.NoError(t, env.Books.GetFeatured(c))

	var resp []bookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "In Print", resp[0].Title)
}
