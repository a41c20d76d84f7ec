package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagecorner/bookstore/internal/models"
)

func TestAddBookmarkRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	member := env.createUser("marker@example.com", models.RoleMember)
	book := env.createBook("Saved Book", "10.00", 5)

	body := echo.Map{"book_id": book.ID}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/bookmarks", body)
	as(c, member)
	require.NoError(t, env.Bookmarks.AddBookmark(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	_, c = env.doJSONRequest(http.MethodPost, "/api/v1/bookmarks", body)
	as(c, member)
	err := env.Bookmarks.AddBookmark(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestAddBookmarkRejectsMissingBookID(t *testing.T) {
	env := newTestEnv(t)
	member := env.createUser("blank@example.com", models.RoleMember)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/bookmarks", echo.Map{})
	as(c, member)
	err := env.Bookmarks.AddBookmark(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestRemoveBookmarkScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser("bmowner@example.com", models.RoleMember)
	other := env.createUser("bmother@example.com", models.RoleMember)
	book := env.createBook("Marked Book", "10.00", 5)

	bookmark := models.Bookmark{MemberID: owner.ID, BookID: book.ID}
	require.NoError(t, env.DB.Create(&bookmark).Error)

	_, c := env.doJSONRequest(http.MethodDelete, "/api/v1/bookmarks/"+bookmark.ID.String(), nil)
	c.SetParamNames("id")
	c.SetParamValues(bookmark.ID.String())
	as(c, other)
	err := env.Bookmarks.RemoveBookmark(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Code)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/v1/bookmarks/"+bookmark.ID.String(), nil)
	c.SetParamNames("id")
	c.SetParamValues(bookmark.ID.String())
	as(c, owner)
	require.NoError(t, env.Bookmarks.RemoveBookmark(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListBookmarksScopedToMember(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser("bmalice@example.com", models.RoleMember)
	bob := env.createUser("bmbob@example.com", models.RoleMember)
	book := env.createBook("Popular Book", "10.00", 5)

	require.NoError(t, env.DB.Create(&models.Bookmark{MemberID: alice.ID, BookID: book.ID}).Error)
	require.NoError(t, env.DB.Create(&models.Bookmark{MemberID: bob.ID, BookID: book.ID}).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/bookmarks", nil)
	as(c, alice)
	require.NoError(t, env.Bookmarks.ListBookmarks(c))

	var resp struct {
		Bookmarks []models.Bookmark `json:"bookmarks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Bookmarks, 1)
	assert.Equal(t, alice.ID, resp.Bookmarks[0].MemberID)
}
