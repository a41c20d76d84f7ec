package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/pagecorner/bookstore/internal/models"
	"github.com/pagecorner/bookstore/internal/service/token"
)

type BookmarkHandler struct {
	DB *gorm.DB
}

func (h *BookmarkHandler) AddBookmark(c echo.Context) error {
	p, err := token.CurrentPrincipal(c)
	if err != nil {
		return err
	}

	var req struct {
		BookID uuid.UUID `json:"book_id" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var book models.Book
	if err := h.DB.First(&book, "id = ?", req.BookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "book not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var existing models.Bookmark
	result := h.DB.Where("member_id = ? AND book_id = ?", p.UserID, req.BookID).First(&existing)
	if result.Error == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "book is already bookmarked")
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, result.Error.Error())
	}

	bookmark := models.Bookmark{
		MemberID:  p.UserID,
		BookID:    req.BookID,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.DB.Create(&bookmark).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot save bookmark")
	}

	return c.JSON(http.StatusCreated, bookmark)
}

func (h *BookmarkHandler) RemoveBookmark(c echo.Context) error {
	p, err := token.CurrentPrincipal(c)
	if err != nil {
		return err
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	res := h.DB.Where("id = ? AND member_id = ?", id, p.UserID).Delete(&models.Bookmark{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "bookmark not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BookmarkHandler) ListBookmarks(c echo.Context) error {
	p, err := token.CurrentPrincipal(c)
	if err != nil {
		return err
	}

	var bookmarks []models.Bookmark
	if err := h.DB.Where("member_id = ?", p.UserID).Order("created_at DESC").Find(&bookmarks).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"bookmarks": bookmarks})
}
