package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/pagecorner/bookstore/internal/hash"
	"github.com/pagecorner/bookstore/internal/models"
	"github.com/pagecorner/bookstore/internal/service/token"
)

// ProfileHandler serves the logged-in member's own account.
type ProfileHandler struct {
	DB *gorm.DB
}

func (h *ProfileHandler) GetDetails(c echo.Context) error {
	p, err := token.CurrentPrincipal(c)
	if err != nil {
		return err
	}

	var member models.User
	if err := h.DB.First(&member, "id = ?", p.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "member not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"first_name": member.FirstName,
		"last_name":  member.LastName,
		"email":      member.Email,
	})
}

func (h *ProfileHandler) ChangePassword(c echo.Context) error {
	p, err := token.CurrentPrincipal(c)
	if err != nil {
		return err
	}

	var req struct {
		NewPassword string `json:"new_password" validate:"required,min=6,max=100"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var member models.User
	if err := h.DB.First(&member, "id = ?", p.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "member not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	passwordHash, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot hash password")
	}
	member.PasswordHash = passwordHash
	if err := h.DB.Save(&member).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
