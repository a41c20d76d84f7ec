package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/pagecorner/bookstore/internal/hash"
	"github.com/pagecorner/bookstore/internal/models"
)

// StaffHandler covers the admin-only management of staff accounts.
type StaffHandler struct {
	DB *gorm.DB
}

func (h *StaffHandler) CreateStaff(c echo.Context) error {
	var req struct {
		FirstName string `json:"first_name" validate:"required,max=25"`
		LastName  string `json:"last_name"  validate:"required,max=25"`
		Email     string `json:"email"      validate:"required,email"`
		Password  string `json:"password"   validate:"required,min=6,max=100"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var existing models.User
	result := h.DB.Where("email = ?", req.Email).First(&existing)
	if result.Error == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "email is already registered")
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, result.Error.Error())
	}

	passwordHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot hash password")
	}

	staff := models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         models.RoleStaff,
	}
	if err := h.DB.Create(&staff).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, staff)
}

func (h *StaffHandler) ListStaff(c echo.Context) error {
	var staff []models.User
	if err := h.DB.Where("role = ?", models.RoleStaff).Order("created_at ASC").Find(&staff).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"staff": staff})
}

func (h *StaffHandler) DeleteStaff(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	res := h.DB.Where("id = ? AND role = ?", id, models.RoleStaff).Delete(&models.User{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "staff member not found")
	}
	return c.NoContent(http.StatusNoContent)
}
