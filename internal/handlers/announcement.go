package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/pagecorner/bookstore/internal/broker"
	"github.com/pagecorner/bookstore/internal/logging"
	"github.com/pagecorner/bookstore/internal/models"
)

type AnnouncementHandler struct {
	DB       *gorm.DB
	Producer broker.Publisher
}

// Create persists the announcement and broadcasts its message to everyone
// currently subscribed. Delivery is at-most-once: clients that connect later
// fetch the active list instead.
func (h *AnnouncementHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "announcement.create")

	var req struct {
		Message   string    `json:"message"    validate:"required"`
		ExpiresAt time.Time `json:"expires_at" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	announcement := models.Announcement{
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: req.ExpiresAt.UTC(),
	}
	if err := h.DB.Create(&announcement).Error; err != nil {
		l.Error("create_announcement_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create announcement")
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(pubCtx, broker.TopicAnnouncements, announcement.ID.String(), map[string]any{
		"type":    "announcement",
		"id":      announcement.ID,
		"message": announcement.Message,
	}); err != nil {
		// Broadcast is best-effort; the row is already persisted.
		l.Error("announcement_broadcast_failed", "announcementID", announcement.ID, "error", err)
	}

	l.Info("create_announcement_success", "announcementID", announcement.ID)
	return c.JSON(http.StatusCreated, announcement)
}

// GetActive lists announcements that have not expired yet.
func (h *AnnouncementHandler) GetActive(c echo.Context) error {
	var announcements []models.Announcement
	if err := h.DB.Where("expires_at > ?", time.Now().UTC()).Order("created_at DESC").Find(&announcements).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"announcements": announcements})
}

func (h *AnnouncementHandler) Delete(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	res := h.DB.Delete(&models.Announcement{}, "id = ?", id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "announcement not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "announcement not found")
	}
	return c.NoContent(http.StatusNoContent)
}
