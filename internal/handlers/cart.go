package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pagecorner/bookstore/internal/broker"
	"github.com/pagecorner/bookstore/internal/models"
	"github.com/pagecorner/bookstore/internal/service/pricing"
	"github.com/pagecorner/bookstore/internal/service/token"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer broker.Publisher
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, broker.TopicOrderEvents, fmt.Sprint(event["memberID"]), event); err != nil {
		c.Logger().Errorf("event publish error: %v", err)
	}
}

// cartFor returns the member's cart, creating it on first use.
func cartFor(db *gorm.DB, memberID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := db.Where("member_id = ?", memberID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	cart = models.Cart{MemberID: memberID}
	if err := db.Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	p, err := token.CurrentPrincipal(c)
	if err != nil {
		return err
	}

	var req struct {
		BookID   uuid.UUID `json:"book_id"  validate:"required"`
		Quantity int       `json:"quantity" validate:"gte=1"`
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
	if book.StockQuantity < req.Quantity {
		return echo.NewHTTPError(http.StatusBadRequest, "not enough stock available")
	}

	cart, err := cartFor(h.DB, p.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var item models.CartItem
	tx := h.DB.Where("cart_id = ? AND book_id = ?", cart.ID, req.BookID).First(&item)
	if tx.Error == nil {
		item.Quantity += req.Quantity
		if item.Quantity > book.StockQuantity {
			return echo.NewHTTPError(http.StatusBadRequest, "not enough stock available for the updated quantity")
		}
		if err := h.DB.Save(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		h.publish(c, map[string]any{
			"type":     "cart_item_added",
			"memberID": p.UserID,
			"bookID":   req.BookID,
			"quantity": item.Quantity,
		})
		return c.JSON(http.StatusOK, item)
	}
	if !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, tx.Error.Error())
	}

	newItem := models.CartItem{
		CartID:   cart.ID,
		BookID:   req.BookID,
		Quantity: req.Quantity,
	}
	if err := h.DB.Create(&newItem).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.publish(c, map[string]any{
		"type":     "cart_item_added",
		"memberID": p.UserID,
		"bookID":   req.BookID,
		"quantity": newItem.Quantity,
	})
	return c.JSON(http.StatusOK, newItem)
}

type cartLineView struct {
	ItemID    uuid.UUID       `json:"item_id"`
	BookID    uuid.UUID       `json:"book_id"`
	Title     string          `json:"title"`
	Cover     string          `json:"cover_image"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func (h *CartHandler) ViewCart(c echo.Context) error {
	p, err := token.CurrentPrincipal(c)
	if err != nil {
		return err
	}

	cart, err := cartFor(h.DB, p.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.CartItem
	if err := h.DB.Where("cart_id = ?", cart.ID).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	sales, err := pricing.ActiveSales(h.DB, time.Now().UTC())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	lines := make([]cartLineView, 0, len(items))
	total := decimal.Zero
	for _, it := range items {
		var book models.Book
		if err := h.DB.First(&book, "id = ?", it.BookID).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		unit := pricing.Effective(book.Price, book.ID, sales)
		lineTotal := unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(lineTotal)
		lines = append(lines, cartLineView{
			ItemID:    it.ID,
			BookID:    it.BookID,
			Title:     book.Title,
			Cover:     book.CoverImage,
			Quantity:  it.Quantity,
			UnitPrice: unit,
			LineTotal: lineTotal,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"cart_id": cart.ID,
		"items":   lines,
		"total":   total,
	})
}

func (h *CartHandler) RemoveCartItem(c echo.Context) error {
	p, err := token.CurrentPrincipal(c)
	if err != nil {
		return err
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var item models.CartItem
	err = h.DB.
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.member_id = ?", id, p.UserID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.DB.Delete(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":     "cart_item_removed",
		"memberID": p.UserID,
		"itemID":   id,
	})
	return c.JSON(http.StatusOK, echo.Map{"removed_item": id})
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	p, err := token.CurrentPrincipal(c)
	if err != nil {
		return err
	}

	cart, err := cartFor(h.DB, p.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.DB.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":     "cart_cleared",
		"memberID": p.UserID,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "cart cleared"})
}
