package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pagecorner/bookstore/internal/broker"
	"github.com/pagecorner/bookstore/internal/logging"
	"github.com/pagecorner/bookstore/internal/mailer"
	"github.com/pagecorner/bookstore/internal/models"
	"github.com/pagecorner/bookstore/internal/service/pricing"
	"github.com/pagecorner/bookstore/internal/service/token"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer broker.Publisher
	Mailer   mailer.Mailer

	mail sync.WaitGroup
}

// DrainMail blocks until every in-flight confirmation send has finished.
// Called on shutdown so an SMTP write is not cut off mid-message.
func (h *OrderHandler) DrainMail() {
	h.mail.Wait()
}

// forUpdate takes row locks on postgres so concurrent checkouts cannot race
// past the stock check. sqlite serializes writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, broker.TopicOrderEvents, fmt.Sprint(event["memberID"]), event); err != nil {
		c.Logger().Errorf("event publish error: %v", err)
	}
}

type orderResponse struct {
	OrderID    string             `json:"order_id"`
	TotalPrice decimal.Decimal    `json:"total_price"`
	Status     string             `json:"status"`
	Items      []models.OrderItem `json:"items"`
}

// Checkout turns the member's cart into a pending order. The stock check,
// order insert, stock decrement and cart clear all run in one transaction:
// either the whole order exists or nothing changed.
func (h *OrderHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.checkout")

	p, err := token.CurrentPrincipal(c)
	if err != nil {
		return err
	}

	var (
		order        models.Order
		invoiceLines []mailer.InvoiceLine
	)

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Where("member_id = ?", p.UserID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
			}
			return err
		}

		var items []models.CartItem
		if err := tx.Where("cart_id = ?", cart.ID).Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
		}

		sales, err := pricing.ActiveSales(tx, time.Now().UTC())
		if err != nil {
			return err
		}

		type line struct {
			book models.Book
			qty  int
			unit decimal.Decimal
		}
		lines := make([]line, 0, len(items))

		totalQuantity := 0
		subtotal := decimal.Zero
		for _, it := range items {
			var book models.Book
			if err := forUpdate(tx).First(&book, "id = ?", it.BookID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusBadRequest, "book not found")
				}
				return err
			}
			if it.Quantity > book.StockQuantity {
				return echo.NewHTTPError(http.StatusBadRequest,
					fmt.Sprintf("not enough stock for book %s", book.ID))
			}
			unit := pricing.Effective(book.Price, book.ID, sales)
			totalQuantity += it.Quantity
			subtotal = subtotal.Add(unit.Mul(decimal.NewFromInt(int64(it.Quantity))))
			lines = append(lines, line{book: book, qty: it.Quantity, unit: unit})
		}

		total := pricing.VolumeDiscount(totalQuantity, subtotal)

		order = models.Order{
			MemberID:   p.UserID,
			TotalPrice: total,
			Status:     models.OrderStatusPending,
			CreatedAt:  time.Now().UTC(),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, ln := range lines {
			oi := models.OrderItem{
				OrderID:  order.ID,
				BookID:   ln.book.ID,
				Quantity: ln.qty,
				Price:    ln.unit,
			}
			if err := tx.Create(&oi).Error; err != nil {
				return err
			}
			order.Items = append(order.Items, oi)

			if err := tx.Model(&models.Book{}).
				Where("id = ?", ln.book.ID).
				Update("stock_quantity", gorm.Expr("stock_quantity - ?", ln.qty)).Error; err != nil {
				return err
			}

			invoiceLines = append(invoiceLines, mailer.InvoiceLine{
				Title:    ln.book.Title,
				Quantity: ln.qty,
				Price:    ln.unit,
			})
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return nil
	})

	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			return he
		}
		l.Error("checkout_failed", "status", 500, "memberID", p.UserID, "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "checkout failed")
	}

	h.publish(c, map[string]any{
		"type":     "order_created",
		"memberID": p.UserID,
		"orderID":  order.ID,
		"total":    order.TotalPrice,
	})
	h.sendConfirmation(l, p, &order, invoiceLines)

	l.Info("checkout_success", "orderID", order.ID, "total", order.TotalPrice)
	return c.JSON(http.StatusOK, orderResponse{
		OrderID:    order.ID.String(),
		TotalPrice: order.TotalPrice,
		Status:     order.Status,
		Items:      order.Items,
	})
}

// sendConfirmation mails the invoice off the request path. Delivery failure
// is logged and never surfaces to the caller: the order already committed.
func (h *OrderHandler) sendConfirmation(l *slog.Logger, p *token.Principal, order *models.Order, lines []mailer.InvoiceLine) {
	var member models.User
	if err := h.DB.First(&member, "id = ?", p.UserID).Error; err != nil {
		l.Error("confirmation_skipped", "reason", "member not found", "error", err)
		return
	}

	body := mailer.Invoice(order, lines)
	h.mail.Add(1)
	go func() {
		defer h.mail.Done()
		if err := h.Mailer.Send(member.Email, "Order Confirmation", body); err != nil {
			l.Error("confirmation_send_failed", "orderID", order.ID, "error", err)
		}
	}()
}

// CancelOrderItem restores stock for the item and removes it; the parent
// order goes away with its last item. Only the owner may cancel, and only
// while the order is still pending.
func (h *OrderHandler) CancelOrderItem(c echo.Context) error {
	p, err := token.CurrentPrincipal(c)
	if err != nil {
		return err
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var item models.OrderItem
		err := tx.
			Joins("JOIN orders ON orders.id = order_items.order_id").
			Where("order_items.id = ? AND orders.member_id = ?", id, p.UserID).
			First(&item).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "order item not found")
			}
			return err
		}

		var order models.Order
		if err := tx.First(&order, "id = ?", item.OrderID).Error; err != nil {
			return err
		}
		if order.Status != models.OrderStatusPending {
			return echo.NewHTTPError(http.StatusBadRequest, "only items from pending orders can be canceled")
		}

		if err := tx.Model(&models.Book{}).
			Where("id = ?", item.BookID).
			Update("stock_quantity", gorm.Expr("stock_quantity + ?", item.Quantity)).Error; err != nil {
			return err
		}

		if err := tx.Delete(&item).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&models.OrderItem{}).Where("order_id = ?", item.OrderID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 {
			if err := tx.Delete(&order).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cancel failed")
	}

	h.publish(c, map[string]any{
		"type":     "order_item_canceled",
		"memberID": p.UserID,
		"itemID":   id,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "order item canceled"})
}

// CompleteOrder marks the whole order complete. Completion is deliberately
// order-level: fulfillment hands over every item at once, and review
// eligibility keys off the order status.
func (h *OrderHandler) CompleteOrder(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var order models.Order
	if err := h.DB.First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if order.Status == models.OrderStatusComplete {
		return echo.NewHTTPError(http.StatusBadRequest, "order is already complete")
	}

	order.Status = models.OrderStatusComplete
	if err := h.DB.Save(&order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "order marked as complete"})
}

func (h *OrderHandler) GetAllOrders(c echo.Context) error {
	var orders []models.Order
	if err := h.DB.Preload("Items").Order("created_at DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var order models.Order
	if err := h.DB.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) MyOrders(c echo.Context) error {
	p, err := token.CurrentPrincipal(c)
	if err != nil {
		return err
	}

	var orders []models.Order
	if err := h.DB.Preload("Items").Where("member_id = ?", p.UserID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}
