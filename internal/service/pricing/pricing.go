package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pagecorner/bookstore/internal/models"
)

var hundred = decimal.NewFromInt(100)

// ActiveSales returns the sales whose window covers now.
func ActiveSales(db *gorm.DB, now time.Time) ([]models.Sale, error) {
	var sales []models.Sale
	err := db.Where("start_date <= ? AND end_date >= ?", now, now).Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

// Effective applies every active sale covering the book to its base price.
// Storewide sales (nil BookID) stack with book-specific ones, each taking
// its percentage off the running price, matching how the discounts
// compounded when they were one-shot price writes. The base price is never
// touched.
func Effective(base decimal.Decimal, bookID uuid.UUID, sales []models.Sale) decimal.Decimal {
	price := base
	for _, s := range sales {
		if s.BookID != nil && *s.BookID != bookID {
			continue
		}
		pct := decimal.NewFromFloat(s.DiscountPercentage)
		price = price.Sub(price.Mul(pct).Div(hundred))
	}
	return price.Round(2)
}

// EffectiveForBook is the single-book convenience used by read paths.
func EffectiveForBook(db *gorm.DB, book *models.Book, now time.Time) (decimal.Decimal, error) {
	sales, err := ActiveSales(db, now)
	if err != nil {
		return decimal.Zero, err
	}
	return Effective(book.Price, book.ID, sales), nil
}

// VolumeDiscount applies the checkout tier to the subtotal. Tiers are
// evaluated top-down and the first match wins: 10+ items take 10% off,
// 5-9 items take 5% off, fewer take none.
func VolumeDiscount(totalQuantity int, subtotal decimal.Decimal) decimal.Decimal {
	switch {
	case totalQuantity >= 10:
		return subtotal.Mul(decimal.NewFromInt(90)).Div(hundred).Round(2)
	case totalQuantity >= 5:
		return subtotal.Mul(decimal.NewFromInt(95)).Div(hundred).Round(2)
	default:
		return subtotal.Round(2)
	}
}
