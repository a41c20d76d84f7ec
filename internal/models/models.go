package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RoleMember = "member"
	RoleStaff  = "staff"
	RoleAdmin  = "admin"
)

const (
	OrderStatusPending  = "Pending"
	OrderStatusComplete = "Complete"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	FirstName    string    `gorm:"not null"                 json:"first_name"`
	LastName     string    `gorm:"not null"                 json:"last_name"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null;default:member"  json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"               json:"id"`
	Token     string    `gorm:"unique;not null"          json:"token"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt int64     `gorm:"not null"                 json:"expires_at"`
	Revoked   bool      `gorm:"default:false"            json:"revoked"`
}

type Book struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"  json:"id"`
	Title           string          `gorm:"not null;index"        json:"title"`
	Author          string          `gorm:"not null"              json:"author"`
	Description     string          `json:"description"`
	Genre           string          `json:"genre"`
	Price           decimal.Decimal `gorm:"type:numeric;not null" json:"price"`
	StockQuantity   int             `gorm:"not null;check:stock_quantity >= 0" json:"stock_quantity"`
	Language        string          `json:"language"`
	Format          string          `json:"format"`
	Publisher       string          `json:"publisher"`
	ISBN            string          `gorm:"column:isbn"           json:"isbn"`
	CoverImage      string          `json:"cover_image"`
	PublicationDate *time.Time      `json:"publication_date,omitempty"`
	IsAvailable     bool            `gorm:"default:true"          json:"is_available"`
	IsExclusive     bool            `gorm:"default:false"         json:"is_exclusive"`
	CreatedAt       time.Time       `json:"created_at"`
}

type Cart struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"           json:"id"`
	MemberID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"member_id"`
}

type CartItem struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CartID   uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_cart_book" json:"cart_id"`
	BookID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_book"       json:"book_id"`
	Quantity int       `gorm:"not null;check:quantity > 0" json:"quantity"`
}

type Order struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"     json:"id"`
	MemberID   uuid.UUID       `gorm:"type:uuid;index;not null" json:"member_id"`
	TotalPrice decimal.Decimal `gorm:"type:numeric;not null"    json:"total_price"`
	Status     string          `gorm:"not null;default:Pending" json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	Items      []OrderItem     `gorm:"foreignKey:OrderID"       json:"items,omitempty"`
}

// OrderItem.Price is the unit price at purchase time. It is written once at
// checkout and never updated, even when the book's live price changes.
type OrderItem struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey"     json:"id"`
	OrderID  uuid.UUID       `gorm:"type:uuid;index;not null" json:"order_id"`
	BookID   uuid.UUID       `gorm:"type:uuid;not null"       json:"book_id"`
	Quantity int             `gorm:"not null"                 json:"quantity"`
	Price    decimal.Decimal `gorm:"type:numeric;not null"    json:"price"`
}

// Sale is a discount rule, not a price mutation: the percentage applies to
// the book's base price whenever the current time falls inside the window.
// A nil BookID means the sale covers the whole catalog.
type Sale struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookID             *uuid.UUID `gorm:"type:uuid;index"      json:"book_id,omitempty"`
	DiscountPercentage float64    `gorm:"not null"             json:"discount_percentage"`
	StartDate          time.Time  `gorm:"not null"             json:"start_date"`
	EndDate            time.Time  `gorm:"not null;index"       json:"end_date"`
}

type Announcement struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Message   string    `gorm:"not null"             json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"index;not null"       json:"expires_at"`
}

type Review struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	BookID    uuid.UUID `gorm:"type:uuid;index;not null" json:"book_id"`
	MemberID  uuid.UUID `gorm:"type:uuid;index;not null" json:"member_id"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type Bookmark struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_member_book" json:"member_id"`
	BookID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_member_book" json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

func All() []any {
	return []any{
		&User{}, &RefreshToken{}, &Book{}, &Cart{}, &CartItem{},
		&Order{}, &OrderItem{}, &Sale{}, &Announcement{},
		&Review{}, &Bookmark{},
	}
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (b *Book) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (ci *CartItem) BeforeCreate(*gorm.DB) error {
	if ci.ID == uuid.Nil {
		ci.ID = uuid.New()
	}
	return nil
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (oi *OrderItem) BeforeCreate(*gorm.DB) error {
	if oi.ID == uuid.Nil {
		oi.ID = uuid.New()
	}
	return nil
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (a *Announcement) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (b *Bookmark) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
