package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/glebarez/sqlite"

	"github.com/pagecorner/bookstore/internal/hash"
	"github.com/pagecorner/bookstore/internal/models"
	"github.com/pagecorner/bookstore/internal/service/token"
	"github.com/pagecorner/bookstore/internal/validation"
)

type recordedEvent struct {
	Topic string
	Key   string
	Event any
}

type fakePublisher struct {
	mu     sync.Mutex
	Events []recordedEvent
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = append(f.Events, recordedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) ByTopic(topic string) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, ev := range f.Events {
		if ev.Topic == topic {
			out = append(out, ev)
		}
	}
	return out
}

type fakeMailer struct {
	mu   sync.Mutex
	Sent []string
}

func (f *fakeMailer) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, to)
	return nil
}

type testEnv struct {
	T      *testing.T
	E      *echo.Echo
	DB     *gorm.DB
	Tokens *token.TokenService
	Pub    *fakePublisher
	Mail   *fakeMailer

	Auth          *AuthHandler
	Books         *BookHandler
	Cart          *CartHandler
	Orders        *OrderHandler
	Sales         *SaleHandler
	Announcements *AnnouncementHandler
	Reviews       *ReviewHandler
	Profile       *ProfileHandler
	Bookmarks     *BookmarkHandler
	Staff         *StaffHandler
	Stats         *StatsHandler
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	e := echo.New()
	e.Validator = validation.New()

	tokens := &token.TokenService{
		DB:            db,
		JWTSecret:     []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
	pub := &fakePublisher{}
	mail := &fakeMailer{}

	return &testEnv{
		T:      t,
		E:      e,
		DB:     db,
		Tokens: tokens,
		Pub:    pub,
		Mail:   mail,

		Auth:          &AuthHandler{DB: db, Tokens: tokens, Producer: pub},
		Books:         &BookHandler{DB: db, Producer: pub},
		Cart:          &CartHandler{DB: db, Producer: pub},
		Orders:        &OrderHandler{DB: db, Producer: pub, Mailer: mail},
		Sales:         &SaleHandler{DB: db},
		Announcements: &AnnouncementHandler{DB: db, Producer: pub},
		Reviews:       &ReviewHandler{DB: db},
		Profile:       &ProfileHandler{DB: db},
		Bookmarks:     &BookmarkHandler{DB: db},
		Staff:         &StaffHandler{DB: db},
		Stats:         &StatsHandler{DB: db},
	}
}

func (env *testEnv) doJSONRequest(method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) createUser(email, role string) models.User {
	passwordHash, err := hash.HashPassword("secret123")
	require.NoError(env.T, err)
	user := models.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	require.NoError(env.T, env.DB.Create(&user).Error)
	return user
}

func (env *testEnv) createBook(title, price string, stock int) models.Book {
	book := models.Book{
		Title:         title,
		Author:        "Some Author",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsAvailable:   true,
	}
	require.NoError(env.T, env.DB.Create(&book).Error)
	return book
}

func (env *testEnv) addToCart(memberID, bookID uuid.UUID, qty int) {
	var cart models.Cart
	err := env.DB.Where("member_id = ?", memberID).First(&cart).Error
	if err != nil {
		cart = models.Cart{MemberID: memberID}
		require.NoError(env.T, env.DB.Create(&cart).Error)
	}
	item := models.CartItem{CartID: cart.ID, BookID: bookID, Quantity: qty}
	require.NoError(env.T, env.DB.Create(&item).Error)
}

// as stamps the principal the role middleware would have resolved.
func as(c echo.Context, user models.User) {
	c.Set("principal", &token.Principal{UserID: user.ID, Role: user.Role})
}
