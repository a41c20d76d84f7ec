package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/pagecorner/bookstore/internal/handlers"
	"github.com/pagecorner/bookstore/internal/logging"
	"github.com/pagecorner/bookstore/internal/models"
	"github.com/pagecorner/bookstore/internal/service/token"
)

type Deps struct {
	DB                  *gorm.DB
	Logger              *slog.Logger
	Tokens              *token.TokenService
	AuthHandler         *handlers.AuthHandler
	BookHandler         *handlers.BookHandler
	CartHandler         *handlers.CartHandler
	OrderHandler        *handlers.OrderHandler
	SaleHandler         *handlers.SaleHandler
	AnnouncementHandler *handlers.AnnouncementHandler
	ReviewHandler       *handlers.ReviewHandler
	ProfileHandler      *handlers.ProfileHandler
	BookmarkHandler     *handlers.BookmarkHandler
	StaffHandler        *handlers.StaffHandler
	StatsHandler        *handlers.StatsHandler
	SearchHandler       *handlers.SearchHandler
}

func withLogger(l *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := logging.IntoContext(req.Context(), l.With("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	if d.Logger != nil {
		e.Use(withLogger(d.Logger))
	}

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)

	books := v1.Group("/books")
	books.GET("", d.BookHandler.GetBooks)
	books.GET("/featured", d.BookHandler.GetFeatured)
	books.GET("/best-sellers", d.BookHandler.GetBestSellers)
	books.GET("/recently-published", d.BookHandler.GetRecentlyPublished)
	books.GET("/recently-created", d.BookHandler.GetRecentlyCreated)
	books.GET("/award-winning", d.BookHandler.GetAwardWinning)
	books.GET("/:id", d.BookHandler.GetBook)
	books.GET("/:id/reviews", d.ReviewHandler.GetBookReviews)

	if d.SearchHandler != nil {
		v1.GET("/search", d.SearchHandler.Search)
	}
	v1.GET("/sales/active", d.SaleHandler.GetActiveSales)
	v1.GET("/announcements", d.AnnouncementHandler.GetActive)

	member := v1.Group("", d.Tokens.Require(models.RoleMember))

	member.GET("/cart", d.CartHandler.ViewCart)
	member.POST("/cart", d.CartHandler.AddToCart)
	member.DELETE("/cart", d.CartHandler.ClearCart)
	member.DELETE("/cart/:id", d.CartHandler.RemoveCartItem)

	member.POST("/orders/checkout", d.OrderHandler.Checkout)
	member.GET("/orders/mine", d.OrderHandler.MyOrders)
	member.DELETE("/orders/items/:id", d.OrderHandler.CancelOrderItem)

	member.POST("/reviews", d.ReviewHandler.SubmitReview)
	member.GET("/reviews/mine", d.ReviewHandler.MyReviews)

	member.GET("/profile", d.ProfileHandler.GetDetails)
	member.PUT("/profile/password", d.ProfileHandler.ChangePassword)

	member.GET("/bookmarks", d.BookmarkHandler.ListBookmarks)
	member.POST("/bookmarks", d.BookmarkHandler.AddBookmark)
	member.DELETE("/bookmarks/:id", d.BookmarkHandler.RemoveBookmark)

	staff := v1.Group("/staff", d.Tokens.Require(models.RoleStaff, models.RoleAdmin))

	staff.GET("/orders", d.OrderHandler.GetAllOrders)
	staff.GET("/orders/:id", d.OrderHandler.GetOrder)
	staff.POST("/orders/:id/complete", d.OrderHandler.CompleteOrder)

	admin := v1.Group("/admin", d.Tokens.Require(models.RoleAdmin))

	admin.POST("/books", d.BookHandler.CreateBook)
	admin.PATCH("/books/:id", d.BookHandler.PatchBook)
	admin.DELETE("/books/:id", d.BookHandler.DeleteBook)

	admin.POST("/sales", d.SaleHandler.AddSale)
	admin.PUT("/sales/:id", d.SaleHandler.EditSale)
	admin.DELETE("/sales/:id", d.SaleHandler.DeleteSale)
	admin.DELETE("/sales/expired", d.SaleHandler.RemoveExpiredSales)

	admin.POST("/announcements", d.AnnouncementHandler.Create)
	admin.DELETE("/announcements/:id", d.AnnouncementHandler.Delete)

	admin.POST("/staff", d.StaffHandler.CreateStaff)
	admin.GET("/staff", d.StaffHandler.ListStaff)
	admin.DELETE("/staff/:id", d.StaffHandler.DeleteStaff)

	admin.GET("/stats/dashboard", d.StatsHandler.Dashboard)
	admin.GET("/stats/sales/day", d.StatsHandler.SalesByDay)
}
