package token

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/pagecorner/bookstore/internal/models"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
)

// Principal is the authenticated caller, resolved once by the middleware
// and handed to handlers instead of raw claims.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

type TokenService struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
}

func CreateCookie(name, value, path string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (t *TokenService) SignAccessToken(userID uuid.UUID, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"exp":  time.Now().Add(AccessTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.JWTSecret)
}

func (t *TokenService) SignRefreshToken(userID uuid.UUID, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"exp":  time.Now().Add(RefreshTTL).Unix(),
		"typ":  "refresh",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.RefreshSecret)
}

func (t *TokenService) SaveRefreshToken(token string, userID uuid.UUID) error {
	stored := models.RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().Add(RefreshTTL).Unix(),
	}
	if err := t.DB.Create(&stored).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (t *TokenService) ValidateRefresh(rawToken string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(rawToken, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.RefreshSecret, nil
	})
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("cannot parse claims")
	}
	if typ, ok := claims["typ"]; !ok || typ != "refresh" {
		return nil, errors.New("not a refresh token")
	}

	var stored models.RefreshToken
	if err := t.DB.Where("token = ?", rawToken).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("refresh token not found")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if stored.Revoked {
		return nil, errors.New("refresh token revoked")
	}
	if time.Now().Unix() > stored.ExpiresAt {
		return nil, errors.New("refresh token expired")
	}

	return claims, nil
}

func (t *TokenService) RotateToken(rawToken string) (string, string, jwt.MapClaims, error) {
	claims, err := t.ValidateRefresh(rawToken)
	if err != nil {
		return "", "", nil, err
	}

	userID, role, err := principalFromClaims(claims)
	if err != nil {
		return "", "", nil, err
	}

	newAccess, err := t.SignAccessToken(userID, role)
	if err != nil {
		return "", "", nil, err
	}
	newRefresh, err := t.SignRefreshToken(userID, role)
	if err != nil {
		return "", "", nil, err
	}
	if err := t.SaveRefreshToken(newRefresh, userID); err != nil {
		return "", "", nil, err
	}

	return newAccess, newRefresh, claims, nil
}

func (t *TokenService) RevokeRefresh(rawToken string) error {
	result := t.DB.Model(&models.RefreshToken{}).
		Where("token = ?", rawToken).
		Update("revoked", true)
	if result.Error != nil {
		return fmt.Errorf("db error: %w", result.Error)
	}
	return nil
}

// checkCookie validates the access cookie, silently rotating an expired one
// off the refresh cookie the way the original middleware did.
func (t *TokenService) checkCookie(c echo.Context) (*Principal, error) {
	asCookie, err := c.Cookie("accessToken")
	if err == nil && asCookie.Value != "" {
		tok, err := jwt.Parse(asCookie.Value, func(tok *jwt.Token) (interface{}, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.JWTSecret, nil
		})
		if err == nil && tok.Valid {
			claims := tok.Claims.(jwt.MapClaims)
			userID, role, err := principalFromClaims(claims)
			if err != nil {
				return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
			}
			return &Principal{UserID: userID, Role: role}, nil
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
	}

	rfCookie, err := c.Cookie("refreshToken")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}
	newAccess, newRefresh, claims, err := t.RotateToken(rfCookie.Value)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "cannot rotate token: "+err.Error())
	}

	c.SetCookie(CreateCookie("accessToken", newAccess, "/", time.Now().Add(AccessTTL)))
	c.SetCookie(CreateCookie("refreshToken", newRefresh, "/", time.Now().Add(RefreshTTL)))

	userID, role, err := principalFromClaims(claims)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	return &Principal{UserID: userID, Role: role}, nil
}

// Require authenticates the request and checks the principal's role against
// the allowed set. An empty set means any authenticated user.
func (t *TokenService) Require(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := t.checkCookie(c)
			if err != nil {
				return err
			}
			if len(allowed) > 0 {
				if _, ok := allowed[p.Role]; !ok {
					return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
				}
			}
			c.Set("principal", p)
			return next(c)
		}
	}
}

func CurrentPrincipal(c echo.Context) (*Principal, error) {
	p, ok := c.Get("principal").(*Principal)
	if !ok || p == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing principal")
	}
	return p, nil
}

func principalFromClaims(claims jwt.MapClaims) (uuid.UUID, string, error) {
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, "", errors.New("invalid subject claim")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid subject claim: %w", err)
	}
	role, ok := claims["role"].(string)
	if !ok {
		return uuid.Nil, "", errors.New("invalid role claim")
	}
	return userID, role, nil
}
