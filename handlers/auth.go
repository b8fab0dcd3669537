// backend/handlers/auth.go
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/gewnthar/lottometeo/backend/models"
)

// AdminSubject is the subject every admin token carries.
const AdminSubject = "admin"

// Auth failure reasons reported in the response envelope.
const (
	ReasonUnauthorized = "unauthorized"
	ReasonForbidden    = "forbidden"
)

// IssueAdminToken signs an HS256 admin token. ttl <= 0 issues a token without expiry.
func IssueAdminToken(secret []byte, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("admin secret is empty")
	}
	claims := jwt.RegisteredClaims{
		Subject:  AdminSubject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// AdminAuth validates the Authorization header against secret. With an empty
// secret every request passes.
func AdminAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if len(secret) == 0 {
			return next
		}
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return deny(c, http.StatusUnauthorized, ReasonUnauthorized, "missing authorization header")
			}
			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

			claims := &jwt.RegisteredClaims{}
			tkn, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return deny(c, http.StatusUnauthorized, ReasonUnauthorized, "token expired")
				}
				return deny(c, http.StatusUnauthorized, ReasonUnauthorized, "invalid token")
			}
			if !tkn.Valid || claims.Subject != AdminSubject {
				return deny(c, http.StatusForbidden, ReasonForbidden, "admin access required")
			}
			return next(c)
		}
	}
}

func deny(c echo.Context, code int, reason, message string) error {
	return c.JSON(code, models.APIResponse{Success: false, Message: message, Reason: reason})
}
