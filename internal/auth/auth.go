// Package auth implements the session capability: a signed JWT carried in a cookie
// that holds at most one user id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

type userFinder interface {
	FindByID(ctx context.Context, userID string) (*user.User, bool, error)
}

// Auth issues, validates and clears session cookies.
type Auth struct {
	// db resolves the user id of a session to an existing user.
	db userFinder

	// authCookieName is the name of the cookie used to store the JWT.
	authCookieName string

	// authCookieSigningSecretKey is the key used to sign JWTs.
	authCookieSigningSecretKey []byte

	// sessionTTL is the lifetime of a session from issuance.
	sessionTTL time.Duration
}

// Claims represents the JWT claims of a session.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key under which the authenticated user's ID is stored.
const UserIDKey ContextKey = "userID"

// ErrInvalidTokenOrJwtParsing is returned for tokens that are malformed, expired
// or signed with another key.
var ErrInvalidTokenOrJwtParsing = errors.New("invalid token or JWT parsing error")

const notAuthenticatedMessage = "Please log in or register"

// New creates an Auth.
func New(
	db userFinder,
	authCookieName string,
	authCookieSigningSecretKey []byte,
	sessionTTL time.Duration,
) *Auth {
	return &Auth{
		db:                         db,
		authCookieName:             authCookieName,
		authCookieSigningSecretKey: authCookieSigningSecretKey,
		sessionTTL:                 sessionTTL,
	}
}

// UserIDFromContext returns the authenticated user id, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// AuthenticateUser puts the session's user id into the request context when the token is
// valid and the user still exists. Anything else leaves the request anonymous.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		tokenString := a.getTokenStringFromCookie(request)
		if tokenString == "" {
			h.ServeHTTP(response, request)
			return
		}

		userID, err := a.GetUserIDFromToken(tokenString)
		if err != nil {
			logger.Log.Debugln("Error calling the `a.GetUserIDFromToken()`: ", zap.Error(err))
			h.ServeHTTP(response, request)
			return
		}

		_, found, err := a.db.FindByID(request.Context(), userID)
		if err != nil {
			logger.Log.Debugln("Error calling the `a.db.FindByID()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !found {
			h.ServeHTTP(response, request)
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, userID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// RequireUser answers 401 to anonymous requests. It must run after AuthenticateUser.
func (a *Auth) RequireUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if UserIDFromContext(request.Context()) == "" {
			http.Error(response, notAuthenticatedMessage, http.StatusUnauthorized)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// IssueSession sets a session cookie for userID valid for the configured TTL.
func (a *Auth) IssueSession(response http.ResponseWriter, userID string) error {
	now := time.Now()
	expiresAt := now.Add(a.sessionTTL)

	JWTString, err := a.BuildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	})
	if err != nil {
		return fmt.Errorf("in internal/auth/auth.go/IssueSession(): error while `a.BuildJWTString()` calling: %w", err)
	}

	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    JWTString,
			Path:     "/",
			Expires:  expiresAt,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	)

	return nil
}

// ClearSession drops the whole session cookie.
func (a *Auth) ClearSession(response http.ResponseWriter) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	)
}

// GetUserIDFromToken validates tokenString and returns the user id it carries.
func (a *Auth) GetUserIDFromToken(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.authCookieSigningSecretKey, nil
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidTokenOrJwtParsing, err)
	}
	if !token.Valid || claims.UserID == "" {
		return "", ErrInvalidTokenOrJwtParsing
	}

	return claims.UserID, nil
}

// BuildJWTString signs claims with HS256.
func (a *Auth) BuildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.authCookieSigningSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// getTokenStringFromCookie reads the session token. Only the cookie carries a session,
// an Authorization header is ignored.
func (a *Auth) getTokenStringFromCookie(request *http.Request) string {
	cookie, err := request.Cookie(a.authCookieName)
	if err != nil {
		return ""
	}

	return cookie.Value
}
