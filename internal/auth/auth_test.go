package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/tinyapp/internal/credentialstore"
	"github.com/patric-chuzhbe/tinyapp/internal/idgenerator"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

const testCookieName = "session"

var testSigningKey = []byte("tinyapp-session-signing-key-0001")

func newTestAuth(t *testing.T) (*Auth, *user.User) {
	t.Helper()

	users := credentialstore.New(idgenerator.New(), bcrypt.MinCost)
	usr, err := users.Create(context.Background(), "user@example.com", "pw")
	require.NoError(t, err)

	return New(users, testCookieName, testSigningKey, 24*time.Hour), usr
}

func echoUserID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserIDFromContext(r.Context())))
	})
}

func issueCookie(t *testing.T, theAuth *Auth, userID string) *http.Cookie {
	t.Helper()

	recorder := httptest.NewRecorder()
	require.NoError(t, theAuth.IssueSession(recorder, userID))
	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)

	return cookies[0]
}

func TestIssueSessionCookie(t *testing.T) {
	theAuth, usr := newTestAuth(t)
	before := time.Now()

	cookie := issueCookie(t, theAuth, usr.ID)

	assert.Equal(t, testCookieName, cookie.Name)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.WithinDuration(t, before.Add(24*time.Hour), cookie.Expires, 2*time.Second)

	userID, err := theAuth.GetUserIDFromToken(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, userID)
}

func TestAuthenticateUser(t *testing.T) {
	theAuth, usr := newTestAuth(t)
	handler := theAuth.AuthenticateUser(echoUserID())

	validCookie := issueCookie(t, theAuth, usr.ID)
	unknownUserCookie := issueCookie(t, theAuth, "ghost1")

	expiredToken, err := theAuth.BuildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		UserID: usr.ID,
	})
	require.NoError(t, err)

	foreignAuth := New(nil, testCookieName, []byte("another-signing-key-of-32-bytes!"), time.Hour)
	foreignToken, err := foreignAuth.BuildJWTString(&Claims{UserID: usr.ID})
	require.NoError(t, err)

	testCases := []struct {
		name   string
		cookie *http.Cookie
		header string
		want   string
	}{
		{name: "valid cookie", cookie: validCookie, want: usr.ID},
		{name: "Authorization header is not a session", header: validCookie.Value, want: ""},
		{name: "no credentials", want: ""},
		{name: "garbage token", cookie: &http.Cookie{Name: testCookieName, Value: "garbage"}, want: ""},
		{name: "expired token", cookie: &http.Cookie{Name: testCookieName, Value: expiredToken}, want: ""},
		{name: "token signed with another key", cookie: &http.Cookie{Name: testCookieName, Value: foreignToken}, want: ""},
		{name: "user no longer exists", cookie: unknownUserCookie, want: ""},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if testCase.cookie != nil {
				request.AddCookie(testCase.cookie)
			}
			if testCase.header != "" {
				request.Header.Set("Authorization", testCase.header)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusOK, recorder.Code)
			assert.Equal(t, testCase.want, recorder.Body.String())
		})
	}
}

func TestGetUserIDFromTokenRejectsForeignSigningMethod(t *testing.T) {
	theAuth, _ := newTestAuth(t)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "aj48lw"})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = theAuth.GetUserIDFromToken(tokenString)
	assert.ErrorIs(t, err, ErrInvalidTokenOrJwtParsing)
}

func TestRequireUser(t *testing.T) {
	theAuth, usr := newTestAuth(t)
	handler := theAuth.AuthenticateUser(theAuth.RequireUser(echoUserID()))

	t.Run("anonymous", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/urls", nil))

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Please log in or register")
	})

	t.Run("logged in", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/urls", nil)
		request.AddCookie(issueCookie(t, theAuth, usr.ID))
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, usr.ID, recorder.Body.String())
	})
}

func TestClearSession(t *testing.T) {
	theAuth, _ := newTestAuth(t)
	recorder := httptest.NewRecorder()

	theAuth.ClearSession(recorder)

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
