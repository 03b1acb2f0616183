package router

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/tinyapp/internal/auth"
	"github.com/patric-chuzhbe/tinyapp/internal/credentialstore"
	"github.com/patric-chuzhbe/tinyapp/internal/idgenerator"
	"github.com/patric-chuzhbe/tinyapp/internal/ipchecker"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/service"
	"github.com/patric-chuzhbe/tinyapp/internal/urlregistry"
	"github.com/patric-chuzhbe/tinyapp/internal/views"
)

const (
	testShortURLBase = "http://localhost:8080"
	testCookieName   = "session"
	testSubnet       = "127.0.0.0/8"
)

var testSigningKey = []byte("tinyapp-router-test-signing-key!")

func setupTestRouter(t *testing.T, trustedSubnet string) *httptest.Server {
	ids := idgenerator.New()
	users := credentialstore.New(ids, bcrypt.MinCost)
	urls := urlregistry.New(ids)

	renderer, err := views.New()
	if t != nil {
		require.NoError(t, err)
	}

	checker, err := ipchecker.New(trustedSubnet)
	if t != nil {
		require.NoError(t, err)
	}

	theRouter := New(
		service.New(users, urls, testShortURLBase),
		auth.New(users, testCookieName, testSigningKey, 24*time.Hour),
		renderer,
		checker,
	)

	return httptest.NewServer(theRouter)
}

// newClient keeps cookies between requests and does not follow redirects.
func newClient() *resty.Client {
	client := resty.New()
	client.GetClient().CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return client
}

func register(t *testing.T, client *resty.Client, serverURL, email, password string) *resty.Response {
	t.Helper()

	resp, err := client.R().
		SetFormData(map[string]string{"email": email, "password": password}).
		Post(serverURL + "/register")
	require.NoError(t, err)

	return resp
}

func shorten(t *testing.T, client *resty.Client, serverURL, longURL string) string {
	t.Helper()

	resp, err := client.R().
		SetFormData(map[string]string{"longURL": longURL}).
		Post(serverURL + "/urls")
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode())

	location := resp.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/urls/"), location)

	return strings.TrimPrefix(location, "/urls/")
}

func TestRegisterShortenResolveDelete(t *testing.T) {
	server := setupTestRouter(t, testSubnet)
	defer server.Close()

	owner := newClient()
	resp := register(t, owner, server.URL, "a@x.com", "pw1")
	assert.Equal(t, http.StatusFound, resp.StatusCode())
	assert.Equal(t, "/urls", resp.Header().Get("Location"))

	code := shorten(t, owner, server.URL, "https://example.com")
	assert.Len(t, code, idgenerator.CodeLength)

	resp, err := owner.R().Get(server.URL + "/urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.String(), "a@x.com")
	assert.Contains(t, resp.String(), testShortURLBase+"/u/"+code)
	assert.Contains(t, resp.String(), "https://example.com")

	resp, err = owner.R().Get(server.URL + "/urls/" + code)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	resp, err = newClient().R().Get(server.URL + "/u/" + code)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode())
	assert.Equal(t, "https://example.com", resp.Header().Get("Location"))

	stranger := newClient()
	register(t, stranger, server.URL, "b@x.com", "pw2")

	resp, err = stranger.R().Get(server.URL + "/urls/" + code)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	assert.Contains(t, resp.String(), "You do not have access to this URL")

	resp, err = stranger.R().Post(server.URL + "/urls/" + code + "/delete")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())

	resp, err = owner.R().Post(server.URL + "/urls/" + code + "/delete")
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode())
	assert.Equal(t, "/urls", resp.Header().Get("Location"))

	resp, err = owner.R().Get(server.URL + "/urls/" + code)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	resp, err = newClient().R().Get(server.URL + "/u/" + code)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Contains(t, resp.String(), "URL not found")
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	server := setupTestRouter(t, testSubnet)
	defer server.Close()

	testCases := []struct {
		method string
		path   string
	}{
		{method: http.MethodGet, path: "/urls"},
		{method: http.MethodGet, path: "/urls.json"},
		{method: http.MethodGet, path: "/urls/new"},
		{method: http.MethodGet, path: "/urls/b6utxq"},
		{method: http.MethodPost, path: "/urls"},
		{method: http.MethodPost, path: "/urls/b6utxq"},
		{method: http.MethodPost, path: "/urls/b6utxq/delete"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.method+" "+testCase.path, func(t *testing.T) {
			resp, err := newClient().R().Execute(testCase.method, server.URL+testCase.path)
			require.NoError(t, err)

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
			assert.Contains(t, resp.String(), "Please log in or register")
		})
	}
}

func TestForgedSessionIsAnonymous(t *testing.T) {
	server := setupTestRouter(t, testSubnet)
	defer server.Close()

	resp, err := newClient().R().
		SetCookie(&http.Cookie{Name: testCookieName, Value: "forged.token.value"}).
		Get(server.URL + "/urls")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
}

func TestPostRegisterErrors(t *testing.T) {
	server := setupTestRouter(t, testSubnet)
	defer server.Close()

	register(t, newClient(), server.URL, "user@example.com", "pw")

	testCases := []struct {
		name     string
		email    string
		password string
		wantBody string
	}{
		{name: "empty email", email: "", password: "pw", wantBody: "Email or password is empty"},
		{name: "empty password", email: "new@example.com", password: "", wantBody: "Email or password is empty"},
		{name: "duplicate email", email: "user@example.com", password: "other", wantBody: "Email is already in the database"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp := register(t, newClient(), server.URL, testCase.email, testCase.password)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
			assert.Contains(t, resp.String(), testCase.wantBody)
			assert.Empty(t, resp.Cookies())
		})
	}
}

func TestPostLogin(t *testing.T) {
	server := setupTestRouter(t, testSubnet)
	defer server.Close()

	register(t, newClient(), server.URL, "user@example.com", "right")

	testCases := []struct {
		name       string
		email      string
		password   string
		wantStatus int
	}{
		{name: "valid credentials", email: "user@example.com", password: "right", wantStatus: http.StatusFound},
		{name: "wrong password", email: "user@example.com", password: "wrong", wantStatus: http.StatusBadRequest},
		{name: "unknown email", email: "nonexistent@example.com", password: "right", wantStatus: http.StatusBadRequest},
		{name: "email differs in case", email: "USER@example.com", password: "right", wantStatus: http.StatusBadRequest},
		{name: "missing password", email: "user@example.com", password: "", wantStatus: http.StatusBadRequest},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			client := newClient()
			resp, err := client.R().
				SetFormData(map[string]string{"email": testCase.email, "password": testCase.password}).
				Post(server.URL + "/login")
			require.NoError(t, err)

			assert.Equal(t, testCase.wantStatus, resp.StatusCode())
			if testCase.wantStatus != http.StatusFound {
				assert.Empty(t, resp.Cookies())
				return
			}

			assert.Equal(t, "/urls", resp.Header().Get("Location"))
			require.Len(t, resp.Cookies(), 1)
			assert.Equal(t, testCookieName, resp.Cookies()[0].Name)

			resp, err = client.R().Get(server.URL + "/urls")
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode())
		})
	}
}

func TestPostLogout(t *testing.T) {
	server := setupTestRouter(t, testSubnet)
	defer server.Close()

	client := newClient()
	register(t, client, server.URL, "user@example.com", "pw")

	resp, err := client.R().Post(server.URL + "/logout")
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode())
	assert.Equal(t, "/login", resp.Header().Get("Location"))

	resp, err = client.R().Get(server.URL + "/urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
}

func TestRootAndAuthPagesRedirect(t *testing.T) {
	server := setupTestRouter(t, testSubnet)
	defer server.Close()

	anonymous := newClient()
	loggedIn := newClient()
	register(t, loggedIn, server.URL, "user@example.com", "pw")

	testCases := []struct {
		name         string
		client       *resty.Client
		path         string
		wantStatus   int
		wantLocation string
	}{
		{name: "root anonymous", client: anonymous, path: "/", wantStatus: http.StatusFound, wantLocation: "/login"},
		{name: "root logged in", client: loggedIn, path: "/", wantStatus: http.StatusFound, wantLocation: "/urls"},
		{name: "login page anonymous", client: anonymous, path: "/login", wantStatus: http.StatusOK},
		{name: "login page logged in", client: loggedIn, path: "/login", wantStatus: http.StatusFound, wantLocation: "/urls"},
		{name: "register page anonymous", client: anonymous, path: "/register", wantStatus: http.StatusOK},
		{name: "register page logged in", client: loggedIn, path: "/register", wantStatus: http.StatusFound, wantLocation: "/urls"},
		{name: "new URL form logged in", client: loggedIn, path: "/urls/new", wantStatus: http.StatusOK},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := testCase.client.R().Get(server.URL + testCase.path)
			require.NoError(t, err)

			assert.Equal(t, testCase.wantStatus, resp.StatusCode())
			assert.Equal(t, testCase.wantLocation, resp.Header().Get("Location"))
		})
	}
}

func TestPostUrlsid(t *testing.T) {
	server := setupTestRouter(t, testSubnet)
	defer server.Close()

	owner := newClient()
	register(t, owner, server.URL, "owner@example.com", "pw")
	code := shorten(t, owner, server.URL, "https://www.tsn.ca")

	stranger := newClient()
	register(t, stranger, server.URL, "stranger@example.com", "pw")

	testCases := []struct {
		name       string
		client     *resty.Client
		code       string
		wantStatus int
	}{
		{name: "stranger", client: stranger, code: code, wantStatus: http.StatusForbidden},
		{name: "unknown code", client: owner, code: "zzzzzz", wantStatus: http.StatusNotFound},
		{name: "owner", client: owner, code: code, wantStatus: http.StatusFound},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := testCase.client.R().
				SetFormData(map[string]string{"longURL": "https://www.google.ca"}).
				Post(server.URL + "/urls/" + testCase.code)
			require.NoError(t, err)
			assert.Equal(t, testCase.wantStatus, resp.StatusCode())
		})
	}

	resp, err := newClient().R().Get(server.URL + "/u/" + code)
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.ca", resp.Header().Get("Location"))
}

func TestGetUrlsjsonListsOnlyOwnRecords(t *testing.T) {
	server := setupTestRouter(t, testSubnet)
	defer server.Close()

	owner := newClient()
	register(t, owner, server.URL, "owner@example.com", "pw")
	first := shorten(t, owner, server.URL, "https://www.tsn.ca")
	second := shorten(t, owner, server.URL, "https://www.google.ca")

	other := newClient()
	register(t, other, server.URL, "other@example.com", "pw")
	shorten(t, other, server.URL, "https://example.com")

	resp, err := owner.R().Get(server.URL + "/urls.json")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))

	var list []models.UserURL
	require.NoError(t, json.Unmarshal(resp.Body(), &list))
	require.Len(t, list, 2)

	codes := []string{list[0].ShortCode, list[1].ShortCode}
	assert.ElementsMatch(t, []string{first, second}, codes)
	assert.LessOrEqual(t, list[0].ShortCode, list[1].ShortCode)
}

func TestGetApiinternalstats(t *testing.T) {
	server := setupTestRouter(t, testSubnet)
	defer server.Close()

	client := newClient()
	register(t, client, server.URL, "user@example.com", "pw")
	shorten(t, client, server.URL, "https://example.com")
	shorten(t, client, server.URL, "https://example.org")

	resp, err := newClient().R().Get(server.URL + "/api/internal/stats")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var stats models.InternalStatsResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &stats))
	assert.Equal(t, models.InternalStatsResponse{URLs: 2, Users: 1}, stats)

	resp, err = newClient().R().
		SetHeader("X-Real-IP", "203.0.113.7").
		Get(server.URL + "/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
}

func TestGetApiinternalstatsWithoutTrustedSubnet(t *testing.T) {
	server := setupTestRouter(t, "")
	defer server.Close()

	resp, err := newClient().R().Get(server.URL + "/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
}

func TestPagesAreGzipped(t *testing.T) {
	server := setupTestRouter(t, testSubnet)
	defer server.Close()

	request, err := http.NewRequest(http.MethodGet, server.URL+"/login", nil)
	require.NoError(t, err)
	request.Header.Set("Accept-Encoding", "gzip")

	client := &http.Client{Transport: &http.Transport{DisableCompression: true}}
	resp, err := client.Do(request)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(body), `action="/login"`)
}
