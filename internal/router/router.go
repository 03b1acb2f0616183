// Package router wires the HTTP surface of TinyApp: server-rendered pages for
// registration, login and URL management, the public short-link redirect, and a
// couple of JSON endpoints.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/auth"
	"github.com/patric-chuzhbe/tinyapp/internal/gzippedhttp"
	"github.com/patric-chuzhbe/tinyapp/internal/idgenerator"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/service"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
	"github.com/patric-chuzhbe/tinyapp/internal/views"
)

type urlService interface {
	Register(ctx context.Context, email, password string) (*user.User, error)
	Login(ctx context.Context, email, password string) (*user.User, error)
	GetUser(ctx context.Context, userID string) (*user.User, bool, error)
	ShortenURL(ctx context.Context, userID, longURL string) (*models.URLRecord, error)
	GetUserURLs(ctx context.Context, userID string) ([]models.UserURL, error)
	GetURLForCaller(ctx context.Context, shortCode, callerID string) (models.UserURL, error)
	UpdateURL(ctx context.Context, shortCode, callerID, newLongURL string) (models.UserURL, error)
	DeleteURL(ctx context.Context, shortCode, callerID string) error
	GetOriginalURL(ctx context.Context, shortCode string) (string, error)
	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)
}

type authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
	RequireUser(h http.Handler) http.Handler
	IssueSession(response http.ResponseWriter, userID string) error
	ClearSession(response http.ResponseWriter)
}

type renderer interface {
	Render(response http.ResponseWriter, status int, name string, data views.Page) error
}

type trustedSubnetGate interface {
	TrustedSubnetOnly(h http.Handler) http.Handler
}

// Router holds the collaborators of the HTTP handlers.
type Router struct {
	svc      urlService
	auth     authenticator
	views    renderer
	validate *validator.Validate
}

// Response messages.
const (
	msgNotAuthenticated = "Please log in or register"
	msgNotFound         = "URL not found"
	msgForbidden        = "You do not have access to this URL"
	msgValidation       = "Email or password is empty"
	msgDuplicateEmail   = "Email is already in the database"
	msgAuthentication   = "User not found"
	msgInternal         = "Internal server error"
)

// New builds the chi router with its middleware chain.
func New(
	svc urlService,
	sessions authenticator,
	pages renderer,
	ipChecker trustedSubnetGate,
) *chi.Mux {
	r := &Router{
		svc:      svc,
		auth:     sessions,
		views:    pages,
		validate: validator.New(),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(logger.WithLoggingHTTPMiddleware)
	router.Use(middleware.Recoverer)
	router.Use(gzippedhttp.UngzipRequest)
	router.Use(gzippedhttp.GzipResponse)
	router.Use(sessions.AuthenticateUser)

	router.Get(`/`, r.GetRoot)
	router.Get(`/ping`, r.GetPing)
	router.Get(service.RedirectPathPrefix+`{id}`, r.GetRedirecttolongurl)

	router.Get(`/register`, r.GetRegister)
	router.Post(`/register`, r.PostRegister)
	router.Get(`/login`, r.GetLogin)
	router.Post(`/login`, r.PostLogin)
	router.Post(`/logout`, r.PostLogout)

	router.With(ipChecker.TrustedSubnetOnly).Get(`/api/internal/stats`, r.GetApiinternalstats)

	router.Group(func(group chi.Router) {
		group.Use(sessions.RequireUser)
		group.Get(`/urls`, r.GetUrls)
		group.Get(`/urls.json`, r.GetUrlsjson)
		group.Get(`/urls/new`, r.GetUrlsnew)
		group.Post(`/urls`, r.PostUrls)
		group.Get(`/urls/{id}`, r.GetUrlsid)
		group.Post(`/urls/{id}`, r.PostUrlsid)
		group.Post(`/urls/{id}/delete`, r.PostUrlsiddelete)
	})

	return router
}

// GetRoot sends logged in users to their URLs and everybody else to the login page.
func (r *Router) GetRoot(response http.ResponseWriter, request *http.Request) {
	if auth.UserIDFromContext(request.Context()) != "" {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}
	http.Redirect(response, request, "/login", http.StatusFound)
}

func (r *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	response.WriteHeader(http.StatusOK)
}

// GetRedirecttolongurl resolves a short code for any caller.
func (r *Router) GetRedirecttolongurl(response http.ResponseWriter, request *http.Request) {
	longURL, err := r.svc.GetOriginalURL(request.Context(), chi.URLParam(request, "id"))
	if errors.Is(err, service.ErrNotFound) {
		http.Error(response, msgNotFound, http.StatusBadRequest)
		return
	}
	if err != nil {
		r.writeServiceError(response, err)
		return
	}

	http.Redirect(response, request, longURL, http.StatusFound)
}

func (r *Router) GetRegister(response http.ResponseWriter, request *http.Request) {
	r.renderAuthPage(response, request, views.Register)
}

func (r *Router) GetLogin(response http.ResponseWriter, request *http.Request) {
	r.renderAuthPage(response, request, views.Login)
}

// PostRegister creates the account and logs it in.
func (r *Router) PostRegister(response http.ResponseWriter, request *http.Request) {
	form, err := r.parseCredentials(request)
	if err != nil {
		r.writeServiceError(response, err)
		return
	}

	usr, err := r.svc.Register(request.Context(), form.Email, form.Password)
	if err != nil {
		r.writeServiceError(response, err)
		return
	}

	r.startSession(response, request, usr.ID)
}

func (r *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	form, err := r.parseCredentials(request)
	if err != nil {
		r.writeServiceError(response, err)
		return
	}

	usr, err := r.svc.Login(request.Context(), form.Email, form.Password)
	if err != nil {
		r.writeServiceError(response, err)
		return
	}

	r.startSession(response, request, usr.ID)
}

// PostLogout drops the whole session.
func (r *Router) PostLogout(response http.ResponseWriter, request *http.Request) {
	r.auth.ClearSession(response)
	http.Redirect(response, request, "/login", http.StatusFound)
}

func (r *Router) GetUrls(response http.ResponseWriter, request *http.Request) {
	page, ok := r.pageForCaller(response, request)
	if !ok {
		return
	}

	userURLs, err := r.svc.GetUserURLs(request.Context(), page.User.ID)
	if err != nil {
		r.writeServiceError(response, err)
		return
	}
	page.URLs = userURLs

	r.render(response, http.StatusOK, views.URLsIndex, page)
}

// GetUrlsjson returns the caller's own records.
func (r *Router) GetUrlsjson(response http.ResponseWriter, request *http.Request) {
	userURLs, err := r.svc.GetUserURLs(request.Context(), auth.UserIDFromContext(request.Context()))
	if err != nil {
		r.writeServiceError(response, err)
		return
	}

	r.writeJSON(response, userURLs)
}

func (r *Router) GetUrlsnew(response http.ResponseWriter, request *http.Request) {
	page, ok := r.pageForCaller(response, request)
	if !ok {
		return
	}

	r.render(response, http.StatusOK, views.URLsNew, page)
}

func (r *Router) PostUrls(response http.ResponseWriter, request *http.Request) {
	form, err := r.parseLongURL(request)
	if err != nil {
		r.writeServiceError(response, err)
		return
	}

	record, err := r.svc.ShortenURL(request.Context(), auth.UserIDFromContext(request.Context()), form.LongURL)
	if err != nil {
		r.writeServiceError(response, err)
		return
	}

	http.Redirect(response, request, "/urls/"+record.ShortCode, http.StatusFound)
}

func (r *Router) GetUrlsid(response http.ResponseWriter, request *http.Request) {
	page, ok := r.pageForCaller(response, request)
	if !ok {
		return
	}

	userURL, err := r.svc.GetURLForCaller(request.Context(), chi.URLParam(request, "id"), page.User.ID)
	if err != nil {
		r.writeServiceError(response, err)
		return
	}
	page.URL = userURL

	r.render(response, http.StatusOK, views.URLsShow, page)
}

// PostUrlsid points an owned short code at a new long URL.
func (r *Router) PostUrlsid(response http.ResponseWriter, request *http.Request) {
	form, err := r.parseLongURL(request)
	if err != nil {
		r.writeServiceError(response, err)
		return
	}

	_, err = r.svc.UpdateURL(
		request.Context(),
		chi.URLParam(request, "id"),
		auth.UserIDFromContext(request.Context()),
		form.LongURL,
	)
	if err != nil {
		r.writeServiceError(response, err)
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

func (r *Router) PostUrlsiddelete(response http.ResponseWriter, request *http.Request) {
	err := r.svc.DeleteURL(
		request.Context(),
		chi.URLParam(request, "id"),
		auth.UserIDFromContext(request.Context()),
	)
	if err != nil {
		r.writeServiceError(response, err)
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

// GetApiinternalstats is mounted behind the trusted subnet gate.
func (r *Router) GetApiinternalstats(response http.ResponseWriter, request *http.Request) {
	stats, err := r.svc.GetInternalStats(request.Context())
	if err != nil {
		r.writeServiceError(response, err)
		return
	}

	r.writeJSON(response, stats)
}

func (r *Router) renderAuthPage(response http.ResponseWriter, request *http.Request, name string) {
	usr, found, err := r.svc.GetUser(request.Context(), auth.UserIDFromContext(request.Context()))
	if err != nil {
		r.writeServiceError(response, err)
		return
	}
	if found {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}

	r.render(response, http.StatusOK, name, views.Page{User: usr})
}

// pageForCaller loads the session user for the layout. It writes the error response itself
// and returns false when the request cannot proceed.
func (r *Router) pageForCaller(response http.ResponseWriter, request *http.Request) (views.Page, bool) {
	usr, found, err := r.svc.GetUser(request.Context(), auth.UserIDFromContext(request.Context()))
	if err != nil {
		r.writeServiceError(response, err)
		return views.Page{}, false
	}
	if !found {
		r.writeServiceError(response, service.ErrNotAuthenticated)
		return views.Page{}, false
	}

	return views.Page{User: usr}, true
}

func (r *Router) startSession(response http.ResponseWriter, request *http.Request, userID string) {
	err := r.auth.IssueSession(response, userID)
	if err != nil {
		r.writeServiceError(response, err)
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

func (r *Router) parseCredentials(request *http.Request) (models.CredentialsForm, error) {
	err := request.ParseForm()
	if err != nil {
		logger.Log.Debugln("Error calling the `request.ParseForm()`: ", zap.Error(err))
		return models.CredentialsForm{}, service.ErrValidation
	}

	form := models.CredentialsForm{
		Email:    request.PostForm.Get("email"),
		Password: request.PostForm.Get("password"),
	}
	err = r.validate.Struct(form)
	if err != nil {
		logger.Log.Debugln("credentials form rejected", zap.Error(err))
		return models.CredentialsForm{}, service.ErrValidation
	}

	return form, nil
}

func (r *Router) parseLongURL(request *http.Request) (models.LongURLForm, error) {
	err := request.ParseForm()
	if err != nil {
		logger.Log.Debugln("Error calling the `request.ParseForm()`: ", zap.Error(err))
		return models.LongURLForm{}, errMalformedForm
	}

	return models.LongURLForm{LongURL: request.PostForm.Get("longURL")}, nil
}

var errMalformedForm = errors.New("malformed form body")

func (r *Router) render(response http.ResponseWriter, status int, name string, page views.Page) {
	err := r.views.Render(response, status, name, page)
	if err != nil {
		logger.Log.Errorln("Error calling the `r.views.Render()`: ", zap.Error(err))
		http.Error(response, msgInternal, http.StatusInternalServerError)
	}
}

func (r *Router) writeJSON(response http.ResponseWriter, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorln("Error calling the `json.Marshal()`: ", zap.Error(err))
		http.Error(response, msgInternal, http.StatusInternalServerError)
		return
	}

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusOK)
	_, err = response.Write(body)
	if err != nil {
		logger.Log.Debugln("Error calling the `response.Write()`: ", zap.Error(err))
	}
}

func (r *Router) writeServiceError(response http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		http.Error(response, msgNotAuthenticated, http.StatusUnauthorized)
	case errors.Is(err, service.ErrNotFound):
		http.Error(response, msgNotFound, http.StatusNotFound)
	case errors.Is(err, service.ErrForbidden):
		http.Error(response, msgForbidden, http.StatusForbidden)
	case errors.Is(err, service.ErrValidation):
		http.Error(response, msgValidation, http.StatusBadRequest)
	case errors.Is(err, service.ErrDuplicateEmail):
		http.Error(response, msgDuplicateEmail, http.StatusBadRequest)
	case errors.Is(err, service.ErrAuthentication):
		http.Error(response, msgAuthentication, http.StatusBadRequest)
	case errors.Is(err, errMalformedForm):
		http.Error(response, err.Error(), http.StatusBadRequest)
	case errors.Is(err, idgenerator.ErrIdentifierSpaceExhausted):
		logger.Log.Errorln("identifier space exhausted", zap.Error(err))
		http.Error(response, msgInternal, http.StatusInternalServerError)
	default:
		logger.Log.Errorln("unexpected error", zap.Error(err))
		http.Error(response, msgInternal, http.StatusInternalServerError)
	}
}
