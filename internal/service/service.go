// Package service implements the use cases behind the HTTP handlers: registration,
// login, and owner-scoped management of short URLs.
package service

import (
	"context"
	"sort"
	"strings"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/tinyapp/internal/accessgate"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

type credentialStore interface {
	FindByID(ctx context.Context, userID string) (*user.User, bool, error)
	Create(ctx context.Context, email, password string) (*user.User, error)
	Verify(ctx context.Context, email, password string) (*user.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

type urlRegistry interface {
	Create(ctx context.Context, ownerID, longURL string) (*models.URLRecord, error)
	Get(ctx context.Context, shortCode string) (*models.URLRecord, error)
	ListForOwner(ctx context.Context, ownerID string) (models.UserURLs, error)
	UpdateLongURL(ctx context.Context, shortCode, ownerID, newLongURL string) (*models.URLRecord, error)
	Delete(ctx context.Context, shortCode, ownerID string) error
	Resolve(ctx context.Context, shortCode string) (string, error)
	CountURLs(ctx context.Context) (int64, error)
}

// Error kinds surfaced to the handlers.
var (
	ErrValidation       = models.ErrValidation
	ErrDuplicateEmail   = models.ErrDuplicateEmail
	ErrAuthentication   = models.ErrAuthentication
	ErrNotAuthenticated = models.ErrNotAuthenticated
	ErrNotFound         = models.ErrNotFound
	ErrForbidden        = models.ErrForbidden
)

// RedirectPathPrefix is the path under which short codes are resolved.
const RedirectPathPrefix = "/u/"

type Service struct {
	users        credentialStore
	urls         urlRegistry
	shortURLBase string
}

func New(
	users credentialStore,
	urls urlRegistry,
	shortURLBase string,
) *Service {
	return &Service{
		users:        users,
		urls:         urls,
		shortURLBase: strings.TrimRight(shortURLBase, "/"),
	}
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, email, password string) (*user.User, error) {
	return s.users.Create(ctx, email, password)
}

// Login checks credentials. The failure reason stays in the logs.
func (s *Service) Login(ctx context.Context, email, password string) (*user.User, error) {
	if email == "" || password == "" {
		return nil, ErrValidation
	}

	usr, err := s.users.Verify(ctx, email, password)
	if err != nil {
		logger.Log.Debugln("login failed", "email", email, "reason", err)
		return nil, err
	}

	return usr, nil
}

// GetUser returns the user with the given ID, if any.
func (s *Service) GetUser(ctx context.Context, userID string) (*user.User, bool, error) {
	if userID == "" {
		return nil, false, nil
	}

	return s.users.FindByID(ctx, userID)
}

// ShortenURL creates a record for longURL owned by userID.
func (s *Service) ShortenURL(ctx context.Context, userID, longURL string) (*models.URLRecord, error) {
	return s.urls.Create(ctx, userID, longURL)
}

// GetUserURLs lists the caller's records ordered by short code.
func (s *Service) GetUserURLs(ctx context.Context, userID string) ([]models.UserURL, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	records, err := s.urls.ListForOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	shortCodes := funk.Keys(records).([]string)
	sort.Strings(shortCodes)

	result := make([]models.UserURL, 0, len(shortCodes))
	for _, short := range shortCodes {
		result = append(result, s.toUserURL(records[short]))
	}

	return result, nil
}

// GetURLForCaller returns a record for its detail view. Non-owners get ErrForbidden,
// so the existence of the code is not hidden.
func (s *Service) GetURLForCaller(ctx context.Context, shortCode, callerID string) (models.UserURL, error) {
	if callerID == "" {
		return models.UserURL{}, ErrNotAuthenticated
	}

	record, err := s.urls.Get(ctx, shortCode)
	if err != nil {
		return models.UserURL{}, err
	}
	if !accessgate.CanAccess(record, callerID, accessgate.Read) {
		logger.Log.Debugln("read access denied", "shortCode", shortCode, "callerID", callerID)
		return models.UserURL{}, ErrForbidden
	}

	return s.toUserURL(*record), nil
}

// UpdateURL points shortCode at newLongURL on behalf of its owner.
func (s *Service) UpdateURL(ctx context.Context, shortCode, callerID, newLongURL string) (models.UserURL, error) {
	if callerID == "" {
		return models.UserURL{}, ErrNotAuthenticated
	}

	record, err := s.urls.UpdateLongURL(ctx, shortCode, callerID, newLongURL)
	if err != nil {
		return models.UserURL{}, err
	}

	return s.toUserURL(*record), nil
}

// DeleteURL removes shortCode on behalf of its owner.
func (s *Service) DeleteURL(ctx context.Context, shortCode, callerID string) error {
	if callerID == "" {
		return ErrNotAuthenticated
	}

	return s.urls.Delete(ctx, shortCode, callerID)
}

// GetOriginalURL resolves a short code for anyone.
func (s *Service) GetOriginalURL(ctx context.Context, shortCode string) (string, error) {
	return s.urls.Resolve(ctx, shortCode)
}

// GetInternalStats returns the number of stored URLs and registered users.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	urls, err := s.urls.CountURLs(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	users, err := s.users.CountUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		URLs:  urls,
		Users: users,
	}, nil
}

// GetShortURL returns the public link for a short code.
func (s *Service) GetShortURL(shortCode string) string {
	return s.shortURLBase + RedirectPathPrefix + shortCode
}

func (s *Service) toUserURL(record models.URLRecord) models.UserURL {
	return models.UserURL{
		ShortCode: record.ShortCode,
		ShortURL:  s.GetShortURL(record.ShortCode),
		LongURL:   record.LongURL,
	}
}
