// Package mockstorage provides testify-based mocks of the credential store and the
// URL registry, used to unit test the service layer in isolation.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

// CredentialStoreMock mocks the user store.
type CredentialStoreMock struct {
	mock.Mock
}

func (m *CredentialStoreMock) FindByID(ctx context.Context, userID string) (*user.User, bool, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

func (m *CredentialStoreMock) Create(ctx context.Context, email, password string) (*user.User, error) {
	args := m.Called(ctx, email, password)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *CredentialStoreMock) Verify(ctx context.Context, email, password string) (*user.User, error) {
	args := m.Called(ctx, email, password)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *CredentialStoreMock) CountUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// URLRegistryMock mocks the short URL registry.
//
// OnListForOwner, when set, replaces the testify handler for ListForOwner,
// which is convenient for returning maps built per call.
type URLRegistryMock struct {
	mock.Mock

	OnListForOwner func(ctx context.Context, ownerID string) (models.UserURLs, error)
}

func (m *URLRegistryMock) Create(ctx context.Context, ownerID, longURL string) (*models.URLRecord, error) {
	args := m.Called(ctx, ownerID, longURL)
	record, _ := args.Get(0).(*models.URLRecord)
	return record, args.Error(1)
}

func (m *URLRegistryMock) Get(ctx context.Context, shortCode string) (*models.URLRecord, error) {
	args := m.Called(ctx, shortCode)
	record, _ := args.Get(0).(*models.URLRecord)
	return record, args.Error(1)
}

func (m *URLRegistryMock) ListForOwner(ctx context.Context, ownerID string) (models.UserURLs, error) {
	if m.OnListForOwner != nil {
		return m.OnListForOwner(ctx, ownerID)
	}
	args := m.Called(ctx, ownerID)
	urls, _ := args.Get(0).(models.UserURLs)
	return urls, args.Error(1)
}

func (m *URLRegistryMock) UpdateLongURL(ctx context.Context, shortCode, ownerID, newLongURL string) (*models.URLRecord, error) {
	args := m.Called(ctx, shortCode, ownerID, newLongURL)
	record, _ := args.Get(0).(*models.URLRecord)
	return record, args.Error(1)
}

func (m *URLRegistryMock) Delete(ctx context.Context, shortCode, ownerID string) error {
	args := m.Called(ctx, shortCode, ownerID)
	return args.Error(0)
}

func (m *URLRegistryMock) Resolve(ctx context.Context, shortCode string) (string, error) {
	args := m.Called(ctx, shortCode)
	return args.String(0), args.Error(1)
}

func (m *URLRegistryMock) CountURLs(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
