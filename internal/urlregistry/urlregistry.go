// Package urlregistry keeps short URL records in memory and enforces ownership
// on every operation that reads details of, changes or removes a record.
package urlregistry

import (
	"context"
	"fmt"
	"sync"

	"github.com/patric-chuzhbe/tinyapp/internal/accessgate"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

type codeGenerator interface {
	GenerateUnique(taken func(code string) bool) (string, error)
}

// URLRegistry maps short codes to records. It is safe for concurrent use.
type URLRegistry struct {
	mu      sync.RWMutex
	records map[string]*models.URLRecord
	codes   codeGenerator
}

// New creates an empty registry.
func New(codes codeGenerator) *URLRegistry {
	return &URLRegistry{
		records: map[string]*models.URLRecord{},
		codes:   codes,
	}
}

// Create stores longURL under a freshly generated short code owned by ownerID.
// longURL is kept as given, it is not validated.
func (r *URLRegistry) Create(ctx context.Context, ownerID, longURL string) (*models.URLRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, models.ErrNotAuthenticated
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	short, err := r.codes.GenerateUnique(func(code string) bool {
		_, taken := r.records[code]
		return taken
	})
	if err != nil {
		return nil, fmt.Errorf("in internal/urlregistry/urlregistry.go/Create(): error while `r.codes.GenerateUnique()` calling: %w", err)
	}

	record := &models.URLRecord{
		ShortCode: short,
		LongURL:   longURL,
		OwnerID:   ownerID,
	}
	r.records[short] = record

	return copyRecord(record), nil
}

// Get returns the record stored under shortCode or models.ErrNotFound.
// It performs no ownership check; see accessgate for that.
func (r *URLRegistry) Get(ctx context.Context, shortCode string) (*models.URLRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	record, found := r.records[shortCode]
	if !found {
		return nil, models.ErrNotFound
	}

	return copyRecord(record), nil
}

// ListForOwner returns the records owned by ownerID. The result is empty, never nil,
// when the owner has none.
func (r *URLRegistry) ListForOwner(ctx context.Context, ownerID string) (models.UserURLs, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := models.UserURLs{}
	if ownerID == "" {
		return result, nil
	}
	for short, record := range r.records {
		if record.OwnerID == ownerID {
			result[short] = *record
		}
	}

	return result, nil
}

// UpdateLongURL replaces the target of shortCode. It fails with models.ErrNotFound for an
// unknown code and models.ErrForbidden when ownerID is not the owner.
func (r *URLRegistry) UpdateLongURL(ctx context.Context, shortCode, ownerID, newLongURL string) (*models.URLRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record, err := r.getForWrite(shortCode, ownerID)
	if err != nil {
		return nil, err
	}
	record.LongURL = newLongURL

	return copyRecord(record), nil
}

// Delete removes shortCode with the same failure rules as UpdateLongURL.
func (r *URLRegistry) Delete(ctx context.Context, shortCode, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.getForWrite(shortCode, ownerID); err != nil {
		return err
	}
	delete(r.records, shortCode)

	return nil
}

// Resolve returns the long URL behind shortCode for any caller, anonymous included.
func (r *URLRegistry) Resolve(ctx context.Context, shortCode string) (string, error) {
	record, err := r.Get(ctx, shortCode)
	if err != nil {
		return "", err
	}

	return record.LongURL, nil
}

// CountURLs returns the number of stored records.
func (r *URLRegistry) CountURLs(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.records)), nil
}

// getForWrite must be called with r.mu held for writing.
func (r *URLRegistry) getForWrite(shortCode, ownerID string) (*models.URLRecord, error) {
	record, found := r.records[shortCode]
	if !found {
		return nil, models.ErrNotFound
	}
	if !accessgate.CanAccess(record, ownerID, accessgate.Write) {
		logger.Log.Debugln("write access denied", "shortCode", shortCode, "callerID", ownerID)
		return nil, models.ErrForbidden
	}

	return record, nil
}

func copyRecord(record *models.URLRecord) *models.URLRecord {
	result := *record
	return &result
}
