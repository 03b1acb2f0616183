// Package credentialstore keeps registered users in memory and verifies their passwords.
// Passwords are stored as salted bcrypt hashes only.
package credentialstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

// DefaultHashCost is the bcrypt cost used when none is configured.
const DefaultHashCost = 10

type idGenerator interface {
	GenerateUnique(taken func(code string) bool) (string, error)
}

// CredentialStore holds users keyed by ID. It is safe for concurrent use.
type CredentialStore struct {
	mu       sync.RWMutex
	users    map[string]*user.User
	ids      idGenerator
	hashCost int
}

// New creates an empty store. hashCost is the bcrypt cost for new passwords;
// values outside bcrypt's range fall back to DefaultHashCost.
func New(ids idGenerator, hashCost int) *CredentialStore {
	if hashCost < bcrypt.MinCost || hashCost > bcrypt.MaxCost {
		hashCost = DefaultHashCost
	}

	return &CredentialStore{
		users:    map[string]*user.User{},
		ids:      ids,
		hashCost: hashCost,
	}
}

// FindByEmail scans all users for an exact, case-sensitive email match.
// An empty email is never found.
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, found := s.findByEmail(email)
	if !found {
		return nil, false, nil
	}

	return copyUser(usr), true, nil
}

// FindByID looks a user up by ID.
func (s *CredentialStore) FindByID(ctx context.Context, userID string) (*user.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, found := s.users[userID]
	if !found {
		return nil, false, nil
	}

	return copyUser(usr), true, nil
}

// Create registers a new user. It fails with models.ErrValidation when email or password
// is empty (or the password is longer than bcrypt accepts) and with models.ErrDuplicateEmail
// when the email is taken.
func (s *CredentialStore) Create(ctx context.Context, email, password string) (*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if email == "" || password == "" {
		return nil, models.ErrValidation
	}

	if _, found, err := s.FindByEmail(ctx, email); err != nil {
		return nil, err
	} else if found {
		return nil, models.ErrDuplicateEmail
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/credentialstore/credentialstore.go/Create(): error while `bcrypt.GenerateFromPassword()` calling: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The email may have been registered while the password was being hashed.
	if _, found := s.findByEmail(email); found {
		return nil, models.ErrDuplicateEmail
	}

	userID, err := s.ids.GenerateUnique(func(id string) bool {
		_, taken := s.users[id]
		return taken
	})
	if err != nil {
		return nil, fmt.Errorf("in internal/credentialstore/credentialstore.go/Create(): error while `s.ids.GenerateUnique()` calling: %w", err)
	}

	usr := &user.User{
		ID:           userID,
		Email:        email,
		PasswordHash: passwordHash,
	}
	s.users[userID] = usr
	logger.Log.Debugln("user registered", "userID", userID)

	return copyUser(usr), nil
}

// Verify checks a password against the stored hash. Failures are reported as
// *models.AuthenticationError with ReasonNotFound or ReasonWrongPassword.
func (s *CredentialStore) Verify(ctx context.Context, email, password string) (*user.User, error) {
	usr, found, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &models.AuthenticationError{Reason: models.ReasonNotFound}
	}

	err = bcrypt.CompareHashAndPassword(usr.PasswordHash, []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return nil, &models.AuthenticationError{Reason: models.ReasonWrongPassword}
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/credentialstore/credentialstore.go/Verify(): error while `bcrypt.CompareHashAndPassword()` calling: %w", err)
	}

	return usr, nil
}

// CountUsers returns the number of registered users.
func (s *CredentialStore) CountUsers(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.users)), nil
}

func (s *CredentialStore) findByEmail(email string) (*user.User, bool) {
	if email == "" {
		return nil, false
	}
	for _, usr := range s.users {
		if usr.Email == email {
			return usr, true
		}
	}

	return nil, false
}

func copyUser(usr *user.User) *user.User {
	result := *usr
	return &result
}
