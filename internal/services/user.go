package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/userdesk/apiserver/internal/auth"
	"github.com/userdesk/apiserver/internal/events"
	"github.com/userdesk/apiserver/internal/store"
	"github.com/userdesk/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	FindConflicting(ctx context.Context, email, nationalID, nickname *string, excludeID int) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, id int, update store.UserUpdate) error
	Delete(ctx context.Context, id int) error
}

// CredentialHasher hashes and verifies user passwords.
type CredentialHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenService issues and validates session tokens.
type TokenService interface {
	Issue(userID int, email string) (string, error)
	Validate(token string) (types.SessionClaims, error)
}

// EventPublisher broadcasts user lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, user types.User) error
}

// NewUserInput carries the fields required to register a user.
type NewUserInput struct {
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Email      string `json:"email"`
	NationalID string `json:"national_id"`
	Nickname   string `json:"nickname"`
	Password   string `json:"password"`
	Role       string `json:"role"`
}

// UserService encapsulates identity use-cases: registration, credential
// verification, session tokens, and user record mutation.
type UserService struct {
	repo   UserRepository
	hasher CredentialHasher
	tokens TokenService
	events EventPublisher
	log    *slog.Logger
}

func NewUserService(repo UserRepository, hasher CredentialHasher, tokens TokenService, publisher EventPublisher, log *slog.Logger) *UserService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &UserService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		events: publisher,
		log:    log,
	}
}

// Register creates a new user. The store's unique indexes are the final
// word on duplicates; the email probe here only rejects the obvious case
// before doing any work.
func (s *UserService) Register(ctx context.Context, input NewUserInput) (types.User, error) {
	if strings.TrimSpace(input.Password) == "" {
		return types.User{}, fmt.Errorf("%w: password is required", ErrValidation)
	}
	if !types.ValidRole(input.Role) {
		return types.User{}, fmt.Errorf("%w: role must be admin, owner, or member", ErrValidation)
	}

	if _, err := s.repo.GetByEmail(ctx, input.Email); err == nil {
		return types.User{}, fmt.Errorf("%w: email", ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmptyPassword) {
			return types.User{}, fmt.Errorf("%w: password is required", ErrValidation)
		}
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Name:         input.Name,
		Surname:      input.Surname,
		Email:        input.Email,
		NationalID:   input.NationalID,
		Nickname:     input.Nickname,
		PasswordHash: hash,
		Role:         input.Role,
		CreatedAt:    time.Now(),
		Active:       true,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrConflict
		}
		return types.User{}, err
	}

	s.publish(ctx, events.UserCreated, user)
	return user, nil
}

// Authenticate verifies the email/password pair. An unknown email and a
// wrong password return the same ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken signs a session token for the given identity. Authentication
// and token issuance are separate steps; callers issue a token only after
// Authenticate succeeds.
func (s *UserService) IssueToken(userID int, email string) (string, error) {
	return s.tokens.Issue(userID, email)
}

// ValidateToken checks a session token and returns the claims it asserts.
func (s *UserService) ValidateToken(token string) (types.SessionClaims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return types.SessionClaims{}, ErrInvalidToken
	}
	return claims, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// List returns all users in creation order. The list is re-read from the
// store on every call.
func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// Update applies a partial update to the user. Unique fields are probed
// for conflicts first and the whole update is aborted on any hit, so a
// failed update never writes partially. The password column is always
// rewritten, either with a hash of the new password or with the existing
// hash unchanged.
func (s *UserService) Update(ctx context.Context, id int, patch types.UserPatch) (types.User, error) {
	if patch.IsEmpty() {
		return types.User{}, fmt.Errorf("%w: no fields to update", ErrValidation)
	}
	if patch.Role != nil && !types.ValidRole(*patch.Role) {
		return types.User{}, fmt.Errorf("%w: role must be admin, owner, or member", ErrValidation)
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}

	if patch.TouchesUnique() {
		_, err := s.repo.FindConflicting(ctx, patch.Email, patch.NationalID, patch.Nickname, id)
		if err == nil {
			return types.User{}, fmt.Errorf("%w: email, national id, or nickname", ErrConflict)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return types.User{}, err
		}
	}

	passwordHash := current.PasswordHash
	if patch.Password != nil {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			if errors.Is(err, auth.ErrEmptyPassword) {
				return types.User{}, fmt.Errorf("%w: password must not be blank", ErrValidation)
			}
			return types.User{}, err
		}
		passwordHash = hash
	}

	update := store.UserUpdate{
		Name:         patch.Name,
		Surname:      patch.Surname,
		Email:        patch.Email,
		NationalID:   patch.NationalID,
		Nickname:     patch.Nickname,
		PasswordHash: passwordHash,
		Role:         patch.Role,
		Active:       patch.Active,
		Image:        patch.Image,
	}
	if err := s.repo.Update(ctx, id, update); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return types.User{}, fmt.Errorf("%w: email, national id, or nickname", ErrConflict)
		case errors.Is(err, store.ErrNotFound):
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	s.publish(ctx, events.UserUpdated, updated)
	return updated, nil
}

// Delete removes the user. Existence is not re-checked here; deleting an
// unknown id is a no-op at the store.
func (s *UserService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.UserDeleted, types.User{ID: id})
	return nil
}

func (s *UserService) publish(ctx context.Context, eventType string, user types.User) {
	if err := s.events.Publish(ctx, eventType, user); err != nil {
		s.log.Warn("failed to publish user event",
			"event", eventType, "user_id", user.ID, "error", err)
	}
}
