package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/userdesk/apiserver/internal/auth"
	"github.com/userdesk/apiserver/internal/store"
	"github.com/userdesk/apiserver/types"
)

// memRepo is an in-memory UserRepository enforcing the same uniqueness
// rules as the users table.
type memRepo struct {
	nextID int
	users  map[int]types.User
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, users: map[int]types.User{}}
}

func (m *memRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memRepo) List(ctx context.Context) ([]types.User, error) {
	users := make([]types.User, 0, len(m.users))
	for id := 1; id < m.nextID; id++ {
		if user, ok := m.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (m *memRepo) FindConflicting(ctx context.Context, email, nationalID, nickname *string, excludeID int) (types.User, error) {
	for _, user := range m.users {
		if user.ID == excludeID {
			continue
		}
		if email != nil && user.Email == *email {
			return user, nil
		}
		if nationalID != nil && user.NationalID == *nationalID {
			return user, nil
		}
		if nickname != nil && user.Nickname == *nickname {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memRepo) hasConflict(candidate types.User, excludeID int) bool {
	for _, user := range m.users {
		if user.ID == excludeID {
			continue
		}
		if user.Email == candidate.Email || user.NationalID == candidate.NationalID || user.Nickname == candidate.Nickname {
			return true
		}
	}
	return false
}

func (m *memRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if m.hasConflict(user, 0) {
		return types.User{}, store.ErrConflict
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return user, nil
}

func (m *memRepo) Update(ctx context.Context, id int, update store.UserUpdate) error {
	user, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&user.Name, update.Name)
	apply(&user.Surname, update.Surname)
	apply(&user.Email, update.Email)
	apply(&user.NationalID, update.NationalID)
	apply(&user.Nickname, update.Nickname)
	apply(&user.Role, update.Role)
	apply(&user.Image, update.Image)
	user.PasswordHash = update.PasswordHash
	if update.Active != nil {
		user.Active = *update.Active
	}
	if m.hasConflict(user, id) {
		return store.ErrConflict
	}
	m.users[id] = user
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id int) error {
	delete(m.users, id)
	return nil
}

func newTestService(t *testing.T) (*UserService, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	svc := NewUserService(repo, auth.NewPasswordHasher(), auth.NewTokenService("test-secret"), nil, nil)
	return svc, repo
}

func validInput() NewUserInput {
	return NewUserInput{
		Name:       "Ana",
		Surname:    "García",
		Email:      "u1@x.com",
		NationalID: "A1",
		Nickname:   "u1",
		Password:   "p1",
		Role:       types.RoleMember,
	}
}

func TestRegister_Success(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	assert.Equal(t, "u1@x.com", user.Email)
	assert.True(t, user.Active)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "p1", user.PasswordHash)
	assert.False(t, user.CreatedAt.IsZero())

	byID, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	byEmail, err := svc.Authenticate(ctx, "u1@x.com", "p1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestRegister_BlankPassword(t *testing.T) {
	svc, repo := newTestService(t)

	for _, password := range []string{"", "   "} {
		input := validInput()
		input.Password = password
		_, err := svc.Register(context.Background(), input)
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.Empty(t, repo.users)
}

func TestRegister_InvalidRole(t *testing.T) {
	svc, repo := newTestService(t)

	input := validInput()
	input.Role = "superuser"
	_, err := svc.Register(context.Background(), input)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, repo.users)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	second := validInput()
	second.NationalID = "A2"
	second.Nickname = "u2"
	_, err = svc.Register(ctx, second)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Len(t, repo.users, 1)
}

func TestRegister_DuplicateNickname(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	// Same nickname with a fresh email passes the email probe; the store
	// constraint is the backstop.
	second := validInput()
	second.Email = "u2@x.com"
	second.NationalID = "A2"
	_, err = svc.Register(ctx, second)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAuthenticate_FailuresIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	_, wrongPassword := svc.Authenticate(ctx, "u1@x.com", "wrong")
	_, unknownEmail := svc.Authenticate(ctx, "nobody@x.com", "anything")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestIssueAndValidateToken(t *testing.T) {
	svc, _ := newTestService(t)

	token, err := svc.IssueToken(7, "a@b.com")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.SubjectID)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(auth.TokenTTL), claims.ExpiresAt, time.Minute)

	_, err = svc.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUpdate_NicknameOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	nick := "u1b"
	updated, err := svc.Update(ctx, created.ID, types.UserPatch{Nickname: &nick})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "u1b", updated.Nickname)
	assert.Equal(t, created.Email, updated.Email)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	// Password untouched; the original credentials still authenticate.
	_, err = svc.Authenticate(ctx, "u1@x.com", "p1")
	assert.NoError(t, err)
}

func TestUpdate_EmailConflictAborts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	second := validInput()
	second.Email = "new@x.com"
	second.NationalID = "A2"
	second.Nickname = "u2"
	_, err = svc.Register(ctx, second)
	require.NoError(t, err)

	taken := "new@x.com"
	_, err = svc.Update(ctx, first.ID, types.UserPatch{Email: &taken})
	assert.ErrorIs(t, err, ErrConflict)

	unchanged, err := svc.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1@x.com", unchanged.Email)
}

func TestUpdate_NewPasswordRotatesCredential(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	newPassword := "p2"
	_, err = svc.Update(ctx, created.ID, types.UserPatch{Password: &newPassword})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "u1@x.com", "p1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "u1@x.com", "p2")
	assert.NoError(t, err)
}

func TestUpdate_UnknownID(t *testing.T) {
	svc, _ := newTestService(t)

	name := "X"
	_, err := svc.Update(context.Background(), 42, types.UserPatch{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_EmptyPatch(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), 1, types.UserPatch{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDelete_ThenAuthenticateFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Authenticate(ctx, "u1@x.com", "p1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDelete_UnknownIDIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	assert.NoError(t, svc.Delete(context.Background(), 99))
}

func TestList_CreationOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		input := validInput()
		input.Email = email
		input.NationalID = input.NationalID + string(rune('0'+i))
		input.Nickname = input.Nickname + string(rune('0'+i))
		_, err := svc.Register(ctx, input)
		require.NoError(t, err)
	}

	users, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "a@x.com", users[0].Email)
	assert.Equal(t, "c@x.com", users[2].Email)
}
