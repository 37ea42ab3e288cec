package auth

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/db/testdb"
	"github.com/genovault/genovault/internal/web/session"
)

// memStorage is a minimal in-memory storage.Storage for tests.
type memStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.Storage = (*memStorage)(nil)

func (s *memStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.data[key]
	out := make([]byte, len(v))
	copy(out, v)

	return out, nil
}

func (s *memStorage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(val))
	copy(buf, val)
	s.data[key] = buf

	return nil
}

func (s *memStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)

	return nil
}

func (s *memStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)

	return nil
}

func (s *memStorage) Close() error { return nil }

func initSessionStore() {
	session.Init(&memStorage{data: make(map[string][]byte)})
}

func createUser(t *testing.T, db *gorm.DB, username string, admin bool) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        username + "@example.org",
		PasswordHash: models.HashPassword("hunter2"),
		IsAdmin:      admin,
	}
	require.NoError(t, db.Create(user).Error)

	return user
}

func loginSession(t *testing.T, userID uint64) string {
	t.Helper()

	sessionID, err := session.GenerateSessionID()
	require.NoError(t, err)

	data := &session.Data{UserID: userID}
	require.NoError(t, data.Write(sessionID, time.Minute))

	return sessionID
}

func TestLocalAuthenticate(t *testing.T) {
	db := testdb.Open(t)
	provider := NewLocalProvider(db)

	createUser(t, db, "alice", false)

	user, err := provider.Authenticate("alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotNil(t, user.LastLogin)

	_, err = provider.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = provider.Authenticate("nobody", "hunter2")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLocalAuthenticateDeactivated(t *testing.T) {
	db := testdb.Open(t)
	provider := NewLocalProvider(db)

	user := createUser(t, db, "bob", false)
	require.NoError(t, db.Model(user).Update("deactivated", true).Error)

	_, err := provider.Authenticate("bob", "hunter2")
	assert.ErrorIs(t, err, ErrUserDeactivated)
}

func resolveRequest(t *testing.T, svc *Service, sessionID, query string) (*Identity, error) {
	t.Helper()

	app := fiber.New()

	var (
		identity *Identity
		err      error
	)

	app.Get("/probe", func(c *fiber.Ctx) error {
		identity, err = svc.Resolve(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe"+query, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: sessionID})
	}

	resp, testErr := app.Test(req, -1)
	require.NoError(t, testErr)
	defer resp.Body.Close()

	return identity, err
}

func TestResolveSession(t *testing.T) {
	db := testdb.Open(t)
	initSessionStore()

	svc := NewService(db, nil)
	user := createUser(t, db, "carol", false)
	sessionID := loginSession(t, user.ID)

	identity, err := resolveRequest(t, svc, sessionID, "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.Actor.ID)
	assert.Equal(t, user.ID, identity.User.ID)
	assert.False(t, identity.Impersonating())
}

func TestResolveNoCredentials(t *testing.T) {
	db := testdb.Open(t)
	initSessionStore()

	svc := NewService(db, nil)

	_, err := resolveRequest(t, svc, "", "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestResolveDeactivatedSession(t *testing.T) {
	db := testdb.Open(t)
	initSessionStore()

	svc := NewService(db, nil)
	user := createUser(t, db, "dave", false)
	sessionID := loginSession(t, user.ID)

	// deactivation cuts off live sessions on the next request
	require.NoError(t, db.Model(user).Update("deactivated", true).Error)

	_, err := resolveRequest(t, svc, sessionID, "")
	assert.ErrorIs(t, err, ErrUserDeactivated)
}

func TestResolveImpersonation(t *testing.T) {
	db := testdb.Open(t)
	initSessionStore()

	svc := NewService(db, nil)
	admin := createUser(t, db, "root", true)
	target := createUser(t, db, "erin", false)
	sessionID := loginSession(t, admin.ID)

	identity, err := resolveRequest(t, svc, sessionID, "?user=erin")
	require.NoError(t, err)

	// projection follows the target, stamps follow the admin
	assert.Equal(t, admin.ID, identity.Actor.ID)
	assert.Equal(t, target.ID, identity.User.ID)
	assert.True(t, identity.Impersonating())
}

func TestResolveImpersonationNonAdmin(t *testing.T) {
	db := testdb.Open(t)
	initSessionStore()

	svc := NewService(db, nil)
	user := createUser(t, db, "frank", false)
	createUser(t, db, "grace", false)
	sessionID := loginSession(t, user.ID)

	_, err := resolveRequest(t, svc, sessionID, "?user=grace")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestResolveImpersonationSelf(t *testing.T) {
	db := testdb.Open(t)
	initSessionStore()

	svc := NewService(db, nil)
	user := createUser(t, db, "henry", false)
	sessionID := loginSession(t, user.ID)

	identity, err := resolveRequest(t, svc, sessionID, "?user=henry")
	require.NoError(t, err)
	assert.False(t, identity.Impersonating())
}

func TestResolveImpersonationUnknownTarget(t *testing.T) {
	db := testdb.Open(t)
	initSessionStore()

	svc := NewService(db, nil)
	admin := createUser(t, db, "root", true)
	sessionID := loginSession(t, admin.ID)

	_, err := resolveRequest(t, svc, sessionID, "?user=ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRequireUserMiddleware(t *testing.T) {
	db := testdb.Open(t)
	initSessionStore()

	svc := NewService(db, nil)
	user := createUser(t, db, "iris", false)
	sessionID := loginSession(t, user.ID)

	app := fiber.New()
	app.Get("/me", svc.RequireUser(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"username": FromContext(c).User.Username})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: sessionID})

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// unauthenticated
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/me", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAdminMiddleware(t *testing.T) {
	db := testdb.Open(t)
	initSessionStore()

	svc := NewService(db, nil)
	admin := createUser(t, db, "root", true)
	user := createUser(t, db, "judy", false)

	app := fiber.New()
	app.Get("/admin", svc.RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: loginSession(t, admin.ID)})

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: loginSession(t, user.ID)})

	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
