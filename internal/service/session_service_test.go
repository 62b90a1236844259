package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/duetable-api/internal/models"
	"github.com/noah-isme/duetable-api/internal/repository"
	appErrors "github.com/noah-isme/duetable-api/pkg/errors"
)

type memoryKV struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
}

func newMemoryKV() *memoryKV { return &memoryKV{data: map[string]string{}} }

func (m *memoryKV) Get(_ context.Context, field string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[field]
	return v, ok, nil
}

func (m *memoryKV) Set(_ context.Context, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[field] = value
	return nil
}

func (m *memoryKV) Delete(_ context.Context, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fields {
		delete(m.data, f)
	}
	return nil
}

type fakeDirectory struct {
	users   map[string]*models.User
	created []models.CreateUserRequest
	err     error
}

func (f *fakeDirectory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[email]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "User not found")
}

func (f *fakeDirectory) CreateUser(_ context.Context, req models.CreateUserRequest) (*models.User, error) {
	f.created = append(f.created, req)
	return &models.User{ID: "new", Email: req.Email, CanvasAPIKey: req.CanvasAPIKey, School: req.School, FullName: req.FullName}, nil
}

var sessionNow = time.Date(2025, time.September, 1, 8, 0, 0, 0, time.UTC)

func newTestSessionService(kv SessionKV, dir userDirectory) *SessionService {
	svc := NewSessionService(kv, dir, nil, nil, SessionConfig{Secret: "seal", TokenSecret: "sign", TokenIssuer: "duetable", TokenLifetime: time.Hour})
	svc.now = func() time.Time { return sessionNow }
	return svc
}

func loginRequest(email string) models.CreateUserRequest {
	return models.CreateUserRequest{Email: email, CanvasAPIKey: "canvas-key", School: "https://uk.instructure.com", FullName: "Ada Student"}
}

func TestSessionLoginCreatesUser(t *testing.T) {
	kv := newMemoryKV()
	dir := &fakeDirectory{users: map[string]*models.User{}}
	svc := newTestSessionService(kv, dir)

	result, err := svc.Login(context.Background(), loginRequest("Ada@School.edu"))
	require.NoError(t, err)

	assert.True(t, result.Session.IsNewUser)
	assert.Equal(t, "ada@school.edu", result.Session.User.Email)
	assert.Equal(t, "2025 Fall", result.Session.SelectedSemester)
	assert.NotEmpty(t, result.Token)
	require.Len(t, dir.created, 1)

	assert.Equal(t, "true", kv.data[repository.SessionFieldAuthenticated])
	assert.Equal(t, "https://uk.instructure.com", kv.data[repository.SessionFieldSchoolURLKey])
	assert.NotContains(t, kv.data[repository.SessionFieldUserData], "canvas-key")

	creds, err := svc.Credentials()
	require.NoError(t, err)
	assert.Equal(t, models.Credentials{APIKey: "canvas-key", BaseURL: "https://uk.instructure.com", Email: "ada@school.edu"}, creds)
}

func TestSessionLoginExistingUser(t *testing.T) {
	dir := &fakeDirectory{users: map[string]*models.User{
		"ada@school.edu": {Email: "ada@school.edu", CanvasAPIKey: "stored", School: "https://school"},
	}}
	svc := newTestSessionService(newMemoryKV(), dir)

	result, err := svc.Login(context.Background(), loginRequest("ada@school.edu"))
	require.NoError(t, err)

	assert.False(t, result.Session.IsNewUser)
	assert.Equal(t, "stored", result.Session.User.CanvasAPIKey)
	assert.Empty(t, dir.created)
}

func TestSessionLoginValidation(t *testing.T) {
	svc := newTestSessionService(newMemoryKV(), &fakeDirectory{})

	_, err := svc.Login(context.Background(), models.CreateUserRequest{Email: "not-an-email"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSessionLoginUpstreamFailure(t *testing.T) {
	dir := &fakeDirectory{err: appErrors.FetchError("HTTP error! status: 500", errors.New("boom"))}
	svc := newTestSessionService(newMemoryKV(), dir)

	_, err := svc.Login(context.Background(), loginRequest("ada@school.edu"))
	assert.ErrorIs(t, err, appErrors.ErrFetch)
	assert.False(t, svc.Current().Authenticated)
}

func TestSessionRestoreRoundTrip(t *testing.T) {
	kv := newMemoryKV()
	dir := &fakeDirectory{users: map[string]*models.User{}}
	first := newTestSessionService(kv, dir)
	_, err := first.Login(context.Background(), loginRequest("ada@school.edu"))
	require.NoError(t, err)
	_, err = first.SetTerm(context.Background(), "2025 Spring")
	require.NoError(t, err)

	second := newTestSessionService(kv, dir)
	session, err := second.Restore(context.Background())
	require.NoError(t, err)

	assert.True(t, session.Authenticated)
	assert.Equal(t, "canvas-key", session.User.CanvasAPIKey)
	assert.Equal(t, "2025 Spring", session.SelectedSemester)
}

func TestSessionRestoreRejectsForeignSeal(t *testing.T) {
	kv := newMemoryKV()
	first := newTestSessionService(kv, &fakeDirectory{users: map[string]*models.User{}})
	_, err := first.Login(context.Background(), loginRequest("ada@school.edu"))
	require.NoError(t, err)

	other := NewSessionService(kv, nil, nil, nil, SessionConfig{Secret: "different", TokenSecret: "sign"})
	session, err := other.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, session.Authenticated)
	assert.Nil(t, session.User)
}

func TestSessionLogoutClearsEverything(t *testing.T) {
	kv := newMemoryKV()
	svc := newTestSessionService(kv, &fakeDirectory{users: map[string]*models.User{}})
	cleared := 0
	svc.OnClear(func() { cleared++ })

	result, err := svc.Login(context.Background(), loginRequest("ada@school.edu"))
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background()))

	assert.Equal(t, 1, cleared)
	assert.Empty(t, kv.data)
	assert.False(t, svc.Current().Authenticated)
	_, err = svc.Credentials()
	assert.ErrorIs(t, err, appErrors.ErrNoSession)
	_, err = svc.ValidateToken(result.Token)
	assert.ErrorIs(t, err, appErrors.ErrNoSession)
}

func TestSessionLoginSwitchingUserClears(t *testing.T) {
	svc := newTestSessionService(newMemoryKV(), &fakeDirectory{users: map[string]*models.User{}})
	cleared := 0
	svc.OnClear(func() { cleared++ })

	first, err := svc.Login(context.Background(), loginRequest("ada@school.edu"))
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), loginRequest("ada@school.edu"))
	require.NoError(t, err)
	assert.Equal(t, 0, cleared)

	_, err = svc.Login(context.Background(), loginRequest("bob@school.edu"))
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	_, err = svc.ValidateToken(first.Token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestSessionValidateToken(t *testing.T) {
	svc := newTestSessionService(newMemoryKV(), &fakeDirectory{users: map[string]*models.User{}})
	result, err := svc.Login(context.Background(), loginRequest("ada@school.edu"))
	require.NoError(t, err)

	claims, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "ada@school.edu", claims.Email)

	_, err = svc.ValidateToken("garbage")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	svc.now = func() time.Time { return sessionNow.Add(2 * time.Hour) }
	_, err = svc.ValidateToken(result.Token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestSessionSetTermValidates(t *testing.T) {
	kv := newMemoryKV()
	svc := newTestSessionService(kv, &fakeDirectory{})

	_, err := svc.SetTerm(context.Background(), "Fall")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	session, err := svc.SetTerm(context.Background(), "2024 Summer")
	require.NoError(t, err)
	assert.Equal(t, "2024 Summer", session.SelectedSemester)
	assert.Equal(t, "2024 Summer", kv.data[repository.SessionFieldSemester])
}

func TestSessionWriteFailureLeavesMemoryUntouched(t *testing.T) {
	kv := newMemoryKV()
	kv.setErr = errors.New("redis down")
	svc := newTestSessionService(kv, &fakeDirectory{users: map[string]*models.User{}})

	_, err := svc.Login(context.Background(), loginRequest("ada@school.edu"))
	require.Error(t, err)
	assert.False(t, svc.Current().Authenticated)
}

func TestSessionSetTermNotifiesOnChange(t *testing.T) {
	svc := newTestSessionService(newMemoryKV(), &fakeDirectory{})
	var terms []string
	svc.OnTermChange(func(term string) { terms = append(terms, term) })

	_, err := svc.SetTerm(context.Background(), "2025 Spring")
	require.NoError(t, err)
	_, err = svc.SetTerm(context.Background(), "2025 Spring")
	require.NoError(t, err)
	_, err = svc.SetTerm(context.Background(), "Spring")
	require.Error(t, err)

	assert.Equal(t, []string{"2025 Spring"}, terms)
}
