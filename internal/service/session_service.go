package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/noah-isme/duetable-api/internal/models"
	"github.com/noah-isme/duetable-api/internal/repository"
	appErrors "github.com/noah-isme/duetable-api/pkg/errors"
)

const nonceSize = 24

// SessionKV is the persistent key-value store behind the session.
type SessionKV interface {
	Get(ctx context.Context, field string) (string, bool, error)
	Set(ctx context.Context, field, value string) error
	Delete(ctx context.Context, fields ...string) error
}

type userDirectory interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error)
}

// SessionConfig configures token issuing and credential sealing.
type SessionConfig struct {
	Secret        string
	TokenSecret   string
	TokenIssuer   string
	TokenLifetime time.Duration
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	Session   models.Session
	Token     string
	ExpiresAt time.Time
}

// SessionService owns the single signed-in user. Every mutation is written to
// the key-value store before it becomes visible in memory.
type SessionService struct {
	kv        SessionKV
	users     userDirectory
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SessionConfig
	key       [32]byte
	now       func() time.Time

	mu        sync.RWMutex
	session   models.Session
	listeners []func()
	onTerm    []func(term string)
}

// NewSessionService constructs a session service. Call Restore to load the
// persisted session.
func NewSessionService(kv SessionKV, users userDirectory, validate *validator.Validate, logger *zap.Logger, cfg SessionConfig) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TokenLifetime <= 0 {
		cfg.TokenLifetime = 24 * time.Hour
	}
	secret := cfg.Secret
	if secret == "" {
		secret = cfg.TokenSecret
	}
	return &SessionService{
		kv:        kv,
		users:     users,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		key:       sha256.Sum256([]byte(secret)),
		now:       time.Now,
	}
}

// OnClear registers fn to run after logout or a user switch.
func (s *SessionService) OnClear(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// OnTermChange registers fn to run after the selected semester changes.
func (s *SessionService) OnTermChange(fn func(term string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTerm = append(s.onTerm, fn)
}

// Restore rebuilds the session from the key-value store. A record that cannot
// be read back is treated as signed out.
func (s *SessionService) Restore(ctx context.Context) (models.Session, error) {
	session := models.Session{SelectedSemester: DefaultSemester(s.now())}

	if term, ok, err := s.kv.Get(ctx, repository.SessionFieldSemester); err != nil {
		return models.Session{}, err
	} else if ok && term != "" {
		session.SelectedSemester = term
	}

	flag, _, err := s.kv.Get(ctx, repository.SessionFieldAuthenticated)
	if err != nil {
		return models.Session{}, err
	}
	sealed, hasUser, err := s.kv.Get(ctx, repository.SessionFieldUserData)
	if err != nil {
		return models.Session{}, err
	}
	if flag == "true" && hasUser {
		user, err := s.openUser(sealed)
		if err != nil {
			s.logger.Warn("discarding unreadable session user", zap.Error(err))
		} else {
			session.Authenticated = true
			session.User = user
			session.SchoolURLKey = user.School
			if key, ok, err := s.kv.Get(ctx, repository.SessionFieldSchoolURLKey); err == nil && ok && key != "" {
				session.SchoolURLKey = key
			}
		}
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
	return session, nil
}

// Current returns a copy of the session.
func (s *SessionService) Current() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session := s.session
	if session.User != nil {
		user := *session.User
		session.User = &user
	}
	return session
}

// Credentials returns the upstream credentials of the signed-in user.
func (s *SessionService) Credentials() (models.Credentials, error) {
	creds, ok := s.Current().Credentials()
	if !ok {
		return models.Credentials{}, appErrors.ErrNoSession
	}
	return creds, nil
}

// Login signs in an existing upstream user or registers a new one, replacing
// any previous session.
func (s *SessionService) Login(ctx context.Context, req models.CreateUserRequest) (*LoginResult, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	isNew := false
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, appErrors.ErrNotFound) {
			return nil, err
		}
		user, err = s.users.CreateUser(ctx, req)
		if err != nil {
			return nil, err
		}
		isNew = true
	}
	if user.CanvasAPIKey == "" {
		user.CanvasAPIKey = req.CanvasAPIKey
	}

	sealed, err := s.sealUser(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "seal session")
	}

	s.mu.Lock()
	switched := s.session.Authenticated && s.session.User != nil && s.session.User.Email != user.Email
	term := s.session.SelectedSemester
	if term == "" {
		term = DefaultSemester(s.now())
	}
	writes := []struct{ field, value string }{
		{repository.SessionFieldAuthenticated, "true"},
		{repository.SessionFieldUserData, sealed},
		{repository.SessionFieldSchoolURLKey, user.School},
		{repository.SessionFieldSemester, term},
	}
	for _, w := range writes {
		if err := s.kv.Set(ctx, w.field, w.value); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	s.session = models.Session{
		Authenticated:    true,
		User:             user,
		SchoolURLKey:     user.School,
		SelectedSemester: term,
		IsNewUser:        isNew,
	}
	session := s.session
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	if switched {
		for _, fn := range listeners {
			fn()
		}
	}

	token, expiresAt, err := s.issueToken(user.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "issue session token")
	}
	s.logger.Info("session started", zap.String("email", user.Email), zap.Bool("new_user", isNew))
	return &LoginResult{Session: session, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout clears the session from memory and the key-value store.
func (s *SessionService) Logout(ctx context.Context) error {
	s.mu.Lock()
	if err := s.kv.Delete(ctx, repository.SessionFields...); err != nil {
		s.mu.Unlock()
		return err
	}
	s.session = models.Session{SelectedSemester: DefaultSemester(s.now())}
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	s.logger.Info("session cleared")
	return nil
}

// SetTerm changes the selected semester.
func (s *SessionService) SetTerm(ctx context.Context, term string) (models.Session, error) {
	term = strings.TrimSpace(term)
	if !ValidSemester(term) {
		return models.Session{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid term %q", term))
	}
	s.mu.Lock()
	if err := s.kv.Set(ctx, repository.SessionFieldSemester, term); err != nil {
		s.mu.Unlock()
		return models.Session{}, err
	}
	changed := s.session.SelectedSemester != term
	s.session.SelectedSemester = term
	listeners := append([]func(string){}, s.onTerm...)
	s.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(term)
		}
		s.logger.Info("term changed", zap.String("term", term))
	}
	return s.Current(), nil
}

// ValidateToken checks a bearer token against the active session.
func (s *SessionService) ValidateToken(tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.TokenSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	session := s.Current()
	if !session.Authenticated || session.User == nil {
		return nil, appErrors.ErrNoSession
	}
	if !strings.EqualFold(session.User.Email, claims.Email) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token belongs to another session")
	}
	return claims, nil
}

func (s *SessionService) issueToken(email string) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.cfg.TokenLifetime)
	claims := &models.SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.TokenIssuer,
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// sealUser encrypts the user record so the Canvas API key is never stored in clear.
func (s *SessionService) sealUser(user *models.User) (string, error) {
	payload, err := json.Marshal(user)
	if err != nil {
		return "", err
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	box := secretbox.Seal(nonce[:], payload, &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

func (s *SessionService) openUser(sealed string) (*models.User, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("decode session user: %w", err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return nil, errors.New("session user too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	payload, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, errors.New("session user failed authentication")
	}
	var user models.User
	if err := json.Unmarshal(payload, &user); err != nil {
		return nil, fmt.Errorf("unmarshal session user: %w", err)
	}
	return &user, nil
}
