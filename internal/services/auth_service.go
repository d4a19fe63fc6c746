package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"wallet/internal/core"
	"wallet/internal/log"
	"wallet/internal/storage"
)

// Session holds at most one authenticated user. Callers create one per
// interactive session and pass it to every call.
type Session struct {
	user *core.User
}

func NewSession() *Session {
	return &Session{}
}

// User returns the logged-in user or nil.
func (s *Session) User() *core.User {
	if s == nil {
		return nil
	}
	return s.user
}

// bcrypt only reads the first 72 bytes; longer passwords are refused rather
// than truncated so that logins need the whole password.
const maxPasswordBytes = 72

var errInvalidCredentials = core.NewAuthError("invalid username or password")

// AuthService registers users and binds them to sessions
type AuthService struct {
	store      storage.UserStore
	logger     *log.Logger
	bcryptCost int
}

type AuthOption func(*AuthService)

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) AuthOption {
	return func(a *AuthService) { a.bcryptCost = cost }
}

func NewAuthService(store storage.UserStore, logger *log.Logger, opts ...AuthOption) *AuthService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	a := &AuthService{
		store:      store,
		logger:     logger.WithComponent(log.ComponentAuth),
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register creates a user with an empty ledger. It does not log in.
func (a *AuthService) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.ErrEmptyUsername
	}
	if strings.TrimSpace(password) == "" {
		return core.ErrEmptyPassword
	}
	if len(password) > maxPasswordBytes {
		return core.ErrLongPassword
	}

	exists, err := a.store.Exists(ctx, username)
	if err != nil {
		return fmt.Errorf("check user %s: %w", username, err)
	}
	if exists {
		a.logger.InfoContext(ctx, "Registration rejected",
			log.FieldUser, username, log.FieldErrorType, log.ErrorTypeConflict)
		return core.NewDuplicateUserError(username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := core.NewUser(username, string(hash))
	if err := a.store.Put(ctx, user); err != nil {
		return fmt.Errorf("save user %s: %w", username, err)
	}

	a.logger.InfoContext(ctx, "User registered", log.FieldUser, username, log.FieldOperation, log.OpRegister)
	return nil
}

// Login binds the user to sess when the credentials match. Any failure
// leaves sess empty.
func (a *AuthService) Login(ctx context.Context, sess *Session, username, password string) error {
	if sess == nil {
		return core.NewAuthError("no session")
	}
	sess.user = nil
	username = strings.TrimSpace(username)

	user, err := a.store.Get(ctx, username)
	if errors.Is(err, core.ErrUserNotFound) {
		a.logger.InfoContext(ctx, "Login failed", log.FieldUser, username, log.FieldErrorType, log.ErrorTypeAuth)
		return errInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("load user %s: %w", username, err)
	}

	if len(password) > maxPasswordBytes ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		a.logger.InfoContext(ctx, "Login failed", log.FieldUser, username, log.FieldErrorType, log.ErrorTypeAuth)
		return errInvalidCredentials
	}

	sess.user = user
	a.logger.InfoContext(ctx, "User logged in", log.FieldUser, username, log.FieldOperation, log.OpLogin)
	return nil
}

// Logout empties the session. Logging out twice is fine.
func (a *AuthService) Logout(sess *Session) {
	if sess == nil || sess.user == nil {
		return
	}
	a.logger.Info("User logged out", log.FieldUser, sess.user.Username, log.FieldOperation, log.OpLogout)
	sess.user = nil
}

// CurrentUser returns the session's user itself, not a copy.
func (a *AuthService) CurrentUser(sess *Session) (*core.User, error) {
	if u := sess.User(); u != nil {
		return u, nil
	}
	return nil, core.NewAuthError("no user logged in")
}

func (a *AuthService) IsAuthenticated(sess *Session) bool {
	return sess.User() != nil
}
