package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Osman8a/TDAH-REST-API/internal/events"
	"github.com/Osman8a/TDAH-REST-API/internal/ids"
	"github.com/Osman8a/TDAH-REST-API/internal/metrics"
	"github.com/Osman8a/TDAH-REST-API/internal/models"
	"github.com/Osman8a/TDAH-REST-API/internal/repository"
	"github.com/Osman8a/TDAH-REST-API/internal/security"
)

// UserStore persists user records. Both the Postgres repository and the
// memory store satisfy it.
type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Apply(ctx context.Context, id string, change models.UserChange) (models.User, error)
	Delete(ctx context.Context, id string) error
}

// SessionStore edits a user's token list in place.
type SessionStore interface {
	AppendToken(ctx context.Context, userID string, token models.Token) error
	RemoveToken(ctx context.Context, userID string, token string) error
}

type Deps struct {
	Users    UserStore
	Sessions SessionStore
	Hasher   Hasher
	Codec    security.TokenCodec
	Events   events.Publisher
	Metrics  *metrics.Metrics
	// FingerprintKey keys the token fingerprints written to logs and events.
	FingerprintKey string
	Log            zerolog.Logger
}

type AccountService struct {
	users          UserStore
	sessions       SessionStore
	hasher         Hasher
	codec          security.TokenCodec
	events         events.Publisher
	metrics        *metrics.Metrics
	fingerprintKey string
	// dummyDigest is verified against when the email is unknown, so both
	// login failures cost one hash comparison.
	dummyDigest    []byte
	validate       *validator.Validate
	log            zerolog.Logger
	now            func() time.Time
}

func NewAccountService(deps Deps) *AccountService {
	publisher := deps.Events
	if publisher == nil {
		publisher = events.Nop{}
	}
	s := &AccountService{
		users:          deps.Users,
		sessions:       deps.Sessions,
		hasher:         deps.Hasher,
		codec:          deps.Codec,
		events:         publisher,
		metrics:        deps.Metrics,
		fingerprintKey: deps.FingerprintKey,
		validate:       validator.New(),
		log:            deps.Log,
		now:            time.Now,
	}

	digest, err := deps.Hasher.Hash(ids.NewSortable())
	if err != nil {
		s.log.Warn().Err(err).Msg("precompute login digest failed")
	}
	s.dummyDigest = digest
	return s
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by the operations that open a session.
type AuthResult struct {
	Token string
	User  models.User
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AccountService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		s.metrics.AccountOp("register", "invalid")
		return AuthResult{}, invalid("email", "required")
	}
	if err := s.validate.Var(email, "email"); err != nil {
		s.metrics.AccountOp("register", "invalid")
		return AuthResult{}, invalid("email", "not a valid email")
	}

	digest, err := hashPassword(s.hasher, input.Password)
	if err != nil {
		s.metrics.AccountOp("register", outcome(err))
		return AuthResult{}, err
	}

	user, err := s.users.Create(ctx, models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: digest,
		DisplayName:  input.DisplayName,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			s.metrics.AccountOp("register", "duplicate")
			return AuthResult{}, ErrDuplicateEmail
		}
		s.metrics.AccountOp("register", "error")
		return AuthResult{}, internalErr("create user", err)
	}

	result, err := s.openSession(ctx, user)
	if err != nil {
		s.metrics.AccountOp("register", "error")
		// a retry must not run into its own half-created record
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("user_id", user.ID).Msg("remove account left without a session")
		}
		return AuthResult{}, err
	}

	s.metrics.AccountOp("register", "ok")
	s.publish(ctx, events.TypeRegistered, user.ID, result.Token)
	return result, nil
}

// Login returns ErrNotFound for an unknown email and for a wrong password
// alike.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_, _ = s.hasher.Verify(input.Password, s.dummyDigest)
			s.metrics.AccountOp("login", "not_found")
			return AuthResult{}, ErrNotFound
		}
		s.metrics.AccountOp("login", "error")
		return AuthResult{}, internalErr("find user", err)
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password digest unreadable")
		s.metrics.AccountOp("login", "error")
		return AuthResult{}, internalErr("verify password", err)
	}
	if !ok {
		s.metrics.AccountOp("login", "not_found")
		return AuthResult{}, ErrNotFound
	}

	result, err := s.openSession(ctx, user)
	if err != nil {
		s.metrics.AccountOp("login", "error")
		return AuthResult{}, err
	}

	s.metrics.AccountOp("login", "ok")
	s.publish(ctx, events.TypeLogin, user.ID, result.Token)
	return result, nil
}

// openSession issues a token for user and stores it before returning.
func (s *AccountService) openSession(ctx context.Context, user models.User) (AuthResult, error) {
	token, err := s.codec.Issue(user.ID)
	if err != nil {
		return AuthResult{}, internalErr("issue token", err)
	}

	entry := models.NewAuthToken(token)
	if err := s.sessions.AppendToken(ctx, user.ID, entry); err != nil {
		return AuthResult{}, internalErr("append token", err)
	}
	user.Tokens = append(user.Tokens.Clone(), entry)

	return AuthResult{Token: token, User: user}, nil
}

// Authenticate resolves a raw token to the user owning it. The token must
// decode under the current secret and still be in the user's session list.
func (s *AccountService) Authenticate(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrUnauthenticated
	}

	claims, err := s.codec.Decode(token)
	if err != nil {
		s.log.Debug().Str("token", s.fingerprint(token)).Msg("token rejected")
		return models.User{}, ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrUnauthenticated
		}
		return models.User{}, internalErr("load user", err)
	}

	if !user.Tokens.Contains(token) {
		s.log.Debug().Str("user_id", user.ID).Str("token", s.fingerprint(token)).Msg("token revoked")
		return models.User{}, ErrUnauthenticated
	}
	return user, nil
}

// Logout revokes token. Revoking a token that is already gone succeeds.
func (s *AccountService) Logout(ctx context.Context, user models.User, token string) error {
	if err := s.sessions.RemoveToken(ctx, user.ID, token); err != nil {
		return internalErr("remove token", err)
	}
	s.metrics.AccountOp("logout", "ok")
	s.publish(ctx, events.TypeLogout, user.ID, token)
	return nil
}

func (s *AccountService) LogoutAll(ctx context.Context, user models.User) error {
	if _, err := s.users.Apply(ctx, user.ID, models.UserChange{ClearSessions: true}); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUnauthenticated
		}
		return internalErr("clear sessions", err)
	}
	s.metrics.AccountOp("logout_all", "ok")
	s.publish(ctx, events.TypeSessionsRevoked, user.ID, "")
	return nil
}

// Update applies the supplied profile fields in one write. Supplying a
// password logs the user out everywhere.
func (s *AccountService) Update(ctx context.Context, user models.User, input UpdateInput) (models.User, error) {
	change, err := PlanUpdate(input, s.hasher)
	if err != nil {
		s.metrics.AccountOp("update", outcome(err))
		return models.User{}, err
	}
	if change.IsZero() {
		return user, nil
	}

	updated, err := s.users.Apply(ctx, user.ID, change)
	if err != nil {
		// deleted since the request was authenticated
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrUnauthenticated
		}
		s.metrics.AccountOp("update", "error")
		return models.User{}, internalErr("apply update", err)
	}

	s.metrics.AccountOp("update", "ok")
	if change.ClearSessions {
		s.publish(ctx, events.TypeSessionsRevoked, user.ID, "")
	}
	return updated, nil
}

func (s *AccountService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, internalErr("list users", err)
	}
	return users, nil
}

func (s *AccountService) Delete(ctx context.Context, user models.User) error {
	if err := s.users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUnauthenticated
		}
		return internalErr("delete user", err)
	}
	s.metrics.AccountOp("delete", "ok")
	s.publish(ctx, events.TypeDeleted, user.ID, "")
	return nil
}

// PruneExpiredSessions drops every stored token that no longer decodes,
// which with a TTL configured means the expired ones. It returns how many
// tokens were removed.
func (s *AccountService) PruneExpiredSessions(ctx context.Context) (int, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return 0, internalErr("list users", err)
	}

	removed := 0
	for _, user := range users {
		for _, entry := range user.Tokens {
			if _, err := s.codec.Decode(entry.Token); err == nil {
				continue
			}
			if err := s.sessions.RemoveToken(ctx, user.ID, entry.Token); err != nil {
				return removed, internalErr("remove token", err)
			}
			removed++
		}
	}
	return removed, nil
}

// publish never fails the caller; the audit stream is best effort.
func (s *AccountService) publish(ctx context.Context, eventType, userID, token string) {
	event := events.Event{
		Type:   eventType,
		UserID: userID,
		At:     s.now().UTC(),
	}
	if token != "" {
		event.Fingerprint = s.fingerprint(token)
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Str("user_id", userID).Msg("publish session event failed")
	}
}

func (s *AccountService) fingerprint(token string) string {
	return security.Fingerprint(s.fingerprintKey, token)
}

func outcome(err error) string {
	if errors.Is(err, ErrValidation) {
		return "invalid"
	}
	return "error"
}
