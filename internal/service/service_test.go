package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Osman8a/TDAH-REST-API/internal/events"
	"github.com/Osman8a/TDAH-REST-API/internal/models"
	"github.com/Osman8a/TDAH-REST-API/internal/repository"
	"github.com/Osman8a/TDAH-REST-API/internal/security"
)

const testSecret = "test-secret"

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// rejectingCodec decodes like the wrapped codec except for tokens listed in
// dead, which it treats as expired.
type rejectingCodec struct {
	security.TokenCodec
	dead map[string]bool
}

func (c *rejectingCodec) Decode(token string) (security.SessionClaims, error) {
	if c.dead[token] {
		return security.SessionClaims{}, security.ErrInvalidToken
	}
	return c.TokenCodec.Decode(token)
}

type fixture struct {
	svc       *AccountService
	store     *repository.MemoryStore
	publisher *recordingPublisher
	codec     *rejectingCodec
}

func newTestHasher(t *testing.T) *security.PasswordHasher {
	t.Helper()
	h, err := security.NewPasswordHasher(security.PasswordOptions{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	return h
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	jwtCodec, err := security.NewJWTCodec(testSecret, 0)
	require.NoError(t, err)

	f := &fixture{
		store:     repository.NewMemoryStore(),
		publisher: &recordingPublisher{},
		codec:     &rejectingCodec{TokenCodec: jwtCodec, dead: map[string]bool{}},
	}
	f.svc = NewAccountService(Deps{
		Users:          f.store,
		Sessions:       f.store,
		Hasher:         newTestHasher(t),
		Codec:          f.codec,
		Events:         f.publisher,
		FingerprintKey: testSecret,
		Log:            zerolog.Nop(),
	})
	return f
}

func (f *fixture) register(t *testing.T, email, password string) AuthResult {
	t.Helper()
	result, err := f.svc.Register(context.Background(), RegisterInput{Email: email, Password: password})
	require.NoError(t, err)
	return result
}

var errBoom = errors.New("boom")

// countingHasher counts Verify calls on the wrapped hasher.
type countingHasher struct {
	Hasher
	verifies atomic.Int32
}

func (h *countingHasher) Verify(password string, digest []byte) (bool, error) {
	h.verifies.Add(1)
	return h.Hasher.Verify(password, digest)
}

type failingSessions struct {
	SessionStore
	fail bool
}

func (s *failingSessions) AppendToken(ctx context.Context, userID string, token models.Token) error {
	if s.fail {
		return errBoom
	}
	return s.SessionStore.AppendToken(ctx, userID, token)
}
