package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Osman8a/TDAH-REST-API/internal/models"
)

func seedUser(t *testing.T, s *MemoryStore, id, email string) models.User {
	t.Helper()
	user, err := s.Create(context.Background(), models.User{
		ID:           id,
		Email:        email,
		PasswordHash: []byte("digest"),
	})
	require.NoError(t, err)
	return user
}

func TestMemoryStore_CreateAndFind(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created := seedUser(t, s, "u1", "luigi@test.com")
	assert.Empty(t, created.Tokens)
	assert.False(t, created.CreatedAt.IsZero())

	byEmail, err := s.FindByEmail(ctx, "luigi@test.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)

	byID, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "luigi@test.com", byID.Email)

	_, err = s.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = s.FindByEmail(ctx, "missing@test.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryStore_DuplicateEmail(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "u1", "luigi@test.com")

	_, err := s.Create(context.Background(), models.User{ID: "u2", Email: "luigi@test.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	// the first record is untouched
	user, err := s.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []byte("digest"), user.PasswordHash)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedUser(t, s, "u1", "a@test.com")
	require.NoError(t, s.AppendToken(ctx, "u1", models.NewAuthToken("t1")))

	user, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	user.Tokens.Clear()
	user.PasswordHash[0] = 'X'

	again, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, again.Tokens, 1)
	assert.Equal(t, []byte("digest"), again.PasswordHash)
}

func TestMemoryStore_TokenLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedUser(t, s, "u1", "a@test.com")

	require.NoError(t, s.AppendToken(ctx, "u1", models.NewAuthToken("t1")))
	require.NoError(t, s.AppendToken(ctx, "u1", models.NewAuthToken("t2")))
	require.NoError(t, s.RemoveToken(ctx, "u1", "t1"))
	require.NoError(t, s.RemoveToken(ctx, "u1", "t1"))
	require.NoError(t, s.RemoveToken(ctx, "missing", "t1"))

	user, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.Sessions{models.NewAuthToken("t2")}, user.Tokens)

	err = s.AppendToken(ctx, "missing", models.NewAuthToken("t3"))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedUser(t, s, "u1", "a@test.com")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.AppendToken(ctx, "u1", models.NewAuthToken(fmt.Sprintf("t%d", i))))
		}(i)
	}
	wg.Wait()

	user, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, user.Tokens, 50)
}

func TestMemoryStore_Apply(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedUser(t, s, "u1", "a@test.com")
	require.NoError(t, s.AppendToken(ctx, "u1", models.NewAuthToken("t1")))

	name := "Pedro"
	user, err := s.Apply(ctx, "u1", models.UserChange{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Pedro", user.DisplayName)
	assert.Len(t, user.Tokens, 1)

	user, err = s.Apply(ctx, "u1", models.UserChange{PasswordHash: []byte("new"), ClearSessions: true})
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), user.PasswordHash)
	assert.Empty(t, user.Tokens)

	_, err = s.Apply(ctx, "missing", models.UserChange{ClearSessions: true})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryStore_ListAndDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedUser(t, s, "u1", "a@test.com")
	seedUser(t, s, "u2", "b@test.com")

	users, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, s.Delete(ctx, "u1"))
	assert.ErrorIs(t, s.Delete(ctx, "u1"), ErrUserNotFound)

	_, err = s.FindByEmail(ctx, "a@test.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	// the email is free again
	seedUser(t, s, "u3", "a@test.com")
}
