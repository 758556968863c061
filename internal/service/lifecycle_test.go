package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHasher struct{}

func (failingHasher) Hash(string) ([]byte, error)         { return nil, errBoom }
func (failingHasher) Verify(string, []byte) (bool, error) { return false, errBoom }

func strPtr(s string) *string { return &s }

func TestPlanUpdate_DisplayNameStoredAsSent(t *testing.T) {
	change, err := PlanUpdate(UpdateInput{DisplayName: strPtr(" Pedro ")}, newTestHasher(t))
	require.NoError(t, err)

	require.NotNil(t, change.DisplayName)
	assert.Equal(t, " Pedro ", *change.DisplayName)
	assert.Nil(t, change.PasswordHash)
	assert.False(t, change.ClearSessions)
}

func TestPlanUpdate_PasswordClearsSessions(t *testing.T) {
	h := newTestHasher(t)
	change, err := PlanUpdate(UpdateInput{Password: strPtr("secret-1")}, h)
	require.NoError(t, err)

	assert.True(t, change.ClearSessions)
	ok, err := h.Verify("secret-1", change.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPlanUpdate_Empty(t *testing.T) {
	change, err := PlanUpdate(UpdateInput{}, newTestHasher(t))
	require.NoError(t, err)
	assert.True(t, change.IsZero())
}

func TestPlanUpdate_Errors(t *testing.T) {
	_, err := PlanUpdate(UpdateInput{Password: strPtr("123")}, newTestHasher(t))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = PlanUpdate(UpdateInput{Password: strPtr("123456")}, failingHasher{})
	assert.ErrorIs(t, err, ErrInternal)
	assert.NotErrorIs(t, err, ErrValidation)
}
