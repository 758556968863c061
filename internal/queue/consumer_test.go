package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestIsBusyGroup(t *testing.T) {
	assert.True(t, isBusyGroup(errors.New("BUSYGROUP Consumer Group name already exists")))
	assert.False(t, isBusyGroup(errors.New("NOGROUP No such key")))
}

func TestNewConsumer_DefaultClaimInterval(t *testing.T) {
	c := NewConsumer(nil, "advisor:sessions", "audit", "audit-1", 0, zerolog.Nop(), nil)
	assert.Equal(t, 30*time.Second, c.claimInterval)
}
