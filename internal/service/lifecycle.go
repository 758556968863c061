package service

import (
	"github.com/Osman8a/TDAH-REST-API/internal/models"
	"github.com/Osman8a/TDAH-REST-API/internal/security"
)

// Hasher turns plaintext passwords into digests and checks candidates
// against them.
type Hasher interface {
	Hash(password string) ([]byte, error)
	Verify(password string, digest []byte) (bool, error)
}

// UpdateInput carries the profile fields a caller supplied. A nil field was
// not supplied.
type UpdateInput struct {
	Password    *string
	DisplayName *string
}

// PlanUpdate computes the change an update makes to a user record. A new
// password always revokes every session in the same write; a display name
// alone never touches them.
func PlanUpdate(input UpdateInput, hasher Hasher) (models.UserChange, error) {
	var change models.UserChange

	if input.DisplayName != nil {
		name := *input.DisplayName
		change.DisplayName = &name
	}

	if input.Password != nil {
		digest, err := hashPassword(hasher, *input.Password)
		if err != nil {
			return models.UserChange{}, err
		}
		change.PasswordHash = digest
		change.ClearSessions = true
	}

	return change, nil
}

func hashPassword(hasher Hasher, password string) ([]byte, error) {
	digest, err := hasher.Hash(password)
	if err != nil {
		if security.IsPolicyViolation(err) {
			return nil, invalid("password", err.Error())
		}
		return nil, internalErr("hash password", err)
	}
	return digest, nil
}
