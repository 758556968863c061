package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Osman8a/TDAH-REST-API/internal/ids"
	"github.com/Osman8a/TDAH-REST-API/internal/models"
)

// ErrInvalidToken covers every token a caller could have forged, truncated
// or replayed past its expiry.
var ErrInvalidToken = errors.New("invalid token")

// TokenCodec mints and checks session tokens.
type TokenCodec interface {
	Issue(userID string) (string, error)
	Decode(token string) (SessionClaims, error)
}

type SessionClaims struct {
	UserID string `json:"uid"`
	Access string `json:"access"`
	jwt.RegisteredClaims
}

// JWTCodec signs tokens with HS256 under a single process-wide secret.
type JWTCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTCodec returns a codec for secret. A zero ttl issues tokens that stay
// valid for as long as the secret does.
func NewJWTCodec(secret string, ttl time.Duration) (*JWTCodec, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("token ttl %s is negative", ttl)
	}
	return &JWTCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (c *JWTCodec) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("issue token: empty user id")
	}

	now := c.now()
	claims := SessionClaims{
		UserID: userID,
		Access: models.AccessAuth,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       ids.NewSortable(),
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if c.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func (c *JWTCodec) Decode(tokenStr string) (SessionClaims, error) {
	if tokenStr == "" {
		return SessionClaims{}, ErrInvalidToken
	}

	var claims SessionClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return SessionClaims{}, ErrInvalidToken
	}
	if claims.UserID == "" || claims.Access != models.AccessAuth {
		return SessionClaims{}, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	return claims, nil
}
