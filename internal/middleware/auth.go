package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Osman8a/TDAH-REST-API/internal/models"
	"github.com/Osman8a/TDAH-REST-API/internal/service"
)

// AuthHeader carries the session token on requests and responses.
const AuthHeader = "x-auth"

const (
	currentUserKey  = "current_user"
	sessionTokenKey = "session_token"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// Auth resolves the x-auth header to the user owning the token. Requests
// without a live token stop here with 401.
func Auth(auth Authenticator, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(AuthHeader)

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
				return
			}
			log.Error().
				Err(err).
				Str("request_id", c.Writer.Header().Get(requestIDHeader)).
				Msg("authenticate request")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}

		c.Set(sessionTokenKey, token)
		c.Set(currentUserKey, user)

		c.Next()
	}
}

// CurrentUser returns the user set by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}

func SessionToken(c *gin.Context) string {
	return c.GetString(sessionTokenKey)
}
