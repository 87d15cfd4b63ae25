package http

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"ledger/internal/auth"
	"ledger/internal/core"
	"ledger/internal/log"
)

const userKey = "currentUser"

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// UserResolver maps a verified subject to a local user.
type UserResolver interface {
	Resolve(ctx context.Context, subject string) (core.User, error)
}

// authMiddleware reads the token from the Authorization header, falling back
// to ?token= for downloads a browser opens directly.
func authMiddleware(verifier TokenVerifier, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		ctx := c.Request.Context()
		claims, err := verifier.Verify(token)
		if err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Rejected token",
				log.NewFields().WithComponent(log.ComponentAuth).WithError(err).ToSlice()...)
			unauthorized(c, "invalid or expired token")
			return
		}

		user, err := users.Resolve(ctx, claims.Subject())
		if err != nil {
			respondError(c, err)
			return
		}

		ctx = log.Enrich(ctx, log.FieldUserID, user.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(userKey, user)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// currentUser is only valid behind authMiddleware.
func currentUser(c *gin.Context) core.User {
	return c.MustGet(userKey).(core.User)
}
