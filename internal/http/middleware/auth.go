package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/askarbek/marketpay/internal/auth"
	"github.com/askarbek/marketpay/internal/model"
	"github.com/askarbek/marketpay/internal/repository"
)

const profileContextKey = "marketpay.profile"

// Auth resolves the Bearer token to a stored profile and attaches it to the
// request context. Unknown tokens and unknown profiles both answer 401; no
// detail about which check failed leaks out. Store failures are not an auth
// verdict and answer 5xx instead.
func Auth(parser *auth.Parser, repo *repository.LedgerRepository, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}

		profileID, err := parser.ProfileID(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		profile, err := repo.GetProfile(c.Request.Context(), profileID)
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			case errors.Is(err, repository.ErrTxConflict):
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
			default:
				log.Error().Err(err).Str("profile_id", profileID.String()).Msg("load profile for auth")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		c.Set(profileContextKey, *profile)
		c.Next()
	}
}

// MustProfile returns the profile attached by Auth.
func MustProfile(c *gin.Context) (model.Profile, bool) {
	value, exists := c.Get(profileContextKey)
	if !exists {
		return model.Profile{}, false
	}
	profile, ok := value.(model.Profile)
	return profile, ok
}
