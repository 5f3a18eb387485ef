package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guyt101z/ichnaea/internal/apierr"
	"github.com/guyt101z/ichnaea/internal/domain"
)

const (
	apiKeyCtxKey = "apiKey"

	// APIKeyParam is the query parameter carrying the client API key.
	APIKeyParam = "key"
)

// APIKeyStore resolves API keys and counts their daily usage.
// GetAPIKey returns (nil, nil) for an unknown key. IncrementUsage owns the
// mapping of at to a day bucket and returns the count for that day.
type APIKeyStore interface {
	GetAPIKey(ctx context.Context, key string) (*domain.APIKey, error)
	IncrementUsage(ctx context.Context, key string, at time.Time) (int64, error)
}

// APIKeyGate rejects requests without a known API key (InvalidAPIKey) and
// requests over the key's daily limit (DailyLimitExceeded). Every accepted
// or over-limit request counts toward the store's day bucket for now().
//
// The resolved key is stored in the Gin context; see APIKeyFrom.
func APIKeyGate(store APIKeyStore, now func() time.Time) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.Query(APIKeyParam))
		if raw == "" {
			apierr.New(apierr.InvalidAPIKey).Abort(c)
			return
		}
		ctx := c.Request.Context()
		k, err := store.GetAPIKey(ctx, raw)
		if err != nil {
			abortInternal(c, err, "api key lookup failed")
			return
		}
		if k == nil {
			apierr.New(apierr.InvalidAPIKey).Abort(c)
			return
		}
		c.Set(apiKeyCtxKey, k)

		count, err := store.IncrementUsage(ctx, k.Key, now())
		if err != nil {
			abortInternal(c, err, "api key usage update failed")
			return
		}
		if k.MaxRequests > 0 && count > int64(k.MaxRequests) {
			apierr.New(apierr.DailyLimitExceeded).Abort(c)
			return
		}
		c.Next()
	}
}

// APIKeyFrom returns the key accepted by APIKeyGate.
func APIKeyFrom(c *gin.Context) (*domain.APIKey, bool) {
	v, ok := c.Get(apiKeyCtxKey)
	if !ok {
		return nil, false
	}
	k, ok := v.(*domain.APIKey)
	return k, ok
}

// APIKeyNameFrom returns the shortname of the accepted key, or "".
// The key itself is never exposed to logs.
func APIKeyNameFrom(c *gin.Context) string {
	if k, ok := APIKeyFrom(c); ok {
		return k.Shortname
	}
	return ""
}

func abortInternal(c *gin.Context, err error, msg string) {
	LoggerFrom(c).Error().Err(err).Msg(msg)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"request_id": RequestIDFrom(c),
		"code":       "internal_error",
		"message":    "internal server error",
	})
}
