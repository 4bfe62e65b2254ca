package httpapi

import (
	"net/http"
	"time"

	"callsync-platform/internal/auth"
	"callsync-platform/pkg/logger"
	"callsync-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// ingestCapTTL bounds how long a leaked slot survives a crashed request.
const ingestCapTTL = 30 * time.Second

// IngestCap limits concurrent event ingestion per user. The cap protects
// the per-conversation queues from one client flooding reconciliation; it
// is not a rate limit on distinct calls.
func IngestCap(rdb *redis.Client, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}
		uid, err := auth.UserID(c.Request.Context())
		if err != nil || uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
			return
		}
		key := "callsync:ingest_cap:" + uid

		ok, err := utils.AcquireConcurrencyCap(c.Request.Context(), rdb, key, limit, ingestCapTTL)
		if err != nil {
			// Redis trouble must not take event ingestion down with it.
			logger.FromGin(c).Warn("ingest cap acquire failed", "err", err)
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many concurrent events"})
			return
		}
		defer func() {
			if err := utils.ReleaseConcurrencyCap(c.Request.Context(), rdb, key); err != nil {
				logger.FromGin(c).Warn("ingest cap release failed", "err", err)
			}
		}()
		c.Next()
	}
}
