package devices

import (
	"net/http"

	"callsync-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireDevice enforces the device-binding invariant: device_id must exist
// in context. This does not validate the device is still linked; that
// belongs to the registration layer once persistence exists.
func RequireDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		did, err := auth.DeviceID(c.Request.Context())
		if err != nil || did == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "device_id required"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole allows access if the calling device has any of the
// provided roles. Unknown roles are always denied: a token minted before a
// role was retired must not widen access.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.DeviceRole(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "device_role required"})
			return
		}
		if !IsKnownRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		if _, ok := allowedSet[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
