package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/logger"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/requestdata"
)

// TenantMiddleware resolves the tenant scope for every request. Auth lives
// in front of this service; by the time a request arrives the gateway has
// verified the caller and stamped X-Tenant-ID / X-User-ID. Tenant identity
// travels in the request context from here on, never in package state.
type TenantMiddleware struct {
	log *logger.Logger
}

func NewTenantMiddleware(baseLog *logger.Logger) *TenantMiddleware {
	return &TenantMiddleware{log: baseLog.With("middleware", "TenantMiddleware")}
}

func (m *TenantMiddleware) RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(c.GetHeader("X-Tenant-ID"))
		if err != nil || tenantID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "missing_tenant", "message": "X-Tenant-ID header required"}})
			return
		}

		// User id is optional for reads; mutation handlers that need an
		// actor will see uuid.Nil and the service layer records it as-is.
		userID, _ := uuid.Parse(c.GetHeader("X-User-ID"))

		rd := &requestdata.RequestData{TenantID: tenantID, UserID: userID}
		c.Request = c.Request.WithContext(requestdata.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}
