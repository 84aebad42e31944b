package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nossocofre/cofre_backend/utils"
)

// WorkspaceMiddleware carries the requested workspace id and a correlation
// id on the context. Membership is NOT checked here: the scope resolver
// re-validates it inside every model operation.
func WorkspaceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if workspaceId := c.Request.Header.Get("X-Workspace-Id"); workspaceId != "" {
			ctx = utils.SetWorkspaceIdInContext(ctx, workspaceId)
		}

		correlationId := c.Request.Header.Get("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
