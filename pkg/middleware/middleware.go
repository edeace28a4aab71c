// Package middleware provides the gin middleware stack.
package middleware

import (
	"github.com/gin-gonic/gin"

	ctxPkg "github.com/tvloop/tvloop/pkg/context"
	"github.com/tvloop/tvloop/pkg/internal/store"
)

// StoreMiddleware injects the asset store into every request context.
func StoreMiddleware(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxPkg.WithStore(c.Request.Context(), st)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
