// Package handle implements the HTTP request handlers of the asset store.
package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tvloop/tvloop/pkg/internal/store"
	"github.com/tvloop/tvloop/pkg/internal/types"
)

// abortWithStoreError maps the store's sentinel errors onto HTTP codes.
func abortWithStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidName),
		errors.Is(err, store.ErrInvalidArgument),
		errors.Is(err, store.ErrInvalidFormat),
		errors.Is(err, store.ErrTooLarge):
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: err.Error()})
	}
}
