// Package context carries shared resources through request contexts so the
// service layer can reach the asset store without package-level globals.
package context

import (
	"context"

	"github.com/tvloop/tvloop/pkg/internal/store"
)

type contextKey string

const storeKey contextKey = "assetStore"

// WithStore stores the asset store in the context.
func WithStore(ctx context.Context, st *store.Store) context.Context {
	return context.WithValue(ctx, storeKey, st)
}

// GetStore retrieves the asset store from the context, or nil.
func GetStore(ctx context.Context) *store.Store {
	if st, ok := ctx.Value(storeKey).(*store.Store); ok {
		return st
	}

	return nil
}
