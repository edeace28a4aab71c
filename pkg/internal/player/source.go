package player

import (
	"context"

	"github.com/tvloop/tvloop/pkg/internal/client"
)

// StoreSource fetches the clip rotation from a remote asset store's /list
// endpoint.
type StoreSource struct {
	client *client.StoreClient
}

// NewStoreSource creates a StoreSource over an existing store client.
func NewStoreSource(cl *client.StoreClient) *StoreSource {
	return &StoreSource{client: cl}
}

// Fetch returns the store's current clips in listing order.
func (s *StoreSource) Fetch(ctx context.Context) ([]Clip, error) {
	listing, err := s.client.List(ctx)
	if err != nil {
		return nil, err
	}

	clips := make([]Clip, 0, len(listing.Videos))
	for _, v := range listing.Videos {
		clips = append(clips, Clip{Filename: v.Filename, URL: v.URL})
	}

	return clips, nil
}
