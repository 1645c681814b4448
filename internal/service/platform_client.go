package service

import (
	"context"

	"github.com/mehulsinha/postpilot/internal/transfer"
)

// PlatformClient is the per-platform capability the services dispatch
// through: OAuth code exchange, profile lookup and post creation. One
// implementation exists per supported platform; callers look clients up in a
// name-keyed registry instead of branching on platform strings.
type PlatformClient interface {
	Name() string
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*transfer.TokenBundle, error)
	FetchProfile(ctx context.Context, accessToken string) (*transfer.PlatformProfile, error)
	Publish(ctx context.Context, cred transfer.PlatformCredential, content string) (string, error)
	PostURL(remoteID string) string
}

// PlatformRegistry maps lower-cased platform names to their clients.
type PlatformRegistry map[string]PlatformClient

func NewPlatformRegistry(clients ...PlatformClient) PlatformRegistry {
	reg := make(PlatformRegistry, len(clients))
	for _, c := range clients {
		reg[c.Name()] = c
	}
	return reg
}
