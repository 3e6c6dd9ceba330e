package tenant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"zapcrm/messaging-gateway/internal/utils/gatewayerrors"
)

// Resolver maps a staff account to its active session configuration,
// creating one lazily on first use.
type Resolver struct {
	repo     Repository
	registry AccountRegistry
	log      zerolog.Logger
}

func NewResolver(repo Repository, registry AccountRegistry, log zerolog.Logger) *Resolver {
	return &Resolver{
		repo:     repo,
		registry: registry,
		log:      log.With().Str("component", "tenant-resolver").Logger(),
	}
}

// Resolve returns the active configuration for the account. Repeated calls
// return the same configuration without creating duplicates.
func (r *Resolver) Resolve(ctx context.Context, accountID string) (*Configuration, error) {
	if accountID == "" {
		return nil, gatewayerrors.New(gatewayerrors.TypeValidation, "account id is empty")
	}

	exists, err := r.registry.ValidateAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("validate account %s: %w", accountID, err)
	}
	if !exists {
		return nil, gatewayerrors.Newf(gatewayerrors.TypeNotFound, "account %s not found", accountID)
	}

	cfg, err := r.repo.GetOrCreate(ctx, &Configuration{
		ID:               uuid.NewString(),
		AccountID:        accountID,
		Name:             fmt.Sprintf("Session %s", accountID),
		Active:           true,
		ConnectionStatus: StatusDisconnected,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve configuration for account %s: %w", accountID, err)
	}

	r.log.Debug().
		Str("account_id", accountID).
		Str("config_id", cfg.ID).
		Msg("resolved tenant configuration")
	return cfg, nil
}
