package tenant_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"zapcrm/messaging-gateway/internal/domain/tenant"
	"zapcrm/messaging-gateway/internal/utils/gatewayerrors"
)

type mockRepository struct {
	GetOrCreateFunc            func(ctx context.Context, cfg *tenant.Configuration) (*tenant.Configuration, error)
	GetByIDFunc                func(ctx context.Context, id string) (*tenant.Configuration, error)
	UpdateConnectionStatusFunc func(ctx context.Context, id string, status tenant.ConnectionStatus, pairing *string) error
	UpdateOwnNumberFunc        func(ctx context.Context, id string, number string) error
}

func (m *mockRepository) GetOrCreate(ctx context.Context, cfg *tenant.Configuration) (*tenant.Configuration, error) {
	if m.GetOrCreateFunc != nil {
		return m.GetOrCreateFunc(ctx, cfg)
	}
	return cfg, nil
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*tenant.Configuration, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockRepository) UpdateConnectionStatus(ctx context.Context, id string, status tenant.ConnectionStatus, pairing *string) error {
	if m.UpdateConnectionStatusFunc != nil {
		return m.UpdateConnectionStatusFunc(ctx, id, status, pairing)
	}
	return nil
}

func (m *mockRepository) UpdateOwnNumber(ctx context.Context, id string, number string) error {
	if m.UpdateOwnNumberFunc != nil {
		return m.UpdateOwnNumberFunc(ctx, id, number)
	}
	return nil
}

type mockRegistry struct {
	ValidateAccountFunc func(ctx context.Context, accountID string) (bool, error)
}

func (m *mockRegistry) ValidateAccount(ctx context.Context, accountID string) (bool, error) {
	if m.ValidateAccountFunc != nil {
		return m.ValidateAccountFunc(ctx, accountID)
	}
	return true, nil
}

func TestResolver_CreatesConfigurationOnFirstUse(t *testing.T) {
	var created *tenant.Configuration
	repo := &mockRepository{
		GetOrCreateFunc: func(ctx context.Context, cfg *tenant.Configuration) (*tenant.Configuration, error) {
			created = cfg
			return cfg, nil
		},
	}
	resolver := tenant.NewResolver(repo, &mockRegistry{}, zerolog.Nop())

	cfg, err := resolver.Resolve(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected a configuration to be created")
	}
	if cfg.AccountID != "acct-1" {
		t.Errorf("AccountID = %q, want acct-1", cfg.AccountID)
	}
	if !cfg.Active {
		t.Error("new configuration should be active")
	}
	if cfg.ConnectionStatus != tenant.StatusDisconnected {
		t.Errorf("ConnectionStatus = %q, want disconnected", cfg.ConnectionStatus)
	}
	if cfg.ID == "" {
		t.Error("configuration id should be assigned")
	}
}

func TestResolver_ReturnsExistingConfiguration(t *testing.T) {
	existing := &tenant.Configuration{
		ID:        "cfg-existing",
		AccountID: "acct-1",
		Active:    true,
	}
	repo := &mockRepository{
		GetOrCreateFunc: func(ctx context.Context, cfg *tenant.Configuration) (*tenant.Configuration, error) {
			return existing, nil
		},
	}
	resolver := tenant.NewResolver(repo, &mockRegistry{}, zerolog.Nop())

	first, err := resolver.Resolve(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := resolver.Resolve(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != "cfg-existing" || second.ID != "cfg-existing" {
		t.Errorf("expected both resolutions to return the existing configuration, got %q and %q", first.ID, second.ID)
	}
}

func TestResolver_UnknownAccount(t *testing.T) {
	registry := &mockRegistry{
		ValidateAccountFunc: func(ctx context.Context, accountID string) (bool, error) {
			return false, nil
		},
	}
	resolver := tenant.NewResolver(&mockRepository{}, registry, zerolog.Nop())

	_, err := resolver.Resolve(context.Background(), "ghost")
	if !gatewayerrors.IsNotFound(err) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestResolver_EmptyAccountID(t *testing.T) {
	resolver := tenant.NewResolver(&mockRepository{}, &mockRegistry{}, zerolog.Nop())

	_, err := resolver.Resolve(context.Background(), "")
	if !gatewayerrors.IsType(err, gatewayerrors.TypeValidation) {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestResolver_RegistryFailure(t *testing.T) {
	registry := &mockRegistry{
		ValidateAccountFunc: func(ctx context.Context, accountID string) (bool, error) {
			return false, errors.New("registry down")
		},
	}
	resolver := tenant.NewResolver(&mockRepository{}, registry, zerolog.Nop())

	_, err := resolver.Resolve(context.Background(), "acct-1")
	if err == nil {
		t.Fatal("expected error when the account registry is unreachable")
	}
	if gatewayerrors.IsNotFound(err) {
		t.Fatal("a registry outage must not masquerade as an unknown account")
	}
}
