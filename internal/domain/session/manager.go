package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"zapcrm/messaging-gateway/internal/domain/retry"
	"zapcrm/messaging-gateway/internal/domain/tenant"
	"zapcrm/messaging-gateway/internal/infrastructure/metrics"
	"zapcrm/messaging-gateway/internal/utils/gatewayerrors"
)

// ManagerOptions bundles the collaborators every manager shares.
type ManagerOptions struct {
	Factory       ClientFactory
	Repo          tenant.Repository
	Publisher     StatusPublisher
	Policy        retry.Policy
	ProbeInterval time.Duration
	Log           zerolog.Logger
}

// Manager drives the connection state machine for one tenant. Instances are
// independent units of concurrency; tenants never share connection state.
type Manager struct {
	cfg  *tenant.Configuration
	opts ManagerOptions
	log  zerolog.Logger

	// lifecycle serializes Start and Stop against each other.
	lifecycle sync.Mutex

	mu          sync.Mutex
	state       State
	pairing     *string
	client      Client
	startCancel context.CancelFunc
	probeStop   context.CancelFunc
}

// NewManager creates a manager in the disconnected state. The initial state
// is not persisted; the configuration row already carries the last-known one.
func NewManager(cfg *tenant.Configuration, opts ManagerOptions) *Manager {
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = 30 * time.Second
	}
	return &Manager{
		cfg:   cfg,
		opts:  opts,
		state: StateDisconnected,
		log: opts.Log.With().
			Str("component", "session-manager").
			Str("config_id", cfg.ID).
			Logger(),
	}
}

// Config returns the tenant configuration this manager serves.
func (m *Manager) Config() *tenant.Configuration { return m.cfg }

// Client returns the live client, or nil while disconnected.
func (m *Manager) Client() Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

// Status returns a snapshot with a fresh transport liveness check.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	connected := m.client != nil && m.client.IsConnected()
	return Status{
		State:          m.state,
		Connected:      connected,
		PairingPayload: m.pairing,
	}
}

// Start opens the underlying client, retrying transient initialization
// failures per the policy. The state machine then advances asynchronously:
// pairing once the network issues a pairing payload, connected once it
// acknowledges session readiness.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StatePairing || m.state == StateConnected {
		m.mu.Unlock()
		m.log.Debug().Msg("start ignored, session already running")
		return nil
	}
	startCtx, cancel := context.WithCancel(ctx)
	m.startCancel = cancel
	m.mu.Unlock()

	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	// The cancel func stays registered so a later Stop can break a start
	// that raced past this point; cancelling a finished start is a no-op.
	defer cancel()

	// Re-check now that the lifecycle lock is held: a concurrent Start may
	// have opened a client while this call was waiting, before any hook
	// advanced the state.
	m.mu.Lock()
	if m.client != nil || m.state == StatePairing || m.state == StateConnected {
		m.mu.Unlock()
		m.log.Debug().Msg("start ignored, session already running")
		return nil
	}
	m.mu.Unlock()

	var lastErr error
	for attempt := 1; ; attempt++ {
		select {
		case <-startCtx.Done():
			return gatewayerrors.Wrap(gatewayerrors.TypeInitialization, "session start aborted", startCtx.Err())
		default:
		}
		client, err := m.openClient(startCtx)
		if err == nil {
			m.mu.Lock()
			m.client = client
			probeCtx, probeCancel := context.WithCancel(context.Background())
			m.probeStop = probeCancel
			m.mu.Unlock()
			go m.probeLoop(probeCtx)
			m.log.Info().Int("attempts", attempt).Msg("session client opened")
			return nil
		}
		lastErr = err
		m.log.Warn().Err(err).Int("attempt", attempt).Msg("session initialization failed")

		if !m.opts.Policy.ShouldRetry(attempt) {
			break
		}
		select {
		case <-startCtx.Done():
			return gatewayerrors.Wrap(gatewayerrors.TypeInitialization, "session start aborted", startCtx.Err())
		case <-time.After(m.opts.Policy.CalculateDelay(attempt)):
		}
	}
	return gatewayerrors.Wrap(gatewayerrors.TypeInitialization, "session initialization failed", lastErr)
}

func (m *Manager) openClient(ctx context.Context) (Client, error) {
	client, err := m.opts.Factory(ctx, m.cfg, m)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		client.Disconnect()
		return nil, err
	}
	return client, nil
}

// Stop tears down the client and clears local session artifacts so a future
// Start always re-pairs cleanly. Safe to call concurrently with an in-flight
// Start; the liveness probe is cancelled before Stop returns.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.startCancel != nil {
		m.startCancel()
	}
	m.mu.Unlock()

	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	if m.probeStop != nil {
		m.probeStop()
		m.probeStop = nil
	}
	client := m.client
	m.client = nil
	m.mu.Unlock()

	if client != nil {
		client.Disconnect()
		if err := client.ClearSession(ctx); err != nil {
			m.log.Warn().Err(err).Msg("failed to clear session artifacts")
		}
	}

	m.transition(ctx, StateDisconnected, nil)
	m.log.Info().Msg("session stopped")
	return nil
}

// OnPairing implements Hooks.
func (m *Manager) OnPairing(code string) {
	m.transition(context.Background(), StatePairing, &code)
}

// OnConnected implements Hooks.
func (m *Manager) OnConnected(ownNumber string) {
	if ownNumber != "" && ownNumber != m.cfg.OwnNumber {
		m.cfg.OwnNumber = ownNumber
		if err := m.opts.Repo.UpdateOwnNumber(context.Background(), m.cfg.ID, ownNumber); err != nil {
			m.log.Error().Err(err).Msg("failed to persist own number")
		}
	}
	m.transition(context.Background(), StateConnected, nil)
}

// OnDisconnected implements Hooks. The session stays down until the caller
// restarts it; reconnect loops against a revoked session are a policy
// decision we do not make here.
func (m *Manager) OnDisconnected(reason string) {
	m.mu.Lock()
	current := m.state
	m.mu.Unlock()
	if current == StateDisconnected || current == StateAuthFailed {
		return
	}
	m.log.Warn().Str("reason", reason).Msg("session disconnected by network")
	m.transition(context.Background(), StateDisconnected, nil)
}

// OnLoggedOut implements Hooks. The network revoked the session; a manual
// re-pair is required.
func (m *Manager) OnLoggedOut(reason string) {
	m.log.Warn().Str("reason", reason).Msg("session logged out by network")
	m.transition(context.Background(), StateAuthFailed, nil)
}

func (m *Manager) probeLoop(ctx context.Context) {
	ticker := time.NewTicker(m.opts.ProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkLiveness()
		}
	}
}

// checkLiveness reconciles the internal state with the real transport state.
func (m *Manager) checkLiveness() {
	m.mu.Lock()
	stale := m.state == StateConnected && (m.client == nil || !m.client.IsConnected())
	m.mu.Unlock()
	if stale {
		m.log.Warn().Msg("transport down while state is connected, forcing disconnect")
		m.transition(context.Background(), StateDisconnected, nil)
	}
}

// transition applies the new state, persists it on the configuration record
// and emits a status-change notification.
func (m *Manager) transition(ctx context.Context, next State, pairing *string) {
	m.mu.Lock()
	if m.state == next && !statePayloadChanged(m.pairing, pairing) {
		m.mu.Unlock()
		return
	}
	prev := m.state
	m.state = next
	m.pairing = pairing
	m.mu.Unlock()

	m.log.Info().
		Str("from", string(prev)).
		Str("to", string(next)).
		Msg("session state transition")
	metrics.StateTransitionsTotal.WithLabelValues(string(next)).Inc()

	if err := m.opts.Repo.UpdateConnectionStatus(ctx, m.cfg.ID, next.ConnectionStatus(), pairing); err != nil {
		m.log.Error().Err(err).Msg("failed to persist connection status")
	}
	if m.opts.Publisher != nil {
		evt := StatusEvent{
			ConfigID:       m.cfg.ID,
			AccountID:      m.cfg.AccountID,
			State:          next,
			PairingPayload: pairing,
			At:             time.Now().UTC(),
		}
		if err := m.opts.Publisher.PublishStatus(ctx, evt); err != nil {
			m.log.Error().Err(err).Msg("failed to publish status event")
		}
	}
}

func statePayloadChanged(a, b *string) bool {
	if a == nil && b == nil {
		return false
	}
	if a == nil || b == nil {
		return true
	}
	return *a != *b
}
