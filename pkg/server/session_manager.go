package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/channel"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/metadata"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/runtime"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/services"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/session"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/team"
)

// ManagerConfig wires the collaborators every session shares.
type ManagerConfig struct {
	Team      *team.Team
	Store     session.Store
	History   services.HistorySink
	Bootstrap services.Bootstrap
	TenantID  string
	OrgID     string
	RootAgent string
}

// Manager owns session lifecycle: creation, lookup, channel attachment and
// teardown. One orchestrator runs per attached session.
type Manager struct {
	cfg ManagerConfig

	mu      sync.Mutex
	running map[string]*runningSession
}

type runningSession struct {
	orch   *runtime.Orchestrator
	cancel context.CancelFunc
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Store == nil {
		cfg.Store = session.NewInMemoryStore()
	}
	if cfg.History == nil {
		cfg.History = services.NopHistorySink{}
	}
	return &Manager{
		cfg:     cfg,
		running: make(map[string]*runningSession),
	}
}

// CreateSession allocates a session with fresh identifiers and persists it.
func (m *Manager) CreateSession(ctx context.Context, req CreateSessionRequest) (*session.Session, error) {
	tenantID := req.TenantID
	if tenantID == "" {
		tenantID = m.cfg.TenantID
	}

	meta := metadata.New(uuid.New().String(), m.cfg.OrgID, tenantID)
	meta.Language = req.Language

	sess := session.New(meta)
	if err := m.cfg.Store.AddSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	slog.Info("Session created", "session_id", sess.ID, "tenant_id", tenantID)
	return sess, nil
}

// GetSession prefers the live session of a running orchestrator over the
// persisted copy.
func (m *Manager) GetSession(ctx context.Context, id string) (*session.Session, error) {
	m.mu.Lock()
	run, ok := m.running[id]
	m.mu.Unlock()
	if ok {
		return run.orch.Session(), nil
	}
	return m.cfg.Store.GetSession(ctx, id)
}

func (m *Manager) GetSessions(ctx context.Context) ([]session.Summary, error) {
	return m.cfg.Store.GetSessionSummaries(ctx)
}

// DeleteSession stops any running orchestrator and removes the session.
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	if run, ok := m.running[id]; ok {
		run.cancel()
		delete(m.running, id)
	}
	m.mu.Unlock()

	return m.cfg.Store.DeleteSession(ctx, id)
}

// Attach binds a channel to a session and runs its orchestrator until the
// channel closes. Blocks for the lifetime of the connection; a session holds
// at most one channel at a time.
func (m *Manager) Attach(ctx context.Context, sessionID string, ch channel.Channel) error {
	sess, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	orch := runtime.New(m.cfg.Team, ch, sess,
		runtime.WithSessionStore(m.cfg.Store),
		runtime.WithHistorySink(m.cfg.History),
		runtime.WithBootstrap(m.cfg.Bootstrap),
		runtime.WithRootAgent(m.cfg.RootAgent),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	if _, busy := m.running[sessionID]; busy {
		m.mu.Unlock()
		return fmt.Errorf("session %s already has an attached channel", sessionID)
	}
	m.running[sessionID] = &runningSession{orch: orch, cancel: cancel}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.running, sessionID)
		m.mu.Unlock()
	}()

	slog.Info("Channel attached", "session_id", sessionID)
	return orch.Run(runCtx)
}

// SendMessage queues a user utterance into the running session's pipeline.
func (m *Manager) SendMessage(sessionID, text string) (string, error) {
	m.mu.Lock()
	run, ok := m.running[sessionID]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("session %s has no attached channel", sessionID)
	}
	return run.orch.SendUserMessage(text), nil
}

// Close stops every running orchestrator.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, run := range m.running {
		run.cancel()
		delete(m.running, id)
	}
}
