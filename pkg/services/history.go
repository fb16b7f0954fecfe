package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"
)

// Turn is one transcript entry bound for the history backend.
type Turn struct {
	OrgID     string    `json:"org_id"`
	TenantID  string    `json:"tenant_id"`
	SessionID string    `json:"session_id"`
	ItemID    string    `json:"item_id"`
	Role      string    `json:"role"`
	AgentName string    `json:"agent_name,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// HistorySink uploads new transcript turns in debounced batches. It is
// fire-and-forget: sink unavailability must never block the conversation.
type HistorySink interface {
	Record(turn Turn)
	Flush(ctx context.Context)
	Close()
}

type historyClient struct {
	*apiClient

	mu      sync.Mutex
	pending []Turn

	debounced func(func())
	closeOnce sync.Once
}

// NewHistorySink creates an HTTP history sink flushing at most once per
// debounce window.
func NewHistorySink(baseURL string, window time.Duration, opts ...ClientOption) (HistorySink, error) {
	client, err := newAPIClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &historyClient{
		apiClient: client,
		debounced: debounce.New(window),
	}, nil
}

func (c *historyClient) Record(turn Turn) {
	c.mu.Lock()
	c.pending = append(c.pending, turn)
	c.mu.Unlock()

	c.debounced(func() {
		// Uploads run off the session's event loop and swallow failures.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.Flush(ctx)
	})
}

func (c *historyClient) Flush(ctx context.Context) {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	if err := c.doRequest(ctx, "POST", "/api/history/batch", batch, nil); err != nil {
		slog.Warn("History upload failed, dropping batch", "count", len(batch), "error", err)
	}
}

func (c *historyClient) Close() {
	c.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Flush(ctx)
	})
}

// NopHistorySink discards every turn. Used when no history backend is
// configured.
type NopHistorySink struct{}

func (NopHistorySink) Record(Turn)           {}
func (NopHistorySink) Flush(context.Context) {}
func (NopHistorySink) Close()                {}
