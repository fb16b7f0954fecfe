package services

import "context"

// TenantConfig is the bootstrap payload for one tenant.
type TenantConfig struct {
	OrgID           string   `json:"org_id"`
	TenantName      string   `json:"tenant_name,omitempty"`
	LanguageDefault string   `json:"language_default,omitempty"`
	PropertyIDs     []string `json:"property_ids,omitempty"`
}

// Bootstrap fetches tenant metadata on (re)connect.
type Bootstrap interface {
	FetchTenantMetadata(ctx context.Context, sessionID, tenantID string) (*TenantConfig, error)
}

type bootstrapClient struct {
	*apiClient
}

// NewBootstrap creates an HTTP bootstrap client.
func NewBootstrap(baseURL string, opts ...ClientOption) (Bootstrap, error) {
	client, err := newAPIClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &bootstrapClient{apiClient: client}, nil
}

func (c *bootstrapClient) FetchTenantMetadata(ctx context.Context, sessionID, tenantID string) (*TenantConfig, error) {
	req := struct {
		SessionID string `json:"session_id"`
		TenantID  string `json:"tenant_id"`
	}{SessionID: sessionID, TenantID: tenantID}

	var cfg TenantConfig
	if err := c.doRequest(ctx, "POST", "/api/bootstrap", req, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
