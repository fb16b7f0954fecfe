package services

import "context"

type SendCodeRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	SessionID   string `json:"session_id"`
	OrgID       string `json:"org_id"`
	TenantID    string `json:"tenant_id"`
}

type SendCodeResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type CheckCodeRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
	SessionID   string `json:"session_id"`
	OrgID       string `json:"org_id"`
	TenantID    string `json:"tenant_id"`
}

// CheckCodeResponse carries an explicit boolean outcome. Verified is the only
// authority on whether the code matched; the free-text message is never
// parsed for it.
type CheckCodeResponse struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message,omitempty"`
}

// Verification is the OTP backend.
type Verification interface {
	SendCode(ctx context.Context, req SendCodeRequest) (*SendCodeResponse, error)
	CheckCode(ctx context.Context, req CheckCodeRequest) (*CheckCodeResponse, error)
}

type verificationClient struct {
	*apiClient
}

// NewVerification creates an HTTP verification client.
func NewVerification(baseURL string, opts ...ClientOption) (Verification, error) {
	client, err := newAPIClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &verificationClient{apiClient: client}, nil
}

func (c *verificationClient) SendCode(ctx context.Context, req SendCodeRequest) (*SendCodeResponse, error) {
	var resp SendCodeResponse
	if err := c.doRequest(ctx, "POST", "/api/verification/send", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *verificationClient) CheckCode(ctx context.Context, req CheckCodeRequest) (*CheckCodeResponse, error) {
	var resp CheckCodeResponse
	if err := c.doRequest(ctx, "POST", "/api/verification/check", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
