package contracts

import "context"

// AuthResult is the token bundle issued by the SatuSehat OAuth2 endpoint.
type AuthResult struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type,omitempty"`
	ExpiresIn        string `json:"expires_in,omitempty"`
	IssuedAt         string `json:"issued_at,omitempty"`
	ClientID         string `json:"client_id,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
	Status           string `json:"status,omitempty"`
}

type AuthProvider interface {
	Auth(ctx context.Context) (*AuthResult, error)
}

// TokenInvalidator is implemented by providers that cache tokens and can forget one
// the upstream has rejected.
type TokenInvalidator interface {
	InvalidateToken(ctx context.Context) error
}
