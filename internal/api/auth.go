package api

import (
	"context"
	"fmt"

	"dca-grid-console/internal/config"
	"dca-grid-console/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// AuthClient covers the token endpoints, which run outside the
// authenticated session.
type AuthClient struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewAuthClient creates a client for the auth endpoints.
func NewAuthClient(cfg *config.Backend, logger *zap.Logger) *AuthClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Content-Type", "application/json")

	return &AuthClient{http: client, logger: logger}
}

// Register creates an account and returns the issued session.
func (c *AuthClient) Register(ctx context.Context, email, password string) (models.Session, error) {
	return c.exchange(ctx, "/auth/register/", credentialsWire{Email: email, Password: password})
}

// Login authenticates and returns the issued session.
func (c *AuthClient) Login(ctx context.Context, email, password string) (models.Session, error) {
	return c.exchange(ctx, "/auth/login/", credentialsWire{Email: email, Password: password})
}

// Refresh exchanges a refresh token for a new token pair. Wired into
// the session manager as its RefreshFunc.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (models.Session, error) {
	return c.exchange(ctx, "/auth/refresh/", refreshRequestWire{RefreshToken: refreshToken})
}

// Logout revokes the refresh token server-side.
func (c *AuthClient) Logout(ctx context.Context, refreshToken string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(logoutRequestWire{RefreshToken: refreshToken}).
		Post("/auth/logout/")
	return checkResponse(resp, err)
}

func (c *AuthClient) exchange(ctx context.Context, path string, body any) (models.Session, error) {
	var pair tokenPairWire
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&pair).
		Post(path)
	if err := checkResponse(resp, err); err != nil {
		return models.Session{}, fmt.Errorf("auth exchange failed: %w", err)
	}
	return sessionFromWire(&pair), nil
}
