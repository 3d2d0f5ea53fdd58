package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrAuthUnavailable = errors.New("authentication service unavailable")
)

type TokenInfo struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type AuthClient interface {
	Verify(ctx context.Context, token string) (*TokenInfo, error)
	Healthy(ctx context.Context) bool
}

type authClient struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

func NewAuthClient(baseURL string, timeout time.Duration, logger zerolog.Logger) AuthClient {
	return &authClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Verify delegates token validation to the authentication service. A
// rejection maps to ErrInvalidToken, unreachability to ErrAuthUnavailable;
// neither is retried here.
func (c *authClient) Verify(ctx context.Context, token string) (*TokenInfo, error) {
	url := fmt.Sprintf("%s/api/auth/verify", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("Auth service unreachable")
		return nil, ErrAuthUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrInvalidToken
	}

	var info TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode verify response: %w", err)
	}

	return &info, nil
}

func (c *authClient) Healthy(ctx context.Context) bool {
	url := fmt.Sprintf("%s/health", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
