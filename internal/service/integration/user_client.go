package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
)

type UserClient interface {
	GetCandidate(ctx context.Context, candidateID string) (*models.Candidate, error)
	Healthy(ctx context.Context) bool
}

type userClient struct {
	baseURL      string
	serviceToken string
	retryCount   int
	retryDelay   time.Duration
	client       *http.Client
	cache        *redis.Client
	cacheTTL     time.Duration
	logger       zerolog.Logger
}

// NewUserClient fetches candidate records from the user service with the
// shared service credential. Responses are cached in Redis; pass a nil
// cache to disable caching.
func NewUserClient(
	baseURL, serviceToken string,
	timeout time.Duration,
	retryCount int,
	retryDelay time.Duration,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) UserClient {
	return &userClient{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		retryCount:   retryCount,
		retryDelay:   retryDelay,
		client: &http.Client{
			Timeout: timeout,
		},
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func (c *userClient) GetCandidate(ctx context.Context, candidateID string) (*models.Candidate, error) {
	if cached := c.fromCache(ctx, candidateID); cached != nil {
		return cached, nil
	}

	url := fmt.Sprintf("%s/api/users/service/%s", c.baseURL, candidateID)

	var lastErr error

	for i := 0; i <= c.retryCount; i++ {
		if i > 0 {
			c.logger.Warn().Int("attempt", i).Str("candidate_id", candidateID).Msg("Retrying candidate fetch")
			time.Sleep(c.retryDelay * time.Duration(i))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to fetch candidate: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			var candidate models.Candidate
			if err := json.NewDecoder(resp.Body).Decode(&candidate); err != nil {
				resp.Body.Close()
				lastErr = fmt.Errorf("failed to decode candidate: %w", err)
				continue
			}
			resp.Body.Close()

			c.toCache(ctx, candidateID, &candidate)
			return &candidate, nil
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return nil, nil
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("user service returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil, fmt.Errorf("failed to fetch candidate after %d attempts: %w", c.retryCount+1, lastErr)
}

func (c *userClient) Healthy(ctx context.Context) bool {
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

func (c *userClient) fromCache(ctx context.Context, candidateID string) *models.Candidate {
	if c.cache == nil {
		return nil
	}

	data, err := c.cache.Get(ctx, cacheKey(candidateID)).Bytes()
	if err != nil {
		return nil
	}

	var candidate models.Candidate
	if err := json.Unmarshal(data, &candidate); err != nil {
		return nil
	}

	c.logger.Debug().Str("candidate_id", candidateID).Msg("Candidate served from cache")
	return &candidate
}

func (c *userClient) toCache(ctx context.Context, candidateID string, candidate *models.Candidate) {
	if c.cache == nil {
		return
	}

	data, err := json.Marshal(candidate)
	if err != nil {
		return
	}

	if err := c.cache.Set(ctx, cacheKey(candidateID), data, c.cacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("Failed to cache candidate")
	}
}

func cacheKey(candidateID string) string {
	return "candidate:" + candidateID
}
